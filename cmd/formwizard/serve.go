package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formwizard/internal/httpapi"
	"github.com/goliatone/go-formwizard/pkg/metrics"
	"github.com/goliatone/go-formwizard/pkg/openapi"
	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/renderers/html"
	"github.com/goliatone/go-formwizard/pkg/renderers/jsonview"
	"github.com/goliatone/go-formwizard/pkg/session"
	"github.com/goliatone/go-formwizard/pkg/submission"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the forms over HTTP",
		Long:  `Starts the HTTP server with server-rendered step pages, the JSON API, /openapi.json and /metrics.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			handler, sessions, err := a.buildServer()
			if err != nil {
				return err
			}
			listener, err := net.Listen("tcp", a.cfg.Server.Addr)
			if err != nil {
				return err
			}
			return a.serve(ctx, listener, handler, sessions)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func (a *app) buildServer() (http.Handler, *session.Manager, error) {
	store, err := a.forms()
	if err != nil {
		return nil, nil, err
	}

	recorder := metrics.NewRecorder()
	sessions := session.NewManager(store,
		session.WithTTL(a.cfg.Session.TTL),
		session.WithObserver(recorder),
		session.WithLogger(a.logger),
		session.WithControllerOptions(
			wizard.WithSubmitter(submission.NewLog(a.logger)),
			wizard.WithObserver(recorder),
			wizard.WithLogger(a.logger),
		),
	)

	var htmlOpts []html.Option
	if a.cfg.Theme.Stylesheet != "" {
		htmlOpts = append(htmlOpts, html.WithStylesheetURL(a.cfg.Theme.Stylesheet))
	}
	page, err := html.New(htmlOpts...)
	if err != nil {
		return nil, nil, err
	}
	renderers := render.NewRegistry()
	if err := renderers.Register(page); err != nil {
		return nil, nil, err
	}
	if err := renderers.Register(jsonview.New()); err != nil {
		return nil, nil, err
	}

	srv := httpapi.New(store, sessions, renderers,
		httpapi.WithLogger(a.logger),
		httpapi.WithMetrics(recorder.Handler()),
		httpapi.WithOpenAPI(openapi.Info{Title: "Partner intake forms", Version: "1.0.0"}),
		httpapi.WithAssets(html.AssetsFS()),
		httpapi.WithTheme(a.theme()),
		httpapi.WithLocale(a.cfg.Forms.Locale, nil),
	)
	return srv.Handler(), sessions, nil
}

// serve runs until ctx ends, then drains in-flight requests within the
// configured grace period.
func (a *app) serve(ctx context.Context, listener net.Listener, handler http.Handler, sessions *session.Manager) error {
	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go sessions.Run(janitorCtx, a.cfg.Session.SweepInterval)

	serverErrors := make(chan error, 1)
	go func() {
		a.logger.Info("formwizard listening", "addr", listener.Addr().String())
		serverErrors <- srv.Serve(listener)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down", "grace", a.cfg.Server.ShutdownGrace)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("graceful shutdown did not complete", "error", err)
		return srv.Close()
	}
	a.logger.Info("server stopped", "sessions", sessions.Len())
	return nil
}
