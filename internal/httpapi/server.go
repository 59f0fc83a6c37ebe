// Package httpapi serves the partner intake forms over HTTP. Browsers get
// server-rendered step pages that post back with the post/redirect/get
// pattern; API clients get JSON step documents.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formwizard/internal/logging"
	"github.com/goliatone/go-formwizard/pkg/catalog"
	"github.com/goliatone/go-formwizard/pkg/openapi"
	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/session"
	"github.com/goliatone/go-formwizard/pkg/submission"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics mounts handler on GET /metrics.
func WithMetrics(handler http.Handler) Option {
	return func(s *Server) {
		s.metrics = handler
	}
}

// WithOpenAPI publishes the generated API document on GET /openapi.json.
func WithOpenAPI(info openapi.Info) Option {
	return func(s *Server) {
		s.apiInfo = &info
	}
}

// WithAssets serves files under /assets/, typically the bundled stylesheet.
func WithAssets(files fs.FS) Option {
	return func(s *Server) {
		s.assets = files
	}
}

// WithTheme applies a resolved go-theme configuration to rendered pages.
func WithTheme(cfg *theme.RendererConfig) Option {
	return func(s *Server) {
		s.theme = cfg
	}
}

// WithLocale sets the default locale and the translator used for pages. A
// "locale" query parameter overrides the default per request.
func WithLocale(locale string, translator render.Translator) Option {
	return func(s *Server) {
		s.locale = locale
		s.translator = translator
	}
}

// Server wires the session manager and the renderers to HTTP routes.
type Server struct {
	forms     *catalog.Store
	sessions  *session.Manager
	renderers *render.Registry

	logger     *slog.Logger
	metrics    http.Handler
	assets     fs.FS
	theme      *theme.RendererConfig
	locale     string
	translator render.Translator

	apiInfo *openapi.Info
	apiOnce sync.Once
	apiDoc  []byte
	apiErr  error
}

// New builds a Server. forms lists what GET /forms publishes and should be
// the same store the session manager resolves definitions from.
func New(forms *catalog.Store, sessions *session.Manager, renderers *render.Registry, opts ...Option) *Server {
	s := &Server{
		forms:     forms,
		sessions:  sessions,
		renderers: renderers,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	if s.apiInfo != nil {
		r.Get("/openapi.json", s.openAPI)
	}
	if s.assets != nil {
		r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServerFS(s.assets)))
	}

	r.Route("/forms", func(r chi.Router) {
		r.Get("/", s.listForms)
		r.Get("/{form}", s.getForm)
		r.Post("/{form}/sessions", s.createSession)
	})
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.getSession)
		r.Delete("/", s.deleteSession)
		r.Post("/next", s.navigate(func(ctx context.Context, ctrl *wizard.Controller, _ *http.Request, input wizard.Values) (wizard.Outcome, error) {
			return ctrl.Next(ctx, input)
		}))
		r.Post("/previous", s.navigate(func(_ context.Context, ctrl *wizard.Controller, _ *http.Request, input wizard.Values) (wizard.Outcome, error) {
			return ctrl.Previous(input)
		}))
		r.Post("/submit", s.navigate(func(ctx context.Context, ctrl *wizard.Controller, _ *http.Request, input wizard.Values) (wizard.Outcome, error) {
			return ctrl.Submit(ctx, input)
		}))
		r.Post("/steps/{index}", s.navigate(func(ctx context.Context, ctrl *wizard.Controller, req *http.Request, input wizard.Values) (wizard.Outcome, error) {
			target, err := strconv.Atoi(chi.URLParam(req, "index"))
			if err != nil {
				return wizard.Outcome{}, wizard.ErrStepOutOfRange
			}
			return ctrl.GoTo(ctx, target, input)
		}))
	})
	return r
}

type formSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Steps       int    `json:"steps"`
}

type errorBody struct {
	Error string `json:"error"`
}

type validationBody struct {
	Error  string             `json:"error"`
	Step   string             `json:"step,omitempty"`
	Errors wizard.FieldErrors `json:"errors"`
}

type rejectionBody struct {
	Error  string              `json:"error"`
	Step   string              `json:"step,omitempty"`
	Errors map[string][]string `json:"errors"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) openAPI(w http.ResponseWriter, r *http.Request) {
	s.apiOnce.Do(func() {
		doc, err := openapi.Describe(r.Context(), s.forms, *s.apiInfo)
		if err != nil {
			s.apiErr = err
			return
		}
		s.apiDoc, s.apiErr = openapi.MarshalJSON(doc)
	})
	if s.apiErr != nil {
		s.fail(w, r, s.apiErr)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(s.apiDoc)
}

func (s *Server) listForms(w http.ResponseWriter, _ *http.Request) {
	out := make([]formSummary, 0, s.forms.Len())
	for _, form := range s.forms.List() {
		out = append(out, formSummary{
			ID:          form.ID(),
			Title:       form.Definition.Title(),
			Description: form.Description,
			Steps:       form.Definition.Len(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getForm(w http.ResponseWriter, r *http.Request) {
	form, ok := s.forms.Get(chi.URLParam(r, "form"))
	if !ok {
		s.fail(w, r, session.ErrUnknownForm)
		return
	}
	writeJSON(w, http.StatusOK, form.Definition)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.sessions.Create(r.Context(), chi.URLParam(r, "form"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	location := sessionPath(info.ID)
	w.Header().Set("Location", location)

	renderer, err := s.negotiate(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if renderer.Name() != "json" {
		http.Redirect(w, r, location, http.StatusSeeOther)
		return
	}
	s.respond(w, r, info.ID, http.StatusCreated, nil, nil)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, chi.URLParam(r, "id"), http.StatusOK, nil, nil)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Discard(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type navigation func(ctx context.Context, ctrl *wizard.Controller, r *http.Request, input wizard.Values) (wizard.Outcome, error)

func (s *Server) navigate(move navigation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		input, err := readInput(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}

		renderer, err := s.negotiate(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}

		var outcome wizard.Outcome
		var stepID string
		err = s.sessions.Do(r.Context(), id, func(ctx context.Context, ctrl *wizard.Controller) error {
			if input.step >= 0 && input.step != ctrl.Index() && !ctrl.Submitted() {
				return fmt.Errorf("%w: posted step %d, session is on %d", errStalePage, input.step, ctrl.Index())
			}
			stepID = ctrl.Step().ID
			if !ctrl.Submitted() {
				input.clearUnchecked(ctrl.Step())
			}
			var moveErr error
			outcome, moveErr = move(ctx, ctrl, r, input.values)
			return moveErr
		})
		if errors.Is(err, errStalePage) && renderer.Name() != "json" {
			http.Redirect(w, r, sessionPath(id), http.StatusSeeOther)
			return
		}
		if payload, ok := submission.RejectionPayload(err); ok {
			if renderer.Name() == "json" {
				writeJSON(w, http.StatusUnprocessableEntity, rejectionBody{Error: err.Error(), Step: stepID, Errors: payload})
				return
			}
			s.respond(w, r, id, http.StatusUnprocessableEntity, input.values, payload)
			return
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}

		switch {
		case outcome.Invalid() && renderer.Name() == "json":
			writeJSON(w, http.StatusUnprocessableEntity, validationBody{
				Error:  "validation failed",
				Step:   stepID,
				Errors: outcome.Errors,
			})
		case outcome.Invalid():
			s.respond(w, r, id, http.StatusUnprocessableEntity, input.values, nil)
		case renderer.Name() == "json":
			s.respond(w, r, id, http.StatusOK, nil, nil)
		default:
			http.Redirect(w, r, sessionPath(id), http.StatusSeeOther)
		}
	}
}

// respond renders the session's active step. overlay carries rejected input
// so the page shows what the user typed next to the errors; payload carries
// problems reported by the submitter.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, id string, status int, overlay wizard.Values, payload map[string][]string) {
	renderer, err := s.negotiate(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var body []byte
	err = s.sessions.Do(r.Context(), id, func(ctx context.Context, ctrl *wizard.Controller) error {
		opts := s.renderOptions(r, id)
		opts.Errors = payload
		var renderErr error
		body, renderErr = renderer.Render(ctx, render.ViewOf(ctrl, overlay), opts)
		return renderErr
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", renderer.ContentType())
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) renderOptions(r *http.Request, id string) render.RenderOptions {
	locale := s.locale
	if q := r.URL.Query().Get("locale"); q != "" {
		locale = q
	}
	return render.RenderOptions{
		Action:     sessionPath(id),
		Hidden:     render.MergeHiddenFields(nil, render.SessionField(id)),
		Theme:      s.theme,
		Locale:     locale,
		Translator: s.translator,
	}
}

// negotiate picks a renderer from ?format= or the Accept header.
func (s *Server) negotiate(r *http.Request) (render.Renderer, error) {
	if format := r.URL.Query().Get("format"); format != "" {
		return s.renderers.Get(format)
	}
	return s.renderers.Negotiate(r.Header.Get("Accept"))
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logging.LogWith(r.Context(), s.logger).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrUnknownForm),
		errors.Is(err, wizard.ErrStepOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, wizard.ErrSubmitted), errors.Is(err, errStalePage):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func sessionPath(id string) string {
	return "/sessions/" + id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
