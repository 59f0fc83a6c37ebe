package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	theme "github.com/goliatone/go-theme"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formwizard/internal/config"
	"github.com/goliatone/go-formwizard/internal/logging"
	"github.com/goliatone/go-formwizard/pkg/catalog"
	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/renderers/tui"
)

// app is the state shared by every subcommand once the root pre-run loaded
// the configuration.
type app struct {
	configPath string
	logLevel   string

	stdout io.Writer
	stderr io.Writer

	cfg    config.Config
	logger *slog.Logger
	// lookup reads environment overrides; tests replace it.
	lookup func(string) (string, bool)
	// driver overrides the terminal prompts of fill.
	driver tui.PromptDriver
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	return newRoot(&app{stdout: stdout, stderr: stderr, lookup: os.LookupEnv})
}

func newRoot(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "formwizard",
		Short:         "Multi-step partner intake forms",
		Long:          `formwizard drives the hospital, doctor, government, insurance, travel agency and patient intake forms over HTTP or in the terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		newFormsCommand(a),
		newFillCommand(a),
		newServeCommand(a),
		newOpenAPICommand(a),
	)
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath, a.lookup)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(level, format, a.stderr)
	return nil
}

// forms returns the configured catalog: forms.dir when set, the embedded
// definitions otherwise.
func (a *app) forms() (*catalog.Store, error) {
	if a.cfg.Forms.Dir == "" {
		return catalog.Default(), nil
	}
	store, err := catalog.LoadFS(os.DirFS(a.cfg.Forms.Dir))
	if err != nil {
		return nil, fmt.Errorf("load forms from %s: %w", a.cfg.Forms.Dir, err)
	}
	return store, nil
}

// theme resolves the configured theme, or nil when none is set.
func (a *app) theme() *theme.RendererConfig {
	t := a.cfg.Theme
	if t.Name == "" && t.Stylesheet == "" && len(t.Tokens) == 0 {
		return nil
	}
	manifest := &theme.Manifest{
		Name:   t.Name,
		Tokens: t.Tokens,
	}
	if t.Stylesheet != "" {
		manifest.Assets.Files = map[string]string{"stylesheet": t.Stylesheet}
	}
	if t.Variant != "" {
		manifest.Variants = map[string]theme.Variant{t.Variant: {}}
	}
	return render.ThemeConfig(manifest, t.Variant)
}
