// Package html renders wizard steps as server-side HTML pages. Navigation
// works without JavaScript: every button posts the step's inputs to the
// action URL suffixed with the navigation verb.
package html

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/render"
	rendertemplate "github.com/goliatone/go-formwizard/pkg/render/template"
	"github.com/goliatone/go-formwizard/pkg/render/template/pongo"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

const pageTemplate = "templates/page.tmpl"

// Option configures the renderer.
type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	stylesheetURL    string
}

// WithTemplatesFS supplies an alternate template bundle. It must contain
// templates/page.tmpl.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path != "" {
			cfg.templateFS = os.DirFS(path)
		}
	}
}

// WithTemplateRenderer injects a custom template engine.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithStylesheetURL links an external stylesheet instead of inlining the
// bundled one. A theme "stylesheet" asset takes precedence.
func WithStylesheetURL(url string) Option {
	return func(cfg *config) {
		cfg.stylesheetURL = strings.TrimSpace(url)
	}
}

// Renderer draws one step page per call.
type Renderer struct {
	templates     rendertemplate.TemplateRenderer
	stylesheetURL string
	inlineCSS     string
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the renderer.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}

	engine := cfg.templateRenderer
	if engine == nil {
		built, err := pongo.New(pongo.WithFS(cfg.templateFS), pongo.WithExtension(".tmpl"))
		if err != nil {
			return nil, fmt.Errorf("html renderer: configure template renderer: %w", err)
		}
		engine = built
	}

	return &Renderer{
		templates:     engine,
		stylesheetURL: cfg.stylesheetURL,
		inlineCSS:     defaultStylesheet(),
	}, nil
}

func (r *Renderer) Name() string { return "html" }

func (r *Renderer) ContentType() string { return "text/html; charset=utf-8" }

// Render localises view, folds external errors onto it and renders the page.
func (r *Renderer) Render(ctx context.Context, view render.View, opts render.RenderOptions) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("html renderer: template renderer is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	view.ApplyPayload(opts.Errors)
	render.LocalizeView(&view, opts)

	result, err := r.templates.RenderTemplate(pageTemplate, r.pageData(view, opts))
	if err != nil {
		return nil, fmt.Errorf("html renderer: render template: %w", err)
	}
	return []byte(result), nil
}

func (r *Renderer) pageData(view render.View, opts render.RenderOptions) map[string]any {
	action := strings.TrimSuffix(opts.Action, "/")

	fields := make([]map[string]any, 0, len(view.Step.Fields))
	for _, field := range view.Step.Fields {
		options := make([]map[string]any, 0, len(field.Options))
		for _, opt := range field.Options {
			options = append(options, map[string]any{
				"value":    opt.Value,
				"label":    opt.Label,
				"selected": opt.Selected,
			})
		}
		fields = append(fields, map[string]any{
			"name":        field.Name,
			"label":       field.Label,
			"kind":        string(field.Kind),
			"input_type":  inputType(field.Kind),
			"placeholder": field.Placeholder,
			"help_html":   sanitizeHelp(field.Help),
			"required":    field.Required,
			"value":       field.Value,
			"checked":     field.Checked(),
			"error":       field.Error,
			"options":     options,
		})
	}

	steps := make([]map[string]any, 0, len(view.Steps))
	for _, link := range view.Steps {
		steps = append(steps, map[string]any{
			"index":   link.Index,
			"number":  link.Index + 1,
			"title":   link.Title,
			"current": link.Current,
			"visited": link.Visited,
			"url":     action + "/steps/" + strconv.Itoa(link.Index),
		})
	}

	hidden := render.SortedHiddenFields(render.MergeHiddenFields(opts.Hidden, render.StepField(view.Index)))
	hiddenData := make([]map[string]any, 0, len(hidden))
	for _, h := range hidden {
		hiddenData = append(hiddenData, map[string]any{"name": h.Name, "value": h.Value})
	}

	stylesheet := render.AssetURL(opts.Theme, "stylesheet")
	if stylesheet == "" {
		stylesheet = r.stylesheetURL
	}
	inline := ""
	if stylesheet == "" {
		inline = r.inlineCSS
	}
	themeName, themeVariant := "", ""
	if opts.Theme != nil {
		themeName, themeVariant = opts.Theme.Theme, opts.Theme.Variant
	}

	return map[string]any{
		"form": map[string]any{
			"id":          view.FormID,
			"title":       view.Title,
			"description": view.Description,
		},
		"step": map[string]any{
			"id":          view.Step.ID,
			"title":       view.Step.Title,
			"description": view.Step.Description,
			"number":      view.Index + 1,
		},
		"total":       view.Total,
		"progress":    view.Progress,
		"first":       view.First,
		"last":        view.Last,
		"submitted":   view.Submitted,
		"fields":      fields,
		"steps":       steps,
		"form_errors": view.FormErrors,
		"has_errors":  len(view.Errors) > 0 || len(view.FormErrors) > 0,
		"hidden":      hiddenData,
		"actions": map[string]any{
			"next":     action + "/next",
			"previous": action + "/previous",
			"submit":   action + "/submit",
		},
		"theme": map[string]any{
			"name":           themeName,
			"variant":        themeVariant,
			"css_vars_style": render.CSSVarsStyle(opts.Theme),
			"stylesheet":     stylesheet,
			"inline_css":     inline,
		},
		"locale": opts.Locale,
	}
}

func inputType(kind wizard.FieldKind) string {
	switch kind {
	case wizard.FieldKindEmail, wizard.FieldKindURL, wizard.FieldKindNumber, wizard.FieldKindDate, wizard.FieldKindFile:
		return string(kind)
	case wizard.FieldKindPhone:
		return "tel"
	case wizard.FieldKindCheckbox:
		return "checkbox"
	default:
		return "text"
	}
}
