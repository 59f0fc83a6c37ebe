// Package formwizard is the entry point of the multi-step partner intake
// forms: the embedded catalog, controllers over its definitions and the
// rendering surfaces that draw them.
package formwizard

import (
	"fmt"
	"io/fs"

	"github.com/goliatone/go-formwizard/pkg/catalog"
	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/renderers/html"
	"github.com/goliatone/go-formwizard/pkg/renderers/jsonview"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// Definition aliases wizard.Definition.
type Definition = wizard.Definition

// Controller aliases wizard.Controller.
type Controller = wizard.Controller

// Values aliases wizard.Values.
type Values = wizard.Values

// FieldErrors aliases wizard.FieldErrors.
type FieldErrors = wizard.FieldErrors

// Submission aliases wizard.Submission.
type Submission = wizard.Submission

// RenderOptions describes per-request data renderers use for action URLs,
// hidden fields, external errors, theming and localisation.
type RenderOptions = render.RenderOptions

// Forms returns the embedded catalog of partner forms.
func Forms() *catalog.Store {
	return catalog.Default()
}

// NewController starts a controller on the embedded form formID.
func NewController(formID string, options ...wizard.Option) (*wizard.Controller, error) {
	def, ok := catalog.Default().Definition(formID)
	if !ok {
		return nil, fmt.Errorf("formwizard: unknown form %q", formID)
	}
	return wizard.New(def, options...)
}

// NewRegistry registers the HTML renderer (the default) and the JSON view.
func NewRegistry(options ...html.Option) (*render.Registry, error) {
	page, err := html.New(options...)
	if err != nil {
		return nil, err
	}
	registry := render.NewRegistry()
	if err := registry.Register(page); err != nil {
		return nil, err
	}
	if err := registry.Register(jsonview.New()); err != nil {
		return nil, err
	}
	return registry, nil
}

// EmbeddedTemplates exposes the built-in page templates so callers can copy
// and restyle them (see html.WithTemplatesDir).
func EmbeddedTemplates() fs.FS {
	return html.TemplatesFS()
}

// AssetsFS exposes the bundled stylesheet.
//
// Typical mount:
//
//	mux.Handle("/assets/",
//	  http.StripPrefix("/assets/",
//	    http.FileServerFS(formwizard.AssetsFS()),
//	  ),
//	)
func AssetsFS() fs.FS {
	return html.AssetsFS()
}
