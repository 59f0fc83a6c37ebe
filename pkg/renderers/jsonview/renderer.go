// Package jsonview renders wizard steps as JSON documents for API clients
// and single page front-ends.
package jsonview

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/render"
)

// Option configures the renderer.
type Option func(*Renderer)

// WithIndent pretty prints documents with the given indent.
func WithIndent(indent string) Option {
	return func(r *Renderer) {
		r.indent = indent
	}
}

// Renderer encodes a View together with the navigation links a client needs.
type Renderer struct {
	indent string
}

var _ render.Renderer = (*Renderer)(nil)

// Document is the JSON payload produced per step.
type Document struct {
	render.View
	Hidden  map[string]string `json:"hidden,omitempty"`
	Actions *Actions          `json:"actions,omitempty"`
	Theme   *Theme            `json:"theme,omitempty"`
	Locale  string            `json:"locale,omitempty"`
}

// Actions are the navigation endpoints for the active step. Empty entries
// are omitted when the move is not available.
type Actions struct {
	Next     string         `json:"next,omitempty"`
	Previous string         `json:"previous,omitempty"`
	Submit   string         `json:"submit,omitempty"`
	Steps    map[int]string `json:"steps,omitempty"`
}

// Theme carries the resolved theme selection.
type Theme struct {
	Name       string            `json:"name"`
	Variant    string            `json:"variant,omitempty"`
	CSSVars    map[string]string `json:"cssVars,omitempty"`
	Stylesheet string            `json:"stylesheet,omitempty"`
}

// New constructs the renderer.
func New(options ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Renderer) Name() string { return "json" }

func (r *Renderer) ContentType() string { return "application/json; charset=utf-8" }

// Render localises view and encodes it as a Document.
func (r *Renderer) Render(ctx context.Context, view render.View, opts render.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	view.ApplyPayload(opts.Errors)
	render.LocalizeView(&view, opts)

	doc := Build(view, opts)
	var (
		out []byte
		err error
	)
	if r.indent != "" {
		out, err = json.MarshalIndent(doc, "", r.indent)
	} else {
		out, err = json.Marshal(doc)
	}
	if err != nil {
		return nil, fmt.Errorf("json renderer: encode view: %w", err)
	}
	return out, nil
}

// Build assembles the Document for view without encoding it.
func Build(view render.View, opts render.RenderOptions) Document {
	doc := Document{
		View:   view,
		Hidden: render.MergeHiddenFields(opts.Hidden, render.StepField(view.Index)),
		Locale: opts.Locale,
	}
	if !view.Submitted {
		doc.Actions = actions(view, opts.Action)
	}
	if opts.Theme != nil {
		doc.Theme = &Theme{
			Name:       opts.Theme.Theme,
			Variant:    opts.Theme.Variant,
			CSSVars:    opts.Theme.CSSVars,
			Stylesheet: render.AssetURL(opts.Theme, "stylesheet"),
		}
	}
	return doc
}

func actions(view render.View, action string) *Actions {
	base := strings.TrimSuffix(action, "/")
	if base == "" {
		return nil
	}
	out := &Actions{}
	if view.Last {
		out.Submit = base + "/submit"
	} else {
		out.Next = base + "/next"
	}
	if !view.First {
		out.Previous = base + "/previous"
	}
	for _, link := range view.Steps {
		if link.Visited && !link.Current {
			if out.Steps == nil {
				out.Steps = make(map[int]string)
			}
			out.Steps[link.Index] = base + "/steps/" + strconv.Itoa(link.Index)
		}
	}
	return out
}
