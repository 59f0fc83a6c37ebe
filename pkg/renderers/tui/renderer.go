// Package tui drives wizard forms from a terminal. Prompts go through a
// PromptDriver (survey by default) so the loop can be scripted in tests.
package tui

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// Renderer prompts for step fields. Render collects one step; Run drives a
// controller through the whole form.
type Renderer struct {
	driver       PromptDriver
	out          io.Writer
	outputFormat OutputFormat
	theme        Theme
	locale       string
	translator   render.Translator
	logger       *slog.Logger
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) *Renderer {
	r := &Renderer{
		out:          os.Stdout,
		outputFormat: OutputFormatJSON,
		theme:        DefaultTheme,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(r.out)
	}
	return r
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// Render prompts for the fields of view's step and returns the answers in the
// configured output format.
func (r *Renderer) Render(ctx context.Context, view render.View, opts render.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	view.ApplyPayload(opts.Errors)
	if opts.Translator == nil {
		opts.Locale, opts.Translator = r.locale, r.translator
	}
	render.LocalizeView(&view, opts)

	input, err := r.promptStep(ctx, view)
	if err != nil {
		return nil, err
	}
	return r.Encode(input)
}

type move int

const (
	moveForward move = iota
	moveBack
	moveJump
	moveCancel
)

type choice struct {
	label  string
	move   move
	target int
}

// Run prompts step by step until the form is submitted, the user cancels, or
// ctx ends. Invalid input keeps the user on the step with their answers as
// defaults.
func (r *Renderer) Run(ctx context.Context, ctrl *wizard.Controller) (*wizard.Submission, error) {
	if ctrl == nil {
		return nil, errors.New("tui: controller is nil")
	}
	if ctrl.Submitted() {
		return nil, wizard.ErrSubmitted
	}
	formID := ctrl.Definition().ID()

	var draft wizard.Values
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		view := render.ViewOf(ctrl, draft)
		render.LocalizeView(&view, render.RenderOptions{Locale: r.locale, Translator: r.translator})
		if err := r.header(ctx, view); err != nil {
			return nil, err
		}

		input, err := r.promptStep(ctx, view)
		if err != nil {
			return nil, err
		}
		picked, err := r.promptNavigation(ctx, view)
		if err != nil {
			return nil, err
		}

		var out wizard.Outcome
		switch picked.move {
		case moveCancel:
			r.logger.Debug("form canceled", "form_id", formID, "step", view.Index)
			return nil, ErrCanceled
		case moveBack:
			out, err = ctrl.Previous(input)
		case moveJump:
			out, err = ctrl.GoTo(ctx, picked.target, input)
		default:
			out, err = ctrl.Next(ctx, input)
		}
		if err != nil {
			return nil, err
		}

		switch out.Status {
		case wizard.StatusSubmitted:
			r.logger.Debug("form submitted", "form_id", formID)
			_ = r.driver.Info(ctx, r.theme.InfoPrefix+" "+view.Title+" submitted")
			return out.Submission, nil
		case wizard.StatusInvalid:
			draft = input
			_ = r.driver.Info(ctx, fmt.Sprintf("%s %d field(s) need attention", r.theme.ErrorPrefix, len(out.Errors)))
		default:
			draft = nil
		}
	}
}

// Encode serializes values in the configured output format.
func (r *Renderer) Encode(values wizard.Values) ([]byte, error) {
	return encode(r.outputFormat, values)
}

func (r *Renderer) header(ctx context.Context, view render.View) error {
	line := fmt.Sprintf("%s %s: step %d of %d, %s (%d%%)", r.theme.StepPrefix, view.Title, view.Index+1, view.Total, view.Step.Title, view.Progress)
	if err := r.driver.Info(ctx, line); err != nil {
		return err
	}
	if view.Step.Description != "" {
		if err := r.driver.Info(ctx, r.theme.InfoPrefix+" "+view.Step.Description); err != nil {
			return err
		}
	}
	for _, msg := range view.FormErrors {
		if err := r.driver.Info(ctx, r.theme.ErrorPrefix+" "+msg); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) promptStep(ctx context.Context, view render.View) (wizard.Values, error) {
	input := make(wizard.Values, len(view.Step.Fields))
	for _, field := range view.Step.Fields {
		if field.Error != "" {
			if err := r.driver.Info(ctx, fmt.Sprintf("%s %s: %s", r.theme.ErrorPrefix, field.Label, field.Error)); err != nil {
				return nil, err
			}
		}
		value, err := r.promptField(ctx, field)
		if err != nil {
			return nil, err
		}
		input[field.Name] = value
	}
	return input, nil
}

func (r *Renderer) promptField(ctx context.Context, field render.FieldView) (string, error) {
	message := field.Label
	if field.Required {
		message += " *"
	}
	help := plainHelp(field.Help)

	switch field.Kind {
	case wizard.FieldKindCheckbox:
		ok, err := r.driver.Confirm(ctx, ConfirmConfig{Message: message, Default: field.Checked(), Help: help})
		if err != nil {
			return "", err
		}
		if ok {
			return "true", nil
		}
		return "", nil
	case wizard.FieldKindSelect:
		labels := make([]string, 0, len(field.Options)+1)
		values := make([]string, 0, len(field.Options)+1)
		if !field.Required {
			labels = append(labels, "(none)")
			values = append(values, "")
		}
		selected := 0
		for _, opt := range field.Options {
			if opt.Selected {
				selected = len(labels)
			}
			labels = append(labels, opt.Label)
			values = append(values, opt.Value)
		}
		idx, err := r.driver.Select(ctx, SelectConfig{Message: message, Options: labels, DefaultIndex: selected, Help: help})
		if err != nil {
			return "", err
		}
		if idx < 0 || idx >= len(values) {
			return "", fmt.Errorf("tui: select %q returned index %d", field.Name, idx)
		}
		return values[idx], nil
	case wizard.FieldKindTextArea:
		return r.driver.TextArea(ctx, TextAreaConfig{Message: message, Default: field.Value, Help: help})
	case wizard.FieldKindFile:
		return r.driver.Input(ctx, InputConfig{Message: message + " (file path)", Default: field.Value, Help: help})
	default:
		value, err := r.driver.Input(ctx, InputConfig{Message: message, Default: field.Value, Help: help})
		return strings.TrimSpace(value), err
	}
}

func (r *Renderer) promptNavigation(ctx context.Context, view render.View) (choice, error) {
	choices := navigationChoices(view)
	labels := make([]string, len(choices))
	for i, c := range choices {
		labels[i] = c.label
	}
	idx, err := r.driver.Select(ctx, SelectConfig{Message: "Continue", Options: labels})
	if err != nil {
		return choice{}, err
	}
	if idx < 0 || idx >= len(choices) {
		return choice{}, fmt.Errorf("tui: navigation returned index %d", idx)
	}
	return choices[idx], nil
}

// navigationChoices lists the moves available on view's step: forward first,
// then back, then jumps to visited steps, then cancel.
func navigationChoices(view render.View) []choice {
	forward := choice{label: "Next", move: moveForward}
	if view.Last {
		forward.label = "Submit"
	}
	out := []choice{forward}
	if !view.First {
		out = append(out, choice{label: "Back", move: moveBack})
	}
	for _, link := range view.Steps {
		if link.Visited && !link.Current {
			out = append(out, choice{
				label:  fmt.Sprintf("Go to step %d: %s", link.Index+1, link.Title),
				move:   moveJump,
				target: link.Index,
			})
		}
	}
	return append(out, choice{label: "Cancel", move: moveCancel})
}

var (
	helpPolicyOnce sync.Once
	helpPolicy     *bluemonday.Policy
)

// plainHelp strips markup from help text, which may carry inline HTML for
// web surfaces.
func plainHelp(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	helpPolicyOnce.Do(func() {
		helpPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(html.UnescapeString(helpPolicy.Sanitize(raw)))
}
