package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Status classifies the result of a navigation call.
type Status string

const (
	// StatusMoved means the call completed; To holds the resulting index,
	// which equals From when the index was already at a boundary.
	StatusMoved Status = "moved"
	// StatusInvalid means the active step failed validation and the index
	// did not change.
	StatusInvalid Status = "invalid"
	// StatusSubmitted means the last step validated and the form completed.
	StatusSubmitted Status = "submitted"
)

// Outcome reports what a navigation call did.
type Outcome struct {
	Status     Status      `json:"status"`
	From       int         `json:"from"`
	To         int         `json:"to"`
	Errors     FieldErrors `json:"errors,omitempty"`
	Submission *Submission `json:"submission,omitempty"`
}

// Invalid reports whether validation blocked the call.
func (o Outcome) Invalid() bool { return o.Status == StatusInvalid }

// Submission is the final merged state handed to a Submitter.
type Submission struct {
	FormID      string    `json:"formId"`
	Values      Values    `json:"values"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Submitter receives the completed form. Transport, persistence and
// confirmation are its concern.
type Submitter interface {
	Submit(ctx context.Context, submission Submission) error
}

// SubmitterFunc adapts a function into a Submitter.
type SubmitterFunc func(ctx context.Context, submission Submission) error

// Submit delegates to the underlying function.
func (fn SubmitterFunc) Submit(ctx context.Context, submission Submission) error {
	return fn(ctx, submission)
}

// Observer receives lifecycle notifications, typically for metrics.
type Observer interface {
	StepValidated(formID, stepID string, errs FieldErrors, elapsed time.Duration)
	StepChanged(formID string, from, to int)
	Submitted(formID string)
}

// Option configures a Controller.
type Option func(*Controller)

// WithSubmitter sets the collaborator that receives the completed form.
func WithSubmitter(submitter Submitter) Option {
	return func(c *Controller) {
		c.submitter = submitter
	}
}

// WithObserver registers lifecycle hooks.
func WithObserver(observer Observer) Option {
	return func(c *Controller) {
		c.observer = observer
	}
}

// WithLogger configures debug logging of transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source used to stamp submissions.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller drives one user through a Definition.
type Controller struct {
	def       *Definition
	index     int
	reached   int
	values    Values
	errors    FieldErrors
	submitted bool

	submitter Submitter
	observer  Observer
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a controller positioned on the first step with empty state.
func New(def *Definition, options ...Option) (*Controller, error) {
	if def == nil || def.Len() == 0 {
		return nil, definitionErrorf("controller requires a definition")
	}
	c := &Controller{
		def:    def,
		values: make(Values),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c, nil
}

func (c *Controller) Definition() *Definition { return c.def }

// Index returns the active step index.
func (c *Controller) Index() int { return c.index }

// Reached returns the furthest step index the user has arrived at.
func (c *Controller) Reached() int { return c.reached }

// Step returns the active step.
func (c *Controller) Step() Step { return c.def.steps[c.index] }

func (c *Controller) IsFirst() bool   { return c.index == 0 }
func (c *Controller) IsLast() bool    { return c.index == c.def.LastIndex() }
func (c *Controller) Submitted() bool { return c.submitted }

// Errors returns a copy of the active step's field errors.
func (c *Controller) Errors() FieldErrors { return c.errors.Clone() }

// Values returns a copy of the accumulated form state.
func (c *Controller) Values() Values { return c.values.Clone() }

// ValuesForStep returns the saved values of step index restricted to its
// declared fields. Fields never saved default to "".
func (c *Controller) ValuesForStep(index int) (Values, error) {
	step, err := c.def.Step(index)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", err, index)
	}
	out := make(Values, len(step.Fields))
	for _, f := range step.Fields {
		if v, ok := c.values[f.Name]; ok {
			out[f.Name] = v
			continue
		}
		out[f.Name] = ""
	}
	return out, nil
}

// Next validates the active step and advances by one. On the last step it
// behaves like Submit.
func (c *Controller) Next(ctx context.Context, input Values) (Outcome, error) {
	if c.submitted {
		return Outcome{}, ErrSubmitted
	}
	if c.IsLast() {
		return c.Submit(ctx, input)
	}
	return c.advance(ctx, c.index+1, input)
}

// Previous saves the active step without validating it and moves back one
// step, staying on the first step when already there.
func (c *Controller) Previous(input Values) (Outcome, error) {
	if c.submitted {
		return Outcome{}, ErrSubmitted
	}
	target := c.index - 1
	if target < 0 {
		target = 0
	}
	return c.jump(target, input), nil
}

// GoTo moves to target. Backward (and same-step) jumps save without
// validation; forward jumps validate the active step and then land directly
// on target.
func (c *Controller) GoTo(ctx context.Context, target int, input Values) (Outcome, error) {
	if c.submitted {
		return Outcome{}, ErrSubmitted
	}
	if target < 0 || target >= c.def.Len() {
		return Outcome{}, fmt.Errorf("%w: %d (form %q has %d steps)", ErrStepOutOfRange, target, c.def.id, c.def.Len())
	}
	if target <= c.index {
		return c.jump(target, input), nil
	}
	return c.advance(ctx, target, input)
}

// Submit validates the last step and completes the form. Called on an
// earlier step it behaves exactly like Next.
func (c *Controller) Submit(ctx context.Context, input Values) (Outcome, error) {
	if c.submitted {
		return Outcome{}, ErrSubmitted
	}
	if !c.IsLast() {
		return c.Next(ctx, input)
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	last := c.index
	values := c.working(input)
	errs, err := c.validate(ctx, values)
	if err != nil {
		return Outcome{}, err
	}
	if len(errs) > 0 {
		c.errors = errs
		return Outcome{Status: StatusInvalid, From: last, To: last, Errors: errs.Clone()}, nil
	}
	c.merge(values)
	c.errors = nil

	submission := Submission{
		FormID:      c.def.id,
		Values:      c.values.Clone(),
		SubmittedAt: c.now(),
	}
	if c.submitter != nil {
		handoff := submission
		handoff.Values = submission.Values.Clone()
		if err := c.submitter.Submit(ctx, handoff); err != nil {
			c.logger.Warn("submission rejected", "form_id", c.def.id, "err", err)
			return Outcome{}, fmt.Errorf("wizard: submit form %q: %w", c.def.id, err)
		}
	}

	c.submitted = true
	c.logger.Debug("form submitted", "form_id", c.def.id, "fields", len(submission.Values))
	if c.observer != nil {
		c.observer.Submitted(c.def.id)
	}
	return Outcome{Status: StatusSubmitted, From: last, To: last, Submission: &submission}, nil
}

// Reset returns the controller to its initial state so a surface can reuse it.
func (c *Controller) Reset() {
	c.index = 0
	c.reached = 0
	c.values = make(Values)
	c.errors = nil
	c.submitted = false
}

func (c *Controller) advance(ctx context.Context, target int, input Values) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	from := c.index
	values := c.working(input)
	errs, err := c.validate(ctx, values)
	if err != nil {
		return Outcome{}, err
	}
	if len(errs) > 0 {
		c.errors = errs
		return Outcome{Status: StatusInvalid, From: from, To: from, Errors: errs.Clone()}, nil
	}
	c.merge(values)
	c.errors = nil
	c.move(target)
	return Outcome{Status: StatusMoved, From: from, To: target}, nil
}

func (c *Controller) jump(target int, input Values) Outcome {
	from := c.index
	c.merge(c.working(input))
	c.errors = nil
	c.move(target)
	return Outcome{Status: StatusMoved, From: from, To: target}
}

func (c *Controller) move(target int) {
	from := c.index
	c.index = target
	if target > c.reached {
		c.reached = target
	}
	if from == target {
		return
	}
	c.logger.Debug("step changed", "form_id", c.def.id, "from", from, "to", target)
	if c.observer != nil {
		c.observer.StepChanged(c.def.id, from, target)
	}
}

// working overlays input on the saved values of the active step.
func (c *Controller) working(input Values) Values {
	step := c.def.steps[c.index]
	out := make(Values, len(step.Fields))
	for _, f := range step.Fields {
		if v, ok := input[f.Name]; ok {
			out[f.Name] = v
			continue
		}
		if v, ok := c.values[f.Name]; ok {
			out[f.Name] = v
			continue
		}
		out[f.Name] = ""
	}
	return out
}

func (c *Controller) merge(values Values) {
	for k, v := range values {
		c.values[k] = v
	}
}

// validate runs the active step's schema. A context that ends while the
// schema runs makes the result unusable, so it is returned as an error and
// nothing is recorded.
func (c *Controller) validate(ctx context.Context, values Values) (FieldErrors, error) {
	step := c.def.steps[c.index]
	start := time.Now()
	raw := step.schema().Validate(ctx, values.Clone())
	elapsed := time.Since(start)
	if err := ctx.Err(); err != nil {
		c.logger.Debug("validation interrupted", "form_id", c.def.id, "step_id", step.ID, "err", err)
		return nil, err
	}

	var errs FieldErrors
	for field, msg := range raw {
		if field == "" {
			field = FormErrorKey
		}
		if msg == "" {
			msg = "invalid value"
		}
		if errs == nil {
			errs = make(FieldErrors, len(raw))
		}
		errs[field] = msg
	}

	if len(errs) > 0 {
		c.logger.Debug("step invalid", "form_id", c.def.id, "step_id", step.ID, "fields", errs.Fields())
	}
	if c.observer != nil {
		c.observer.StepValidated(c.def.id, step.ID, errs.Clone(), elapsed)
	}
	return errs, nil
}

// IsNavigationError reports whether err signals misuse of the controller
// rather than a collaborator failure.
func IsNavigationError(err error) bool {
	return errors.Is(err, ErrStepOutOfRange) || errors.Is(err, ErrSubmitted)
}

// Err returns the active step's field errors as a *ValidationError, or nil.
func (c *Controller) Err() error {
	if len(c.errors) == 0 {
		return nil
	}
	return &ValidationError{StepID: c.Step().ID, Fields: c.errors.Clone()}
}
