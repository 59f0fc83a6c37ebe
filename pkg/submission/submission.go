// Package submission provides Submitter implementations that receive the
// completed state of a form.
package submission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// Func adapts a function into a wizard.Submitter.
type Func = wizard.SubmitterFunc

// Log writes every submission as a structured log record. It stands in for a
// real transport during development.
type Log struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLog returns a Log submitter writing at info level. A nil logger
// discards records.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Log{logger: logger, level: slog.LevelInfo}
}

// Submit logs the form id, submission time and values sorted by field name.
func (l *Log) Submit(ctx context.Context, sub wizard.Submission) error {
	fields := make([]string, 0, len(sub.Values))
	for name := range sub.Values {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	values := make([]any, 0, len(fields))
	for _, name := range fields {
		values = append(values, slog.Any(name, sub.Values[name]))
	}

	l.logger.LogAttrs(ctx, l.level, "form submitted",
		slog.String("form_id", sub.FormID),
		slog.Time("submitted_at", sub.SubmittedAt),
		slog.Int("field_count", len(fields)),
		slog.Group("values", values...),
	)
	return nil
}

// RejectionError reports that a downstream service refused a submission for
// reasons tied to specific inputs. Errors is keyed the way that service names
// fields ("email", "/values/email", "body.email[0]"); surfaces resolve the
// keys against the last step so the user can correct them.
type RejectionError struct {
	Errors map[string][]string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("submission: rejected with %d problem(s)", len(e.Errors))
}

// Reject builds a *RejectionError from payload.
func Reject(payload map[string][]string) error {
	out := make(map[string][]string, len(payload))
	for key, messages := range payload {
		out[key] = append([]string(nil), messages...)
	}
	return &RejectionError{Errors: out}
}

// RejectionPayload returns the payload of a *RejectionError anywhere in err's
// chain.
func RejectionPayload(err error) (map[string][]string, bool) {
	var rejected *RejectionError
	if !errors.As(err, &rejected) {
		return nil, false
	}
	return rejected.Errors, true
}

// Recorder keeps submissions in memory. Safe for concurrent use.
type Recorder struct {
	mu          sync.RWMutex
	submissions []wizard.Submission
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Submit stores a copy of sub.
func (r *Recorder) Submit(_ context.Context, sub wizard.Submission) error {
	sub.Values = sub.Values.Clone()
	r.mu.Lock()
	r.submissions = append(r.submissions, sub)
	r.mu.Unlock()
	return nil
}

// All returns the recorded submissions in arrival order.
func (r *Recorder) All() []wizard.Submission {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]wizard.Submission, len(r.submissions))
	for i, sub := range r.submissions {
		sub.Values = sub.Values.Clone()
		out[i] = sub
	}
	return out
}

// ForForm returns the recorded submissions of one form.
func (r *Recorder) ForForm(formID string) []wizard.Submission {
	var out []wizard.Submission
	for _, sub := range r.All() {
		if sub.FormID == formID {
			out = append(out, sub)
		}
	}
	return out
}

// Last returns the most recent submission.
func (r *Recorder) Last() (wizard.Submission, bool) {
	all := r.All()
	if len(all) == 0 {
		return wizard.Submission{}, false
	}
	return all[len(all)-1], true
}

// Len reports how many submissions were recorded.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.submissions)
}

// Multi fans a submission out to every submitter in order. All submitters
// run; their errors are joined.
func Multi(submitters ...wizard.Submitter) wizard.Submitter {
	var filtered []wizard.Submitter
	for _, s := range submitters {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return Func(func(ctx context.Context, sub wizard.Submission) error {
		var errs []error
		for _, s := range filtered {
			if err := s.Submit(ctx, sub); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// Decode copies submission values into out, a pointer to a struct tagged
// with `mapstructure` names. String inputs are converted to the target field
// types ("550" becomes an int), so a typed application can be built from the
// flat field map.
func Decode(values wizard.Values, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc("2006-01-02"),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("submission: decoder: %w", err)
	}
	input := make(map[string]any, len(values))
	for key, value := range values {
		if s, ok := value.(string); ok && s == "" {
			continue
		}
		input[key] = value
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("submission: decode: %w", err)
	}
	return nil
}
