package wizard

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidDefinition wraps every construction-time definition problem.
	ErrInvalidDefinition = errors.New("wizard: invalid definition")
	// ErrStepOutOfRange is returned when a step index falls outside the definition.
	ErrStepOutOfRange = errors.New("wizard: step index out of range")
	// ErrSubmitted is returned by navigation once the form reached the terminal state.
	ErrSubmitted = errors.New("wizard: form already submitted")
)

// FormErrorKey holds step-level messages that no single field owns.
const FormErrorKey = "_form"

// FieldErrors maps a field name to the first rule it violated.
type FieldErrors map[string]string

// Has reports whether a message exists for field.
func (e FieldErrors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Fields returns the invalid field names sorted alphabetically.
func (e FieldErrors) Fields() []string {
	if len(e) == 0 {
		return nil
	}
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy; nil stays nil.
func (e FieldErrors) Clone() FieldErrors {
	if e == nil {
		return nil
	}
	out := make(FieldErrors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Err converts the map into an error value, returning nil when empty.
func (e FieldErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return &ValidationError{Fields: e.Clone()}
}

// ValidationError carries the field errors of one failed step validation for
// callers that need to propagate them through an error return.
type ValidationError struct {
	StepID string
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, name := range e.Fields.Fields() {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	prefix := "wizard: validation failed"
	if e.StepID != "" {
		prefix = fmt.Sprintf("wizard: step %q validation failed", e.StepID)
	}
	return prefix + " (" + strings.Join(parts, "; ") + ")"
}

func definitionErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidDefinition}, args...)...)
}
