package wizard

import (
	"context"
	"fmt"
)

// Values holds field values keyed by field name. Values are strings for
// regular inputs and opaque for anything a surface chooses to store.
type Values map[string]any

// Clone returns a shallow copy; nil yields an empty map.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// String returns the value stored under field formatted as a string. Missing
// and nil values yield "".
func (v Values) String(field string) string {
	raw, ok := v[field]
	if !ok || raw == nil {
		return ""
	}
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprint(raw)
}

// Schema validates the values of a single step. Implementations must be pure
// and total: they never mutate values, never panic for unexpected shapes, and
// return an empty map when every field is valid. Only the first violated rule
// per field is reported.
type Schema interface {
	Validate(ctx context.Context, values Values) FieldErrors
}

// FieldScoped is implemented by schemas that know which fields they inspect.
// NewDefinition uses it to reject schemas that reach outside their step.
type FieldScoped interface {
	Fields() []string
}

// SchemaFunc adapts a function into a Schema.
type SchemaFunc func(ctx context.Context, values Values) FieldErrors

// Validate delegates to the underlying function.
func (fn SchemaFunc) Validate(ctx context.Context, values Values) FieldErrors {
	return fn(ctx, values)
}

type acceptAll struct{}

func (acceptAll) Validate(context.Context, Values) FieldErrors { return nil }
