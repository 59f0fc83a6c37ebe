package validation

import (
	"context"

	"github.com/goliatone/go-formwizard/pkg/wizard"
)

type optional struct{}

func (optional) Validate(context.Context, wizard.Values) wizard.FieldErrors { return nil }

// Optional returns a schema that accepts any input. Upload steps use it;
// file validation is left to the upload surface.
func Optional() wizard.Schema {
	return optional{}
}

type composite struct {
	schemas []wizard.Schema
}

// Compose runs schemas in order. When several report the same field the
// earlier schema's message wins.
func Compose(schemas ...wizard.Schema) wizard.Schema {
	var filtered []wizard.Schema
	for _, s := range schemas {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	switch len(filtered) {
	case 0:
		return Optional()
	case 1:
		return filtered[0]
	}
	return composite{schemas: filtered}
}

func (c composite) Validate(ctx context.Context, values wizard.Values) wizard.FieldErrors {
	errs := make(wizard.FieldErrors)
	for _, schema := range c.schemas {
		for field, msg := range schema.Validate(ctx, values) {
			if _, exists := errs[field]; !exists {
				errs[field] = msg
			}
		}
	}
	return errs
}

// Fields unions the fields of every field-scoped member.
func (c composite) Fields() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, schema := range c.schemas {
		scoped, ok := schema.(wizard.FieldScoped)
		if !ok {
			continue
		}
		for _, name := range scoped.Fields() {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
