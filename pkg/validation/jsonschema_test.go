package validation_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formwizard/pkg/validation"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

const contactSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["contact_email", "contact_name"],
  "properties": {
    "contact_name": {"type": "string", "minLength": 2},
    "contact_email": {"type": "string", "format": "email"}
  }
}`

func TestJSONSchema_MapsViolationsToFields(t *testing.T) {
	schema, err := validation.JSONSchema([]byte(contactSchema))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if diff := cmp.Diff([]string{"contact_email", "contact_name"}, schema.Fields()); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}

	got := schema.Validate(context.Background(), wizard.Values{"contact_name": "  ", "contact_email": "not-an-email"})
	want := wizard.FieldErrors{"contact_name": "required", "contact_email": "invalid format"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	got = schema.Validate(context.Background(), wizard.Values{"contact_name": "Dr. Rao", "contact_email": "rao@clinic.example"})
	if len(got) != 0 {
		t.Fatalf("expected valid, got %v", got)
	}
}

func TestJSONSchema_RejectsBadDocuments(t *testing.T) {
	if _, err := validation.JSONSchema(nil); err == nil {
		t.Fatalf("expected error for empty schema")
	}
	if _, err := validation.JSONSchema([]byte(`{"type": 12}`)); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestJSONSchema_UsableAsStepSchema(t *testing.T) {
	schema, err := validation.JSONSchema([]byte(contactSchema))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	_, err = wizard.NewDefinition("contact", "Contact", wizard.Step{
		ID:     "contact",
		Fields: []wizard.Field{{Name: "contact_name"}, {Name: "contact_email"}},
		Schema: schema,
	})
	if err != nil {
		t.Fatalf("definition: %v", err)
	}

	_, err = wizard.NewDefinition("contact", "Contact", wizard.Step{
		ID:     "contact",
		Fields: []wizard.Field{{Name: "contact_name"}},
		Schema: schema,
	})
	if err == nil {
		t.Fatalf("expected foreign field rejection")
	}
}
