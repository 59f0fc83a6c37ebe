package render_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

func TestMapErrorPayload_ResolvesStepFields(t *testing.T) {
	step := wizard.Step{
		ID: "contact",
		Fields: []wizard.Field{
			{Name: "contact_name"},
			{Name: "contact_email"},
			{Name: "languages"},
		},
	}

	payload := map[string][]string{
		"contact_name":            {"Name is required"},
		"/values/contact_email":   {"Email already registered"},
		"$.body.languages[0]":     {"Unsupported language"},
		"request/contact_name/~1": {"Name is required", " "},
		"non_field_errors":        {"Try again later"},
		"_form":                   {"Partner quota reached"},
		"body/hospital_name":      {"Belongs to another step"},
		"":                        {"Unscoped"},
	}

	mapped := render.MapErrorPayload(step, payload)

	wantFields := map[string][]string{
		"contact_name":  {"Name is required", "Name is required"},
		"contact_email": {"Email already registered"},
		"languages":     {"Unsupported language"},
	}
	if diff := cmp.Diff(wantFields, mapped.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}

	wantForm := []string{"Belongs to another step", "Partner quota reached", "Try again later", "Unscoped"}
	if diff := cmp.Diff(wantForm, mapped.Form, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeFormErrors(t *testing.T) {
	merged := render.MergeFormErrors([]string{" First ", "Second"}, "Second", "third", "  ")
	want := []string{"First", "Second", "third"}

	if diff := cmp.Diff(want, merged); diff != "" {
		t.Fatalf("merged form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldErrorsPayload(t *testing.T) {
	got := render.FieldErrorsPayload(wizard.FieldErrors{"a": "required"})
	if diff := cmp.Diff(map[string][]string{"a": {"required"}}, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
	if render.FieldErrorsPayload(nil) != nil {
		t.Fatalf("expected nil payload for no errors")
	}
}
