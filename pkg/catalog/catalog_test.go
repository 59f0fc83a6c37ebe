package catalog_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formwizard/pkg/catalog"
	"github.com/goliatone/go-formwizard/pkg/validation"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

func TestDefault_LoadsPartnerForms(t *testing.T) {
	store := catalog.Default()

	want := []string{"doctor", "government", "hospital", "insurance", "patient", "travel-agency"}
	if diff := cmp.Diff(want, store.IDs()); diff != "" {
		t.Fatalf("form ids mismatch (-want +got):\n%s", diff)
	}

	for _, form := range store.List() {
		def := form.Definition
		if def.Len() < 3 || def.Len() > 4 {
			t.Errorf("form %s: expected 3-4 steps, got %d", def.ID(), def.Len())
		}
		if def.Title() == "" {
			t.Errorf("form %s: missing title", def.ID())
		}
		last, err := def.Step(def.LastIndex())
		if err != nil {
			t.Fatalf("form %s: last step: %v", def.ID(), err)
		}
		if last.ID != "documents" {
			continue
		}
		// Upload steps never block submission.
		if errs := last.Schema.Validate(context.Background(), wizard.Values{}); len(errs) != 0 {
			t.Errorf("form %s: documents step should accept empty input, got %v", def.ID(), errs)
		}
	}
}

func TestDefault_IsCached(t *testing.T) {
	if catalog.Default() != catalog.Default() {
		t.Fatalf("expected Default to return the same store")
	}
}

func TestEmbeddedFormsLintClean(t *testing.T) {
	result, err := catalog.Lint(catalog.EmbeddedFS())
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if result.Files != 6 || result.Forms != 6 {
		t.Fatalf("expected 6 files and forms, got %d/%d", result.Files, result.Forms)
	}
	if len(result.Issues) != 0 {
		t.Fatalf("expected no issues, got %v", result.Issues)
	}
}

func TestHospitalForm_ImpliedRules(t *testing.T) {
	form, ok := catalog.Default().Get("hospital")
	if !ok {
		t.Fatalf("hospital form missing")
	}

	contact, err := form.Definition.Step(1)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	errs := contact.Schema.Validate(context.Background(), wizard.Values{
		"contact_name":     "Priya Nair",
		"contact_email":    "not-an-email",
		"contact_phone":    "12",
		"hospital_website": "clinic",
	})
	want := wizard.FieldErrors{
		"contact_email":    "invalid format",
		"contact_phone":    "invalid format",
		"hospital_website": "invalid format",
	}
	if diff := cmp.Diff(want, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	rules := form.FieldRules("bed_count")
	kinds := make([]string, 0, len(rules))
	for _, r := range rules {
		kinds = append(kinds, r.Kind)
	}
	if diff := cmp.Diff([]string{validation.RuleNumeric, validation.RuleMin}, kinds); diff != "" {
		t.Fatalf("bed_count rules mismatch (-want +got):\n%s", diff)
	}
}

func TestHospitalForm_CompleteRun(t *testing.T) {
	def, ok := catalog.Default().Definition("hospital")
	if !ok {
		t.Fatalf("hospital form missing")
	}
	ctrl, err := wizard.New(def)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}

	ctx := context.Background()
	steps := []wizard.Values{
		{"hospital_name": "Apollo Chennai", "registration_number": "TN-2024-118", "hospital_country": "IN", "hospital_city": "Chennai", "bed_count": "550"},
		{"contact_name": "Priya Nair", "contact_email": "priya@apollo.example", "contact_phone": "+91 44 2829 0200"},
		{"specialties": "Cardiology, oncology", "accreditation": "jci"},
	}
	for _, input := range steps {
		out, err := ctrl.Next(ctx, input)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if out.Invalid() {
			t.Fatalf("step %d invalid: %v", out.From, out.Errors)
		}
	}

	out, err := ctrl.Submit(ctx, wizard.Values{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.Status != wizard.StatusSubmitted {
		t.Fatalf("expected submission, got %s (%v)", out.Status, out.Errors)
	}
	if got := out.Submission.Values["hospital_city"]; got != "Chennai" {
		t.Fatalf("expected merged values, got %v", got)
	}
}

func TestDoctorForm_InlineSchema(t *testing.T) {
	form, _ := catalog.Default().Get("doctor")
	idx, ok := form.Definition.StepIndex("availability")
	if !ok {
		t.Fatalf("availability step missing")
	}
	if _, ok := form.Schemas["availability"]; !ok {
		t.Fatalf("expected raw schema to be retained")
	}
	step, _ := form.Definition.Step(idx)

	errs := step.Schema.Validate(context.Background(), wizard.Values{"earliest_start": "next week"})
	want := wizard.FieldErrors{"consultation_mode": "required", "earliest_start": "invalid format"}
	if diff := cmp.Diff(want, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	errs = step.Schema.Validate(context.Background(), wizard.Values{"consultation_mode": "both", "earliest_start": "2026-11-02"})
	if len(errs) != 0 {
		t.Fatalf("expected valid, got %v", errs)
	}
}

func TestPatientForm_CompanionRequiredWhenTravellingTogether(t *testing.T) {
	form, _ := catalog.Default().Get("patient")
	idx, _ := form.Definition.StepIndex("travel")
	step, _ := form.Definition.Step(idx)

	errs := step.Schema.Validate(context.Background(), wizard.Values{"travelling_with_companion": "yes"})
	if diff := cmp.Diff(wizard.FieldErrors{"companion_name": "required"}, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	errs = step.Schema.Validate(context.Background(), wizard.Values{"travelling_with_companion": "no"})
	if len(errs) != 0 {
		t.Fatalf("expected valid, got %v", errs)
	}
}

func TestTravelAgencyForm_GroupSizeExpression(t *testing.T) {
	form, _ := catalog.Default().Get("travel-agency")
	idx, _ := form.Definition.StepIndex("services")
	step, _ := form.Definition.Step(idx)

	input := wizard.Values{
		"services_offered": "Flights and visas",
		"destinations":     "India",
		"min_group_size":   "4",
		"max_group_size":   "2",
		"visa_assistance":  "yes",
	}
	errs := step.Schema.Validate(context.Background(), input)
	if diff := cmp.Diff(wizard.FieldErrors{"max_group_size": "must not be smaller than the smallest group"}, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	input["max_group_size"] = "12"
	if errs := step.Schema.Validate(context.Background(), input); len(errs) != 0 {
		t.Fatalf("expected valid, got %v", errs)
	}

	input["min_group_size"] = "2.5"
	input["max_group_size"] = "12.5"
	want := wizard.FieldErrors{
		"min_group_size": "must be a whole number",
		"max_group_size": "must be a whole number",
	}
	if diff := cmp.Diff(want, step.Schema.Validate(context.Background(), input)); diff != "" {
		t.Fatalf("decimal sizes mismatch (-want +got):\n%s", diff)
	}
}

func TestGovernmentForm_ConsentCheckbox(t *testing.T) {
	form, _ := catalog.Default().Get("government")
	idx, _ := form.Definition.StepIndex("collaboration")
	step, _ := form.Definition.Step(idx)

	errs := step.Schema.Validate(context.Background(), wizard.Values{
		"collaboration_areas": "Joint promotion of wellness tourism",
		"expected_timeline":   "quarter",
	})
	if diff := cmp.Diff(wizard.FieldErrors{"consent_contact": "must be accepted"}, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

const minimalForm = `
id: %s
title: Minimal
steps:
  - id: only
    title: Only
    fields:
      - name: value
        label: Value
        required: true
`

func TestLoadFS_RejectsDuplicateIDs(t *testing.T) {
	fsys := fstest.MapFS{
		"a.yaml": {Data: []byte(strings.Replace(minimalForm, "%s", "same", 1))},
		"b.yml":  {Data: []byte(strings.Replace(minimalForm, "%s", "same", 1))},
	}
	_, err := catalog.LoadFS(fsys)
	if !errors.Is(err, catalog.ErrInvalidForm) || !strings.Contains(err.Error(), "duplicate form") {
		t.Fatalf("expected duplicate form error, got %v", err)
	}
}

func TestLoadFS_JSONAndIgnoredFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"forms/contact.json": {Data: []byte(`{
			"id": "contact",
			"title": "Contact",
			"steps": [{"id": "main", "title": "Main", "fields": [{"name": "email", "label": "Email", "kind": "email", "required": true}]}]
		}`)},
		"forms/README.md": {Data: []byte("# not a form")},
	}
	store, err := catalog.LoadFS(fsys)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff([]string{"contact"}, store.IDs()); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	form, _ := store.Get("contact")
	if form.Source != "forms/contact.json" {
		t.Fatalf("unexpected source %q", form.Source)
	}

	empty, err := catalog.LoadFS(nil)
	if err != nil || empty.Len() != 0 {
		t.Fatalf("expected empty store, got %v / %d", err, empty.Len())
	}
}

func TestLoadFS_SelectValuesMayContainCommas(t *testing.T) {
	fsys := fstest.MapFS{"clinic.yaml": {Data: []byte(`
id: clinic
title: Clinic
steps:
  - id: location
    title: Location
    fields:
      - name: city
        label: City
        kind: select
        required: true
        options:
          - {value: "Paris, France", label: Paris}
          - {value: "Bangkok", label: Bangkok}
`)}}
	store, err := catalog.LoadFS(fsys)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	form, _ := store.Get("clinic")
	step, _ := form.Definition.Step(0)

	if errs := step.Schema.Validate(context.Background(), wizard.Values{"city": "Paris, France"}); len(errs) != 0 {
		t.Fatalf("expected comma value to be selectable, got %v", errs)
	}
	errs := step.Schema.Validate(context.Background(), wizard.Values{"city": "Paris"})
	if diff := cmp.Diff(wizard.FieldErrors{"city": "must be one of: Paris, France, Bangkok"}, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestLint_ReportsEveryProblem(t *testing.T) {
	fsys := fstest.MapFS{
		"broken.yaml": {Data: []byte(`
id: broken
steps:
  - id: first
    fields:
      - name: colour
        kind: select
      - name: score
        kind: slider
        label: Score
        rules:
          - kind: telepathy
  - id: uploads
    title: Uploads
    optional: true
    fields:
      - name: scan
        label: Scan
        kind: file
        required: true
`)},
		"empty.yaml": {Data: []byte("   ")},
		"ok.yaml":    {Data: []byte(strings.Replace(minimalForm, "%s", "ok", 1))},
	}

	result, err := catalog.Lint(fsys)
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if result.Valid() {
		t.Fatalf("expected lint failures")
	}
	if result.Files != 3 || result.Forms != 1 {
		t.Fatalf("expected 3 files and 1 valid form, got %d/%d", result.Files, result.Forms)
	}

	var messages []string
	for _, issue := range result.Errors() {
		messages = append(messages, issue.Source+": "+issue.Message)
	}
	wantContains := []string{
		"broken.yaml: select field declares no options",
		"broken.yaml: unknown field kind \"slider\"",
		"unknown rule kind \"telepathy\"",
		"broken.yaml: optional step cannot declare required fields or rules",
		"empty.yaml:",
	}
	joined := strings.Join(messages, "\n")
	for _, want := range wantContains {
		if !strings.Contains(joined, want) {
			t.Errorf("expected an error containing %q in:\n%s", want, joined)
		}
	}

	if len(result.Warnings()) < 3 {
		t.Fatalf("expected title and label warnings, got %v", result.Warnings())
	}
}
