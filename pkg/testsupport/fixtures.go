package testsupport

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-formwizard/pkg/validation"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// ScenarioDefinition returns the three step reference form: {a} non-empty,
// {b} email, {c} non-empty.
func ScenarioDefinition() *wizard.Definition {
	return wizard.MustDefinition("scenario", "Scenario",
		wizard.Step{
			ID:     "first",
			Title:  "First",
			Fields: []wizard.Field{{Name: "a", Label: "A", Required: true}},
			Schema: validation.MustRules(validation.ForField("a", true)),
		},
		wizard.Step{
			ID:     "second",
			Title:  "Second",
			Fields: []wizard.Field{{Name: "b", Label: "B", Kind: wizard.FieldKindEmail, Required: true}},
			Schema: validation.MustRules(validation.ForField("b", true, validation.Rule{Kind: validation.RuleEmail})),
		},
		wizard.Step{
			ID:     "third",
			Title:  "Third",
			Fields: []wizard.Field{{Name: "c", Label: "C", Required: true}},
			Schema: validation.MustRules(validation.ForField("c", true)),
		},
	)
}

// NewController builds a controller over def and fails the test on error.
func NewController(t *testing.T, def *wizard.Definition, opts ...wizard.Option) *wizard.Controller {
	t.Helper()

	ctrl, err := wizard.New(def, opts...)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return ctrl
}

// Advance calls Next and fails the test unless the controller moved.
func Advance(t *testing.T, ctrl *wizard.Controller, input wizard.Values) wizard.Outcome {
	t.Helper()

	out, err := ctrl.Next(context.Background(), input)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if out.Status != wizard.StatusMoved {
		t.Fatalf("expected step %d to move, got %s (%v)", out.From, out.Status, out.Errors)
	}
	return out
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	return string(MustReadGolden(t, path))
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// CaptureTemplateOutput executes a render function that writes to an
// io.Writer, returning both the string result and the writer contents.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}
	return out, buf.String()
}
