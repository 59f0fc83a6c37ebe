package validation_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formwizard/pkg/validation"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

func TestRules_FirstViolationPerField(t *testing.T) {
	set := validation.MustRules(
		validation.ForField("name", true, validation.Rule{Kind: validation.RuleMinLength, Params: map[string]string{"value": "3"}}),
		validation.ForField("email", true, validation.Rule{Kind: validation.RuleEmail}),
		validation.ForField("website", false, validation.Rule{Kind: validation.RuleURL}),
		validation.ForField("beds", false,
			validation.Rule{Kind: validation.RuleNumeric},
			validation.Rule{Kind: validation.RuleMin, Params: map[string]string{"value": "1"}},
		),
	)

	cases := []struct {
		name   string
		values wizard.Values
		want   wizard.FieldErrors
	}{
		{
			name:   "all empty",
			values: wizard.Values{},
			want:   wizard.FieldErrors{"name": "required", "email": "required"},
		},
		{
			name:   "format failures",
			values: wizard.Values{"name": "Al", "email": "al@", "website": "ftp://x", "beds": "abc"},
			want: wizard.FieldErrors{
				"name":    "must be at least 3 characters",
				"email":   "invalid format",
				"website": "invalid format",
				"beds":    "must be a number",
			},
		},
		{
			name:   "bounds",
			values: wizard.Values{"name": "Alice", "email": "a@b.co", "beds": "0"},
			want:   wizard.FieldErrors{"beds": "must be at least 1"},
		},
		{
			name:   "valid",
			values: wizard.Values{"name": "Alice", "email": "a@b.co", "website": "https://clinic.example", "beds": "120"},
			want:   wizard.FieldErrors{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := set.Validate(context.Background(), tc.values)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("errors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRules_CustomMessagesAndChoices(t *testing.T) {
	set := validation.MustRules(
		validation.ForField("tier", true, validation.Rule{
			Kind:   validation.RuleOneOf,
			Params: map[string]string{"values": "basic, premium"},
		}),
		validation.ForField("code", true, validation.Rule{
			Kind:    validation.RulePattern,
			Params:  map[string]string{"pattern": `^[A-Z]{3}-\d{4}$`},
			Message: "use the AAA-0000 format",
		}),
		validation.ForField("consent", false, validation.Rule{Kind: validation.RuleAccepted}),
	)

	got := set.Validate(context.Background(), wizard.Values{"tier": "gold", "code": "abc-1"})
	want := wizard.FieldErrors{
		"tier":    "must be one of: basic, premium",
		"code":    "use the AAA-0000 format",
		"consent": "must be accepted",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	got = set.Validate(context.Background(), wizard.Values{"tier": "premium", "code": "ABC-1234", "consent": "on"})
	if len(got) != 0 {
		t.Fatalf("expected valid, got %v", got)
	}
}

func TestRules_ExprCrossField(t *testing.T) {
	set := validation.MustRules(
		validation.ForField("travelling_with_companion", false),
		validation.ForField("companion_name", false, validation.Rule{
			Kind:    validation.RuleExpr,
			Params:  map[string]string{"expr": `travelling_with_companion != "yes" || companion_name != ""`},
			Message: "name your companion",
		}),
	)

	// An empty optional field skips its rules, so the expression runs only
	// once a value is present; the required-ness is expressed on the other side.
	got := set.Validate(context.Background(), wizard.Values{"travelling_with_companion": "yes", "companion_name": "Ana"})
	if len(got) != 0 {
		t.Fatalf("expected valid, got %v", got)
	}

	guard := validation.MustRules(
		validation.ForField("travelling_with_companion", false, validation.Rule{
			Kind:    validation.RuleExpr,
			Params:  map[string]string{"expr": `travelling_with_companion != "yes" || companion_name != ""`},
			Message: "name your companion",
		}),
		validation.ForField("companion_name", false),
	)
	got = guard.Validate(context.Background(), wizard.Values{"travelling_with_companion": "yes", "companion_name": ""})
	if diff := cmp.Diff(wizard.FieldErrors{"travelling_with_companion": "name your companion"}, got); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestRules_CompileErrors(t *testing.T) {
	cases := []struct {
		name string
		rule validation.Rule
		want string
	}{
		{name: "unknown", rule: validation.Rule{Kind: "telepathy"}, want: "unknown rule kind"},
		{name: "bad length", rule: validation.Rule{Kind: validation.RuleMinLength, Params: map[string]string{"value": "x"}}, want: "invalid length"},
		{name: "bad pattern", rule: validation.Rule{Kind: validation.RulePattern, Params: map[string]string{"pattern": "("}}, want: "rule pattern"},
		{name: "empty oneOf", rule: validation.Rule{Kind: validation.RuleOneOf}, want: "no values"},
		{name: "bad expr", rule: validation.Rule{Kind: validation.RuleExpr, Params: map[string]string{"expr": "a ==="}}, want: "rule expr"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validation.Rules(validation.FieldRules{Field: "f", Rules: []validation.Rule{tc.rule}})
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}

	if _, err := validation.Rules(validation.FieldRules{Field: "a"}, validation.FieldRules{Field: "a"}); err == nil {
		t.Fatalf("expected duplicate field error")
	}
}

func TestCompose_EarlierSchemaWins(t *testing.T) {
	first := wizard.SchemaFunc(func(context.Context, wizard.Values) wizard.FieldErrors {
		return wizard.FieldErrors{"a": "first"}
	})
	second := validation.MustRules(validation.ForField("a", true), validation.ForField("b", true))

	got := validation.Compose(first, nil, second).Validate(context.Background(), wizard.Values{})
	want := wizard.FieldErrors{"a": "first", "b": "required"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	if got := validation.Compose().Validate(context.Background(), wizard.Values{"x": 1}); len(got) != 0 {
		t.Fatalf("empty composition should accept, got %v", got)
	}
	if got := validation.Optional().Validate(context.Background(), nil); len(got) != 0 {
		t.Fatalf("optional should accept, got %v", got)
	}
}

func TestRules_ChoicesKeepCommas(t *testing.T) {
	set := validation.MustRules(validation.ForField("city", true, validation.Rule{
		Kind:    validation.RuleOneOf,
		Choices: []string{"Paris, France", "Lima"},
	}))

	if got := set.Validate(context.Background(), wizard.Values{"city": "Paris, France"}); len(got) != 0 {
		t.Fatalf("expected valid, got %v", got)
	}
	got := set.Validate(context.Background(), wizard.Values{"city": "France"})
	if diff := cmp.Diff(wizard.FieldErrors{"city": "must be one of: Paris, France, Lima"}, got); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestRule_String(t *testing.T) {
	got := []string{
		validation.Rule{Kind: validation.RuleRequired}.String(),
		validation.Rule{Kind: validation.RuleOneOf, Params: map[string]string{"values": "a,b", "message": "x"}}.String(),
		validation.Rule{Kind: validation.RuleOneOf, Choices: []string{"Paris, France", "Lima"}}.String(),
	}
	want := []string{"required", "oneOf(message=x, values=a,b)", "oneOf(choices=[Paris, France | Lima])"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rule strings mismatch (-want +got):\n%s", diff)
	}
}
