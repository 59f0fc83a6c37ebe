package render_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

func TestMessageCatalog_MatchesLocales(t *testing.T) {
	cat := render.NewMessageCatalog("en")
	if err := cat.SetAll("en", map[string]string{
		"validation.required": "required",
		"greeting":            "Hello %s",
	}); err != nil {
		t.Fatalf("set en: %v", err)
	}
	if err := cat.Set("es", "validation.required", "obligatorio"); err != nil {
		t.Fatalf("set es: %v", err)
	}

	got, err := cat.Translate("es-MX", "validation.required")
	if err != nil || got != "obligatorio" {
		t.Fatalf("expected spanish message, got %q (%v)", got, err)
	}

	got, err = cat.Translate("es", "greeting", "Ana")
	if err != nil || got != "Hello Ana" {
		t.Fatalf("expected fallback with args, got %q (%v)", got, err)
	}

	if _, err := cat.Translate("es", "unknown"); !errors.Is(err, render.ErrMissingTranslation) {
		t.Fatalf("expected missing translation, got %v", err)
	}
	if err := cat.Set("not a locale!", "k", "v"); err == nil {
		t.Fatalf("expected locale parse error")
	}
}

func TestLocalizeView_TranslatesKnownKeys(t *testing.T) {
	def := wizard.MustDefinition("patient", "Patient enquiry", wizard.Step{
		ID:    "personal",
		Title: "About you",
		Fields: []wizard.Field{
			{Name: "patient_name", Label: "Full name", Help: "As in your passport"},
			{Name: "gender", Label: "Gender", Kind: wizard.FieldKindSelect, Options: []wizard.Choice{{Value: "female", Label: "Female"}}},
		},
		Schema: wizard.SchemaFunc(func(context.Context, wizard.Values) wizard.FieldErrors {
			return wizard.FieldErrors{"patient_name": "required"}
		}),
	})
	ctrl, err := wizard.New(def)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	if _, err := ctrl.Next(context.Background(), nil); err != nil {
		t.Fatalf("next: %v", err)
	}

	cat := render.NewMessageCatalog("en")
	_ = cat.SetAll("es", map[string]string{
		"forms.patient.title":                        "Consulta de paciente",
		"forms.patient.steps.personal.title":         "Sobre usted",
		"forms.patient.fields.patient_name.label":    "Nombre completo",
		"forms.patient.fields.gender.options.female": "Mujer",
		"validation.required":                        "obligatorio",
	})

	view := render.ViewOf(ctrl, nil)
	render.LocalizeView(&view, render.RenderOptions{Locale: "es", Translator: cat})

	got := []string{
		view.Title,
		view.Step.Title,
		view.Steps[0].Title,
		view.Step.Fields[0].Label,
		view.Step.Fields[0].Help,
		view.Step.Fields[0].Error,
		view.Errors["patient_name"],
		view.Step.Fields[1].Label,
		view.Step.Fields[1].Options[0].Label,
	}
	want := []string{
		"Consulta de paciente",
		"Sobre usted",
		"Sobre usted",
		"Nombre completo",
		"As in your passport",
		"obligatorio",
		"obligatorio",
		"Gender",
		"Mujer",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("localized view mismatch (-want +got):\n%s", diff)
	}
}

func TestLocalizeView_OnMissingHandler(t *testing.T) {
	view := render.View{FormID: "f", Title: "Form", Step: render.StepView{ID: "s", Title: "Step"}}
	var missing []string
	render.LocalizeView(&view, render.RenderOptions{
		Locale: "fr",
		OnMissing: func(_, key, fallback string, err error) string {
			if !errors.Is(err, render.ErrMissingTranslator) {
				t.Fatalf("expected ErrMissingTranslator, got %v", err)
			}
			missing = append(missing, key)
			return "[" + fallback + "]"
		},
	})
	if view.Title != "[Form]" || view.Step.Title != "[Step]" {
		t.Fatalf("handler output not applied: %+v", view)
	}
	if diff := cmp.Diff([]string{"forms.f.title", "forms.f.steps.s.title"}, missing); diff != "" {
		t.Fatalf("missing keys mismatch (-want +got):\n%s", diff)
	}
}
