package formwizard

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/goliatone/go-formwizard/pkg/render"
)

func TestNewController_UsesEmbeddedCatalog(t *testing.T) {
	ctrl, err := NewController("patient")
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	if ctrl.Index() != 0 || ctrl.Definition().ID() != "patient" {
		t.Fatalf("unexpected controller state: %d %s", ctrl.Index(), ctrl.Definition().ID())
	}
	if _, err := NewController("unknown"); err == nil {
		t.Fatalf("expected error for unknown form")
	}
	if Forms().Len() != 6 {
		t.Fatalf("expected six embedded forms, got %d", Forms().Len())
	}
}

func TestNewRegistry_NegotiatesSurfaces(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	ctrl, err := NewController("doctor")
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	view := render.ViewOf(ctrl, nil)

	for accept, want := range map[string]string{
		"application/json":                "json",
		"text/html,application/xhtml+xml": "html",
		"*/*":                             "html",
		"":                                "html",
	} {
		renderer, err := registry.Negotiate(accept)
		if err != nil {
			t.Fatalf("accept %q: %v", accept, err)
		}
		if renderer.Name() != want {
			t.Fatalf("accept %q: expected %s, got %s", accept, want, renderer.Name())
		}
	}

	page, err := registry.Negotiate("text/html")
	if err != nil {
		t.Fatalf("negotiate: %v", err)
	}
	out, err := page.Render(context.Background(), view, RenderOptions{Action: "/sessions/x"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(out), `data-form="doctor"`) {
		t.Fatalf("expected doctor page")
	}
}

func TestEmbeddedFilesystems(t *testing.T) {
	if _, err := fs.ReadFile(EmbeddedTemplates(), "templates/page.tmpl"); err != nil {
		t.Fatalf("page template: %v", err)
	}
	if _, err := fs.ReadFile(AssetsFS(), "formwizard.css"); err != nil {
		t.Fatalf("stylesheet: %v", err)
	}
}
