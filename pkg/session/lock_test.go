package session

import (
	"context"
	"testing"

	"github.com/goliatone/go-formwizard/pkg/testsupport"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

type singleDef struct{ def *wizard.Definition }

func (s singleDef) Definition(string) (*wizard.Definition, bool) { return s.def, true }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(singleDef{testsupport.ScenarioDefinition()})
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		info, err := mgr.Create(ctx, "scenario")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		_ = mgr.Do(ctx, info.ID, func(context.Context, *wizard.Controller) error { return nil })
		_ = mgr.Discard(ctx, info.ID)
	}

	if n := len(mgr.locks); n != 0 {
		t.Errorf("%d locks remaining after discard", n)
	}
	if n := mgr.Len(); n != 0 {
		t.Errorf("%d sessions remaining after discard", n)
	}
}
