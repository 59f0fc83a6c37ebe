package catalog

import (
	"sort"

	"github.com/goliatone/go-formwizard/pkg/validation"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// Form is a loaded definition plus the metadata surfaces need beyond the
// controller's view of it.
type Form struct {
	Definition  *wizard.Definition
	Description string
	// Source is the path of the file the form was read from.
	Source string
	// Rules holds the effective rules per field, implied ones included.
	Rules map[string][]validation.Rule
	// Schemas holds the raw inline JSON schema per step id, when declared.
	Schemas map[string][]byte
}

// ID is a shortcut for Definition.ID.
func (f Form) ID() string { return f.Definition.ID() }

// FieldRules returns the effective rules for field.
func (f Form) FieldRules(field string) []validation.Rule {
	return append([]validation.Rule(nil), f.Rules[field]...)
}

// Store is an immutable set of forms keyed by id.
type Store struct {
	forms map[string]Form
}

// Get returns the form registered under id.
func (s *Store) Get(id string) (Form, bool) {
	if s == nil {
		return Form{}, false
	}
	form, ok := s.forms[id]
	return form, ok
}

// Definition returns the wizard definition registered under id.
func (s *Store) Definition(id string) (*wizard.Definition, bool) {
	form, ok := s.Get(id)
	if !ok {
		return nil, false
	}
	return form.Definition, true
}

// IDs lists the form ids alphabetically.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.forms))
	for id := range s.forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// List returns every form ordered by id.
func (s *Store) List() []Form {
	ids := s.IDs()
	out := make([]Form, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.forms[id])
	}
	return out
}

// Len reports how many forms the store holds.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.forms)
}

type formFile struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Steps       []stepFile `json:"steps" yaml:"steps"`
}

type stepFile struct {
	ID          string         `json:"id" yaml:"id"`
	Title       string         `json:"title" yaml:"title"`
	Description string         `json:"description" yaml:"description"`
	Optional    bool           `json:"optional" yaml:"optional"`
	Fields      []fieldFile    `json:"fields" yaml:"fields"`
	Schema      map[string]any `json:"schema" yaml:"schema"`
}

type fieldFile struct {
	Name        string            `json:"name" yaml:"name"`
	Label       string            `json:"label" yaml:"label"`
	Kind        string            `json:"kind" yaml:"kind"`
	Placeholder string            `json:"placeholder" yaml:"placeholder"`
	Help        string            `json:"help" yaml:"help"`
	Required    bool              `json:"required" yaml:"required"`
	Options     []wizard.Choice   `json:"options" yaml:"options"`
	Rules       []validation.Rule `json:"rules" yaml:"rules"`
}
