package wizard

import (
	"encoding/json"
	"strings"
)

// FieldKind hints how a surface should collect a field.
type FieldKind string

const (
	FieldKindText     FieldKind = "text"
	FieldKindEmail    FieldKind = "email"
	FieldKindPhone    FieldKind = "tel"
	FieldKindURL      FieldKind = "url"
	FieldKindNumber   FieldKind = "number"
	FieldKindDate     FieldKind = "date"
	FieldKindTextArea FieldKind = "textarea"
	FieldKindSelect   FieldKind = "select"
	FieldKindCheckbox FieldKind = "checkbox"
	FieldKindFile     FieldKind = "file"
)

// Choice is a selectable value for select fields.
type Choice struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Field describes one input. Only Name matters to the controller; the rest is
// presentation metadata consumed by renderers.
type Field struct {
	Name        string    `json:"name"`
	Label       string    `json:"label,omitempty"`
	Kind        FieldKind `json:"kind,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Help        string    `json:"help,omitempty"`
	Required    bool      `json:"required,omitempty"`
	Options     []Choice  `json:"options,omitempty"`
}

// DisplayLabel falls back to the field name when no label is configured.
func (f Field) DisplayLabel() string {
	if strings.TrimSpace(f.Label) != "" {
		return f.Label
	}
	return f.Name
}

// Step groups the fields validated together on one screen.
type Step struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields"`
	// Schema validates Fields. A nil schema accepts any input.
	Schema Schema `json:"-"`
}

// FieldNames returns the step's field names in declaration order.
func (s Step) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

// Field looks up a field by name.
func (s Step) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (s Step) schema() Schema {
	if s.Schema == nil {
		return acceptAll{}
	}
	return s.Schema
}

// Definition is the validated, immutable description of one intake form.
type Definition struct {
	id    string
	title string
	steps []Step
	owner map[string]int
}

// NewDefinition validates steps and returns a Definition. Step IDs must be
// unique and non-empty, field names must be non-empty, must not start with
// "_" and must be unique across the whole definition, and field-scoped schemas may only reference their own
// step's fields.
func NewDefinition(id, title string, steps ...Step) (*Definition, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, definitionErrorf("form id is required")
	}
	if len(steps) == 0 {
		return nil, definitionErrorf("form %q declares no steps", id)
	}

	def := &Definition{
		id:    id,
		title: strings.TrimSpace(title),
		steps: make([]Step, len(steps)),
		owner: make(map[string]int),
	}
	stepIDs := make(map[string]int, len(steps))

	for idx, step := range steps {
		step.ID = strings.TrimSpace(step.ID)
		if step.ID == "" {
			return nil, definitionErrorf("form %q step %d has no id", id, idx)
		}
		if prev, dup := stepIDs[step.ID]; dup {
			return nil, definitionErrorf("form %q step id %q used by steps %d and %d", id, step.ID, prev, idx)
		}
		stepIDs[step.ID] = idx

		local := make(map[string]struct{}, len(step.Fields))
		fields := make([]Field, len(step.Fields))
		for i, field := range step.Fields {
			field.Name = strings.TrimSpace(field.Name)
			if field.Name == "" {
				return nil, definitionErrorf("form %q step %q field %d has no name", id, step.ID, i)
			}
			if strings.HasPrefix(field.Name, "_") {
				return nil, definitionErrorf("form %q field %q uses the reserved _ prefix", id, field.Name)
			}
			if prev, dup := def.owner[field.Name]; dup {
				return nil, definitionErrorf("form %q field %q declared in steps %q and %q", id, field.Name, steps[prev].ID, step.ID)
			}
			def.owner[field.Name] = idx
			local[field.Name] = struct{}{}
			field.Options = append([]Choice(nil), field.Options...)
			fields[i] = field
		}
		step.Fields = fields

		if scoped, ok := step.Schema.(FieldScoped); ok {
			for _, name := range scoped.Fields() {
				if _, own := local[name]; !own {
					return nil, definitionErrorf("form %q step %q schema references foreign field %q", id, step.ID, name)
				}
			}
		}
		def.steps[idx] = step
	}

	return def, nil
}

// MustDefinition panics when NewDefinition fails. Useful for static wiring.
func MustDefinition(id, title string, steps ...Step) *Definition {
	def, err := NewDefinition(id, title, steps...)
	if err != nil {
		panic(err)
	}
	return def
}

func (d *Definition) ID() string    { return d.id }
func (d *Definition) Title() string { return d.title }

// Len returns the number of steps.
func (d *Definition) Len() int { return len(d.steps) }

// LastIndex returns the index of the final step.
func (d *Definition) LastIndex() int { return len(d.steps) - 1 }

// Step returns the step at index.
func (d *Definition) Step(index int) (Step, error) {
	if index < 0 || index >= len(d.steps) {
		return Step{}, ErrStepOutOfRange
	}
	return d.steps[index], nil
}

// Steps returns a copy of the step list.
func (d *Definition) Steps() []Step {
	return append([]Step(nil), d.steps...)
}

// StepIndex resolves a step id to its index.
func (d *Definition) StepIndex(stepID string) (int, bool) {
	for idx, step := range d.steps {
		if step.ID == stepID {
			return idx, true
		}
	}
	return -1, false
}

// StepOf reports which step owns field.
func (d *Definition) StepOf(field string) (int, bool) {
	idx, ok := d.owner[field]
	return idx, ok
}

// Fields returns every field across all steps in declaration order.
func (d *Definition) Fields() []Field {
	var out []Field
	for _, step := range d.steps {
		out = append(out, step.Fields...)
	}
	return out
}

// MarshalJSON exposes the definition shape for API clients.
func (d *Definition) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID    string `json:"id"`
		Title string `json:"title,omitempty"`
		Steps []Step `json:"steps"`
	}{
		ID:    d.id,
		Title: d.title,
		Steps: d.steps,
	})
}
