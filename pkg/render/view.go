package render

import (
	"fmt"

	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// View is the renderer-facing snapshot of a controller.
type View struct {
	FormID      string `json:"formId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	Index     int  `json:"index"`
	Total     int  `json:"total"`
	Reached   int  `json:"reached"`
	First     bool `json:"first"`
	Last      bool `json:"last"`
	Submitted bool `json:"submitted"`
	// Progress is the completion percentage shown by progress bars.
	Progress int `json:"progress"`

	Step  StepView   `json:"step"`
	Steps []StepLink `json:"steps"`

	Errors     wizard.FieldErrors `json:"errors,omitempty"`
	FormErrors []string           `json:"formErrors,omitempty"`
}

// StepView describes the active step with its fields hydrated.
type StepView struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Fields      []FieldView `json:"fields"`
}

// FieldView is one input ready to draw.
type FieldView struct {
	Name        string           `json:"name"`
	Label       string           `json:"label"`
	Kind        wizard.FieldKind `json:"kind"`
	Placeholder string           `json:"placeholder,omitempty"`
	Help        string           `json:"help,omitempty"`
	Required    bool             `json:"required,omitempty"`
	Options     []OptionView     `json:"options,omitempty"`
	Value       string           `json:"value"`
	Error       string           `json:"error,omitempty"`
}

// OptionView is a select choice with its selection state.
type OptionView struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
}

// StepLink drives progress indicators and jump navigation.
type StepLink struct {
	Index   int    `json:"index"`
	ID      string `json:"id"`
	Title   string `json:"title"`
	Current bool   `json:"current,omitempty"`
	// Visited steps can be jumped to. Forward jumps still validate the
	// active step.
	Visited bool `json:"visited,omitempty"`
}

// Checked reports whether a checkbox value counts as ticked.
func (f FieldView) Checked() bool {
	switch f.Value {
	case "true", "on", "yes", "1":
		return true
	}
	return false
}

// ViewOf snapshots ctrl. overlay holds input that was not merged because it
// failed validation; it takes precedence over saved values so the user sees
// what they typed next to the error.
func ViewOf(ctrl *wizard.Controller, overlay wizard.Values) View {
	def := ctrl.Definition()
	step := ctrl.Step()
	errs := ctrl.Errors()

	saved, _ := ctrl.ValuesForStep(ctrl.Index())
	for _, name := range step.FieldNames() {
		if value, ok := overlay[name]; ok {
			saved[name] = value
		}
	}

	view := View{
		FormID:    def.ID(),
		Title:     def.Title(),
		Index:     ctrl.Index(),
		Total:     def.Len(),
		Reached:   ctrl.Reached(),
		First:     ctrl.IsFirst(),
		Last:      ctrl.IsLast(),
		Submitted: ctrl.Submitted(),
		Errors:    errs,
		Step: StepView{
			ID:          step.ID,
			Title:       step.Title,
			Description: step.Description,
			Fields:      make([]FieldView, 0, len(step.Fields)),
		},
	}
	if view.Title == "" {
		view.Title = def.ID()
	}
	if msg, ok := errs[wizard.FormErrorKey]; ok {
		view.FormErrors = []string{msg}
	}

	view.Progress = (view.Index + 1) * 100 / view.Total
	if view.Submitted {
		view.Progress = 100
	}

	for _, field := range step.Fields {
		fv := FieldView{
			Name:        field.Name,
			Label:       field.DisplayLabel(),
			Kind:        field.Kind,
			Placeholder: field.Placeholder,
			Help:        field.Help,
			Required:    field.Required,
			Value:       stringValue(saved[field.Name]),
			Error:       errs[field.Name],
		}
		if fv.Kind == "" {
			fv.Kind = wizard.FieldKindText
		}
		for _, opt := range field.Options {
			label := opt.Label
			if label == "" {
				label = opt.Value
			}
			fv.Options = append(fv.Options, OptionView{
				Value:    opt.Value,
				Label:    label,
				Selected: opt.Value == fv.Value,
			})
		}
		view.Step.Fields = append(view.Step.Fields, fv)
	}

	for idx, s := range def.Steps() {
		title := s.Title
		if title == "" {
			title = s.ID
		}
		view.Steps = append(view.Steps, StepLink{
			Index:   idx,
			ID:      s.ID,
			Title:   title,
			Current: idx == view.Index,
			Visited: idx <= view.Reached,
		})
	}

	return view
}

// Field looks up a field of the active step.
func (v *View) Field(name string) (*FieldView, bool) {
	for i := range v.Step.Fields {
		if v.Step.Fields[i].Name == name {
			return &v.Step.Fields[i], true
		}
	}
	return nil, false
}

// ApplyErrors folds an ErrorMapping onto the view. Messages already produced
// by validation are kept; external ones fill the gaps.
func (v *View) ApplyErrors(mapping ErrorMapping) {
	for name, messages := range mapping.Fields {
		field, ok := v.Field(name)
		if !ok || len(messages) == 0 {
			continue
		}
		if field.Error == "" {
			field.Error = messages[0]
		}
		if v.Errors == nil {
			v.Errors = make(wizard.FieldErrors)
		}
		if _, exists := v.Errors[name]; !exists {
			v.Errors[name] = messages[0]
		}
	}
	v.FormErrors = MergeFormErrors(v.FormErrors, mapping.Form...)
}

// ApplyPayload maps an external error payload onto the active step and
// applies it.
func (v *View) ApplyPayload(payload map[string][]string) {
	if len(payload) == 0 {
		return
	}
	step := wizard.Step{ID: v.Step.ID}
	for _, field := range v.Step.Fields {
		step.Fields = append(step.Fields, wizard.Field{Name: field.Name})
	}
	v.ApplyErrors(MapErrorPayload(step, payload))
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
