package render

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// SessionFieldName carries the wizard session id on every navigation post.
	SessionFieldName = "_session"
	// StepFieldName carries the index the page was rendered for, so stale
	// submissions from another tab can be detected.
	StepFieldName = "_step"
)

// HiddenField is a hidden input emitted with the navigation forms.
type HiddenField struct {
	Name  string
	Value string
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{
		Name:  strings.TrimSpace(name),
		Value: fmt.Sprint(value),
	}
}

// CSRFToken carries an anti-forgery token under the backend's input name
// ("_csrf", "csrf_token", ...).
func CSRFToken(name, token string) HiddenField {
	return Hidden(name, token)
}

// SessionField carries the wizard session id.
func SessionField(id string) HiddenField {
	return Hidden(SessionFieldName, id)
}

// StepField carries the rendered step index.
func StepField(index int) HiddenField {
	return Hidden(StepFieldName, index)
}

// MergeHiddenFields returns a copy of base with fields applied. Blank names
// are ignored and later fields win.
func MergeHiddenFields(base map[string]string, fields ...HiddenField) map[string]string {
	out := make(map[string]string, len(base)+len(fields))
	for key, value := range base {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			out[trimmed] = value
		}
	}
	for _, field := range fields {
		if name := strings.TrimSpace(field.Name); name != "" {
			out[name] = field.Value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SortedHiddenFields orders hidden fields by name for deterministic output.
func SortedHiddenFields(fields map[string]string) []HiddenField {
	if len(fields) == 0 {
		return nil
	}
	result := make([]HiddenField, 0, len(fields))
	for name, value := range fields {
		if key := strings.TrimSpace(name); key != "" {
			result = append(result, HiddenField{Name: key, Value: value})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	if len(result) == 0 {
		return nil
	}
	return result
}

// IsHiddenField reports whether name is one of the control fields the
// navigation forms add, so request decoders can leave them out of step input.
func IsHiddenField(name string) bool {
	return strings.HasPrefix(name, "_")
}
