package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/goliatone/go-formwizard/pkg/wizard"
)

const stepSchemaURL = "formwizard://step.schema.json"

var printer = message.NewPrinter(language.English)

// JSONSchemaValidator validates step values against a Draft 2020-12 object
// schema. Empty strings are treated as absent so "required" catches blank
// inputs.
type JSONSchemaValidator struct {
	schema *jsonschema.Schema
	fields []string
}

var _ wizard.Schema = (*JSONSchemaValidator)(nil)
var _ wizard.FieldScoped = (*JSONSchemaValidator)(nil)

// JSONSchema compiles raw into a step schema. Format keywords are asserted.
// The top-level properties become the schema's declared fields.
func JSONSchema(raw []byte) (*JSONSchemaValidator, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.New("validation: json schema is empty")
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("validation: unmarshal json schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat()
	if err := compiler.AddResource(stepSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("validation: add json schema: %w", err)
	}
	compiled, err := compiler.Compile(stepSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("validation: compile json schema: %w", err)
	}

	var shape struct {
		Properties map[string]json.RawMessage `json:"properties"`
		Required   []string                   `json:"required"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, fmt.Errorf("validation: inspect json schema: %w", err)
	}
	seen := make(map[string]struct{}, len(shape.Properties))
	fields := make([]string, 0, len(shape.Properties))
	for name := range shape.Properties {
		seen[name] = struct{}{}
		fields = append(fields, name)
	}
	for _, name := range shape.Required {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)

	return &JSONSchemaValidator{schema: compiled, fields: fields}, nil
}

// Fields lists the properties the schema inspects.
func (v *JSONSchemaValidator) Fields() []string {
	return append([]string(nil), v.fields...)
}

// Validate maps schema violations onto top-level fields, keeping the first
// violation per field.
func (v *JSONSchemaValidator) Validate(_ context.Context, values wizard.Values) wizard.FieldErrors {
	instance := make(map[string]any, len(values))
	for key, value := range values {
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		if value == nil {
			continue
		}
		instance[key] = value
	}

	doc, err := toJSONValue(instance)
	if err != nil {
		return wizard.FieldErrors{wizard.FormErrorKey: err.Error()}
	}

	err = v.schema.Validate(doc)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return wizard.FieldErrors{wizard.FormErrorKey: err.Error()}
	}

	errs := make(wizard.FieldErrors)
	collectFieldErrors(verr, errs)
	return errs
}

func collectFieldErrors(verr *jsonschema.ValidationError, dest wizard.FieldErrors) {
	if len(verr.Causes) > 0 {
		for _, cause := range verr.Causes {
			collectFieldErrors(cause, dest)
		}
		return
	}

	if required, ok := verr.ErrorKind.(*kind.Required); ok && len(verr.InstanceLocation) == 0 {
		for _, name := range required.Missing {
			if _, exists := dest[name]; !exists {
				dest[name] = "required"
			}
		}
		return
	}

	field := wizard.FormErrorKey
	if len(verr.InstanceLocation) > 0 {
		field = verr.InstanceLocation[0]
	}
	if _, exists := dest[field]; exists {
		return
	}
	dest[field] = kindMessage(verr.ErrorKind)
}

func kindMessage(k jsonschema.ErrorKind) string {
	switch k.(type) {
	case *kind.Required:
		return "required"
	case *kind.Format, *kind.Pattern:
		return MessageInvalidFormat
	}
	if k == nil {
		return "invalid value"
	}
	return k.LocalizedString(printer)
}

// toJSONValue round-trips through encoding/json so numbers become
// json.Number, which the jsonschema library expects.
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("validation: encode values: %w", err)
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(b))
}
