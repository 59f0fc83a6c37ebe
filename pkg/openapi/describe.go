package openapi

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formwizard/pkg/catalog"
	"github.com/goliatone/go-formwizard/pkg/validation"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

const (
	extensionNamespace = "x-formwizard"
	numericPattern     = `^-?[0-9]+(\.[0-9]+)?$`
	phonePattern       = `^\+?[0-9][0-9 ().-]{5,18}[0-9]$`
)

// Info carries the document metadata.
type Info struct {
	Title       string
	Version     string
	Description string
	ServerURL   string
}

// ApplicationSchemaName is the component holding every field of formID.
func ApplicationSchemaName(formID string) string {
	return formID + ".application"
}

// StepSchemaName is the component holding the fields of one step.
func StepSchemaName(formID, stepID string) string {
	return formID + "." + stepID
}

// Describe builds and validates the document for store.
func Describe(ctx context.Context, store *catalog.Store, info Info) (*openapi3.T, error) {
	if store == nil || store.Len() == 0 {
		return nil, fmt.Errorf("openapi: catalog is empty")
	}
	if info.Title == "" {
		info.Title = "formwizard"
	}
	if info.Version == "" {
		info.Version = "1.0.0"
	}

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       info.Title,
			Version:     info.Version,
			Description: info.Description,
		},
		Components: &openapi3.Components{Schemas: openapi3.Schemas{}},
		Paths:      openapi3.NewPaths(),
	}
	if info.ServerURL != "" {
		doc.Servers = openapi3.Servers{{URL: info.ServerURL}}
	}

	schemas := doc.Components.Schemas
	schemas["Error"] = errorSchema().NewRef()
	schemas["ValidationErrors"] = validationErrorsSchema().NewRef()
	schemas["FormSummary"] = formSummarySchema().NewRef()
	schemas["StepDocument"] = stepDocumentSchema().NewRef()

	var stepRefs openapi3.SchemaRefs
	formIDs := make([]any, 0, store.Len())
	for _, form := range store.List() {
		formIDs = append(formIDs, form.ID())
		application := openapi3.NewObjectSchema()
		application.Title = form.Definition.Title()
		application.Description = form.Description

		for _, step := range form.Definition.Steps() {
			stepSchema := openapi3.NewObjectSchema()
			stepSchema.Title = step.Title
			stepSchema.Description = step.Description
			for _, field := range step.Fields {
				rules := form.FieldRules(field.Name)
				property := fieldSchema(field, rules)
				property.Extensions = map[string]any{
					extensionNamespace: map[string]any{"step": step.ID, "kind": string(fieldKind(field))},
				}
				stepSchema.WithProperty(field.Name, property)
				application.WithProperty(field.Name, property)
				if isRequired(field, rules) {
					stepSchema.Required = append(stepSchema.Required, field.Name)
					application.Required = append(application.Required, field.Name)
				}
			}
			name := StepSchemaName(form.ID(), step.ID)
			schemas[name] = stepSchema.NewRef()
			stepRefs = append(stepRefs, componentRef(name, stepSchema))
		}
		schemas[ApplicationSchemaName(form.ID())] = application.NewRef()
	}

	addPaths(doc, formIDs, stepRefs)

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("openapi: validate document: %w", err)
	}
	return doc, nil
}

// MarshalJSON renders the document for /openapi.json.
func MarshalJSON(doc *openapi3.T) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("openapi: document is nil")
	}
	return doc.MarshalJSON()
}

func fieldKind(field wizard.Field) wizard.FieldKind {
	if field.Kind == "" {
		return wizard.FieldKindText
	}
	return field.Kind
}

func fieldSchema(field wizard.Field, rules []validation.Rule) *openapi3.Schema {
	schema := openapi3.NewStringSchema()
	schema.Title = field.Label
	schema.Description = field.Help

	switch fieldKind(field) {
	case wizard.FieldKindEmail:
		schema.Format = "email"
	case wizard.FieldKindURL:
		schema.Format = "uri"
	case wizard.FieldKindDate:
		schema.Format = "date"
	case wizard.FieldKindFile:
		schema.Format = "binary"
	}

	var notes []string
	for _, rule := range rules {
		switch rule.Kind {
		case validation.RuleRequired:
			if schema.MinLength == 0 {
				schema.MinLength = 1
			}
		case validation.RuleEmail:
			schema.Format = "email"
		case validation.RuleURL:
			schema.Format = "uri"
		case validation.RulePhone:
			schema.Pattern = phonePattern
		case validation.RuleNumeric:
			if schema.Pattern == "" {
				schema.Pattern = numericPattern
			}
		case validation.RulePattern:
			schema.Pattern = rule.Params["pattern"]
		case validation.RuleMinLength:
			if n, err := strconv.ParseUint(rule.Params["value"], 10, 64); err == nil {
				schema.MinLength = n
			}
		case validation.RuleMaxLength:
			if n, err := strconv.ParseUint(rule.Params["value"], 10, 64); err == nil {
				schema.MaxLength = &n
			}
		case validation.RuleOneOf:
			for _, choice := range rule.AllowedValues() {
				schema.Enum = append(schema.Enum, choice)
			}
		case validation.RuleAccepted:
			schema.Enum = []any{"true", "on", "yes", "1"}
		case validation.RuleMin, validation.RuleMax, validation.RuleExpr:
			notes = append(notes, ruleNote(rule))
		}
	}
	if len(schema.Enum) == 0 && fieldKind(field) == wizard.FieldKindSelect {
		for _, opt := range field.Options {
			schema.Enum = append(schema.Enum, opt.Value)
		}
	}
	if len(notes) > 0 {
		if schema.Description != "" {
			notes = append([]string{schema.Description}, notes...)
		}
		schema.Description = strings.Join(notes, ". ")
	}
	return schema
}

func ruleNote(rule validation.Rule) string {
	if rule.Message != "" {
		return rule.Message
	}
	switch rule.Kind {
	case validation.RuleMin:
		return "at least " + rule.Params["value"]
	case validation.RuleMax:
		return "at most " + rule.Params["value"]
	}
	return "checked against " + rule.Params["expr"]
}

func isRequired(field wizard.Field, rules []validation.Rule) bool {
	if field.Required {
		return true
	}
	for _, rule := range rules {
		if rule.Kind == validation.RuleRequired || rule.Kind == validation.RuleAccepted {
			return true
		}
	}
	return false
}

func componentRef(name string, schema *openapi3.Schema) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Ref: "#/components/schemas/" + name, Value: schema}
}

func errorSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema()).
		WithRequired([]string{"error"})
}

func validationErrorsSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema()).
		WithProperty("step", openapi3.NewStringSchema()).
		WithPropertyRef("errors", &openapi3.SchemaRef{Value: openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewStringSchema())}).
		WithRequired([]string{"error", "errors"})
}

func formSummarySchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema()).
		WithProperty("title", openapi3.NewStringSchema()).
		WithProperty("description", openapi3.NewStringSchema()).
		WithProperty("steps", openapi3.NewIntegerSchema()).
		WithRequired([]string{"id", "title", "steps"})
}

func stepDocumentSchema() *openapi3.Schema {
	schema := openapi3.NewObjectSchema().
		WithProperty("formId", openapi3.NewStringSchema()).
		WithProperty("title", openapi3.NewStringSchema()).
		WithProperty("index", openapi3.NewIntegerSchema()).
		WithProperty("total", openapi3.NewIntegerSchema()).
		WithProperty("progress", openapi3.NewIntegerSchema()).
		WithProperty("submitted", openapi3.NewBoolSchema()).
		WithProperty("step", openapi3.NewObjectSchema()).
		WithProperty("steps", openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema())).
		WithProperty("errors", openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewStringSchema())).
		WithProperty("actions", openapi3.NewObjectSchema())
	schema.Required = []string{"formId", "index", "total", "step"}
	return schema
}

func addPaths(doc *openapi3.T, formIDs []any, stepRefs openapi3.SchemaRefs) {
	ref := func(name string) *openapi3.SchemaRef {
		return &openapi3.SchemaRef{Ref: "#/components/schemas/" + name, Value: doc.Components.Schemas[name].Value}
	}
	jsonResponse := func(description, schema string) *openapi3.ResponseRef {
		return &openapi3.ResponseRef{Value: openapi3.NewResponse().
			WithDescription(description).
			WithJSONSchemaRef(ref(schema))}
	}
	responses := func(status int, description, schema string, extra map[int]*openapi3.ResponseRef) *openapi3.Responses {
		out := openapi3.NewResponses(openapi3.WithStatus(status, jsonResponse(description, schema)))
		for code, resp := range extra {
			out.Set(strconv.Itoa(code), resp)
		}
		return out
	}
	notFound := map[int]*openapi3.ResponseRef{404: jsonResponse("Unknown form or session", "Error")}

	formParam := openapi3.NewPathParameter("form").WithSchema(openapi3.NewStringSchema().WithEnum(formIDs...))
	sessionParam := openapi3.NewPathParameter("id").WithSchema(openapi3.NewStringSchema().WithFormat("uuid"))
	indexParam := openapi3.NewPathParameter("index").WithSchema(openapi3.NewIntegerSchema().WithMin(0))

	inputBody := &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithDescription("Current input of the active step").
		WithSchemaRef(&openapi3.SchemaRef{Value: &openapi3.Schema{AnyOf: stepRefs}}, []string{
			"application/json",
			"application/x-www-form-urlencoded",
		})}

	listForms := openapi3.NewOperation()
	listForms.OperationID = "listForms"
	listForms.Summary = "List the partner intake forms"
	listForms.Responses = openapi3.NewResponses(openapi3.WithStatus(200, &openapi3.ResponseRef{Value: openapi3.NewResponse().
		WithDescription("Available forms").
		WithJSONSchema(openapi3.NewArraySchema().WithItems(doc.Components.Schemas["FormSummary"].Value))}))
	doc.Paths.Set("/forms", &openapi3.PathItem{Get: listForms})

	getForm := openapi3.NewOperation()
	getForm.OperationID = "getForm"
	getForm.Summary = "Describe a form definition"
	getForm.AddParameter(formParam)
	getForm.Responses = openapi3.NewResponses(openapi3.WithStatus(200, &openapi3.ResponseRef{Value: openapi3.NewResponse().
		WithDescription("Form definition").
		WithJSONSchema(openapi3.NewObjectSchema())}))
	getForm.Responses.Set("404", jsonResponse("Unknown form", "Error"))
	doc.Paths.Set("/forms/{form}", &openapi3.PathItem{Get: getForm})

	createSession := openapi3.NewOperation()
	createSession.OperationID = "createSession"
	createSession.Summary = "Start filling a form"
	createSession.AddParameter(formParam)
	createSession.Responses = responses(201, "Session created on the first step", "StepDocument", notFound)
	doc.Paths.Set("/forms/{form}/sessions", &openapi3.PathItem{Post: createSession})

	getSession := openapi3.NewOperation()
	getSession.OperationID = "getSession"
	getSession.Summary = "Render the active step"
	getSession.AddParameter(sessionParam)
	getSession.Responses = responses(200, "Active step", "StepDocument", notFound)

	deleteSession := openapi3.NewOperation()
	deleteSession.OperationID = "deleteSession"
	deleteSession.Summary = "Discard a session"
	deleteSession.AddParameter(sessionParam)
	deleteSession.Responses = openapi3.NewResponses(openapi3.WithStatus(204, &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("Discarded")}))
	deleteSession.Responses.Set("404", jsonResponse("Unknown session", "Error"))
	doc.Paths.Set("/sessions/{id}", &openapi3.PathItem{Get: getSession, Delete: deleteSession})

	navigation := func(id, summary string, params ...*openapi3.Parameter) *openapi3.Operation {
		op := openapi3.NewOperation()
		op.OperationID = id
		op.Summary = summary
		op.AddParameter(sessionParam)
		for _, p := range params {
			op.AddParameter(p)
		}
		op.RequestBody = inputBody
		op.Responses = responses(200, "Resulting step", "StepDocument", map[int]*openapi3.ResponseRef{
			404: jsonResponse("Unknown session", "Error"),
			409: jsonResponse("Form already submitted", "Error"),
			422: jsonResponse("Active step failed validation", "ValidationErrors"),
		})
		return op
	}
	doc.Paths.Set("/sessions/{id}/next", &openapi3.PathItem{Post: navigation("nextStep", "Validate the active step and advance")})
	doc.Paths.Set("/sessions/{id}/previous", &openapi3.PathItem{Post: navigation("previousStep", "Save the active step and go back")})
	doc.Paths.Set("/sessions/{id}/submit", &openapi3.PathItem{Post: navigation("submitForm", "Validate the last step and submit")})
	doc.Paths.Set("/sessions/{id}/steps/{index}", &openapi3.PathItem{Post: navigation("goToStep", "Jump to a step", indexParam)})
}
