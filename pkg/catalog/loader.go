package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formwizard/pkg/validation"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// ErrInvalidForm wraps every problem found while loading a form file.
var ErrInvalidForm = errors.New("catalog: invalid form")

var (
	defaultOnce  sync.Once
	defaultStore *Store
	defaultErr   error
)

// Default returns the embedded partner forms. The set is parsed once; a
// broken embedded file is a build defect and panics.
func Default() *Store {
	defaultOnce.Do(func() {
		defaultStore, defaultErr = LoadFS(EmbeddedFS())
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultStore
}

// LoadFS walks fsys and parses every JSON/YAML form file. Loading stops at
// the first invalid file; use Lint to collect every problem instead. A nil
// filesystem yields an empty store.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{forms: make(map[string]Form)}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isFormFile(path) {
			return nil
		}

		doc, err := readFormFile(fsys, path)
		if err != nil {
			return err
		}

		form, issues := compileForm(doc, path)
		if issue, ok := firstError(issues); ok {
			return fmt.Errorf("%w: %s", ErrInvalidForm, issue)
		}
		if prev, exists := store.forms[form.ID()]; exists {
			return fmt.Errorf("%w: duplicate form %q (files %s and %s)", ErrInvalidForm, form.ID(), prev.Source, path)
		}
		store.forms[form.ID()] = form
		return nil
	})
	if err != nil {
		return nil, err
	}

	return store, nil
}

func readFormFile(fsys fs.FS, path string) (formFile, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return formFile{}, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return parseDocument(data, path)
}

func parseDocument(data []byte, source string) (formFile, error) {
	var doc formFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return formFile{}, fmt.Errorf("%w: file %s is empty", ErrInvalidForm, source)
	}

	if strings.EqualFold(filepath.Ext(source), ".json") {
		if err := json.Unmarshal(data, &doc); err != nil {
			return formFile{}, fmt.Errorf("%w: parse %s: %v", ErrInvalidForm, source, err)
		}
		return doc, nil
	}

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return formFile{}, fmt.Errorf("%w: parse %s: %v", ErrInvalidForm, source, err)
	}
	return doc, nil
}

func isFormFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

var knownKinds = map[wizard.FieldKind]struct{}{
	wizard.FieldKindText:     {},
	wizard.FieldKindEmail:    {},
	wizard.FieldKindPhone:    {},
	wizard.FieldKindURL:      {},
	wizard.FieldKindNumber:   {},
	wizard.FieldKindDate:     {},
	wizard.FieldKindTextArea: {},
	wizard.FieldKindSelect:   {},
	wizard.FieldKindCheckbox: {},
	wizard.FieldKindFile:     {},
}

// compileForm turns a parsed file into a Form, reporting every problem it
// finds. The returned Form is only usable when no error issue is present.
func compileForm(doc formFile, source string) (Form, []Issue) {
	var issues []Issue
	formID := strings.TrimSpace(doc.ID)
	report := func(sev Severity, step, field, format string, args ...any) {
		issues = append(issues, Issue{
			Source:   source,
			Form:     formID,
			Step:     step,
			Field:    field,
			Severity: sev,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	if formID == "" {
		report(SeverityError, "", "", "form id is required")
	}
	if strings.TrimSpace(doc.Title) == "" {
		report(SeverityWarning, "", "", "form has no title")
	}

	form := Form{
		Description: strings.TrimSpace(doc.Description),
		Source:      source,
		Rules:       make(map[string][]validation.Rule),
		Schemas:     make(map[string][]byte),
	}

	steps := make([]wizard.Step, 0, len(doc.Steps))
	for idx, raw := range doc.Steps {
		stepID := strings.TrimSpace(raw.ID)
		if stepID == "" {
			stepID = fmt.Sprintf("#%d", idx)
		}
		if strings.TrimSpace(raw.Title) == "" {
			report(SeverityWarning, stepID, "", "step has no title")
		}

		step := wizard.Step{
			ID:          strings.TrimSpace(raw.ID),
			Title:       strings.TrimSpace(raw.Title),
			Description: strings.TrimSpace(raw.Description),
			Fields:      make([]wizard.Field, 0, len(raw.Fields)),
		}

		var ruleSets []validation.FieldRules
		for _, rf := range raw.Fields {
			name := strings.TrimSpace(rf.Name)
			kind := wizard.FieldKind(strings.ToLower(strings.TrimSpace(rf.Kind)))
			if kind == "" {
				kind = wizard.FieldKindText
			}
			if _, ok := knownKinds[kind]; !ok {
				report(SeverityError, stepID, name, "unknown field kind %q", rf.Kind)
			}
			if strings.TrimSpace(rf.Label) == "" {
				report(SeverityWarning, stepID, name, "field has no label")
			}
			if kind == wizard.FieldKindSelect && len(rf.Options) == 0 {
				report(SeverityError, stepID, name, "select field declares no options")
			}
			if raw.Optional && (rf.Required || len(rf.Rules) > 0) {
				report(SeverityError, stepID, name, "optional step cannot declare required fields or rules")
			}

			step.Fields = append(step.Fields, wizard.Field{
				Name:        name,
				Label:       strings.TrimSpace(rf.Label),
				Kind:        kind,
				Placeholder: rf.Placeholder,
				Help:        rf.Help,
				Required:    rf.Required,
				Options:     rf.Options,
			})

			if name == "" || raw.Optional {
				continue
			}
			fr := effectiveRules(name, kind, rf)
			form.Rules[name] = fr.Rules
			ruleSets = append(ruleSets, fr)
		}

		if raw.Optional {
			if len(raw.Schema) > 0 {
				report(SeverityError, stepID, "", "optional step cannot declare a schema")
			}
			step.Schema = validation.Optional()
			steps = append(steps, step)
			continue
		}

		var schemas []wizard.Schema
		rules, err := validation.Rules(ruleSets...)
		if err != nil {
			report(SeverityError, stepID, "", "%v", err)
		} else {
			schemas = append(schemas, rules)
		}

		if len(raw.Schema) > 0 {
			encoded, err := json.Marshal(raw.Schema)
			if err != nil {
				report(SeverityError, stepID, "", "encode schema: %v", err)
			} else if compiled, err := validation.JSONSchema(encoded); err != nil {
				report(SeverityError, stepID, "", "%v", err)
			} else {
				schemas = append(schemas, compiled)
				form.Schemas[step.ID] = encoded
			}
		}

		step.Schema = validation.Compose(schemas...)
		steps = append(steps, step)
	}

	if hasError(issues) {
		return Form{}, issues
	}

	def, err := wizard.NewDefinition(formID, doc.Title, steps...)
	if err != nil {
		report(SeverityError, "", "", "%v", err)
		return Form{}, issues
	}
	form.Definition = def
	return form, issues
}

// effectiveRules adds the rules implied by the field kind to the declared
// ones, skipping kinds the author already listed.
func effectiveRules(name string, kind wizard.FieldKind, rf fieldFile) validation.FieldRules {
	declared := append([]validation.Rule(nil), rf.Rules...)
	var implied []validation.Rule
	add := func(rule validation.Rule) {
		for _, existing := range declared {
			if existing.Kind == rule.Kind {
				return
			}
		}
		implied = append(implied, rule)
	}

	required := rf.Required
	switch kind {
	case wizard.FieldKindEmail:
		add(validation.Rule{Kind: validation.RuleEmail})
	case wizard.FieldKindPhone:
		add(validation.Rule{Kind: validation.RulePhone})
	case wizard.FieldKindURL:
		add(validation.Rule{Kind: validation.RuleURL})
	case wizard.FieldKindNumber:
		add(validation.Rule{Kind: validation.RuleNumeric})
	case wizard.FieldKindSelect:
		values := make([]string, 0, len(rf.Options))
		for _, opt := range rf.Options {
			values = append(values, opt.Value)
		}
		if len(values) > 0 {
			add(validation.Rule{Kind: validation.RuleOneOf, Choices: values})
		}
	case wizard.FieldKindCheckbox:
		if required {
			required = false
			add(validation.Rule{Kind: validation.RuleAccepted})
		}
	}

	return validation.ForField(name, required, append(implied, declared...)...)
}

func hasError(issues []Issue) bool {
	_, ok := firstError(issues)
	return ok
}

func firstError(issues []Issue) (Issue, bool) {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return issue, true
		}
	}
	return Issue{}, false
}
