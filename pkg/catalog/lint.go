package catalog

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// Severity grades a lint finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one problem found in a form file.
type Issue struct {
	Source   string   `json:"source"`
	Form     string   `json:"form,omitempty"`
	Step     string   `json:"step,omitempty"`
	Field    string   `json:"field,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	var location []string
	if i.Form != "" {
		location = append(location, "form "+i.Form)
	}
	if i.Step != "" {
		location = append(location, "step "+i.Step)
	}
	if i.Field != "" {
		location = append(location, "field "+i.Field)
	}
	where := i.Source
	if len(location) > 0 {
		where = fmt.Sprintf("%s (%s)", i.Source, strings.Join(location, ", "))
	}
	return fmt.Sprintf("%s: %s: %s", where, i.Severity, i.Message)
}

// LintResult collects the findings of a Lint run.
type LintResult struct {
	Files  int
	Forms  int
	Issues []Issue
}

// Valid reports whether no error-severity issue was found.
func (r LintResult) Valid() bool { return !hasError(r.Issues) }

// Errors returns the error-severity issues.
func (r LintResult) Errors() []Issue { return r.filter(SeverityError) }

// Warnings returns the warning-severity issues.
func (r LintResult) Warnings() []Issue { return r.filter(SeverityWarning) }

func (r LintResult) filter(sev Severity) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			out = append(out, issue)
		}
	}
	return out
}

// Lint checks every form file in fsys without stopping at the first problem.
// Walk failures are returned as an error; everything else becomes an Issue.
func Lint(fsys fs.FS) (LintResult, error) {
	var result LintResult
	if fsys == nil {
		return result, nil
	}

	owners := make(map[string]string)
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isFormFile(path) {
			return nil
		}
		result.Files++

		doc, err := readFormFile(fsys, path)
		if err != nil {
			result.Issues = append(result.Issues, Issue{Source: path, Severity: SeverityError, Message: err.Error()})
			return nil
		}

		form, issues := compileForm(doc, path)
		result.Issues = append(result.Issues, issues...)
		if hasError(issues) {
			return nil
		}
		if prev, exists := owners[form.ID()]; exists {
			result.Issues = append(result.Issues, Issue{
				Source:   path,
				Form:     form.ID(),
				Severity: SeverityError,
				Message:  fmt.Sprintf("form id already declared in %s", prev),
			})
			return nil
		}
		owners[form.ID()] = path
		result.Forms++
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("catalog: lint: %w", err)
	}

	sort.SliceStable(result.Issues, func(i, j int) bool {
		return result.Issues[i].Source < result.Issues[j].Source
	})
	return result, nil
}
