package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

const (
	maxBodyBytes   = 1 << 20
	maxUploadBytes = 32 << 20
)

// errStalePage is returned when a post carries a step index that no longer
// matches the session, usually because the form is open in another tab.
var errStalePage = errors.New("httpapi: page is out of date")

// stepInput is the decoded body of a navigation post.
type stepInput struct {
	values wizard.Values
	// step is the index the page was rendered for, -1 when absent.
	step int
	// form is set for HTML form posts, where unticked checkboxes are omitted.
	form bool
}

// readInput decodes form-encoded, multipart or JSON bodies. Control fields
// (names starting with "_") are kept out of the step values. Uploaded files
// are recorded by file name; storing them belongs to the submitter.
func readInput(r *http.Request) (stepInput, error) {
	in := stepInput{values: make(wizard.Values), step: -1}
	if r.Body == nil || r.ContentLength == 0 {
		return in, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		raw := make(map[string]any)
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return in, fmt.Errorf("decode json body: %w", err)
		}
		for name, value := range raw {
			if render.IsHiddenField(name) {
				in.readControl(name, fmt.Sprint(value))
				continue
			}
			in.values[name] = jsonValue(value)
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return in, fmt.Errorf("parse multipart body: %w", err)
		}
		in.form = true
		in.readForm(r)
		for name, headers := range r.MultipartForm.File {
			if render.IsHiddenField(name) || len(headers) == 0 {
				continue
			}
			if headers[0].Filename != "" {
				in.values[name] = headers[0].Filename
			}
		}
	default:
		if err := r.ParseForm(); err != nil {
			return in, fmt.Errorf("parse form body: %w", err)
		}
		in.form = true
		in.readForm(r)
	}
	return in, nil
}

func (in *stepInput) readForm(r *http.Request) {
	for name, values := range r.PostForm {
		if len(values) == 0 {
			continue
		}
		if render.IsHiddenField(name) {
			in.readControl(name, values[0])
			continue
		}
		name = strings.TrimSuffix(name, "[]")
		if len(values) == 1 {
			in.values[name] = values[0]
			continue
		}
		in.values[name] = append([]string(nil), values...)
	}
}

// clearUnchecked records the step's checkboxes missing from a form post as
// unticked. Browsers send nothing for an unticked box, which would otherwise
// leave a previously saved tick in place.
func (in *stepInput) clearUnchecked(step wizard.Step) {
	if !in.form {
		return
	}
	for _, field := range step.Fields {
		if field.Kind != wizard.FieldKindCheckbox {
			continue
		}
		if _, ok := in.values[field.Name]; !ok {
			in.values[field.Name] = ""
		}
	}
}

func (in *stepInput) readControl(name, value string) {
	if name != render.StepFieldName {
		return
	}
	if step, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		in.step = step
	}
}

// jsonValue flattens scalars to the strings the validators expect.
func jsonValue(value any) any {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return v
	}
}
