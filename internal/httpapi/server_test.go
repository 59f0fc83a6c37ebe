package httpapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formwizard/internal/httpapi"
	"github.com/goliatone/go-formwizard/pkg/catalog"
	"github.com/goliatone/go-formwizard/pkg/metrics"
	"github.com/goliatone/go-formwizard/pkg/openapi"
	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/renderers/html"
	"github.com/goliatone/go-formwizard/pkg/renderers/jsonview"
	"github.com/goliatone/go-formwizard/pkg/session"
	"github.com/goliatone/go-formwizard/pkg/submission"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

const scenarioYAML = `
id: scenario
title: Scenario
description: Three step reference form.
steps:
  - id: first
    title: First
    fields:
      - {name: a, label: A, required: true}
  - id: second
    title: Second
    fields:
      - {name: b, label: B, kind: email, required: true}
  - id: third
    title: Third
    fields:
      - {name: c, label: C, required: true}
      - {name: scan, label: Scan, kind: file}
      - {name: newsletter, label: Newsletter, kind: checkbox}
`

type fixture struct {
	handler  http.Handler
	sessions *session.Manager
	recorder *submission.Recorder
}

func newFixture(t *testing.T, extra ...wizard.Option) fixture {
	t.Helper()

	store, err := catalog.LoadFS(fstest.MapFS{"scenario.yaml": {Data: []byte(scenarioYAML)}})
	require.NoError(t, err)

	seq := 0
	recorder := submission.NewRecorder()
	rec := metrics.NewRecorder()
	sessions := session.NewManager(store,
		session.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("s%d", seq)
		}),
		session.WithObserver(rec),
		session.WithControllerOptions(wizard.WithSubmitter(recorder), wizard.WithObserver(rec)),
		session.WithControllerOptions(extra...),
	)

	page, err := html.New()
	require.NoError(t, err)
	renderers := render.NewRegistry()
	require.NoError(t, renderers.Register(page))
	require.NoError(t, renderers.Register(jsonview.New()))

	srv := httpapi.New(store, sessions, renderers,
		httpapi.WithMetrics(rec.Handler()),
		httpapi.WithOpenAPI(openapi.Info{Title: "Partner forms", Version: "1.0.0"}),
		httpapi.WithAssets(html.AssetsFS()),
	)
	return fixture{handler: srv.Handler(), sessions: sessions, recorder: recorder}
}

func (f fixture) do(t *testing.T, method, target, contentType, body string, accept string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func (f fixture) postJSON(t *testing.T, target string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return f.do(t, http.MethodPost, target, "application/json", string(raw), "application/json")
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	out := make(map[string]any)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthAndCatalog(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/healthz", "", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/forms", "", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":"scenario","title":"Scenario","description":"Three step reference form.","steps":3}]`, w.Body.String())

	w = f.do(t, http.MethodGet, "/forms/scenario", "", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"second"`)

	w = f.do(t, http.MethodGet, "/forms/unknown", "", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJSONClient_FillsAndSubmits(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/forms/scenario/sessions", "", "", "application/json")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/sessions/s1", w.Header().Get("Location"))
	doc := decode(t, w)
	assert.Equal(t, "scenario", doc["formId"])
	assert.EqualValues(t, 0, doc["index"])

	w = f.postJSON(t, "/sessions/s1/next", map[string]any{"a": "  "})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"error":"validation failed","step":"first","errors":{"a":"required"}}`, w.Body.String())

	w = f.postJSON(t, "/sessions/s1/next", map[string]any{"a": "x", "_session": "s1"})
	require.Equal(t, http.StatusOK, w.Code)
	doc = decode(t, w)
	assert.EqualValues(t, 1, doc["index"])
	assert.EqualValues(t, 66, doc["progress"])

	w = f.postJSON(t, "/sessions/s1/next", map[string]any{"b": "not-an-email"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"b":"invalid format"`)

	w = f.postJSON(t, "/sessions/s1/steps/0", map[string]any{"b": "draft"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["index"])

	w = f.postJSON(t, "/sessions/s1/steps/2", map[string]any{"a": "x"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["index"], "forward jump past a visited step validates only the active one")

	w = f.postJSON(t, "/sessions/s1/steps/9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.postJSON(t, "/sessions/s1/submit", map[string]any{"c": "done"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["submitted"])

	last, ok := f.recorder.Last()
	require.True(t, ok)
	assert.Equal(t, "scenario", last.FormID)
	assert.Equal(t, "done", last.Values["c"])
	assert.Equal(t, "draft", last.Values["b"])

	w = f.postJSON(t, "/sessions/s1/previous", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBrowserClient_PostRedirectGet(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/forms/scenario/sessions", "", "", "text/html")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/sessions/s1", w.Header().Get("Location"))

	w = f.do(t, http.MethodGet, "/sessions/s1", "", "", "text/html")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `name="_session" value="s1"`)

	form := url.Values{"a": {"<b>typed</b>"}, "_session": {"s1"}, "_step": {"0"}}
	w = f.do(t, http.MethodPost, "/sessions/s1/next", "application/x-www-form-urlencoded", form.Encode(), "text/html")
	require.Equal(t, http.StatusSeeOther, w.Code)

	form = url.Values{"b": {"nope"}, "_step": {"1"}}
	w = f.do(t, http.MethodPost, "/sessions/s1/next", "application/x-www-form-urlencoded", form.Encode(), "text/html")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `value="nope"`)
	assert.Contains(t, w.Body.String(), `invalid format`)

	// A page rendered for step 0 posted after the session moved on.
	form = url.Values{"a": {"other"}, "_step": {"0"}}
	w = f.do(t, http.MethodPost, "/sessions/s1/next", "application/x-www-form-urlencoded", form.Encode(), "text/html")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	w = f.do(t, http.MethodGet, "/sessions/s1?format=json", "", "", "")
	assert.EqualValues(t, 1, decode(t, w)["index"])
}

func TestBrowserClient_UntickedCheckboxIsSaved(t *testing.T) {
	f := newFixture(t)
	post := func(target string, form url.Values) *httptest.ResponseRecorder {
		t.Helper()
		return f.do(t, http.MethodPost, target, "application/x-www-form-urlencoded", form.Encode(), "text/html")
	}

	f.do(t, http.MethodPost, "/forms/scenario/sessions", "", "", "text/html")
	require.Equal(t, http.StatusSeeOther, post("/sessions/s1/next", url.Values{"a": {"x"}, "_step": {"0"}}).Code)
	require.Equal(t, http.StatusSeeOther, post("/sessions/s1/next", url.Values{"b": {"b@x.io"}, "_step": {"1"}}).Code)

	w := post("/sessions/s1/previous", url.Values{"c": {"draft"}, "newsletter": {"on"}, "_step": {"2"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, http.StatusSeeOther, post("/sessions/s1/next", url.Values{"b": {"b@x.io"}, "_step": {"1"}}).Code)

	w = f.do(t, http.MethodGet, "/sessions/s1", "", "", "text/html")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="newsletter" value="on" checked`)

	// The browser omits the box once it is unticked.
	w = post("/sessions/s1/submit", url.Values{"c": {"done"}, "_step": {"2"}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	last, ok := f.recorder.Last()
	require.True(t, ok)
	assert.Equal(t, "", last.Values["newsletter"])
	assert.Equal(t, "done", last.Values["c"])
}

func TestJSONClient_OmittedCheckboxKeepsSavedValue(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/forms/scenario/sessions", "", "", "application/json")
	f.postJSON(t, "/sessions/s1/next", map[string]any{"a": "x"})
	f.postJSON(t, "/sessions/s1/next", map[string]any{"b": "b@x.io"})
	f.postJSON(t, "/sessions/s1/previous", map[string]any{"newsletter": true})
	f.postJSON(t, "/sessions/s1/next", map[string]any{})

	w := f.postJSON(t, "/sessions/s1/submit", map[string]any{"c": "done"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	last, ok := f.recorder.Last()
	require.True(t, ok)
	assert.Equal(t, "true", last.Values["newsletter"])
}

func TestSubmitterRejectionIsShownOnLastStep(t *testing.T) {
	registry := wizard.SubmitterFunc(func(_ context.Context, sub wizard.Submission) error {
		if sub.Values["c"] == "taken" {
			return submission.Reject(map[string][]string{
				"body.c": {"already registered"},
				"_form":  {"registry is read only today"},
			})
		}
		return nil
	})
	f := newFixture(t, wizard.WithSubmitter(registry))
	f.do(t, http.MethodPost, "/forms/scenario/sessions", "", "", "application/json")
	f.postJSON(t, "/sessions/s1/next", map[string]any{"a": "x"})
	f.postJSON(t, "/sessions/s1/next", map[string]any{"b": "b@x.io"})

	w := f.postJSON(t, "/sessions/s1/submit", map[string]any{"c": "taken"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.JSONEq(t, `{
		"error": "wizard: submit form \"scenario\": submission: rejected with 2 problem(s)",
		"step": "third",
		"errors": {"body.c": ["already registered"], "_form": ["registry is read only today"]}
	}`, w.Body.String())

	form := url.Values{"c": {"taken"}, "_step": {"2"}}
	w = f.do(t, http.MethodPost, "/sessions/s1/submit", "application/x-www-form-urlencoded", form.Encode(), "text/html")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `<p class="fw-error" role="alert">already registered</p>`)
	assert.Contains(t, w.Body.String(), `<li>registry is read only today</li>`)
	assert.Contains(t, w.Body.String(), `value="taken"`)

	w = f.postJSON(t, "/sessions/s1/submit", map[string]any{"c": "free"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["submitted"])
}

func TestMultipartUploadsRecordFileNames(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/forms/scenario/sessions", "", "", "application/json")
	f.postJSON(t, "/sessions/s1/next", map[string]any{"a": "x"})
	f.postJSON(t, "/sessions/s1/next", map[string]any{"b": "b@x.io"})

	var body strings.Builder
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("c", "done"))
	part, err := mw.CreateFormFile("scan", "passport.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := f.do(t, http.MethodPost, "/sessions/s1/submit", mw.FormDataContentType(), body.String(), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	last, ok := f.recorder.Last()
	require.True(t, ok)
	assert.Equal(t, "passport.pdf", last.Values["scan"])
}

func TestDeleteSession(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/forms/scenario/sessions", "", "", "application/json")

	w := f.do(t, http.MethodDelete, "/sessions/s1", "", "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, f.sessions.Len())

	w = f.do(t, http.MethodGet, "/sessions/s1", "", "", "application/json")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(t, http.MethodDelete, "/sessions/s1", "", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOpenAPIMetricsAndAssets(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/forms/scenario/sessions", "", "", "application/json")

	w := f.do(t, http.MethodGet, "/openapi.json", "", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	doc, err := openapi3.NewLoader().LoadFromData(w.Body.Bytes())
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	assert.Contains(t, w.Body.String(), `"/sessions/{id}/steps/{index}"`)
	assert.Contains(t, w.Body.String(), openapi.ApplicationSchemaName("scenario"))

	w = f.do(t, http.MethodGet, "/metrics", "", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `formwizard_active_sessions{form="scenario"} 1`)

	w = f.do(t, http.MethodGet, "/assets/"+html.StylesheetName, "", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "--brand")
}
