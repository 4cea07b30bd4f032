package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/reviewsummary/internal/event"
	"github.com/matthewbaird/reviewsummary/internal/labelstore"
	"github.com/matthewbaird/reviewsummary/internal/summary"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.DocumentEvent
}

func (p *recordingPublisher) Publish(_ context.Context, evt event.DocumentEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func newTestRouter(maxBody int64) (http.Handler, *recordingPublisher) {
	pub := &recordingPublisher{}
	rh := NewRenderHandler(summary.Options{}, maxBody)
	dh := NewLabelDocumentHandler(labelstore.NewMemoryStore(0), pub, summary.Options{HideEmptyFields: true}, maxBody)

	r := chi.NewRouter()
	r.Use(Middleware()...)
	r.Post("/v1/render", rh.HandleRender)
	r.Post("/v1/lint", rh.HandleLint)
	r.Route("/v1/label-documents", func(r chi.Router) {
		r.Post("/", dh.HandleCreate)
		r.Get("/", dh.HandleList)
		r.Get("/{id}", dh.HandleGet)
		r.Put("/{id}", dh.HandleUpdate)
		r.Delete("/{id}", dh.HandleDelete)
		r.Post("/{id}/render", dh.HandleRender)
		r.Get("/{id}/lint", dh.HandleLint)
	})
	return r, pub
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func TestHandleRender(t *testing.T) {
	h, _ := newTestRouter(0)

	rec := do(t, h, http.MethodPost, "/v1/render", map[string]any{
		"data":   map[string]any{"S": map[string]any{"cost": 12.5, "x": ""}},
		"labels": `{"S": {"_sectionTitle": "Summary", "x": "X", "cost": "Cost"}}`,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	tree := decode[summary.Tree](t, rec)
	require.Len(t, tree.Sections, 1)
	assert.Equal(t, "Summary", tree.Sections[0].Title)
	require.Len(t, tree.Sections[0].Fields, 2)
	assert.Equal(t, summary.EmptyPlaceholder, tree.Sections[0].Fields[0].Display)
	assert.Equal(t, "$12.50", tree.Sections[0].Fields[1].Display)

	rec = do(t, h, http.MethodPost, "/v1/render", map[string]any{
		"data":    map[string]any{"S": map[string]any{"cost": 12.5, "x": ""}},
		"labels":  map[string]any{"S": map[string]any{"x": "X", "cost": "Cost"}},
		"options": map[string]any{"hide_empty_fields": true},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	tree = decode[summary.Tree](t, rec)
	assert.Len(t, tree.Sections[0].Fields, 1)
}

func TestHandleRender_Text(t *testing.T) {
	h, _ := newTestRouter(0)
	rec := do(t, h, http.MethodPost, "/v1/render?format=text", map[string]any{
		"data":   map[string]any{"S": map[string]any{"a": "x"}},
		"labels": map[string]any{"S": map[string]any{"a": "A"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "== S ==\n  A: x\n", rec.Body.String())
}

func TestHandleRender_Errors(t *testing.T) {
	h, _ := newTestRouter(64 << 10)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"not json", `{"data":`, http.StatusBadRequest, "MALFORMED_INPUT"},
		{"malformed data text", map[string]any{"data": "{nope"}, http.StatusBadRequest, "MALFORMED_INPUT"},
		{"no data", map[string]any{"data": map[string]any{}}, http.StatusUnprocessableEntity, "NO_DATA"},
		{"missing data", map[string]any{"labels": map[string]any{}}, http.StatusUnprocessableEntity, "NO_DATA"},
		{"too large", map[string]any{"data": strings.Repeat("x", 65<<10)}, http.StatusRequestEntityTooLarge, "DOCUMENT_TOO_LARGE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/v1/render", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[errorBody](t, rec).Code)
		})
	}
}

func TestHandleLint(t *testing.T) {
	h, _ := newTestRouter(0)
	rec := do(t, h, http.MethodPost, "/v1/lint", map[string]any{
		"labels": map[string]any{"S": map[string]any{"a": map[string]any{"label": "A", "type": "money"}}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[lintResponse](t, rec)
	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, "S.a.type", resp.Warnings[0].Path)

	rec = do(t, h, http.MethodPost, "/v1/lint", map[string]any{"labels": map[string]any{"S": map[string]any{"a": "A"}}})
	assert.JSONEq(t, `{"warnings":[]}`, rec.Body.String())
}

type docBody struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Body      json.RawMessage   `json:"body"`
	Version   int               `json:"version"`
	Digest    string            `json:"digest"`
	SizeHuman string            `json:"size_human"`
	Warnings  []summary.Warning `json:"warnings"`
}

func TestLabelDocumentLifecycle(t *testing.T) {
	h, pub := newTestRouter(0)

	rec := do(t, h, http.MethodPost, "/v1/label-documents", map[string]any{
		"name":   "intake",
		"format": "yaml",
		"source": "labelConfig:\n  S:\n    name: Name\n    note: Note\n    bad: {label: Bad, type: money}\n",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[docBody](t, rec)
	assert.Equal(t, 1, created.Version)
	assert.JSONEq(t, `{"S":{"name":"Name","note":"Note","bad":{"label":"Bad","type":"money"}}}`, string(created.Body))
	assert.Equal(t, `{"S":{"name":"Name","note":"Note","bad":{"label":"Bad","type":"money"}}}`, string(created.Body), "wrapper removed, order kept")
	require.Len(t, created.Warnings, 1)
	assert.Equal(t, "S.bad.type", created.Warnings[0].Path)
	assert.NotEmpty(t, created.SizeHuman)

	path := "/v1/label-documents/" + created.ID

	rec = do(t, h, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.Digest, decode[docBody](t, rec).Digest)

	// Stored-document render uses the handler's default options (hide empty).
	rec = do(t, h, http.MethodPost, path+"/render", map[string]any{
		"data": map[string]any{"S": map[string]any{"name": "Ada", "note": ""}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get("X-Label-Document-Version"))
	assert.Equal(t, `"`+created.Digest+`"`, rec.Header().Get("ETag"))
	tree := decode[summary.Tree](t, rec)
	require.Len(t, tree.Sections[0].Fields, 1)
	assert.Equal(t, "Ada", tree.Sections[0].Fields[0].Display)

	rec = do(t, h, http.MethodGet, path+"/lint", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[lintResponse](t, rec).Warnings, 1)

	rec = do(t, h, http.MethodPut, path, map[string]any{
		"name":    "intake",
		"labels":  map[string]any{"S": map[string]any{"name": "Full name"}},
		"version": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[docBody](t, rec)
	assert.Equal(t, 2, updated.Version)
	assert.NotEqual(t, created.Digest, updated.Digest)

	rec = do(t, h, http.MethodPut, path, map[string]any{
		"name":    "intake",
		"labels":  map[string]any{"S": map[string]any{"name": "Stale"}},
		"version": 1,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "VERSION_CONFLICT", decode[errorBody](t, rec).Code)

	rec = do(t, h, http.MethodGet, "/v1/label-documents?name_prefix=in", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Documents  []docBody `json:"label_documents"`
		TotalCount int       `json:"total_count"`
	}](t, rec)
	assert.Equal(t, 1, list.TotalCount)
	require.Len(t, list.Documents, 1)
	assert.Equal(t, 2, list.Documents[0].Version)

	rec = do(t, h, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode[errorBody](t, rec).Code)

	assert.Equal(t, []event.Type{event.DocumentCreated, event.DocumentUpdated, event.DocumentDeleted}, pub.types())
}

func TestLabelDocument_Validation(t *testing.T) {
	h, pub := newTestRouter(0)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"missing labels", http.MethodPost, "/v1/label-documents", map[string]any{"name": "x"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing name", http.MethodPost, "/v1/label-documents", map[string]any{"labels": map[string]any{}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad yaml", http.MethodPost, "/v1/label-documents", map[string]any{"name": "x", "format": "yaml", "source": "a: [1"}, http.StatusBadRequest, "MALFORMED_INPUT"},
		{"unknown format", http.MethodPost, "/v1/label-documents", map[string]any{"name": "x", "format": "toml", "source": "a = 1"}, http.StatusBadRequest, "UNKNOWN_FORMAT"},
		{"labels not object", http.MethodPost, "/v1/label-documents", map[string]any{"name": "x", "labels": []int{1}}, http.StatusBadRequest, "MALFORMED_INPUT"},
		{"bad id", http.MethodGet, "/v1/label-documents/nope", nil, http.StatusBadRequest, "INVALID_ID"},
		{"unknown id", http.MethodPost, "/v1/label-documents/6f1c1f0e-1d1b-4d8e-9a55-3b3f7e0c9a11/render", map[string]any{"data": map[string]any{"a": 1}}, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[errorBody](t, rec).Code)
		})
	}
	assert.Empty(t, pub.types())
}

func TestMiddleware(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware()...)
	r.Get("/panic", func(http.ResponseWriter, *http.Request) { panic("boom") })
	r.Get("/id", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, w.Header().Get(RequestIDHeader), RequestID(r.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(RequestIDHeader, "6f1c1f0e-1d1b-4d8e-9a55-3b3f7e0c9a11")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "6f1c1f0e-1d1b-4d8e-9a55-3b3f7e0c9a11", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/id", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	assert.Empty(t, RequestID(context.Background()))
}
