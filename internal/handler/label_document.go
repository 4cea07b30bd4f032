package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/matthewbaird/reviewsummary/internal/event"
	"github.com/matthewbaird/reviewsummary/internal/labeldoc"
	"github.com/matthewbaird/reviewsummary/internal/labelstore"
	"github.com/matthewbaird/reviewsummary/internal/summary"
)

// LabelDocumentHandler implements HTTP handlers for stored label documents.
type LabelDocumentHandler struct {
	store        labelstore.Store
	events       event.Publisher
	defaults     summary.Options
	maxBodyBytes int64
}

// NewLabelDocumentHandler creates a new LabelDocumentHandler. A nil
// publisher discards events.
func NewLabelDocumentHandler(store labelstore.Store, events event.Publisher, defaults summary.Options, maxBodyBytes int64) *LabelDocumentHandler {
	if events == nil {
		events = event.Discard
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &LabelDocumentHandler{store: store, events: events, defaults: defaults, maxBodyBytes: maxBodyBytes}
}

// documentRequest creates or replaces a document. The label document is
// given either as JSON in Labels or as text in Source with its Format.
type documentRequest struct {
	Name    string          `json:"name"`
	Labels  json.RawMessage `json:"labels,omitempty"`
	Source  string          `json:"source,omitempty"`
	Format  string          `json:"format,omitempty"`  // json (default), yaml, cue
	Version int             `json:"version,omitempty"` // update: expected current version
}

type documentResponse struct {
	*labelstore.Document
	SizeHuman string            `json:"size_human"`
	Warnings  []summary.Warning `json:"warnings,omitempty"`
}

type documentListResponse struct {
	Documents  []documentResponse `json:"label_documents"`
	TotalCount int                `json:"total_count"`
	PageSize   int                `json:"page_size"`
	Offset     int                `json:"offset"`
}

type storedRenderRequest struct {
	Data    json.RawMessage  `json:"data"`
	Options *summary.Options `json:"options"`
}

var errNoLabels = errors.New("labels or source is required")

// canonical converts the request's label document to canonical JSON and
// lints it.
func (req documentRequest) canonical() ([]byte, []summary.Warning, error) {
	var (
		text []byte
		err  error
	)
	switch {
	case req.Source != "":
		f, ferr := labeldoc.ParseFormat(req.Format)
		if ferr != nil {
			return nil, nil, ferr
		}
		text, err = labeldoc.Canonical([]byte(req.Source), f)
	case len(req.Labels) > 0:
		text, err = labeldoc.Canonical(req.Labels, labeldoc.JSON)
	default:
		return nil, nil, errNoLabels
	}
	if err != nil {
		return nil, nil, &summary.MalformedInputError{Path: "labels", Err: err}
	}

	obj, err := summary.LabelObject(text)
	if err != nil {
		return nil, nil, err
	}
	if obj == nil {
		return nil, nil, errNoLabels
	}
	body, err := summary.Marshal(obj)
	if err != nil {
		return nil, nil, err
	}
	warnings, err := summary.Lint(body)
	if err != nil {
		return nil, nil, err
	}
	return body, warnings, nil
}

func respond(d *labelstore.Document, warnings []summary.Warning) documentResponse {
	return documentResponse{
		Document:  d,
		SizeHuman: humanize.IBytes(uint64(d.Size)),
		Warnings:  warnings,
	}
}

// HandleCreate stores a new label document.
// POST /v1/label-documents
func (h *LabelDocumentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	body, warnings, err := req.canonical()
	if err != nil {
		h.writeRequestError(w, err)
		return
	}
	d, err := h.store.Create(r.Context(), req.Name, body)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	h.events.Publish(r.Context(), event.NewDocumentCreated(d))
	writeJSON(w, http.StatusCreated, respond(d, warnings))
}

// HandleGet returns one label document.
// GET /v1/label-documents/{id}
func (h *LabelDocumentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	d, err := h.store.Get(r.Context(), id)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, respond(d, nil))
}

// HandleList lists label documents ordered by name.
// GET /v1/label-documents?name_prefix=&page_size=&offset=
func (h *LabelDocumentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	p := parsePagination(r)
	docs, total, err := h.store.List(r.Context(), labelstore.ListOptions{
		NamePrefix: r.URL.Query().Get("name_prefix"),
		Limit:      p.Limit,
		Offset:     p.Offset,
	})
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	resp := documentListResponse{
		Documents:  make([]documentResponse, len(docs)),
		TotalCount: total,
		PageSize:   p.Limit,
		Offset:     p.Offset,
	}
	for i := range docs {
		resp.Documents[i] = respond(&docs[i], nil)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleUpdate replaces a label document and bumps its version.
// PUT /v1/label-documents/{id}
func (h *LabelDocumentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	var req documentRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	body, warnings, err := req.canonical()
	if err != nil {
		h.writeRequestError(w, err)
		return
	}
	d, err := h.store.Update(r.Context(), id, labelstore.Update{Name: req.Name, Body: body, IfVersion: req.Version})
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	h.events.Publish(r.Context(), event.NewDocumentUpdated(d))
	writeJSON(w, http.StatusOK, respond(d, warnings))
}

// HandleDelete removes a label document.
// DELETE /v1/label-documents/{id}
func (h *LabelDocumentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		errorToHTTP(w, err)
		return
	}
	h.events.Publish(r.Context(), event.NewDocumentDeleted(id))
	w.WriteHeader(http.StatusNoContent)
}

// HandleRender renders a data document against a stored label document.
// POST /v1/label-documents/{id}/render[?format=text]
func (h *LabelDocumentHandler) HandleRender(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	var req storedRenderRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	d, err := h.store.Get(r.Context(), id)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	tree, err := summary.Render(rawOrNil(req.Data), d.Body, resolveOptions(h.defaults, req.Options))
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	w.Header().Set("X-Label-Document-Version", strconv.Itoa(d.Version))
	w.Header().Set("ETag", `"`+d.Digest+`"`)
	writeTree(w, r, tree)
}

// HandleLint lints a stored label document.
// GET /v1/label-documents/{id}/lint
func (h *LabelDocumentHandler) HandleLint(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	d, err := h.store.Get(r.Context(), id)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	warnings, err := summary.Lint(d.Body)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lintResponse{Warnings: nonNil(warnings)})
}

func (h *LabelDocumentHandler) writeRequestError(w http.ResponseWriter, err error) {
	if errors.Is(err, errNoLabels) {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	errorToHTTP(w, err)
}
