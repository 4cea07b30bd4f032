package handler

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"

	"github.com/matthewbaird/reviewsummary/internal/summary"
)

// DefaultMaxBodyBytes bounds render and document request bodies. A render
// request carries a data document plus an inline label document.
const DefaultMaxBodyBytes = 4 << 20

// RenderHandler implements the stateless render and lint endpoints.
type RenderHandler struct {
	defaults     summary.Options
	maxBodyBytes int64
}

// NewRenderHandler creates a RenderHandler. defaults apply to requests that
// carry no options.
func NewRenderHandler(defaults summary.Options, maxBodyBytes int64) *RenderHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &RenderHandler{defaults: defaults, maxBodyBytes: maxBodyBytes}
}

type renderRequest struct {
	Data    json.RawMessage  `json:"data"`
	Labels  json.RawMessage  `json:"labels"`
	Options *summary.Options `json:"options"`
}

type lintRequest struct {
	Labels json.RawMessage `json:"labels"`
}

type lintResponse struct {
	Warnings []summary.Warning `json:"warnings"`
}

// HandleRender renders a data document against a label document.
// POST /v1/render[?format=text]
func (h *RenderHandler) HandleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	tree, err := summary.Render(rawOrNil(req.Data), rawOrNil(req.Labels), resolveOptions(h.defaults, req.Options))
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeTree(w, r, tree)
}

// HandleLint checks a label document without data.
// POST /v1/lint
func (h *RenderHandler) HandleLint(w http.ResponseWriter, r *http.Request) {
	var req lintRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	warnings, err := summary.Lint(rawOrNil(req.Labels))
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lintResponse{Warnings: nonNil(warnings)})
}

func resolveOptions(defaults summary.Options, requested *summary.Options) summary.Options {
	if requested != nil {
		return *requested
	}
	return defaults
}

// writeTree writes the tree as JSON, or as plain text for ?format=text.
func writeTree(w http.ResponseWriter, r *http.Request, tree *summary.Tree) {
	if r.URL.Query().Get("format") != "text" {
		writeJSON(w, http.StatusOK, tree)
		return
	}
	var buf bytes.Buffer
	if err := summary.WriteText(&buf, tree); err != nil {
		errorToHTTP(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("writeTree: %v", err)
	}
}

func nonNil(ws []summary.Warning) []summary.Warning {
	if ws == nil {
		return []summary.Warning{}
	}
	return ws
}
