// Package preview implements the live-preview WebSocket protocol. Editors
// send render requests as the author types and receive rendered trees;
// connections may also watch stored label documents for changes.
package preview

import (
	"encoding/json"

	"github.com/matthewbaird/reviewsummary/internal/summary"
)

// Message types.
const (
	TypeRender       = "render"
	TypeWatch        = "watch"
	TypeUnwatch      = "unwatch"
	TypePing         = "ping"
	TypeSession      = "session"
	TypeTree         = "tree"
	TypeUnchanged    = "unchanged"
	TypeLabelChanged = "label_changed"
	TypePong         = "pong"
	TypeError        = "error"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server messages.
type ClientMessage struct {
	Type string          `json:"type"` // "render", "watch", "unwatch", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// RenderData is the payload for "render" messages. Labels come either
// inline or from a stored document. Version is an opaque caller-supplied
// token; repeating the last rendered version yields "unchanged".
type RenderData struct {
	Version         string           `json:"version,omitempty"`
	Data            json.RawMessage  `json:"data"`
	Labels          json.RawMessage  `json:"labels,omitempty"`
	LabelDocumentID string           `json:"label_document_id,omitempty"`
	Options         *summary.Options `json:"options,omitempty"`
}

// WatchData is the payload for "watch" and "unwatch" messages.
type WatchData struct {
	LabelDocumentID string `json:"label_document_id"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client messages.
type ServerMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// SessionData is sent once when the connection opens.
type SessionData struct {
	SessionID string `json:"session_id"`
}

// TreeData carries a rendered tree.
type TreeData struct {
	Version       string        `json:"version,omitempty"`
	LabelDocument *DocumentRef  `json:"label_document,omitempty"`
	Tree          *summary.Tree `json:"tree"`
}

// DocumentRef identifies the stored label document revision a tree used.
type DocumentRef struct {
	ID      string `json:"id"`
	Version int    `json:"version"`
	Digest  string `json:"digest"`
}

// UnchangedData answers a render whose version was already rendered.
type UnchangedData struct {
	Version string `json:"version"`
}

// LabelChangedData notifies a watcher that a stored document changed.
type LabelChangedData struct {
	LabelDocumentID string `json:"label_document_id"`
	Change          string `json:"change"` // "updated" or "deleted"
	Version         int    `json:"version,omitempty"`
	Digest          string `json:"digest,omitempty"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
