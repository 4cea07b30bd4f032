package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/matthewbaird/reviewsummary/internal/labelstore"
	"github.com/matthewbaird/reviewsummary/internal/summary"
)

// Handler manages live-preview WebSocket connections.
type Handler struct {
	hub            *Hub
	store          labelstore.Store
	defaults       summary.Options
	originPatterns []string
	readLimit      int64
}

// Config holds the Handler's settings.
type Config struct {
	// Defaults apply to render requests that carry no options.
	Defaults       summary.Options
	OriginPatterns []string
	// MaxMessageBytes caps one client message; it should leave room for a
	// full data document plus an inline label document.
	MaxMessageBytes int64
}

// NewHandler creates a WebSocket handler. The hub should be subscribed to
// the event bus so watchers hear about document changes.
func NewHandler(hub *Hub, store labelstore.Store, cfg Config) *Handler {
	limit := cfg.MaxMessageBytes
	if limit <= 0 {
		limit = 4 * labelstore.DefaultMaxBytes
	}
	return &Handler{
		hub:            hub,
		store:          store,
		defaults:       cfg.Defaults,
		originPatterns: cfg.OriginPatterns,
		readLimit:      limit,
	}
}

// ServeHTTP upgrades to WebSocket and runs the message loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Server read/write timeouts are meant for request/response traffic;
	// the connection outlives them.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		log.Printf("preview: websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(h.readLimit)

	sess := newSession(conn)
	h.hub.add(sess)
	defer h.hub.remove(sess.ID)
	ctx := r.Context()

	sess.send(ctx, ServerMessage{Type: TypeSession, Data: SessionData{SessionID: sess.ID}})

	for {
		var msg ClientMessage
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Printf("preview: connection closed: %v", websocket.CloseStatus(err))
			}
			return
		}

		switch msg.Type {
		case TypeRender:
			h.handleRender(ctx, sess, msg)
		case TypeWatch, TypeUnwatch:
			h.handleWatch(ctx, sess, msg)
		case TypePing:
			sess.send(ctx, ServerMessage{Type: TypePong, RequestID: msg.ID})
		default:
			sendError(ctx, sess, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (h *Handler) handleRender(ctx context.Context, sess *Session, msg ClientMessage) {
	var data RenderData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		sendError(ctx, sess, msg.ID, "invalid_data", "invalid render data")
		return
	}

	labels := any(data.Labels)
	var ref *DocumentRef
	if data.LabelDocumentID != "" {
		doc, err := h.lookup(ctx, data.LabelDocumentID)
		if err != nil {
			sendError(ctx, sess, msg.ID, codeFor(err), err.Error())
			return
		}
		labels = doc.Body
		ref = &DocumentRef{ID: doc.ID.String(), Version: doc.Version, Digest: doc.Digest}
	}

	// A stored document that changed since the last render must be sent
	// again even when the caller's version is the same.
	key := data.Version
	if key != "" && ref != nil {
		key += "\x00" + ref.Digest
	}
	if sess.seen(key) {
		sess.send(ctx, ServerMessage{
			Type:      TypeUnchanged,
			RequestID: msg.ID,
			Data:      UnchangedData{Version: data.Version},
		})
		return
	}

	opts := h.defaults
	if data.Options != nil {
		opts = *data.Options
	}
	tree, err := summary.Render(rawOrNil(data.Data), rawOrNil(labels), opts)
	if err != nil {
		sess.forget()
		sendError(ctx, sess, msg.ID, codeFor(err), err.Error())
		return
	}
	sess.send(ctx, ServerMessage{
		Type:      TypeTree,
		RequestID: msg.ID,
		Data:      TreeData{Version: data.Version, LabelDocument: ref, Tree: tree},
	})
}

func (h *Handler) handleWatch(ctx context.Context, sess *Session, msg ClientMessage) {
	var data WatchData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		sendError(ctx, sess, msg.ID, "invalid_data", "invalid watch data")
		return
	}
	id, err := uuid.Parse(data.LabelDocumentID)
	if err != nil {
		sendError(ctx, sess, msg.ID, "invalid_id", "label_document_id must be a UUID")
		return
	}
	if msg.Type == TypeWatch {
		if _, err := h.store.Get(ctx, id); err != nil {
			sendError(ctx, sess, msg.ID, codeFor(err), err.Error())
			return
		}
	}
	sess.watch(id, msg.Type == TypeWatch)
	sess.send(ctx, ServerMessage{Type: msg.Type, RequestID: msg.ID, Data: data})
}

func (h *Handler) lookup(ctx context.Context, rawID string) (*labelstore.Document, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: label_document_id must be a UUID", errInvalidID)
	}
	return h.store.Get(ctx, id)
}

var errInvalidID = errors.New("invalid id")

// rawOrNil turns an absent JSON field into a nil input.
func rawOrNil(raw any) any {
	switch r := raw.(type) {
	case json.RawMessage:
		if len(r) == 0 {
			return nil
		}
	}
	return raw
}

func codeFor(err error) string {
	var mie *summary.MalformedInputError
	switch {
	case errors.As(err, &mie):
		return "malformed_input"
	case errors.Is(err, summary.ErrNoData):
		return "no_data"
	case errors.Is(err, labelstore.ErrNotFound):
		return "not_found"
	case errors.Is(err, errInvalidID):
		return "invalid_id"
	}
	return "internal_error"
}

func sendError(ctx context.Context, sess *Session, requestID, code, message string) {
	sess.send(ctx, ServerMessage{
		Type:      TypeError,
		RequestID: requestID,
		Data:      ErrorData{Code: code, Message: message},
	})
}
