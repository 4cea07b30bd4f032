package preview

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/reviewsummary/internal/event"
	"github.com/matthewbaird/reviewsummary/internal/labelstore"
)

// reply mirrors ServerMessage with a raw payload for decoding in tests.
type reply struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

type client struct {
	t    *testing.T
	ctx  context.Context
	conn *websocket.Conn
}

func dial(t *testing.T, h *Handler) *client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	c := &client{t: t, ctx: ctx, conn: conn}
	hello := c.read()
	require.Equal(t, TypeSession, hello.Type)
	return c
}

func (c *client) send(typ, id string, data any) {
	c.t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(c.t, err)
	require.NoError(c.t, wsjson.Write(c.ctx, c.conn, ClientMessage{Type: typ, ID: id, Data: raw}))
}

func (c *client) read() reply {
	c.t.Helper()
	var r reply
	require.NoError(c.t, wsjson.Read(c.ctx, c.conn, &r))
	return r
}

func newTestHandler() (*Handler, *Hub, labelstore.Store) {
	hub := NewHub()
	store := labelstore.NewMemoryStore(0)
	return NewHandler(hub, store, Config{}), hub, store
}

func TestPreview_RenderAndUnchanged(t *testing.T) {
	h, _, _ := newTestHandler()
	c := dial(t, h)

	req := map[string]any{
		"version": "v1",
		"data":    map[string]any{"S": map[string]any{"name": "Ada"}},
		"labels":  map[string]any{"S": map[string]any{"name": "Name"}},
	}
	c.send(TypeRender, "r1", req)
	r := c.read()
	require.Equal(t, TypeTree, r.Type, string(r.Data))
	assert.Equal(t, "r1", r.RequestID)

	var tree TreeData
	require.NoError(t, json.Unmarshal(r.Data, &tree))
	assert.Equal(t, "v1", tree.Version)
	require.Len(t, tree.Tree.Sections, 1)
	assert.Equal(t, "Ada", tree.Tree.Sections[0].Fields[0].Display)

	c.send(TypeRender, "r2", req)
	r = c.read()
	assert.Equal(t, TypeUnchanged, r.Type)
	assert.Equal(t, "r2", r.RequestID)

	req["version"] = "v2"
	c.send(TypeRender, "r3", req)
	assert.Equal(t, TypeTree, c.read().Type)
}

func TestPreview_RenderErrors(t *testing.T) {
	h, _, _ := newTestHandler()
	c := dial(t, h)

	c.send(TypeRender, "a", map[string]any{"data": map[string]any{}})
	r := c.read()
	require.Equal(t, TypeError, r.Type)
	var e ErrorData
	require.NoError(t, json.Unmarshal(r.Data, &e))
	assert.Equal(t, "no_data", e.Code)

	c.send(TypeRender, "b", map[string]any{"data": "{bad", "labels": map[string]any{}})
	require.NoError(t, json.Unmarshal(c.read().Data, &e))
	assert.Equal(t, "malformed_input", e.Code)

	c.send(TypeRender, "c", map[string]any{"data": map[string]any{"a": 1}, "label_document_id": "nope"})
	require.NoError(t, json.Unmarshal(c.read().Data, &e))
	assert.Equal(t, "invalid_id", e.Code)

	c.send("explode", "d", nil)
	require.NoError(t, json.Unmarshal(c.read().Data, &e))
	assert.Equal(t, "unknown_type", e.Code)

	c.send(TypePing, "p", nil)
	r = c.read()
	assert.Equal(t, TypePong, r.Type)
	assert.Equal(t, "p", r.RequestID)
}

func TestPreview_StoredDocumentAndWatch(t *testing.T) {
	h, hub, store := newTestHandler()
	c := dial(t, h)
	ctx := context.Background()

	doc, err := store.Create(ctx, "intake", []byte(`{"S":{"name":"Name"}}`))
	require.NoError(t, err)

	req := map[string]any{
		"version":           "v1",
		"data":              map[string]any{"S": map[string]any{"name": "Ada"}},
		"label_document_id": doc.ID.String(),
	}
	c.send(TypeRender, "r1", req)
	r := c.read()
	require.Equal(t, TypeTree, r.Type, string(r.Data))
	var tree TreeData
	require.NoError(t, json.Unmarshal(r.Data, &tree))
	require.NotNil(t, tree.LabelDocument)
	assert.Equal(t, 1, tree.LabelDocument.Version)
	assert.Equal(t, "Name", tree.Tree.Sections[0].Fields[0].Label)

	c.send(TypeWatch, "w1", WatchData{LabelDocumentID: doc.ID.String()})
	assert.Equal(t, TypeWatch, c.read().Type)

	updated, err := store.Update(ctx, doc.ID, labelstore.Update{Name: "intake", Body: []byte(`{"S":{"name":"Full name"}}`)})
	require.NoError(t, err)
	require.NoError(t, hub.HandleEvent(ctx, event.NewDocumentUpdated(updated)))

	r = c.read()
	require.Equal(t, TypeLabelChanged, r.Type)
	var changed LabelChangedData
	require.NoError(t, json.Unmarshal(r.Data, &changed))
	assert.Equal(t, doc.ID.String(), changed.LabelDocumentID)
	assert.Equal(t, "updated", changed.Change)
	assert.Equal(t, 2, changed.Version)

	// Same caller version, new document revision: rendered again.
	c.send(TypeRender, "r2", req)
	r = c.read()
	require.Equal(t, TypeTree, r.Type)
	require.NoError(t, json.Unmarshal(r.Data, &tree))
	assert.Equal(t, "Full name", tree.Tree.Sections[0].Fields[0].Label)

	c.send(TypeUnwatch, "u1", WatchData{LabelDocumentID: doc.ID.String()})
	assert.Equal(t, TypeUnwatch, c.read().Type)
}

func TestPreview_WatchUnknownDocument(t *testing.T) {
	h, _, _ := newTestHandler()
	c := dial(t, h)

	c.send(TypeWatch, "w", WatchData{LabelDocumentID: "6f1c1f0e-1d1b-4d8e-9a55-3b3f7e0c9a11"})
	r := c.read()
	require.Equal(t, TypeError, r.Type)
	var e ErrorData
	require.NoError(t, json.Unmarshal(r.Data, &e))
	assert.Equal(t, "not_found", e.Code)
}
