package preview

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/matthewbaird/reviewsummary/internal/event"
)

// notifyTimeout bounds a single label_changed write to a slow client.
const notifyTimeout = 5 * time.Second

// Session holds per-connection preview state.
type Session struct {
	ID        string
	CreatedAt time.Time

	conn *websocket.Conn

	mu          sync.Mutex
	lastVersion string // cache key of the last rendered request
	watching    map[uuid.UUID]bool
}

func newSession(conn *websocket.Conn) *Session {
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		conn:      conn,
		watching:  make(map[uuid.UUID]bool),
	}
}

// seen records key as the latest render and reports whether it repeats
// the previous one. Empty keys never repeat.
func (s *Session) seen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key == "" {
		s.lastVersion = ""
		return false
	}
	repeat := key == s.lastVersion
	s.lastVersion = key
	return repeat
}

func (s *Session) watch(id uuid.UUID, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.watching[id] = true
	} else {
		delete(s.watching, id)
	}
}

func (s *Session) isWatching(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watching[id]
}

// forget clears the render cache so the next render is always sent.
func (s *Session) forget() {
	s.mu.Lock()
	s.lastVersion = ""
	s.mu.Unlock()
}

func (s *Session) send(ctx context.Context, msg ServerMessage) {
	if err := wsjson.Write(ctx, s.conn, msg); err != nil {
		log.Printf("preview: write error (session %s): %v", s.ID, err)
	}
}

// Hub tracks open sessions and fans label document events out to the
// sessions watching them. It implements eventbus.Handler.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{sessions: make(map[string]*Session)}
}

func (h *Hub) add(s *Session) {
	h.mu.Lock()
	h.sessions[s.ID] = s
	h.mu.Unlock()
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
}

// Len returns the number of open sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// HandleEvent notifies watchers of updated and deleted documents.
func (h *Hub) HandleEvent(ctx context.Context, evt event.DocumentEvent) error {
	var change string
	switch evt.Type {
	case event.DocumentUpdated:
		change = "updated"
	case event.DocumentDeleted:
		change = "deleted"
	default:
		return nil
	}

	h.mu.RLock()
	var targets []*Session
	for _, s := range h.sessions {
		if s.isWatching(evt.DocumentID) {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.forget()
		wctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		s.send(wctx, ServerMessage{
			Type: TypeLabelChanged,
			Data: LabelChangedData{
				LabelDocumentID: evt.DocumentID.String(),
				Change:          change,
				Version:         evt.Version,
				Digest:          evt.Digest,
			},
		})
		cancel()
	}
	return nil
}
