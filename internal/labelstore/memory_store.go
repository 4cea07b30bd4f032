package labelstore

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/matthewbaird/reviewsummary/internal/labeldoc"
)

// MemoryStore implements Store using an in-memory map.
// Intended for demos and testing; nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[uuid.UUID]*Document
	maxBytes int64
}

// NewMemoryStore creates a new empty MemoryStore. maxBytes is normalized
// with NormalizeMaxBytes.
func NewMemoryStore(maxBytes int64) *MemoryStore {
	return &MemoryStore{
		docs:     make(map[uuid.UUID]*Document),
		maxBytes: NormalizeMaxBytes(maxBytes),
	}
}

func (s *MemoryStore) Create(_ context.Context, name string, body []byte) (*Document, error) {
	if err := checkBody(name, body, s.maxBytes); err != nil {
		return nil, err
	}
	d := newDocument(name, body, now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[d.ID] = d
	return copyDoc(d), nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDoc(d), nil
}

func (s *MemoryStore) List(_ context.Context, opts ListOptions) ([]Document, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Document
	for _, d := range s.docs {
		if opts.NamePrefix != "" && !strings.HasPrefix(d.Name, opts.NamePrefix) {
			continue
		}
		matched = append(matched, *copyDoc(d))
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := len(matched)
	if opts.Offset >= total {
		return []Document{}, total, nil
	}
	if opts.Offset > 0 {
		matched = matched[opts.Offset:]
	}
	if limit := opts.limit(); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (s *MemoryStore) Update(_ context.Context, id uuid.UUID, u Update) (*Document, error) {
	if err := checkBody(u.Name, u.Body, s.maxBytes); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u.IfVersion != 0 && u.IfVersion != d.Version {
		return nil, ErrVersionConflict
	}
	next := *d
	next.Name = strings.TrimSpace(u.Name)
	next.Body = append(json.RawMessage(nil), u.Body...)
	next.Digest = labeldoc.Digest(u.Body)
	next.Size = len(u.Body)
	next.Version++
	next.UpdatedAt = now()
	s.docs[id] = &next
	return copyDoc(&next), nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

func copyDoc(d *Document) *Document {
	c := *d
	c.Body = append(json.RawMessage(nil), d.Body...)
	return &c
}
