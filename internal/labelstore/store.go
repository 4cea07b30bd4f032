// Package labelstore persists label documents. Bodies are stored as opaque
// canonical JSON text; every update bumps the document version and
// recomputes its content digest so renderers can tell when to refresh.
package labelstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/matthewbaird/reviewsummary/internal/labeldoc"
)

// Document size limits. Label documents for large forms run to hundreds of
// kilobytes, so the cap can never be configured below MinMaxBytes.
const (
	DefaultMaxBytes = 1 << 20
	MinMaxBytes     = 128 << 10
)

var (
	ErrNotFound        = errors.New("label document not found")
	ErrTooLarge        = errors.New("label document too large")
	ErrVersionConflict = errors.New("label document version conflict")
	ErrInvalidName     = errors.New("label document name is required")
)

// Document is a stored label document.
type Document struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Body      json.RawMessage `json:"body"`
	Version   int             `json:"version"`
	Digest    string          `json:"digest"`
	Size      int             `json:"size"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Update describes a change to a stored document. IfVersion, when non-zero,
// makes the update conditional on the current version.
type Update struct {
	Name      string
	Body      []byte
	IfVersion int
}

// ListOptions controls filtering and pagination for List.
type ListOptions struct {
	NamePrefix string // filter to names starting with this prefix
	Limit      int    // max results (default: 100, max: 500)
	Offset     int
}

func (o ListOptions) limit() int {
	if o.Limit <= 0 || o.Limit > 500 {
		return 100
	}
	return o.Limit
}

// Store is the interface for reading and writing label documents.
type Store interface {
	Create(ctx context.Context, name string, body []byte) (*Document, error)
	Get(ctx context.Context, id uuid.UUID) (*Document, error)
	// List returns documents ordered by name, plus the total number of
	// documents matching the filter.
	List(ctx context.Context, opts ListOptions) ([]Document, int, error)
	Update(ctx context.Context, id uuid.UUID, u Update) (*Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// NormalizeMaxBytes applies the default and the floor to a configured cap.
func NormalizeMaxBytes(n int64) int64 {
	switch {
	case n <= 0:
		return DefaultMaxBytes
	case n < MinMaxBytes:
		return MinMaxBytes
	}
	return n
}

// checkBody validates a document before it is written.
func checkBody(name string, body []byte, maxBytes int64) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	if int64(len(body)) > maxBytes {
		return fmt.Errorf("%w: %s exceeds the %s limit", ErrTooLarge,
			humanize.IBytes(uint64(len(body))), humanize.IBytes(uint64(maxBytes)))
	}
	if !json.Valid(body) {
		return errors.New("label document body is not valid JSON")
	}
	return nil
}

func newDocument(name string, body []byte, now time.Time) *Document {
	return &Document{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		Body:      append(json.RawMessage(nil), body...),
		Version:   1,
		Digest:    labeldoc.Digest(body),
		Size:      len(body),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// now is truncated to milliseconds, the resolution SQLiteStore keeps.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
