// Package event defines the change events emitted when label documents are
// written. Handlers publish them after the store write succeeds.
package event

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/reviewsummary/internal/labelstore"
)

// Type names a label document change.
type Type string

const (
	DocumentCreated Type = "label_document_created"
	DocumentUpdated Type = "label_document_updated"
	DocumentDeleted Type = "label_document_deleted"
)

// DocumentEvent carries the canonical shape of every label document event.
// Version and Digest are zero for deletions.
type DocumentEvent struct {
	ID         string
	Type       Type
	OccurredAt time.Time
	DocumentID uuid.UUID
	Name       string
	Version    int
	Digest     string
}

// Publisher sends events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt DocumentEvent)
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, DocumentEvent) {}

func newID() string { return uuid.New().String() }

func fromDocument(t Type, d *labelstore.Document) DocumentEvent {
	return DocumentEvent{
		ID:         newID(),
		Type:       t,
		OccurredAt: time.Now(),
		DocumentID: d.ID,
		Name:       d.Name,
		Version:    d.Version,
		Digest:     d.Digest,
	}
}

func NewDocumentCreated(d *labelstore.Document) DocumentEvent {
	return fromDocument(DocumentCreated, d)
}

func NewDocumentUpdated(d *labelstore.Document) DocumentEvent {
	return fromDocument(DocumentUpdated, d)
}

func NewDocumentDeleted(id uuid.UUID) DocumentEvent {
	return DocumentEvent{
		ID:         newID(),
		Type:       DocumentDeleted,
		OccurredAt: time.Now(),
		DocumentID: id,
	}
}
