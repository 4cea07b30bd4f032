package eventbus

import (
	"context"
	"log"

	"github.com/matthewbaird/reviewsummary/internal/event"
)

// LogConsumer logs all label document events.
type LogConsumer struct{}

func NewLogConsumer() *LogConsumer { return &LogConsumer{} }

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.DocumentEvent) error {
	if evt.Type == event.DocumentDeleted {
		log.Printf("event: %s document=%s", evt.Type, evt.DocumentID)
		return nil
	}
	digest := evt.Digest
	if len(digest) > 12 {
		digest = digest[:12]
	}
	log.Printf("event: %s document=%s name=%q version=%d digest=%s",
		evt.Type, evt.DocumentID, evt.Name, evt.Version, digest)
	return nil
}
