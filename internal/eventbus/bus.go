// Package eventbus fans label document changes out to in-process
// consumers: the preview hub that notifies watching connections, and the
// change log. Handlers publish after the store write succeeds, so a
// consumer never hears about a change that was not persisted.
package eventbus

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/matthewbaird/reviewsummary/internal/event"
)

// Handler consumes document events. Calls come from the bus goroutine only,
// one event at a time.
type Handler interface {
	HandleEvent(ctx context.Context, evt event.DocumentEvent) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt event.DocumentEvent) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt event.DocumentEvent) error {
	return f(ctx, evt)
}

type subscriber struct {
	name    string
	handler Handler
}

// Bus queues document events and delivers each one to every subscriber in
// subscription order. A slow consumer delays the others, never the HTTP
// request that published the event.
type Bus struct {
	mu      sync.RWMutex
	subs    []subscriber
	queue   chan event.DocumentEvent
	stopped bool
	dropped atomic.Uint64
	done    chan struct{}
}

// New returns a Bus that buffers up to size events; size < 1 means 256.
func New(size int) *Bus {
	if size < 1 {
		size = 256
	}
	return &Bus{
		queue: make(chan event.DocumentEvent, size),
		done:  make(chan struct{}),
	}
}

// Subscribe adds a consumer. Subscribe before Start.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscriber{name: name, handler: h})
}

// Publish queues evt without blocking. The event is dropped, and counted,
// when the queue is full or the bus has been stopped.
func (b *Bus) Publish(_ context.Context, evt event.DocumentEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		b.drop(evt, "bus stopped")
		return
	}
	select {
	case b.queue <- evt:
	default:
		b.drop(evt, "queue full")
	}
}

// Dropped reports how many events were never delivered.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Bus) drop(evt event.DocumentEvent, reason string) {
	b.dropped.Add(1)
	log.Printf("eventbus: %s, dropping %s for document %s", reason, evt.Type, evt.DocumentID)
}

// Start delivers events until Stop is called or ctx is done. Events still
// queued at that point are delivered before the goroutine exits.
func (b *Bus) Start(ctx context.Context) {
	go b.run(ctx)
}

func (b *Bus) run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case evt, ok := <-b.queue:
			if !ok {
				return
			}
			b.deliver(ctx, evt)
		case <-ctx.Done():
			b.drain(ctx)
			return
		}
	}
}

func (b *Bus) drain(ctx context.Context) {
	for {
		select {
		case evt, ok := <-b.queue:
			if !ok {
				return
			}
			b.deliver(ctx, evt)
		default:
			return
		}
	}
}

// Stop refuses further events and waits for queued ones to be delivered.
// It is safe to call more than once.
func (b *Bus) Stop() {
	b.mu.Lock()
	if !b.stopped {
		b.stopped = true
		close(b.queue)
	}
	b.mu.Unlock()
	<-b.done
}

func (b *Bus) deliver(ctx context.Context, evt event.DocumentEvent) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			log.Printf("eventbus: %s failed on %s for document %s: %v", s.name, evt.Type, evt.DocumentID, err)
		}
	}
}
