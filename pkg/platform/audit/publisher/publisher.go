package publisher

import (
	"context"
	"sync"
	"time"

	id "kyra/pkg/domain"
	audit "kyra/pkg/platform/audit"
)

// Publisher emits audit events to a store, either synchronously or through a
// buffered channel drained by a background goroutine. Async mode keeps the
// request path free of store latency; a full buffer drops the event rather
// than blocking a transition.
type Publisher struct {
	store audit.Store

	mu     sync.Mutex
	inbox  chan audit.Event
	done   chan struct{}
	closed bool
}

type Option func(p *Publisher)

// WithAsyncBuffer enables asynchronous publishing with the given buffer size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.done = make(chan struct{})
		go p.drain()
	}
	return p
}

// Emit records an audit event. In async mode a full buffer drops the event.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	select {
	case p.inbox <- event:
	default:
		// Buffer full. Audit is best-effort here; the structured log line
		// emitted by the service remains.
	}
	return nil
}

// List returns all events recorded for a case.
func (p *Publisher) List(ctx context.Context, caseID id.CaseID) ([]audit.Event, error) {
	return p.store.ListByCase(ctx, caseID)
}

// Close drains any buffered events and stops the background goroutine.
func (p *Publisher) Close() {
	if p.inbox == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()
	<-p.done
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		_ = p.store.Append(context.Background(), event)
	}
}
