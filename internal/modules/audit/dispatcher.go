package audit

import (
	"context"
	"log"
	"sync"
	"time"

	"homestay/internal/domain"

	"github.com/google/uuid"
)

const (
	defaultBuffer   = 1024
	maxSinkAttempts = 3
	sinkBaseBackoff = 100 * time.Millisecond
)

// Sink receives every dispatched event. Write is retried on error.
type Sink interface {
	Name() string
	Write(ctx context.Context, e domain.Event) error
}

// Dispatcher fans events out to sinks on a background goroutine. Publish never
// blocks the caller: when the buffer is full the event is dropped and logged.
type Dispatcher struct {
	events  chan domain.Event
	sinks   []Sink
	backoff time.Duration

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}
}

func NewDispatcher(buffer int, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Dispatcher{
		events:  make(chan domain.Event, buffer),
		sinks:   sinks,
		backoff: sinkBaseBackoff,
		done:    make(chan struct{}),
	}
}

// WithBackoff overrides the base retry delay between sink attempts.
func (d *Dispatcher) WithBackoff(b time.Duration) *Dispatcher {
	d.backoff = b
	return d
}

func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	go d.run()
}

// Publish implements the publisher interface of every domain module.
func (d *Dispatcher) Publish(_ context.Context, e domain.Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		log.Printf("event_dropped reason=closed type=%s entity=%s", e.Type, e.EntityID)
		return
	}
	select {
	case d.events <- e:
	default:
		log.Printf("event_dropped reason=buffer_full type=%s entity=%s", e.Type, e.EntityID)
	}
}

// Close stops accepting events and waits for the queue to drain or ctx to
// end, whichever comes first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	started := d.started
	close(d.events)
	d.mu.Unlock()

	if !started {
		return nil
	}
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for e := range d.events {
		for _, s := range d.sinks {
			d.deliver(s, e)
		}
	}
}

func (d *Dispatcher) deliver(s Sink, e domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	for attempt := 1; attempt <= maxSinkAttempts; attempt++ {
		if err = s.Write(ctx, e); err == nil {
			return
		}
		if attempt < maxSinkAttempts {
			time.Sleep(d.backoff * time.Duration(attempt))
		}
	}
	log.Printf("event_sink_failed sink=%s type=%s entity=%s attempts=%d error=%q",
		s.Name(), e.Type, e.EntityID, maxSinkAttempts, err)
}
