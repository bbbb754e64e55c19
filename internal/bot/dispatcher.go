package bot

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/atelier/internal/logging"
)

type job struct {
	id   string
	name string
	fn   func(ctx context.Context) error
}

// Dispatcher is the bot's single logical thread of control. Gateway
// callbacks and the sweeper enqueue jobs; exactly one goroutine drains
// them, so no two handlers ever run their load→mutate→save cycles
// concurrently. That serialization is what lets the store skip locking.
type Dispatcher struct {
	jobs   chan job
	logger logging.Logger
}

func NewDispatcher(size int, logger logging.Logger) *Dispatcher {
	return &Dispatcher{
		jobs:   make(chan job, size),
		logger: logger.With("module", "dispatcher"),
	}
}

// Submit enqueues a job, reporting false when the queue is full. Gateway
// callbacks must never block the read loop, so a full queue drops the event
// rather than waiting.
func (d *Dispatcher) Submit(name string, fn func(ctx context.Context) error) bool {
	j := job{id: uuid.NewString(), name: name, fn: fn}
	select {
	case d.jobs <- j:
		return true
	default:
		d.logger.Warn(context.Background(), "event queue full, dropping event", "event", name)
		return false
	}
}

// Run drains the queue until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info(ctx, "event loop started")
	for {
		select {
		case <-ctx.Done():
			d.logger.Info(ctx, "event loop stopped")
			return
		case j := <-d.jobs:
			d.dispatch(ctx, j)
		}
	}
}

// dispatch runs one job. A handler failure is logged and must never take
// down the loop: one bad event cannot block unrelated events.
func (d *Dispatcher) dispatch(ctx context.Context, j job) {
	log := d.logger.With("event", j.name, "event_id", j.id)

	defer func() {
		if r := recover(); r != nil {
			log.Error(ctx, "handler panicked", "panic", fmt.Sprintf("%v", r))
		}
	}()

	log.Debug(ctx, "handling event")
	if err := j.fn(ctx); err != nil {
		log.Error(ctx, "handler failed", "error", err)
	}
}
