// Package sweeper runs the periodic expiry pass over the economy ledger.
package sweeper

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/atelier/internal/ledger"
	"github.com/dmitrijs2005/atelier/internal/logging"
	"github.com/dmitrijs2005/atelier/internal/platform"
)

// Submitter places a job on the bot's serialized event loop. The sweep body
// runs there, never on the ticker goroutine, so its load→mutate→save cycle
// cannot interleave with inbound event handlers.
type Submitter interface {
	Submit(name string, fn func(ctx context.Context) error) bool
}

type Sweeper struct {
	ledger   *ledger.Service
	guild    *platform.GuildRef
	queue    Submitter
	interval time.Duration
	logger   logging.Logger

	now func() time.Time
}

func New(l *ledger.Service, guild *platform.GuildRef, queue Submitter, interval time.Duration, logger logging.Logger) *Sweeper {
	return &Sweeper{
		ledger:   l,
		guild:    guild,
		queue:    queue,
		interval: interval,
		logger:   logger.With("module", "sweeper"),
		now:      time.Now,
	}
}

// Run ticks until ctx is cancelled. Ticks that fire before the primary
// guild is known are skipped; the gateway may still be starting up.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.logger.Info(ctx, "sweeper started", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "sweeper stopped")
			return
		case <-t.C:
			s.Tick(ctx)
		}
	}
}

// Tick submits one sweep pass onto the event loop.
func (s *Sweeper) Tick(ctx context.Context) {
	if _, ok := s.guild.Get(); !ok {
		s.logger.Debug(ctx, "no guild yet, skipping sweep")
		return
	}

	runID := uuid.NewString()
	log := s.logger.With("run", runID)

	submitted := s.queue.Submit("sweep", func(ctx context.Context) error {
		expired, err := s.ledger.SweepExpired(ctx, s.now())
		if err != nil {
			return err
		}
		log.Info(ctx, "sweep complete", "expired", len(expired))
		return nil
	})
	if !submitted {
		// The next tick retries; expiry only moves one way.
		log.Warn(ctx, "event loop full, sweep skipped")
	}
}
