package bot

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/atelier/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func runDispatcher(t *testing.T, d *Dispatcher) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("dispatcher did not stop")
		}
	})
	return cancel
}

func TestDispatcher_RunsSubmittedJobs(t *testing.T) {
	d := NewDispatcher(8, testLogger())
	runDispatcher(t, d)

	ran := make(chan string, 2)
	require.True(t, d.Submit("a", func(ctx context.Context) error {
		ran <- "a"
		return nil
	}))
	require.True(t, d.Submit("b", func(ctx context.Context) error {
		ran <- "b"
		return nil
	}))

	assert.Equal(t, "a", <-ran)
	assert.Equal(t, "b", <-ran, "jobs run in submission order")
}

func TestDispatcher_SerializesJobs(t *testing.T) {
	d := NewDispatcher(8, testLogger())
	runDispatcher(t, d)

	// Without serialization the increments would race; with it the final
	// count is exact.
	counter := 0
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		last := i == 7
		d.Submit("inc", func(ctx context.Context) error {
			counter++
			if last {
				close(done)
			}
			return nil
		})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("jobs did not finish")
	}
	assert.Equal(t, 8, counter)
}

func TestDispatcher_SurvivesErrorsAndPanics(t *testing.T) {
	d := NewDispatcher(8, testLogger())
	runDispatcher(t, d)

	d.Submit("bad", func(ctx context.Context) error { return errors.New("boom") })
	d.Submit("worse", func(ctx context.Context) error { panic("kaboom") })

	ran := make(chan struct{})
	d.Submit("after", func(ctx context.Context) error {
		close(ran)
		return nil
	})

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("loop died after a failing handler")
	}
}

func TestDispatcher_FullQueueDropsInsteadOfBlocking(t *testing.T) {
	d := NewDispatcher(1, testLogger())
	// Not running: the queue fills up immediately.

	require.True(t, d.Submit("first", func(ctx context.Context) error { return nil }))
	assert.False(t, d.Submit("second", func(ctx context.Context) error { return nil }))
}
