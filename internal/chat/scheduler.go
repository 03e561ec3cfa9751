package chat

import (
	"context"
	"time"
)

// task runs fn on a fixed interval and whenever it is kicked. A single
// goroutine executes fn, so runs of the same task never overlap; kicks that
// arrive while fn is running collapse into one follow-up run.
type task struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context, scheduled bool)
	kick     chan struct{}
}

func newTask(name string, interval time.Duration, fn func(ctx context.Context, scheduled bool)) *task {
	return &task{
		name:     name,
		interval: interval,
		fn:       fn,
		kick:     make(chan struct{}, 1),
	}
}

// Trigger requests an out-of-cycle run without waiting for it.
func (t *task) Trigger() {
	if t == nil {
		return
	}
	select {
	case t.kick <- struct{}{}:
	default:
	}
}

func (t *task) run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			t.fn(ctx, true)
		case <-t.kick:
			if ctx.Err() != nil {
				return
			}
			t.fn(ctx, false)
		}
	}
}
