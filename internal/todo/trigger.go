package todo

import (
	"context"
	"sync"
	"time"
)

// Trigger calls a function on a fixed interval until stopped.
type Trigger struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// StartTrigger runs fn every interval in a new goroutine. The first call
// happens one interval after start. fn receives a context that is cancelled
// by Stop or by the parent context.
func StartTrigger(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) *Trigger {
	ctx, cancel := context.WithCancel(ctx)
	t := &Trigger{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
	return t
}

// Stop cancels the trigger and waits for a running call to return.
func (t *Trigger) Stop() {
	t.once.Do(t.cancel)
	<-t.done
}
