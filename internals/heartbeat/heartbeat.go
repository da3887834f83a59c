// Package heartbeat drives the periodic "ping" info envelope
// broadcast to every open session (component F), per spec.md §4.5.
package heartbeat

import (
	"context"
	"time"

	"github.com/broadwave/pubsub/internals/log"
	"github.com/broadwave/pubsub/internals/models"
)

// Broadcaster is the subset of subscriberService.Service the
// heartbeat needs.
type Broadcaster interface {
	Broadcast(msg models.ServerMsg)
}

// Heartbeat ticks every interval and broadcasts a ping to every
// tracked session. A single ticker drives it, so missed ticks never
// queue up: at most one tick is ever in flight, and Stop guarantees no
// tick fires again afterward.
type Heartbeat struct {
	interval time.Duration
	target   Broadcaster

	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Heartbeat that will ping target every interval
// once Start is called.
func New(interval time.Duration, target Broadcaster) *Heartbeat {
	return &Heartbeat{interval: interval, target: target}
}

// Start launches the ticking goroutine. Calling Start twice without an
// intervening Stop leaks the first goroutine; callers own the
// lifecycle, matching the broker's single bootstrap-owned components.
func (h *Heartbeat) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.done = make(chan struct{})

	logger := log.WithComponent("heartbeat")

	go func() {
		defer close(h.done)

		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.target.Broadcast(models.NewInfo("ping"))
				logger.Debug().Msg("ping broadcast")
			}
		}
	}()
}

// Stop halts the ticking goroutine and waits for it to exit, so no
// tick can fire after Stop returns.
func (h *Heartbeat) Stop() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	<-h.done
}
