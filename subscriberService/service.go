package subscriberService

import (
	"context"
	"sync"

	"github.com/broadwave/pubsub/internals/connhandle"
	"github.com/broadwave/pubsub/internals/log"
	"github.com/broadwave/pubsub/internals/models"
	"github.com/broadwave/pubsub/internals/registry"
)

// Service tracks every live connection handle so the heartbeat (F)
// can broadcast to all of them and shutdown can best-effort close all
// of them, per spec.md §4.5/§5.
type Service struct {
	registry *registry.Registry

	mu    sync.RWMutex
	conns map[*connhandle.Handle]struct{}
}

// New constructs a Service bound to reg.
func New(reg *registry.Registry) *Service {
	return &Service{
		registry: reg,
		conns:    make(map[*connhandle.Handle]struct{}),
	}
}

// Track registers handle as a live connection.
func (s *Service) Track(handle *connhandle.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[handle] = struct{}{}
}

// Untrack removes handle and disconnects it from the registry's
// subscriber tables.
func (s *Service) Untrack(handle *connhandle.Handle) {
	s.mu.Lock()
	delete(s.conns, handle)
	s.mu.Unlock()
	s.registry.HandleDisconnect(handle)
}

// ActiveConnections reports the number of currently tracked sessions.
func (s *Service) ActiveConnections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// Broadcast emits msg to every tracked connection, best-effort. This
// is the hook the heartbeat (F) drives; it is also usable for other
// connection-wide notices.
func (s *Service) Broadcast(msg models.ServerMsg) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for handle := range s.conns {
		_ = handle.Send(msg)
	}
}

// Shutdown closes every tracked connection. Per spec.md §5, broker
// stop ceases new operations and best-effort closes all sessions.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for handle := range s.conns {
		handle.Close()
		delete(s.conns, handle)
	}
	log.WithComponent("subscriberService").Info().Msg("all sessions closed")
	return nil
}
