package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/broadwave/pubsub/internals/config"
	"github.com/broadwave/pubsub/internals/registry"
	"github.com/broadwave/pubsub/subscriberService"
)

// RegisterSubscriberRoutes mounts the WebSocket session endpoint at
// cfg.WSPath.
func RegisterSubscriberRoutes(r chi.Router, reg *registry.Registry, svc *subscriberService.Service, cfg *config.Config) {
	handler := NewWebSocketHandler(reg, svc, cfg)
	r.Get(cfg.WSPath, handler.HandleWebSocket)
}
