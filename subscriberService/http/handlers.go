// Package http implements the WebSocket transport for the Session
// adapter (component E): upgrading connections, parsing inbound
// envelopes, and translating them into broker registry calls per
// spec.md §4.3's inbound envelope taxonomy.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/broadwave/pubsub/internals/config"
	"github.com/broadwave/pubsub/internals/connhandle"
	"github.com/broadwave/pubsub/internals/log"
	"github.com/broadwave/pubsub/internals/models"
	"github.com/broadwave/pubsub/internals/registry"
	"github.com/broadwave/pubsub/subscriberService"
)

// WebSocketHandler upgrades HTTP requests to WebSocket sessions and
// runs the per-connection envelope loop.
type WebSocketHandler struct {
	registry *registry.Registry
	service  *subscriberService.Service
	cfg      *config.Config
	upgrader websocket.Upgrader
}

// NewWebSocketHandler constructs a handler bound to reg and svc.
func NewWebSocketHandler(reg *registry.Registry, svc *subscriberService.Service, cfg *config.Config) *WebSocketHandler {
	return &WebSocketHandler{
		registry: reg,
		service:  svc,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleWebSocket is the /ws route handler.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithComponent("ws").Warn().Err(err).Msg("upgrade failed")
		return
	}

	id := uuid.NewString()
	handle := connhandle.New(id, conn, h.cfg.WriteTimeout)
	h.service.Track(handle)

	logger := log.WithComponent("ws")
	logger.Info().Str("connection_id", id).Msg("session opened")

	defer func() {
		h.service.Untrack(handle)
		handle.Close()
		logger.Info().Str("connection_id", id).Msg("session closed")
	}()

	h.readLoop(handle, conn)
}

func (h *WebSocketHandler) readLoop(handle *connhandle.Handle, conn *websocket.Conn) {
	for {
		if h.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		h.dispatch(handle, raw)
	}
}

// dispatch parses and handles one inbound envelope. A panic while
// processing one envelope is contained here and surfaces as an
// INTERNAL error envelope, per spec.md §7's fault containment policy
// — the session itself keeps running.
func (h *WebSocketHandler) dispatch(handle *connhandle.Handle, raw []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			log.WithComponent("ws").Error().Interface("panic", rec).Msg("envelope processing panicked")
			_ = handle.Send(models.NewServerError("", models.ErrInternal, "internal error"))
		}
	}()

	var msg models.WSClientMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		_ = handle.Send(models.NewServerError("", models.ErrBadRequest, "invalid JSON envelope"))
		return
	}

	switch msg.Type {
	case models.InSubscribe:
		h.handleSubscribe(handle, &msg)
	case models.InUnsubscribe:
		h.handleUnsubscribe(handle, &msg)
	case models.InPublish:
		h.handlePublish(handle, &msg)
	case models.InPing:
		_ = handle.Send(models.NewPong(msg.RequestID))
	default:
		_ = handle.Send(models.NewServerError(msg.RequestID, models.ErrBadRequest, "unknown envelope type"))
	}
}

func (h *WebSocketHandler) handleSubscribe(handle *connhandle.Handle, msg *models.WSClientMsg) {
	if msg.Topic == "" || msg.ClientID == "" {
		_ = handle.Send(models.NewServerError(msg.RequestID, models.ErrBadRequest, "topic and client_id are required"))
		return
	}

	if err := h.registry.Subscribe(handle, msg.Topic, msg.ClientID, msg.LastN); err != nil {
		h.sendRegistryError(handle, msg.RequestID, msg.Topic, err)
		return
	}
	_ = handle.Send(models.NewAck(msg.RequestID, msg.Topic))
}

func (h *WebSocketHandler) handleUnsubscribe(handle *connhandle.Handle, msg *models.WSClientMsg) {
	if msg.Topic == "" {
		_ = handle.Send(models.NewServerError(msg.RequestID, models.ErrBadRequest, "topic is required"))
		return
	}

	if err := h.registry.Unsubscribe(handle, msg.Topic); err != nil {
		h.sendRegistryError(handle, msg.RequestID, msg.Topic, err)
		return
	}
	_ = handle.Send(models.NewAck(msg.RequestID, msg.Topic))
}

func (h *WebSocketHandler) handlePublish(handle *connhandle.Handle, msg *models.WSClientMsg) {
	if msg.Topic == "" || msg.Message == nil || msg.Message.ID == "" {
		_ = handle.Send(models.NewServerError(msg.RequestID, models.ErrBadRequest, "topic and message.id are required"))
		return
	}

	ts, err := h.registry.Publish(msg.Topic, *msg.Message)
	if err != nil {
		h.sendRegistryError(handle, msg.RequestID, msg.Topic, err)
		return
	}
	ack := models.NewAck(msg.RequestID, msg.Topic)
	ack.Ts = ts
	_ = handle.Send(ack)
}

func (h *WebSocketHandler) sendRegistryError(handle *connhandle.Handle, requestID, topic string, err error) {
	if errors.Is(err, registry.ErrTopicNotFound) {
		_ = handle.Send(models.NewServerError(requestID, models.ErrTopicNotFound, "topic '"+topic+"' not found"))
		return
	}
	_ = handle.Send(models.NewServerError(requestID, models.ErrInternal, "internal error"))
}
