// Package http exposes the admission/observability HTTP surface of
// spec.md §6.1 over a topicManagerService.TopicManager.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/broadwave/pubsub/internals/models"
	"github.com/broadwave/pubsub/internals/registry"
	"github.com/broadwave/pubsub/internals/telemetry"
	"github.com/broadwave/pubsub/topicManagerService"
)

// Handler serves the admission/observability endpoints.
type Handler struct {
	topicManager topicManagerService.TopicManager
	telemetry    *telemetry.Telemetry
}

// NewHandler constructs a Handler. tel may be nil, in which case
// /metrics is not mounted.
func NewHandler(tm topicManagerService.TopicManager, tel *telemetry.Telemetry) *Handler {
	return &Handler{topicManager: tm, telemetry: tel}
}

// RegisterRoutes mounts the admission surface on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/topics", func(r chi.Router) {
		r.Post("/", h.CreateTopic)
		r.Get("/", h.ListTopics)
		r.Delete("/{name}", h.DeleteTopic)
	})
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)

	if h.telemetry != nil {
		r.Get("/metrics", h.telemetry.Handler().ServeHTTP)
	}
}

type createTopicRequest struct {
	Name string `json:"name"`
}

// CreateTopic handles POST /topics.
func (h *Handler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	var req createTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if !models.ValidTopicName(req.Name) {
		writeBadRequest(w, "invalid topic name")
		return
	}

	if err := h.topicManager.CreateTopic(req.Name); err != nil {
		if errors.Is(err, registry.ErrTopicAlreadyExists) {
			writeJSON(w, http.StatusConflict, map[string]string{"status": "conflict", "topic": req.Name})
			return
		}
		writeBadRequest(w, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "created", "topic": req.Name})
}

// DeleteTopic handles DELETE /topics/{name}.
func (h *Handler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !models.ValidTopicName(name) {
		writeBadRequest(w, "invalid topic name")
		return
	}

	if err := h.topicManager.DeleteTopic(name); err != nil {
		if errors.Is(err, registry.ErrTopicNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"status": "not_found", "topic": name})
			return
		}
		writeBadRequest(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "topic": name})
}

// ListTopics handles GET /topics.
func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"topics": h.topicManager.ListTopics()})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.topicManager.Health())
}

// Stats handles GET /stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"topics": h.topicManager.Stats()})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error":   models.ErrBadRequest,
		"message": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
