// Package api exposes the HTTP surface: the chat endpoint, health, and
// service info.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voltgrid/supportbot/internal/router"
	"github.com/voltgrid/supportbot/internal/server"
	"github.com/voltgrid/supportbot/internal/textutil"
)

const (
	maxUserIDLength  = 255
	maxMessageLength = 2000
	maxActionLength  = 100
)

var validPlatforms = map[string]bool{"web": true, "android": true, "ios": true}

// Readiness reports content-store health for the health endpoint.
type Readiness interface {
	Len() int
	Ready() bool
}

// FlowCounter reports how many flow nodes are loaded.
type FlowCounter interface {
	Len() int
}

// Handler serves the public API.
type Handler struct {
	router  *router.Router
	catalog Readiness
	flows   FlowCounter
	limiter *server.RateLimiter
	logger  *slog.Logger
}

// NewHandler builds the API handler. A nil limiter disables rate limiting.
func NewHandler(r *router.Router, catalog Readiness, flows FlowCounter, limiter *server.RateLimiter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{router: r, catalog: catalog, flows: flows, limiter: limiter, logger: logger}
}

// Mount registers the routes on the mux.
func (h *Handler) Mount(mux *chi.Mux) {
	mux.Get("/", h.handleInfo)
	mux.Get("/v1/health", h.handleHealth)
	mux.Post("/v1/chat", h.handleChat)
}

type chatRequest struct {
	UserID   string `json:"user_id"`
	Message  string `json:"message"`
	Action   string `json:"action"`
	Platform string `json:"platform"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if len(req.UserID) > maxUserIDLength {
		writeError(w, http.StatusBadRequest, "user_id too long")
		return
	}
	if len(req.Message) > maxMessageLength {
		writeError(w, http.StatusBadRequest, "message too long")
		return
	}
	if len(req.Action) > maxActionLength {
		writeError(w, http.StatusBadRequest, "action too long")
		return
	}
	if req.Platform == "" {
		req.Platform = "web"
	}
	if !validPlatforms[req.Platform] {
		writeError(w, http.StatusBadRequest, "platform must be one of web, android, ios")
		return
	}

	// Limit per user, not per address: many users share NAT'd mobile IPs.
	if h.limiter != nil && !h.limiter.Allow(req.UserID) {
		server.AddLogField(r.Context(), "rate_limited", req.UserID)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	message := textutil.SanitizeInput(req.Message, maxMessageLength)

	decision, err := h.router.Route(r.Context(), req.UserID, message, req.Action, req.Platform)
	if err != nil {
		server.AddError(r.Context(), err)
		h.logger.Error("chat turn failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	server.AddLogField(r.Context(), "decision", string(decision.Type))
	writeJSON(w, http.StatusOK, decision)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if !h.catalog.Ready() {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      status,
		"error_codes": h.catalog.Len(),
		"flows":       h.flows.Len(),
	})
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "supportbot",
		"message": "EV charging technical support API",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
