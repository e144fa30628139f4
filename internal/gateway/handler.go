package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// TokenVerifier resolves a bearer token to the user it belongs to.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (uuid.UUID, error)
}

// Handler upgrades authenticated HTTP requests to WebSocket connections
// and attaches them to the hub.
type Handler struct {
	logger   *slog.Logger
	hub      *Hub
	verifier TokenVerifier
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket upgrade handler.
func NewHandler(logger *slog.Logger, hub *Hub, verifier TokenVerifier) *Handler {
	return &Handler{
		logger:   logger.With(slog.String("component", "gateway_handler")),
		hub:      hub,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// ServeHTTP implements http.Handler. Authentication happens before the
// upgrade; an unauthenticated request never becomes a connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	userID, err := h.verifier.VerifyToken(r.Context(), token)
	if err != nil {
		h.logger.Debug("rejected connection with invalid token", "error", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	client := newClient(h.hub, conn, h.logger.With("user_id", userID), userID)
	h.hub.register(client)

	h.logger.Info("client connected", "user_id", userID)

	go client.writePump()
	go client.readPump()
}

// extractToken pulls the bearer token from the Authorization header or,
// for browser WebSocket clients that cannot set headers, the token query
// parameter.
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
