// Package ws exposes the realtime dispatcher over a websocket endpoint.
// Each upgraded connection gets a buffered outbox registered with the
// dispatcher; inbound frames are fed to it as-is and every outcome comes
// back through the outbox.
package ws

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chatwire/auth"
	"chatwire/domain"
	"chatwire/runtime"
)

type Handler struct {
	log        *slog.Logger
	dispatcher *runtime.Dispatcher
	upgrader   websocket.Upgrader
	bufferSize int
	secret     []byte // empty disables authentication
}

func NewHandler(log *slog.Logger, dispatcher *runtime.Dispatcher, bufferSize int, secret []byte) *Handler {
	return &Handler{
		log:        log,
		dispatcher: dispatcher,
		upgrader:   websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		bufferSize: bufferSize,
		secret:     secret,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var authenticated domain.ParticipantID
	if len(h.secret) > 0 {
		token := r.URL.Query().Get("token")
		claims, err := auth.ValidateToken(token, h.secret)
		if err != nil {
			h.log.Debug("Rejected connection", "error", err)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		authenticated = domain.ParticipantID(claims.UserID)
	}

	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Upgrade failed", "error", err)
		return
	}

	id := domain.ConnID(uuid.NewString())
	conn := NewConn(id, h.log, socket, h.bufferSize)
	h.dispatcher.Attach(id, conn)
	if authenticated != "" {
		// The token subject owns the connection: frames announcing
		// anyone else are rejected by the dispatcher.
		h.dispatcher.Bind(r.Context(), id, authenticated)
	}
	go conn.WritePump(r.Context())

	defer func() {
		h.dispatcher.Detach(r.Context(), id)
		conn.Close()
	}()

	for {
		_, raw, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("Connection closed unexpectedly", "conn", id, "error", err)
			}
			return
		}
		h.dispatcher.Handle(r.Context(), id, raw)
	}
}
