package ws

import (
	"log"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"github.com/akinalp/tms/models"
	"github.com/akinalp/tms/pkg"
	"github.com/akinalp/tms/pkg/metrics"
	"github.com/akinalp/tms/pkg/token"
)

// Handler, WebSocket bağlantı isteklerini işleyen HTTP handler'ı.
type Handler struct {
	hub      *Hub
	verifier token.Verifier
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
}

// NewHandler, yeni bir WebSocket handler oluşturur.
// allowedOrigins boşsa tüm origin'lere izin verilir (development).
func NewHandler(hub *Hub, verifier token.Verifier, m *metrics.Metrics, allowedOrigins []string) *Handler {
	return &Handler{
		hub:      hub,
		verifier: verifier,
		metrics:  m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowedOrigins) == 0 || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// HandleConnection, HTTP bağlantısını WebSocket'e yükseltir ve client'ı Hub'a kaydeder.
//
// Tarayıcı WebSocket isteğine header ekleyemediği için access token query'den
// gelir: /api/v1/ws?accessToken=JWT. Süresi dolmuş token burada yenilenmez;
// client önce HTTP üzerinden refresh yapıp yeniden bağlanır.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("accessToken")
	if raw == "" {
		raw = r.URL.Query().Get("token")
	}
	if raw == "" {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "Access token is missing")
		return
	}

	res := h.verifier.Verify(raw, models.TokenKindAccess)
	switch res.Status {
	case token.StatusValid:
	case token.StatusExpired:
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "Access token expired")
		return
	default:
		pkg.ErrorWithMessage(w, http.StatusForbidden, "Invalid access token")
		return
	}
	identity := res.Claims.Identity

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed for user %s: %v", identity.ID, err)
		return
	}

	client := &Client{
		hub:    h.hub,
		conn:   conn,
		userID: identity.ID,
		role:   identity.Role,
		send:   make(chan []byte, sendBufferSize),
	}

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	h.metrics.WSConnected(1)
	defer h.metrics.WSConnected(-1)

	go client.WritePump()
	client.ReadPump()
}
