package handlers

import (
	"context"
	"net/http"

	"github.com/dom/gifbox/internal/auth"
	"github.com/dom/gifbox/internal/metrics"
	"github.com/dom/gifbox/internal/websocket"
	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	dispatcher websocket.Dispatcher
	upgrader   ws.Upgrader
	log        *zap.Logger
}

// NewWebSocketHandler accepts upgrades from the given origins; "*" allows
// any origin.
func NewWebSocketHandler(dispatcher websocket.Dispatcher, allowedOrigins []string, log *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		dispatcher: dispatcher,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log.Named("websocket"),
	}
}

// Handle upgrades GET /api/v1/ws. No token is required to connect since
// register and login are public; each frame is authorized on its own.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	token, _ := auth.BearerToken(r.Header.Get("Authorization"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	metrics.WebSocketOpened()
	client := websocket.NewClient(conn, h.dispatcher, token, h.log)

	// The request context ends when this handler returns.
	ctx, cancel := context.WithCancel(context.Background())
	go client.WritePump()
	go func() {
		defer metrics.WebSocketClosed()
		defer cancel()
		client.ReadPump(ctx)
	}()
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
