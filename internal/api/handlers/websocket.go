package handlers

import (
	"net/http"

	"github.com/dom/task-manager/internal/service"
	"github.com/dom/task-manager/internal/websocket"
	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub         *websocket.Hub
	authService *service.AuthService
	logger      *zap.Logger
}

func NewWebSocketHandler(hub *websocket.Hub, authService *service.AuthService, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		authService: authService,
		logger:      logger,
	}
}

// Handle upgrades to the live task feed of the user owning the token passed
// in the token query parameter.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.AuthenticateToken(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := websocket.NewClient(h.hub, conn, user.ID)
	if msg, err := websocket.NewMessage(websocket.MessageTypeConnected, websocket.ConnectedPayload{UserID: user.ID.String()}); err == nil {
		client.Send(msg)
	}
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
