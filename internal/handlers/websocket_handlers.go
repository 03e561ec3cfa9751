package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"livechat/internal/models"
	"livechat/internal/services"
	ws "livechat/internal/websocket"
	"livechat/pkg/logger"
)

type WebSocketHandlers struct {
	chatService *services.ChatService
	hubManager  *ws.Manager
	upgrader    websocket.Upgrader
}

func NewWebSocketHandlers(chatService *services.ChatService, hubManager *ws.Manager) *WebSocketHandlers {
	return &WebSocketHandlers{
		chatService: chatService,
		hubManager:  hubManager,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleStream upgrades to a websocket that receives every new message of
// room_id and the caller's private messages as StreamEvent frames.
func (h *WebSocketHandlers) HandleStream(w http.ResponseWriter, r *http.Request) {
	roomID := strings.TrimSpace(r.URL.Query().Get("room_id"))
	if roomID == "" {
		roomID = models.DefaultRoomID
	}

	user, ok := authorize(w, r, h.chatService, roomID)
	if !ok {
		return
	}

	exists, err := h.chatService.RoomExists(r.Context(), roomID)
	if err != nil {
		respondServiceError(w, "Stream", err)
		return
	}
	if !exists {
		respondError(w, http.StatusNotFound, "room not found")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	client := ws.NewClient(conn, user.UserID, user.Username, func() {
		if err := h.chatService.Authorize(context.Background(), user, roomID); err != nil {
			logger.Debug("Stream keepalive for %s: %v", user.UserID, err)
		}
	})
	h.hubManager.Subscribe(roomID, client)

	go client.WritePump()
	go client.ReadPump()
}
