package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"livechat/internal/models"
	"livechat/internal/services"
)

// RoomHandlers serves the room list and room histories.
type RoomHandlers struct {
	chatService *services.ChatService
}

func NewRoomHandlers(chatService *services.ChatService) *RoomHandlers {
	return &RoomHandlers{chatService: chatService}
}

func (h *RoomHandlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, h.chatService, ""); !ok {
		return
	}

	rooms, err := h.chatService.Rooms(r.Context())
	if err != nil {
		respondServiceError(w, "List rooms", err)
		return
	}
	respondJSON(w, http.StatusOK, models.RoomsResponse{Rooms: rooms})
}

func (h *RoomHandlers) GetMessages(w http.ResponseWriter, r *http.Request) {
	roomID := strings.TrimSpace(chi.URLParam(r, "roomID"))
	if roomID == "" {
		respondError(w, http.StatusBadRequest, "room_id is required")
		return
	}
	if _, ok := authorize(w, r, h.chatService, roomID); !ok {
		return
	}

	messages, err := h.chatService.Messages(r.Context(), roomID)
	if err != nil {
		respondServiceError(w, "Get messages", err)
		return
	}
	respondJSON(w, http.StatusOK, models.MessagesResponse{Messages: messages})
}

// authorize checks that the authenticated caller is not banned and records
// their presence in roomID.
func authorize(w http.ResponseWriter, r *http.Request, svc *services.ChatService, roomID string) (models.Identity, bool) {
	user, ok := IdentityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return models.Identity{}, false
	}
	if err := svc.Authorize(r.Context(), user, roomID); err != nil {
		respondServiceError(w, "Authorize", err)
		return models.Identity{}, false
	}
	return user, true
}
