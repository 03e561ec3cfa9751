package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"livechat/internal/models"
	"livechat/internal/services"
	"livechat/pkg/logger"
)

type ChatHandlers struct {
	chatService *services.ChatService
}

func NewChatHandlers(chatService *services.ChatService) *ChatHandlers {
	return &ChatHandlers{chatService: chatService}
}

func (h *ChatHandlers) OnlineUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, h.chatService, ""); !ok {
		return
	}

	users, err := h.chatService.OnlineUsers(r.Context())
	if err != nil {
		respondServiceError(w, "Online users", err)
		return
	}
	respondJSON(w, http.StatusOK, models.OnlineUsersResponse{OnlineUsers: users})
}

func (h *ChatHandlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, ok := authorize(w, r, h.chatService, req.RoomID)
	if !ok {
		return
	}

	msg, err := h.chatService.SendMessage(r.Context(), user, req)
	if err != nil {
		respondServiceError(w, "Send message", err)
		return
	}
	respondJSON(w, http.StatusCreated, models.SendMessageResponse{Data: msg})
}

func (h *ChatHandlers) PrivateMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := authorize(w, r, h.chatService, "")
	if !ok {
		return
	}

	messages, err := h.chatService.PrivateMessages(r.Context(), user, chi.URLParam(r, "userID"))
	if err != nil {
		respondServiceError(w, "Private messages", err)
		return
	}
	respondJSON(w, http.StatusOK, models.MessagesResponse{Messages: messages})
}

func (h *ChatHandlers) BanUser(w http.ResponseWriter, r *http.Request) {
	var req models.BanUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, ok := authorize(w, r, h.chatService, "")
	if !ok {
		return
	}

	if err := h.chatService.BanUser(r.Context(), user, req); err != nil {
		logger.Warn("Ban by %s rejected: %v", user.UserID, err)
		respondServiceError(w, "Ban user", err)
		return
	}
	respondJSON(w, http.StatusOK, models.StatusResponse{Success: true, Message: "user banned"})
}
