package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"livechat/internal/auth"
	"livechat/internal/services"
	ws "livechat/internal/websocket"
)

// NewRouter wires the chat API routes.
func NewRouter(authService *auth.Service, chatService *services.ChatService, hubManager *ws.Manager) http.Handler {
	chatHandlers := NewChatHandlers(chatService)
	roomHandlers := NewRoomHandlers(chatService)
	wsHandlers := NewWebSocketHandlers(chatService, hubManager)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger, middleware.Recoverer, corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route("/chat", func(r chi.Router) {
		r.Use(Authenticate(authService))

		r.Get("/online-users", chatHandlers.OnlineUsers)
		r.Get("/rooms", roomHandlers.ListRooms)
		r.Get("/messages/{roomID}", roomHandlers.GetMessages)
		r.Get("/private-messages/{userID}", chatHandlers.PrivateMessages)
		r.Post("/send-message", chatHandlers.SendMessage)
		r.Post("/admin/ban-user", chatHandlers.BanUser)
		r.Get("/stream", wsHandlers.HandleStream)
	})

	return r
}
