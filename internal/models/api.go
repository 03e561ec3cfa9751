package models

type OnlineUsersResponse struct {
	OnlineUsers []PresenceEntry `json:"online_users"`
}

type RoomsResponse struct {
	Rooms []Room `json:"rooms"`
}

type MessagesResponse struct {
	Messages []Message `json:"messages"`
}

type SendMessageRequest struct {
	RoomID      string `json:"room_id,omitempty"`
	RecipientID string `json:"recipient_id,omitempty"`
	Message     string `json:"message"`
}

type SendMessageResponse struct {
	Data Message `json:"data"`
}

type BanUserRequest struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type StreamEventType string

const (
	StreamEventMessage StreamEventType = "message"
)

// StreamEvent is one frame of the websocket message stream.
type StreamEvent struct {
	Type StreamEventType `json:"type"`
	Data Message         `json:"data"`
}
