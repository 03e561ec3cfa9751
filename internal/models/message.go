package models

import "time"

// MessageStatus tracks whether a locally held message has been seen in an
// authoritative server listing yet.
type MessageStatus string

const (
	MessagePending   MessageStatus = "pending"
	MessageConfirmed MessageStatus = "confirmed"
)

type Message struct {
	ID             string    `json:"id"`
	RoomID         string    `json:"room_id,omitempty"`
	SenderID       string    `json:"sender_id,omitempty"`
	RecipientID    string    `json:"recipient_id,omitempty"`
	SenderUsername string    `json:"sender_username"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
	IsSystem       bool      `json:"is_system"`

	Status MessageStatus `json:"-"`
}

// IsPrivate reports whether the message belongs to a private conversation
// rather than a room.
func (m Message) IsPrivate() bool {
	return m.RoomID == "" && m.RecipientID != ""
}

// PeerID returns the other participant of a private message as seen by self.
func (m Message) PeerID(self string) string {
	if m.SenderID == self {
		return m.RecipientID
	}
	return m.SenderID
}
