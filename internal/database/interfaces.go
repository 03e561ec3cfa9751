package database

import (
	"context"
	"errors"
	"time"

	"livechat/internal/models"
)

var ErrRoomNotFound = errors.New("room not found")

type RoomRepository interface {
	// EnsureRoom creates room if no room with its ID exists.
	EnsureRoom(ctx context.Context, room models.Room) error
	GetRoom(ctx context.Context, id string) (models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
}

type MessageRepository interface {
	SaveMessage(ctx context.Context, msg models.Message) error
	// LoadRecentMessages returns up to limit of the newest messages of a
	// room, oldest first.
	LoadRecentMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error)
	// LoadConversation returns up to limit of the newest private messages
	// exchanged between two users, oldest first.
	LoadConversation(ctx context.Context, userA, userB string, limit int) ([]models.Message, error)
}

type BanRepository interface {
	SaveBan(ctx context.Context, ban models.BanRecord) error
	IsBanned(ctx context.Context, userID string) (bool, error)
}

type Database interface {
	RoomRepository
	MessageRepository
	BanRepository
	Close() error
}

// PresenceRecord is one online user together with the room they last
// looked at.
type PresenceRecord struct {
	models.PresenceEntry
	RoomID   string    `json:"room_id"`
	LastSeen time.Time `json:"last_seen"`
}

// PresenceStore tracks who is online. Entries not touched within the
// store's TTL are no longer listed.
type PresenceStore interface {
	// Touch marks the user online. An empty roomID keeps the room recorded
	// by an earlier touch.
	Touch(ctx context.Context, entry models.PresenceEntry, roomID string) error
	Remove(ctx context.Context, userID string) error
	List(ctx context.Context) ([]PresenceRecord, error)
	Close() error
}
