package models

type RoomKind string

const (
	RoomKindGeneral RoomKind = "general"
	RoomKindCustom  RoomKind = "custom"
)

// DefaultRoomID is the room every session starts in and the one the client
// falls back to when the room list cannot be fetched.
const DefaultRoomID = "general"

// UnknownParticipants marks a room whose participant count is not known.
const UnknownParticipants = -1

type Room struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Kind             RoomKind `json:"kind"`
	ParticipantCount int      `json:"participant_count"`
}

// FallbackRoom is the synthetic room shown when the room list is unavailable.
func FallbackRoom() Room {
	return Room{
		ID:               DefaultRoomID,
		Name:             "General",
		Kind:             RoomKindGeneral,
		ParticipantCount: UnknownParticipants,
	}
}
