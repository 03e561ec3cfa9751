package models

// UIState is the persisted part of a chat session, read and written as a unit.
type UIState struct {
	IsMinimized    bool `json:"is_minimized"`
	IsOpen         bool `json:"is_open"`
	PersistentMode bool `json:"persistent_mode"`
}

type ChatSessionState struct {
	ActiveRoomID string `json:"active_room_id"`
	// ActivePeerID is set while a private conversation is selected.
	ActivePeerID string `json:"active_peer_id,omitempty"`
	UIState
}
