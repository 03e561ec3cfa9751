package chat

import "livechat/internal/models"

// Snapshot is a point-in-time copy of a session, safe to read without locks.
type Snapshot struct {
	State    State
	Identity models.Identity
	Session  models.ChatSessionState
	Rooms    []models.Room
	Presence []models.PresenceEntry
	// Messages holds the active room's history.
	Messages []models.Message
	// Conversation holds the selected private conversation, if any.
	Conversation []models.Message
	Draft        string
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		State:    s.state,
		Identity: s.identity,
		Session:  s.session,
		Rooms:    append([]models.Room(nil), s.rooms...),
		Presence: append([]models.PresenceEntry(nil), s.presence...),
		Messages: append([]models.Message(nil), s.messages[s.session.ActiveRoomID]...),
		Draft:    s.draft,
	}
	if peer := s.session.ActivePeerID; peer != "" {
		snap.Conversation = append([]models.Message(nil), s.conversations[peer]...)
	}
	return snap
}

// RoomMessages returns a copy of the locally held history of roomID.
func (s *Session) RoomMessages(roomID string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message(nil), s.messages[roomID]...)
}

// Conversation returns a copy of the private conversation with peerID.
func (s *Session) Conversation(peerID string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message(nil), s.conversations[peerID]...)
}

// Subscribe returns a channel that receives a signal after session state
// changes. Signals coalesce; read Snapshot to see the new state. The
// returned func unsubscribes and closes the channel.
func (s *Session) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()

	return ch, func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

func (s *Session) notify() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
