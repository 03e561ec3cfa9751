package chat

import (
	"context"
	"sort"

	"livechat/internal/models"
)

// RefreshMessages fetches the history of roomID and replaces the local list
// for it. The reply is discarded if roomID stopped being the active room
// while the request was in flight.
func (s *Session) RefreshMessages(ctx context.Context, roomID string) error {
	gen, ok := s.currentGen()
	if !ok {
		return ErrNotConnected
	}
	return s.refreshMessages(ctx, gen, roomID)
}

func (s *Session) refreshMessages(ctx context.Context, gen uint64, roomID string) error {
	s.messagesMu.Lock()
	defer s.messagesMu.Unlock()

	fetched, err := s.api.Messages(ctx, roomID)
	if err != nil {
		s.log.Debug().Err(err).Str("room_id", roomID).Msg("refresh messages failed")
		return err
	}
	list := reconcile(fetched)

	s.mu.Lock()
	if !s.liveLocked(gen) {
		s.mu.Unlock()
		return errSessionClosed
	}
	if s.session.ActiveRoomID != roomID {
		s.mu.Unlock()
		s.log.Debug().Str("room_id", roomID).Msg("discarding messages for inactive room")
		return ErrStaleRoom
	}
	s.messages[roomID] = list
	s.markSyncedLocked(resMessages)
	s.mu.Unlock()

	s.notify()
	return nil
}

// RefreshConversation fetches the private conversation with peerID and
// replaces the local copy.
func (s *Session) RefreshConversation(ctx context.Context, peerID string) error {
	gen, ok := s.currentGen()
	if !ok {
		return ErrNotConnected
	}
	return s.refreshConversation(ctx, gen, peerID)
}

func (s *Session) refreshConversation(ctx context.Context, gen uint64, peerID string) error {
	s.convMu.Lock()
	defer s.convMu.Unlock()

	fetched, err := s.api.PrivateMessages(ctx, peerID)
	if err != nil {
		s.log.Debug().Err(err).Str("peer_id", peerID).Msg("refresh conversation failed")
		return err
	}
	list := reconcile(fetched)

	s.mu.Lock()
	if !s.liveLocked(gen) {
		s.mu.Unlock()
		return errSessionClosed
	}
	s.conversations[peerID] = list
	s.mu.Unlock()

	s.notify()
	return nil
}

// Ingest merges a message delivered outside the polling cycle, such as one
// pushed over the stream. Room messages are kept only for the active room.
// The message stays pending until the next synchronizer cycle lists it.
func (s *Session) Ingest(m models.Message) {
	m.Status = models.MessagePending

	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	switch {
	case m.IsPrivate():
		peer := m.PeerID(s.identity.UserID)
		s.conversations[peer] = upsert(s.conversations[peer], m)
	case m.RoomID == s.session.ActiveRoomID:
		s.messages[m.RoomID] = upsert(s.messages[m.RoomID], m)
	default:
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.notify()
}

// reconcile turns a server listing into the local list: one entry per ID
// (later copies overwrite earlier ones in place), ordered by timestamp and
// marked confirmed.
func reconcile(in []models.Message) []models.Message {
	out := make([]models.Message, 0, len(in))
	index := make(map[string]int, len(in))
	for _, m := range in {
		m.Status = models.MessageConfirmed
		if i, ok := index[m.ID]; ok && m.ID != "" {
			out[i] = m
			continue
		}
		index[m.ID] = len(out)
		out = append(out, m)
	}
	sortByTimestamp(out)
	return out
}

// upsert adds m to list, replacing any entry with the same ID. An entry the
// server has already confirmed stays confirmed.
func upsert(list []models.Message, m models.Message) []models.Message {
	out := append([]models.Message(nil), list...)
	for i := range out {
		if out[i].ID == m.ID {
			if out[i].Status == models.MessageConfirmed {
				m.Status = models.MessageConfirmed
			}
			out[i] = m
			sortByTimestamp(out)
			return out
		}
	}
	out = append(out, m)
	sortByTimestamp(out)
	return out
}

func sortByTimestamp(list []models.Message) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp.Before(list[j].Timestamp)
	})
}
