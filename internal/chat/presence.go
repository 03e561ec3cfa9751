package chat

import (
	"context"

	"livechat/internal/models"
)

// RefreshPresence fetches the online users and replaces the presence set.
// On failure the previous set is kept.
func (s *Session) RefreshPresence(ctx context.Context) error {
	gen, ok := s.currentGen()
	if !ok {
		return ErrNotConnected
	}
	return s.refreshPresence(ctx, gen)
}

func (s *Session) refreshPresence(ctx context.Context, gen uint64) error {
	s.presenceMu.Lock()
	defer s.presenceMu.Unlock()

	users, err := s.api.OnlineUsers(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("refresh presence failed; keeping previous list")
		return err
	}

	s.mu.Lock()
	if !s.liveLocked(gen) {
		s.mu.Unlock()
		return errSessionClosed
	}
	s.presence = append([]models.PresenceEntry(nil), users...)
	s.markSyncedLocked(resPresence)
	s.mu.Unlock()

	s.notify()
	return nil
}

// IsOnline reports whether userID is in the current presence set.
func (s *Session) IsOnline(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.presence {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
