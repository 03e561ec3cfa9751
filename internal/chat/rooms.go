package chat

import (
	"context"
	"errors"

	"livechat/internal/models"
)

var errNoRooms = errors.New("server returned no rooms")

// RefreshRooms fetches the room list. When the fetch fails or comes back
// empty the list is replaced by the single fallback room, so there is
// always something to select; the error is logged and not returned.
func (s *Session) RefreshRooms(ctx context.Context) error {
	gen, ok := s.currentGen()
	if !ok {
		return ErrNotConnected
	}
	err := s.refreshRooms(ctx, gen)
	if errors.Is(err, errSessionClosed) {
		return ErrNotConnected
	}
	return nil
}

func (s *Session) refreshRooms(ctx context.Context, gen uint64) error {
	s.roomsMu.Lock()
	defer s.roomsMu.Unlock()

	rooms, err := s.api.Rooms(ctx)
	if err == nil && len(rooms) == 0 {
		err = errNoRooms
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("refresh rooms failed; using fallback room")
		rooms = []models.Room{models.FallbackRoom()}
	}

	s.mu.Lock()
	if !s.liveLocked(gen) {
		s.mu.Unlock()
		return errSessionClosed
	}
	s.rooms = append([]models.Room(nil), rooms...)
	if err == nil {
		s.markSyncedLocked(resRooms)
	}
	s.mu.Unlock()

	s.notify()
	return err
}
