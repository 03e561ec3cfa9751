package services

import (
	"context"
	"errors"
	"fmt"

	"livechat/internal/models"
)

// DefaultRooms are created at startup when missing.
var DefaultRooms = []models.Room{
	{ID: models.DefaultRoomID, Name: "General", Kind: models.RoomKindGeneral},
	{ID: "sports", Name: "Sports Betting", Kind: models.RoomKindCustom},
	{ID: "tournaments", Name: "Tournaments", Kind: models.RoomKindCustom},
}

func (s *ChatService) EnsureRooms(ctx context.Context, rooms []models.Room) error {
	for _, room := range rooms {
		if room.ID == "" || room.Name == "" {
			return fmt.Errorf("room id and name are required")
		}
		if err := s.db.EnsureRoom(ctx, room); err != nil {
			return fmt.Errorf("ensure room %s: %w", room.ID, err)
		}
	}
	return nil
}

// Rooms lists every room with the number of online users whose last
// activity was in it.
func (s *ChatService) Rooms(ctx context.Context) ([]models.Room, error) {
	rooms, err := s.db.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	records, err := s.presence.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		counts[r.RoomID]++
	}

	for i := range rooms {
		rooms[i].ParticipantCount = counts[rooms[i].ID]
	}
	return rooms, nil
}

func (s *ChatService) RoomExists(ctx context.Context, roomID string) (bool, error) {
	_, err := s.db.GetRoom(ctx, roomID)
	if errors.Is(err, ErrRoomNotFound) {
		return false, nil
	}
	return err == nil, err
}
