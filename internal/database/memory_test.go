package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livechat/internal/models"
)

func at(sec int) time.Time {
	return time.Date(2026, 3, 1, 18, 0, sec, 0, time.UTC)
}

func TestMemoryDB_Rooms(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDB()

	require.NoError(t, db.EnsureRoom(ctx, models.Room{ID: "vip", Name: "VIP", Kind: models.RoomKindCustom}))
	require.NoError(t, db.EnsureRoom(ctx, models.Room{ID: "general", Name: "General", Kind: models.RoomKindGeneral}))
	require.NoError(t, db.EnsureRoom(ctx, models.Room{ID: "vip", Name: "Renamed", Kind: models.RoomKindCustom}))

	rooms, err := db.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "general", rooms[0].ID)
	assert.Equal(t, "VIP", rooms[1].Name)

	_, err = db.GetRoom(ctx, "missing")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestMemoryDB_Messages(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDB()

	for _, m := range []models.Message{
		{ID: "3", RoomID: "general", Text: "c", Timestamp: at(3)},
		{ID: "1", RoomID: "general", Text: "a", Timestamp: at(1)},
		{ID: "2", RoomID: "general", Text: "b", Timestamp: at(2)},
		{ID: "x", RoomID: "vip", Text: "elsewhere", Timestamp: at(2)},
		{ID: "p1", SenderID: "u1", RecipientID: "u2", Text: "hi", Timestamp: at(4)},
		{ID: "p2", SenderID: "u2", RecipientID: "u1", Text: "hey", Timestamp: at(5)},
		{ID: "p3", SenderID: "u1", RecipientID: "u3", Text: "other", Timestamp: at(6)},
	} {
		require.NoError(t, db.SaveMessage(ctx, m))
	}

	recent, err := db.LoadRecentMessages(ctx, "general", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "2", recent[0].ID)
	assert.Equal(t, "3", recent[1].ID)

	conv, err := db.LoadConversation(ctx, "u2", "u1", 10)
	require.NoError(t, err)
	require.Len(t, conv, 2)
	assert.Equal(t, "p1", conv[0].ID)
	assert.Equal(t, "p2", conv[1].ID)

	none, err := db.LoadRecentMessages(ctx, "empty", 10)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemoryDB_Bans(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDB()

	banned, err := db.IsBanned(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, banned)

	require.NoError(t, db.SaveBan(ctx, models.BanRecord{UserID: "u1", Reason: "spam", BannedBy: "mod", CreatedAt: at(0)}))
	require.NoError(t, db.SaveBan(ctx, models.BanRecord{UserID: "u1", Reason: "again", BannedBy: "mod", CreatedAt: at(1)}))

	banned, err = db.IsBanned(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, banned)
	assert.Equal(t, "spam", db.bans["u1"].Reason)
}

func TestMemoryPresence_TouchListExpire(t *testing.T) {
	ctx := context.Background()
	now := at(0)
	p := NewMemoryPresence(time.Minute)
	p.now = func() time.Time { return now }

	require.NoError(t, p.Touch(ctx, models.PresenceEntry{UserID: "u2", Username: "bob"}, "vip"))
	require.NoError(t, p.Touch(ctx, models.PresenceEntry{UserID: "u1", Username: "alice"}, ""))

	now = now.Add(30 * time.Second)
	require.NoError(t, p.Touch(ctx, models.PresenceEntry{UserID: "u2", Username: "bob"}, ""))

	list, err := p.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alice", list[0].Username)
	assert.Equal(t, "vip", list[1].RoomID, "empty room keeps the previous one")

	now = now.Add(45 * time.Second)
	list, err = p.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "u2", list[0].UserID)

	require.NoError(t, p.Remove(ctx, "u2"))
	list, err = p.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
