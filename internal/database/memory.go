package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"livechat/internal/models"
)

// MemoryDB is a process-local Database used when no DATABASE_URL is set
// and in tests.
type MemoryDB struct {
	mu       sync.RWMutex
	rooms    map[string]models.Room
	messages []models.Message
	bans     map[string]models.BanRecord
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		rooms: map[string]models.Room{},
		bans:  map[string]models.BanRecord{},
	}
}

func (db *MemoryDB) Close() error { return nil }

func (db *MemoryDB) EnsureRoom(ctx context.Context, room models.Room) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.rooms[room.ID]; !ok {
		room.ParticipantCount = 0
		db.rooms[room.ID] = room
	}
	return nil
}

func (db *MemoryDB) GetRoom(ctx context.Context, id string) (models.Room, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	room, ok := db.rooms[id]
	if !ok {
		return models.Room{}, ErrRoomNotFound
	}
	return room, nil
}

func (db *MemoryDB) ListRooms(ctx context.Context) ([]models.Room, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	rooms := make([]models.Room, 0, len(db.rooms))
	for _, r := range db.rooms {
		rooms = append(rooms, r)
	}
	sortRooms(rooms)
	return rooms, nil
}

func (db *MemoryDB) SaveMessage(ctx context.Context, msg models.Message) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.messages = append(db.messages, msg)
	return nil
}

func (db *MemoryDB) LoadRecentMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	return db.filter(limit, func(m models.Message) bool {
		return !m.IsPrivate() && m.RoomID == roomID
	}), nil
}

func (db *MemoryDB) LoadConversation(ctx context.Context, userA, userB string, limit int) ([]models.Message, error) {
	return db.filter(limit, func(m models.Message) bool {
		return m.IsPrivate() &&
			((m.SenderID == userA && m.RecipientID == userB) || (m.SenderID == userB && m.RecipientID == userA))
	}), nil
}

// filter keeps the newest limit matches, oldest first.
func (db *MemoryDB) filter(limit int, match func(models.Message) bool) []models.Message {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := []models.Message{}
	for _, m := range db.messages {
		if match(m) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func (db *MemoryDB) SaveBan(ctx context.Context, ban models.BanRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.bans[ban.UserID]; !ok {
		db.bans[ban.UserID] = ban
	}
	return nil
}

func (db *MemoryDB) IsBanned(ctx context.Context, userID string) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.bans[userID]
	return ok, nil
}

// MemoryPresence is a process-local PresenceStore.
type MemoryPresence struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	records map[string]PresenceRecord
}

func NewMemoryPresence(ttl time.Duration) *MemoryPresence {
	return &MemoryPresence{
		ttl:     ttl,
		now:     time.Now,
		records: map[string]PresenceRecord{},
	}
}

func (p *MemoryPresence) Close() error { return nil }

func (p *MemoryPresence) Touch(ctx context.Context, entry models.PresenceEntry, roomID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if roomID == "" {
		roomID = p.records[entry.UserID].RoomID
	}
	p.records[entry.UserID] = PresenceRecord{PresenceEntry: entry, RoomID: roomID, LastSeen: p.now()}
	return nil
}

func (p *MemoryPresence) Remove(ctx context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.records, userID)
	return nil
}

func (p *MemoryPresence) List(ctx context.Context) ([]PresenceRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cutoff := p.now().Add(-p.ttl)
	out := make([]PresenceRecord, 0, len(p.records))
	for id, r := range p.records {
		if r.LastSeen.Before(cutoff) {
			delete(p.records, id)
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// sortRooms puts the general room first, then the rest by name.
func sortRooms(rooms []models.Room) {
	sort.SliceStable(rooms, func(i, j int) bool {
		gi, gj := rooms[i].ID == models.DefaultRoomID, rooms[j].ID == models.DefaultRoomID
		if gi != gj {
			return gi
		}
		return rooms[i].Name < rooms[j].Name
	})
}
