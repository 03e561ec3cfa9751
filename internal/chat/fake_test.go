package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"livechat/internal/models"
)

// fakeAPI is an in-memory chat backend whose responses and failures can be
// changed between calls. A key can be blocked so the next call for it waits
// until released.
type fakeAPI struct {
	mu sync.Mutex

	presence    []models.PresenceEntry
	presenceErr error
	rooms       []models.Room
	roomsErr    error
	messages    map[string][]models.Message
	messagesErr error
	private     map[string][]models.Message
	sendErr     error
	banErr      error
	nextID      int

	sent  []models.SendMessageRequest
	bans  []models.BanUserRequest
	calls map[string]int
	gates map[string]*gate
}

type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		presence: []models.PresenceEntry{{UserID: "u1", Username: "alice", Role: models.RoleRegular}},
		rooms:    []models.Room{{ID: "general", Name: "General", Kind: models.RoomKindGeneral, ParticipantCount: 1}},
		messages: map[string][]models.Message{},
		private:  map[string][]models.Message{},
		calls:    map[string]int{},
		gates:    map[string]*gate{},
	}
}

// block makes the next call for key wait until the returned release func runs.
func (f *fakeAPI) block(key string) (entered <-chan struct{}, release func()) {
	g := &gate{entered: make(chan struct{}), release: make(chan struct{})}
	f.mu.Lock()
	f.gates[key] = g
	f.mu.Unlock()
	var once sync.Once
	return g.entered, func() { once.Do(func() { close(g.release) }) }
}

func (f *fakeAPI) enter(key string) {
	f.mu.Lock()
	f.calls[key]++
	g := f.gates[key]
	delete(f.gates, key)
	f.mu.Unlock()
	if g != nil {
		close(g.entered)
		<-g.release
	}
}

func (f *fakeAPI) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeAPI) sentRequests() []models.SendMessageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SendMessageRequest(nil), f.sent...)
}

func (f *fakeAPI) set(fn func(f *fakeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeAPI) OnlineUsers(ctx context.Context) ([]models.PresenceEntry, error) {
	f.enter("presence")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.presenceErr != nil {
		return nil, f.presenceErr
	}
	return append([]models.PresenceEntry(nil), f.presence...), nil
}

func (f *fakeAPI) Rooms(ctx context.Context) ([]models.Room, error) {
	f.enter("rooms")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roomsErr != nil {
		return nil, f.roomsErr
	}
	return append([]models.Room(nil), f.rooms...), nil
}

func (f *fakeAPI) Messages(ctx context.Context, roomID string) ([]models.Message, error) {
	f.enter("messages:" + roomID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.messagesErr != nil {
		return nil, f.messagesErr
	}
	return append([]models.Message(nil), f.messages[roomID]...), nil
}

func (f *fakeAPI) PrivateMessages(ctx context.Context, peerID string) ([]models.Message, error) {
	f.enter("private:" + peerID)
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Message(nil), f.private[peerID]...), nil
}

func (f *fakeAPI) SendMessage(ctx context.Context, req models.SendMessageRequest) (models.Message, error) {
	f.enter("send")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return models.Message{}, f.sendErr
	}
	f.sent = append(f.sent, req)
	f.nextID++
	m := models.Message{
		ID:             fmt.Sprintf("m%d", f.nextID),
		RoomID:         req.RoomID,
		RecipientID:    req.RecipientID,
		SenderID:       "me",
		SenderUsername: "me",
		Text:           req.Message,
		Timestamp:      time.Date(2026, 1, 1, 12, 0, f.nextID, 0, time.UTC),
	}
	// stored like a server would, so later listings include it
	if req.RecipientID != "" {
		f.private[req.RecipientID] = append(f.private[req.RecipientID], m)
	} else {
		f.messages[req.RoomID] = append(f.messages[req.RoomID], m)
	}
	return m, nil
}

func (f *fakeAPI) BanUser(ctx context.Context, req models.BanUserRequest) error {
	f.enter("ban")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.banErr != nil {
		return f.banErr
	}
	f.bans = append(f.bans, req)
	return nil
}
