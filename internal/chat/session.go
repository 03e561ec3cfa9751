// Package chat implements the polling chat client: a single Session owns
// rooms, presence, room messages and private conversations, keeps them fresh
// with independently scheduled polls, and exposes read-only snapshots.
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"livechat/internal/models"
	"livechat/internal/statestore"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

type Config struct {
	PresenceInterval time.Duration
	RoomsInterval    time.Duration
	MessagesInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		PresenceInterval: 5 * time.Second,
		RoomsInterval:    10 * time.Second,
		MessagesInterval: 3 * time.Second,
	}
}

// withDefaults replaces non-positive intervals with the default ones.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.PresenceInterval <= 0 {
		c.PresenceInterval = def.PresenceInterval
	}
	if c.RoomsInterval <= 0 {
		c.RoomsInterval = def.RoomsInterval
	}
	if c.MessagesInterval <= 0 {
		c.MessagesInterval = def.MessagesInterval
	}
	return c
}

// resource bits track which polls have succeeded at least once since connect.
type resource uint8

const (
	resPresence resource = 1 << iota
	resRooms
	resMessages

	resAll = resPresence | resRooms | resMessages
)

type Session struct {
	api      API
	store    statestore.Store
	identity models.Identity
	cfg      Config
	log      zerolog.Logger

	mu            sync.RWMutex
	state         State
	gen           uint64
	synced        resource
	session       models.ChatSessionState
	rooms         []models.Room
	presence      []models.PresenceEntry
	messages      map[string][]models.Message
	conversations map[string][]models.Message
	draft         string

	// held for the whole fetch+apply of one resource
	presenceMu sync.Mutex
	roomsMu    sync.Mutex
	messagesMu sync.Mutex
	convMu     sync.Mutex

	cancel       context.CancelFunc
	loops        *sync.WaitGroup
	presenceTask *task
	roomsTask    *task
	messagesTask *task

	subsMu sync.Mutex
	subs   map[chan struct{}]struct{}
}

type Option func(*Session)

// WithStore persists UI state in store under the session's user ID.
func WithStore(store statestore.Store) Option {
	return func(s *Session) { s.store = store }
}

func WithConfig(cfg Config) Option {
	return func(s *Session) { s.cfg = cfg }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

func NewSession(api API, identity models.Identity, opts ...Option) *Session {
	s := &Session{
		api:           api,
		identity:      identity,
		cfg:           DefaultConfig(),
		log:           zerolog.Nop(),
		messages:      map[string][]models.Message{},
		conversations: map[string][]models.Message{},
		subs:          map[chan struct{}]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cfg = s.cfg.withDefaults()
	s.log = s.log.With().Str("user_id", identity.UserID).Logger()
	return s
}

func (s *Session) Identity() models.Identity { return s.identity }

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Connect moves a disconnected session to Connecting, performs one
// immediate fetch of presence, rooms and messages, and starts the polling
// tasks. Refreshes requested during the initial fetch run as soon as the
// tasks start. The session becomes Connected once every resource has been fetched
// successfully, which may happen on a later tick. Calling Connect on a
// session that is not disconnected is a no-op.
func (s *Session) Connect(ctx context.Context) error {
	ui := s.loadUIState()

	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	gen := s.gen
	s.state = StateConnecting
	s.synced = 0
	s.session = models.ChatSessionState{ActiveRoomID: models.DefaultRoomID, UIState: ui}
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.newTasksLocked(gen)
	s.mu.Unlock()

	s.log.Info().Msg("chat connecting")
	s.notify()

	fetchCtx, stop := context.WithCancel(runCtx)
	defer stop()
	unhook := context.AfterFunc(ctx, stop)
	defer unhook()

	var g errgroup.Group
	g.Go(func() error { return s.refreshPresence(fetchCtx, gen) })
	g.Go(func() error { return s.refreshRooms(fetchCtx, gen) })
	g.Go(func() error { return s.refreshMessages(fetchCtx, gen, models.DefaultRoomID) })
	if err := g.Wait(); err != nil {
		s.log.Warn().Err(err).Msg("initial chat sync incomplete; polling will retry")
	}

	s.startTasks(runCtx, gen)
	return nil
}

// newTasksLocked creates the polling tasks for gen. They accept kicks at once;
// startTasks runs them after the initial fetch.
func (s *Session) newTasksLocked(gen uint64) {
	s.presenceTask = newTask("presence", s.cfg.PresenceInterval, func(ctx context.Context, scheduled bool) {
		if scheduled && !s.pollingActive() {
			return
		}
		_ = s.refreshPresence(ctx, gen)
	})
	s.roomsTask = newTask("rooms", s.cfg.RoomsInterval, func(ctx context.Context, scheduled bool) {
		if scheduled && !s.pollingActive() {
			return
		}
		_ = s.refreshRooms(ctx, gen)
	})
	s.messagesTask = newTask("messages", s.cfg.MessagesInterval, func(ctx context.Context, scheduled bool) {
		if scheduled && !s.pollingActive() {
			return
		}
		room, peer := s.activeTargets()
		_ = s.refreshMessages(ctx, gen, room)
		if peer != "" {
			_ = s.refreshConversation(ctx, gen, peer)
		}
	})
}

func (s *Session) startTasks(ctx context.Context, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.liveLocked(gen) {
		return
	}

	loops := &sync.WaitGroup{}
	for _, t := range []*task{s.presenceTask, s.roomsTask, s.messagesTask} {
		loops.Add(1)
		go func(t *task) {
			defer loops.Done()
			t.run(ctx)
		}(t)
	}
	s.loops = loops
}

// Disconnect cancels every polling task and clears all session state. It is
// safe to call repeatedly; a fetch that completes afterwards is discarded.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.state = StateDisconnected
	s.gen++
	cancel, loops := s.cancel, s.loops
	s.cancel, s.loops = nil, nil
	s.presenceTask, s.roomsTask, s.messagesTask = nil, nil, nil
	s.synced = 0
	s.session = models.ChatSessionState{}
	s.rooms = nil
	s.presence = nil
	s.messages = map[string][]models.Message{}
	s.conversations = map[string][]models.Message{}
	s.draft = ""
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if loops != nil {
		loops.Wait()
	}
	s.log.Info().Msg("chat disconnected")
	s.notify()
}

// SelectRoom makes roomID the active room, leaves any private conversation
// and schedules an immediate message refresh.
func (s *Session) SelectRoom(roomID string) error {
	if roomID == "" {
		return nil
	}
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	changed := s.session.ActiveRoomID != roomID || s.session.ActivePeerID != ""
	s.session.ActiveRoomID = roomID
	s.session.ActivePeerID = ""
	t := s.messagesTask
	s.mu.Unlock()

	if changed {
		s.log.Debug().Str("room_id", roomID).Msg("active room changed")
		s.notify()
	}
	t.Trigger()
	return nil
}

// SelectConversation focuses the private conversation with peerID. An empty
// peerID returns to the active room.
func (s *Session) SelectConversation(peerID string) error {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	s.session.ActivePeerID = peerID
	t := s.messagesTask
	s.mu.Unlock()

	s.notify()
	t.Trigger()
	return nil
}

// SetOpen records whether the chat UI is visible.
func (s *Session) SetOpen(open bool) error {
	return s.updateUI(func(ui *models.UIState) { ui.IsOpen = open })
}

func (s *Session) SetMinimized(minimized bool) error {
	return s.updateUI(func(ui *models.UIState) { ui.IsMinimized = minimized })
}

// SetPersistentMode controls whether polling continues while the UI is hidden.
func (s *Session) SetPersistentMode(persistent bool) error {
	return s.updateUI(func(ui *models.UIState) { ui.PersistentMode = persistent })
}

func (s *Session) updateUI(apply func(*models.UIState)) error {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	wasActive := s.pollingActiveLocked()
	apply(&s.session.UIState)
	ui := s.session.UIState
	resume := !wasActive && s.pollingActiveLocked()
	tasks := []*task{s.presenceTask, s.roomsTask, s.messagesTask}
	s.mu.Unlock()

	s.notify()
	if resume {
		for _, t := range tasks {
			t.Trigger()
		}
	}
	return s.saveUIState(ui)
}

func (s *Session) loadUIState() models.UIState {
	if s.store == nil || s.identity.UserID == "" {
		return models.UIState{}
	}
	ui, err := s.store.Load(s.identity.UserID)
	if err != nil {
		s.log.Warn().Err(err).Msg("load chat ui state failed; using defaults")
		return models.UIState{}
	}
	return ui
}

func (s *Session) saveUIState(ui models.UIState) error {
	if s.store == nil || s.identity.UserID == "" {
		return nil
	}
	if err := s.store.Save(s.identity.UserID, ui); err != nil {
		s.log.Warn().Err(err).Msg("save chat ui state failed")
		return err
	}
	return nil
}

func (s *Session) currentGen() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen, s.state != StateDisconnected
}

func (s *Session) connectedGen() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen, s.state == StateConnected
}

func (s *Session) liveLocked(gen uint64) bool {
	return s.state != StateDisconnected && s.gen == gen
}

func (s *Session) activeTargets() (room, peer string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.ActiveRoomID, s.session.ActivePeerID
}

func (s *Session) pollingActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pollingActiveLocked()
}

func (s *Session) pollingActiveLocked() bool {
	return s.state != StateDisconnected && (s.session.IsOpen || s.session.PersistentMode)
}

// markSyncedLocked records a successful fetch and promotes a connecting
// session once all three resources are in.
func (s *Session) markSyncedLocked(r resource) {
	s.synced |= r
	if s.state == StateConnecting && s.synced == resAll {
		s.state = StateConnected
		s.log.Info().Msg("chat connected")
	}
}
