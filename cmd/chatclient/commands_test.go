package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livechat/internal/auth"
	"livechat/internal/chat"
	"livechat/internal/config"
	"livechat/internal/database"
	"livechat/internal/handlers"
	"livechat/internal/models"
	"livechat/internal/services"
	"livechat/internal/statestore"
	"livechat/internal/transport"
	ws "livechat/internal/websocket"
)

var (
	alice = models.Identity{UserID: "u1", Username: "alice", Role: models.RoleRegular}
	bob   = models.Identity{UserID: "u2", Username: "bob", Role: models.RoleRegular}
	boss  = models.Identity{UserID: "a1", Username: "boss", Role: models.RoleSuperAdmin}
)

type env struct {
	url  string
	auth *auth.Service
	chat *services.ChatService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	authService := auth.NewService(config.JWTConfig{Secret: []byte("cli-secret"), ExpiresIn: time.Hour})
	chatService := services.NewChatService(database.NewMemoryDB(), database.NewMemoryPresence(time.Minute), 500)
	require.NoError(t, chatService.EnsureRooms(context.Background(), services.DefaultRooms))
	hubs := ws.NewManager(time.Hour)

	srv := httptest.NewServer(handlers.NewRouter(authService, chatService, hubs))
	t.Cleanup(func() {
		srv.Close()
		hubs.Close()
	})
	return &env{url: srv.URL, auth: authService, chat: chatService}
}

func (e *env) session(t *testing.T, id models.Identity) *chat.Session {
	t.Helper()
	token, err := e.auth.GenerateToken(id)
	require.NoError(t, err)

	store, err := statestore.OpenPebble("", statestore.InMemory())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	api := chat.NewRESTClient(transport.NewClient(e.url, token))
	sess := chat.NewSession(api, id,
		chat.WithStore(store),
		chat.WithConfig(chat.Config{
			PresenceInterval: time.Hour,
			RoomsInterval:    time.Hour,
			MessagesInterval: time.Hour,
		}),
	)
	require.NoError(t, sess.Connect(context.Background()))
	t.Cleanup(sess.Disconnect)
	return sess
}

func run(t *testing.T, sess *chat.Session, line string) (string, bool) {
	t.Helper()
	var out bytes.Buffer
	quit, err := execute(context.Background(), sess, line, &out)
	require.NoError(t, err)
	return out.String(), quit
}

func TestExecute_SendsPlainLines(t *testing.T) {
	e := newEnv(t)
	sess := e.session(t, alice)
	require.Equal(t, chat.StateConnected, sess.State())

	run(t, sess, "first bet of the day")

	msgs := sess.RoomMessages("general")
	require.Len(t, msgs, 1)
	assert.Equal(t, "first bet of the day", msgs[0].Text)
	assert.Empty(t, sess.Draft())

	stored, err := e.chat.Messages(context.Background(), "general")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, msgs[0].ID, stored[0].ID)
}

func TestExecute_RoomAndConversation(t *testing.T) {
	e := newEnv(t)
	sess := e.session(t, alice)

	run(t, sess, "/room sports")
	run(t, sess, "odds look good")
	require.Eventually(t, func() bool {
		return len(sess.RoomMessages("sports")) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, sess.RoomMessages("general"))

	run(t, sess, "/pm u2")
	assert.Equal(t, "u2", sess.Snapshot().Session.ActivePeerID)
	run(t, sess, "psst")

	conv, err := e.chat.PrivateMessages(context.Background(), bob, "u1")
	require.NoError(t, err)
	require.Len(t, conv, 1)
	assert.Equal(t, "psst", conv[0].Text)

	run(t, sess, "/pm")
	assert.Empty(t, sess.Snapshot().Session.ActivePeerID)
	assert.Equal(t, "sports", sess.Snapshot().Session.ActiveRoomID)
}

func TestExecute_Listings(t *testing.T) {
	e := newEnv(t)
	sess := e.session(t, alice)

	out, _ := run(t, sess, "/rooms")
	assert.Contains(t, out, "general")
	assert.Contains(t, out, "Sports Betting")

	out, _ = run(t, sess, "/who")
	assert.Contains(t, out, "alice")

	out, _ = run(t, sess, "/help")
	assert.Contains(t, out, "/persist on|off")
}

func TestExecute_UIState(t *testing.T) {
	e := newEnv(t)
	sess := e.session(t, alice)

	run(t, sess, "/open")
	run(t, sess, "/minimize")
	run(t, sess, "/persist on")
	ui := sess.Snapshot().Session.UIState
	assert.Equal(t, models.UIState{IsOpen: true, IsMinimized: true, PersistentMode: true}, ui)

	run(t, sess, "/restore")
	run(t, sess, "/close")
	run(t, sess, "/persist off")
	assert.Equal(t, models.UIState{}, sess.Snapshot().Session.UIState)
}

func TestExecute_Ban(t *testing.T) {
	e := newEnv(t)
	e.session(t, bob)

	regular := e.session(t, alice)
	var out bytes.Buffer
	_, err := execute(context.Background(), regular, "/ban u2 spam", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
	assert.False(t, transport.IsForbidden(err))
	assert.Contains(t, onlineIDs(t, e), "u2")

	mod := e.session(t, boss)
	var modErr bytes.Buffer
	_, err = execute(context.Background(), mod, "/ban u2", &modErr)
	assert.ErrorIs(t, err, chat.ErrReasonRequired)

	got, _ := run(t, mod, "/ban u2 spamming links")
	assert.Contains(t, got, "u2 banned")
	assert.NotContains(t, onlineIDs(t, e), "u2")
}

func TestExecute_HelpOffersBanToModeratorsOnly(t *testing.T) {
	e := newEnv(t)

	got, _ := run(t, e.session(t, alice), "/help")
	assert.NotContains(t, got, "/ban")

	got, _ = run(t, e.session(t, boss), "/help")
	assert.Contains(t, got, "/ban <user-id> <reason>")
}

func onlineIDs(t *testing.T, e *env) []string {
	t.Helper()
	online, err := e.chat.OnlineUsers(context.Background())
	require.NoError(t, err)
	out := make([]string, 0, len(online))
	for _, u := range online {
		out = append(out, u.UserID)
	}
	return out
}

func TestExecute_Errors(t *testing.T) {
	e := newEnv(t)
	sess := e.session(t, alice)

	tests := []string{"/room", "/persist maybe", "/dance", "/ban u2"}
	for _, line := range tests {
		t.Run(line, func(t *testing.T) {
			var out bytes.Buffer
			quit, err := execute(context.Background(), sess, line, &out)
			assert.Error(t, err)
			assert.False(t, quit)
		})
	}

	_, quit := run(t, sess, "/quit")
	assert.True(t, quit)
}

func TestPrinter_RendersEachMessageOnce(t *testing.T) {
	var out bytes.Buffer
	p := newPrinter(&out)

	snap := chat.Snapshot{
		State:   chat.StateConnected,
		Session: models.ChatSessionState{ActiveRoomID: "general"},
		Messages: []models.Message{
			{ID: "m1", SenderUsername: "alice", Text: "hello", Timestamp: time.Now()},
			{ID: "m2", Text: "bob was banned", IsSystem: true, Timestamp: time.Now()},
		},
	}
	p.render(snap)
	p.render(snap)

	got := out.String()
	assert.Equal(t, 1, bytes.Count([]byte(got), []byte("<alice> hello")))
	assert.Contains(t, got, "* bob was banned")
	assert.Contains(t, got, "* connected")
	assert.Contains(t, got, "now viewing #general")
}

func TestOpenOnStart(t *testing.T) {
	tests := []struct {
		name string
		ui   models.UIState
		want bool
	}{
		{name: "fresh state", ui: models.UIState{}, want: true},
		{name: "already open", ui: models.UIState{IsOpen: true}, want: false},
		{name: "closed persistent", ui: models.UIState{PersistentMode: true}, want: false},
		{name: "open minimized", ui: models.UIState{IsOpen: true, IsMinimized: true}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, openOnStart(tt.ui))
		})
	}
}

func TestOpenOnStart_KeepsPersistedState(t *testing.T) {
	e := newEnv(t)
	token, err := e.auth.GenerateToken(alice)
	require.NoError(t, err)

	store, err := statestore.OpenPebble("", statestore.InMemory())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	api := chat.NewRESTClient(transport.NewClient(e.url, token))
	first := chat.NewSession(api, alice, chat.WithStore(store))
	require.NoError(t, first.Connect(context.Background()))
	require.NoError(t, first.SetPersistentMode(true))
	first.Disconnect()

	second := chat.NewSession(api, alice, chat.WithStore(store))
	require.NoError(t, second.Connect(context.Background()))
	t.Cleanup(second.Disconnect)

	ui := second.Snapshot().Session.UIState
	assert.True(t, ui.PersistentMode)
	assert.False(t, openOnStart(ui))
}
