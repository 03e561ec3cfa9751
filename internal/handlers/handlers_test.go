package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livechat/internal/auth"
	"livechat/internal/config"
	"livechat/internal/database"
	"livechat/internal/models"
	"livechat/internal/services"
	ws "livechat/internal/websocket"
)

type testServer struct {
	*httptest.Server
	auth *auth.Service
	hubs *ws.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	authService := auth.NewService(config.JWTConfig{Secret: []byte("handler-secret"), ExpiresIn: time.Hour})
	chatService := services.NewChatService(database.NewMemoryDB(), database.NewMemoryPresence(time.Minute), 200)
	require.NoError(t, chatService.EnsureRooms(context.Background(), services.DefaultRooms))

	hubs := ws.NewManager(time.Hour)
	chatService.OnMessage(hubs.Publish)

	srv := httptest.NewServer(NewRouter(authService, chatService, hubs))
	t.Cleanup(func() {
		srv.Close()
		hubs.Close()
	})
	return &testServer{Server: srv, auth: authService, hubs: hubs}
}

func (s *testServer) token(t *testing.T, id models.Identity) string {
	t.Helper()
	tok, err := s.auth.GenerateToken(id)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, token, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

var (
	alice = models.Identity{UserID: "u1", Username: "alice", Role: models.RoleRegular}
	bob   = models.Identity{UserID: "u2", Username: "bob", Role: models.RoleRegular}
	boss  = models.Identity{UserID: "a1", Username: "boss", Role: models.RoleSuperAdmin}
)

func TestRouter_RequiresToken(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing", token: ""},
		{name: "garbage", token: "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := srv.do(t, tt.token, http.MethodGet, "/chat/rooms", nil)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_TokenQueryParameter(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/chat/rooms?token=" + srv.token(t, alice))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_RoomsAndPresence(t *testing.T) {
	srv := newTestServer(t)
	aliceTok, bobTok := srv.token(t, alice), srv.token(t, bob)

	srv.do(t, bobTok, http.MethodGet, "/chat/messages/sports", nil)
	resp := srv.do(t, aliceTok, http.MethodGet, "/chat/rooms", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rooms := decode[models.RoomsResponse](t, resp).Rooms
	require.Len(t, rooms, len(services.DefaultRooms))
	assert.Equal(t, "general", rooms[0].ID)
	for _, r := range rooms {
		if r.ID == "sports" {
			assert.Equal(t, 1, r.ParticipantCount)
		}
	}

	resp = srv.do(t, aliceTok, http.MethodGet, "/chat/online-users", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users := decode[models.OnlineUsersResponse](t, resp).OnlineUsers
	assert.Equal(t, []models.PresenceEntry{alice.Presence(), bob.Presence()}, users)
}

func TestRouter_SendAndFetchMessages(t *testing.T) {
	srv := newTestServer(t)
	tok := srv.token(t, alice)

	resp := srv.do(t, tok, http.MethodPost, "/chat/send-message", models.SendMessageRequest{RoomID: "general", Message: "good luck all"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sent := decode[models.SendMessageResponse](t, resp).Data
	assert.NotEmpty(t, sent.ID)
	assert.Equal(t, "alice", sent.SenderUsername)

	resp = srv.do(t, tok, http.MethodGet, "/chat/messages/general", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	messages := decode[models.MessagesResponse](t, resp).Messages
	require.Len(t, messages, 1)
	assert.Equal(t, sent.ID, messages[0].ID)
	assert.Equal(t, "good luck all", messages[0].Text)
}

func TestRouter_SendErrors(t *testing.T) {
	srv := newTestServer(t)
	tok := srv.token(t, alice)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{name: "empty", body: models.SendMessageRequest{RoomID: "general", Message: " "}, status: http.StatusBadRequest},
		{name: "no target", body: models.SendMessageRequest{Message: "hi"}, status: http.StatusBadRequest},
		{name: "unknown room", body: models.SendMessageRequest{RoomID: "nowhere", Message: "hi"}, status: http.StatusNotFound},
		{name: "unknown field", body: map[string]string{"room_id": "general", "message": "hi", "extra": "x"}, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := srv.do(t, tok, http.MethodPost, "/chat/send-message", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	resp := srv.do(t, tok, http.MethodGet, "/chat/messages/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_PrivateMessages(t *testing.T) {
	srv := newTestServer(t)
	aliceTok, bobTok := srv.token(t, alice), srv.token(t, bob)

	resp := srv.do(t, aliceTok, http.MethodPost, "/chat/send-message", models.SendMessageRequest{RecipientID: "u2", Message: "dm"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = srv.do(t, bobTok, http.MethodGet, "/chat/private-messages/u1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	conv := decode[models.MessagesResponse](t, resp).Messages
	require.Len(t, conv, 1)
	assert.Equal(t, "u2", conv[0].RecipientID)
	assert.Empty(t, conv[0].RoomID)

	resp = srv.do(t, bobTok, http.MethodGet, "/chat/messages/general", nil)
	assert.Empty(t, decode[models.MessagesResponse](t, resp).Messages)
}

func TestRouter_BanUser(t *testing.T) {
	srv := newTestServer(t)
	aliceTok, bobTok, bossTok := srv.token(t, alice), srv.token(t, bob), srv.token(t, boss)
	srv.do(t, bobTok, http.MethodGet, "/chat/rooms", nil)

	resp := srv.do(t, aliceTok, http.MethodPost, "/chat/admin/ban-user", models.BanUserRequest{UserID: "u2", Reason: "spam"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = srv.do(t, bossTok, http.MethodPost, "/chat/admin/ban-user", models.BanUserRequest{UserID: "u2", Reason: ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = srv.do(t, bossTok, http.MethodPost, "/chat/admin/ban-user", models.BanUserRequest{UserID: "u2", Reason: "spam"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decode[models.StatusResponse](t, resp)
	assert.True(t, status.Success)

	resp = srv.do(t, bossTok, http.MethodGet, "/chat/online-users", nil)
	for _, u := range decode[models.OnlineUsersResponse](t, resp).OnlineUsers {
		assert.NotEqual(t, "u2", u.UserID)
	}

	resp = srv.do(t, bobTok, http.MethodPost, "/chat/send-message", models.SendMessageRequest{RoomID: "general", Message: "let me in"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = srv.do(t, aliceTok, http.MethodGet, "/chat/messages/general", nil)
	messages := decode[models.MessagesResponse](t, resp).Messages
	require.Len(t, messages, 1)
	assert.True(t, messages[0].IsSystem)
}

func TestRouter_StreamDeliversNewMessages(t *testing.T) {
	srv := newTestServer(t)
	tok := srv.token(t, alice)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/stream?room_id=general"
	header := http.Header{"Authorization": []string{"Bearer " + tok}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()

	require.Eventually(t, func() bool {
		return srv.hubs.GetHubForRoom("general").ClientCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	r := srv.do(t, tok, http.MethodPost, "/chat/send-message", models.SendMessageRequest{RoomID: "general", Message: "live"})
	require.Equal(t, http.StatusCreated, r.StatusCode)
	sent := decode[models.SendMessageResponse](t, r).Data

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev models.StreamEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, models.StreamEventMessage, ev.Type)
	assert.Equal(t, sent.ID, ev.Data.ID)
	assert.Equal(t, "live", ev.Data.Text)
}

func TestRouter_StreamUnknownRoom(t *testing.T) {
	srv := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/stream?room_id=nowhere&token=" + srv.token(t, alice)
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
