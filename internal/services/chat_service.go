package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	"livechat/internal/database"
	"livechat/internal/models"
	"livechat/pkg/logger"
)

const historyLimit = 100

var (
	ErrBanned           = errors.New("user is banned from chat")
	ErrForbidden        = errors.New("forbidden")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrMessageTooLong   = errors.New("message is too long")
	ErrNoTarget         = errors.New("exactly one of room_id or recipient_id is required")
	ErrInvalidRecipient = errors.New("invalid recipient")
	ErrInvalidBan       = errors.New("user_id and reason are required")
	ErrRoomNotFound     = database.ErrRoomNotFound
)

// ChatService holds the chat rules the API enforces: who may post, what a
// message may contain, and what a ban does.
type ChatService struct {
	db       database.Database
	presence database.PresenceStore
	policy   *bluemonday.Policy
	maxLen   int
	now      func() time.Time

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy

	listenersMu sync.RWMutex
	listeners   []func(models.Message)
}

func NewChatService(db database.Database, presence database.PresenceStore, maxLen int) *ChatService {
	return &ChatService{
		db:       db,
		presence: presence,
		policy:   bluemonday.StrictPolicy(),
		maxLen:   maxLen,
		now:      time.Now,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
}

// OnMessage registers fn to be called with every stored message.
func (s *ChatService) OnMessage(fn func(models.Message)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Authorize rejects banned callers and refreshes their presence. roomID may
// be empty when the request does not concern a room.
func (s *ChatService) Authorize(ctx context.Context, id models.Identity, roomID string) error {
	banned, err := s.db.IsBanned(ctx, id.UserID)
	if err != nil {
		return fmt.Errorf("check ban: %w", err)
	}
	if banned {
		return ErrBanned
	}
	if err := s.presence.Touch(ctx, id.Presence(), roomID); err != nil {
		logger.Warn("Error updating presence for %s: %v", id.UserID, err)
	}
	return nil
}

func (s *ChatService) OnlineUsers(ctx context.Context) ([]models.PresenceEntry, error) {
	records, err := s.presence.List(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]models.PresenceEntry, 0, len(records))
	for _, r := range records {
		users = append(users, r.PresenceEntry)
	}
	return users, nil
}

func (s *ChatService) Messages(ctx context.Context, roomID string) ([]models.Message, error) {
	if _, err := s.db.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return s.db.LoadRecentMessages(ctx, roomID, historyLimit)
}

func (s *ChatService) PrivateMessages(ctx context.Context, self models.Identity, peerID string) ([]models.Message, error) {
	peerID = strings.TrimSpace(peerID)
	if peerID == "" || peerID == self.UserID {
		return nil, ErrInvalidRecipient
	}
	return s.db.LoadConversation(ctx, self.UserID, peerID, historyLimit)
}

// SendMessage stores a message from sender to a room or, when
// req.RecipientID is set, to one user.
func (s *ChatService) SendMessage(ctx context.Context, sender models.Identity, req models.SendMessageRequest) (models.Message, error) {
	text, err := s.sanitize(req.Message)
	if err != nil {
		return models.Message{}, err
	}

	roomID := strings.TrimSpace(req.RoomID)
	recipientID := strings.TrimSpace(req.RecipientID)
	if (roomID == "") == (recipientID == "") {
		return models.Message{}, ErrNoTarget
	}
	if recipientID == sender.UserID {
		return models.Message{}, ErrInvalidRecipient
	}
	if roomID != "" {
		if _, err := s.db.GetRoom(ctx, roomID); err != nil {
			return models.Message{}, err
		}
	}

	msg := models.Message{
		ID:             s.newID(),
		RoomID:         roomID,
		SenderID:       sender.UserID,
		RecipientID:    recipientID,
		SenderUsername: sender.Username,
		Text:           text,
		Timestamp:      s.now().UTC(),
	}
	if err := s.store(ctx, msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// BanUser records a ban, drops the user from presence and announces it in
// the general room. Only privileged roles may ban.
func (s *ChatService) BanUser(ctx context.Context, actor models.Identity, req models.BanUserRequest) error {
	if !actor.Role.IsPrivileged() {
		return ErrForbidden
	}
	userID := strings.TrimSpace(req.UserID)
	reason := strings.TrimSpace(req.Reason)
	if userID == "" || reason == "" || userID == actor.UserID {
		return ErrInvalidBan
	}

	ban := models.BanRecord{
		UserID:    userID,
		Reason:    s.policy.Sanitize(reason),
		BannedBy:  actor.UserID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.db.SaveBan(ctx, ban); err != nil {
		return fmt.Errorf("save ban: %w", err)
	}
	if err := s.presence.Remove(ctx, userID); err != nil {
		logger.Warn("Error removing presence for banned user %s: %v", userID, err)
	}
	logger.Info("User %s banned by %s: %s", userID, actor.UserID, ban.Reason)

	notice := models.Message{
		ID:             s.newID(),
		RoomID:         models.DefaultRoomID,
		SenderUsername: "system",
		Text:           fmt.Sprintf("User %s has been banned from chat. Reason: %s", userID, ban.Reason),
		Timestamp:      ban.CreatedAt,
		IsSystem:       true,
	}
	if err := s.store(ctx, notice); err != nil {
		logger.Error("Error posting ban notice: %v", err)
	}
	return nil
}

// sanitize strips markup and returns plain text. Entities the policy escapes
// are decoded again; clients escape on render.
func (s *ChatService) sanitize(raw string) (string, error) {
	text := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(strings.TrimSpace(raw))))
	if text == "" {
		return "", ErrEmptyMessage
	}
	if s.maxLen > 0 && utf8.RuneCountInString(text) > s.maxLen {
		return "", ErrMessageTooLong
	}
	return text, nil
}

func (s *ChatService) store(ctx context.Context, msg models.Message) error {
	if err := s.db.SaveMessage(ctx, msg); err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	for _, fn := range s.listeners {
		fn(msg)
	}
	return nil
}

func (s *ChatService) newID() string {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.now().UTC()), s.entropy).String()
}
