package chat

import (
	"context"
	"strings"

	"livechat/internal/models"
)

// Send posts text to roomID (the active room when roomID is empty). Empty
// text or a session that is not connected make it a silent no-op returning
// (nil, nil). On success the server's copy of the message is appended as
// pending and an immediate message refresh is scheduled.
func (s *Session) Send(ctx context.Context, roomID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		s.log.Debug().Msg("ignoring empty message")
		return nil, nil
	}
	gen, ok := s.connectedGen()
	if !ok {
		s.log.Debug().Msg("ignoring send while not connected")
		return nil, nil
	}
	if roomID == "" {
		roomID, _ = s.activeTargets()
	}

	msg, err := s.api.SendMessage(ctx, models.SendMessageRequest{RoomID: roomID, Message: text})
	if err != nil {
		s.log.Warn().Err(err).Str("room_id", roomID).Msg("send message failed")
		return nil, err
	}
	if msg.RoomID == "" {
		msg.RoomID = roomID
	}
	msg.Status = models.MessagePending

	s.mu.Lock()
	if !s.liveLocked(gen) {
		s.mu.Unlock()
		return &msg, nil
	}
	s.messages[roomID] = upsert(s.messages[roomID], msg)
	t := s.messagesTask
	s.mu.Unlock()

	s.notify()
	t.Trigger()
	return &msg, nil
}

// SendPrivate posts text to recipientID. It follows the Send contract; the
// message is kept in the conversation with recipientID, never in a room.
func (s *Session) SendPrivate(ctx context.Context, recipientID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	recipientID = strings.TrimSpace(recipientID)
	if text == "" || recipientID == "" {
		s.log.Debug().Msg("ignoring private message without text or recipient")
		return nil, nil
	}
	gen, ok := s.connectedGen()
	if !ok {
		s.log.Debug().Msg("ignoring send while not connected")
		return nil, nil
	}

	msg, err := s.api.SendMessage(ctx, models.SendMessageRequest{RecipientID: recipientID, Message: text})
	if err != nil {
		s.log.Warn().Err(err).Str("peer_id", recipientID).Msg("send private message failed")
		return nil, err
	}
	if msg.RecipientID == "" {
		msg.RecipientID = recipientID
	}
	if msg.SenderID == "" {
		msg.SenderID = s.identity.UserID
	}
	msg.RoomID = ""
	msg.Status = models.MessagePending

	s.mu.Lock()
	if !s.liveLocked(gen) {
		s.mu.Unlock()
		return &msg, nil
	}
	s.conversations[recipientID] = upsert(s.conversations[recipientID], msg)
	t := s.messagesTask
	s.mu.Unlock()

	s.notify()
	t.Trigger()
	return &msg, nil
}

// SetDraft replaces the compose field contents.
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()
	s.notify()
}

func (s *Session) Draft() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft
}

// SubmitDraft sends the compose field to the selected private conversation,
// or to the active room when none is selected. The field is cleared only
// when the send succeeds, so a failed send can be retried.
func (s *Session) SubmitDraft(ctx context.Context) (*models.Message, error) {
	s.mu.RLock()
	draft := s.draft
	room, peer := s.session.ActiveRoomID, s.session.ActivePeerID
	s.mu.RUnlock()

	var (
		msg *models.Message
		err error
	)
	if peer != "" {
		msg, err = s.SendPrivate(ctx, peer, draft)
	} else {
		msg, err = s.Send(ctx, room, draft)
	}
	if err != nil || msg == nil {
		return msg, err
	}

	s.mu.Lock()
	if s.draft == draft {
		s.draft = ""
	}
	s.mu.Unlock()
	s.notify()
	return msg, nil
}
