package chat

import (
	"context"
	"strings"

	"livechat/internal/models"
)

// CanModerate reports whether the logged-in user may be offered moderation
// actions.
func (s *Session) CanModerate() bool {
	return s.identity.Role.IsPrivileged()
}

// BanUser asks the server to ban userID from chat. The user is not removed
// from the local presence set; the next presence poll reflects the ban.
// A non-privileged caller gets the server's refusal as a transport error.
func (s *Session) BanUser(ctx context.Context, userID, reason string) error {
	userID = strings.TrimSpace(userID)
	reason = strings.TrimSpace(reason)
	if userID == "" {
		return ErrNoUserSelected
	}
	if reason == "" {
		return ErrReasonRequired
	}
	if _, ok := s.currentGen(); !ok {
		return ErrNotConnected
	}

	if err := s.api.BanUser(ctx, models.BanUserRequest{UserID: userID, Reason: reason}); err != nil {
		s.log.Warn().Err(err).Str("target_id", userID).Msg("ban user failed")
		return err
	}
	s.log.Info().Str("target_id", userID).Str("reason", reason).Msg("user banned from chat")
	return nil
}
