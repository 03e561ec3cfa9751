// Package statestore persists the UI-level chat session state across
// reloads. Each logged-in user gets its own key.
package statestore

import (
	"errors"

	"livechat/internal/models"
)

var ErrEmptyScope = errors.New("state scope is required")

type Store interface {
	// Load returns the zero UIState when nothing was saved for scope.
	Load(scope string) (models.UIState, error)
	Save(scope string, state models.UIState) error
	Close() error
}

func key(scope string) []byte {
	return []byte("chat:ui-state:" + scope)
}
