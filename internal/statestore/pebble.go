package statestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble/v2"
	"github.com/cockroachdb/pebble/v2/vfs"

	"livechat/internal/models"
)

// PebbleStore keeps UI state in a PebbleDB key-value store.
type PebbleStore struct {
	mu sync.Mutex
	db *pebble.DB
}

type Option func(*pebble.Options)

// InMemory backs the store with an in-memory filesystem.
func InMemory() Option {
	return func(o *pebble.Options) { o.FS = vfs.NewMem() }
}

func OpenPebble(dir string, opts ...Option) (*PebbleStore, error) {
	o := &pebble.Options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.FS == nil {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
		dir = filepath.Clean(dir)
	}

	db, err := pebble.Open(dir, o)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Load(scope string) (models.UIState, error) {
	var state models.UIState
	if scope == "" {
		return state, ErrEmptyScope
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	val, closer, err := s.db.Get(key(scope))
	if errors.Is(err, pebble.ErrNotFound) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("load state: %w", err)
	}
	defer closer.Close()

	if err := json.Unmarshal(val, &state); err != nil {
		return models.UIState{}, fmt.Errorf("decode state: %w", err)
	}
	return state, nil
}

func (s *PebbleStore) Save(scope string, state models.UIState) error {
	if scope == "" {
		return ErrEmptyScope
	}
	val, err := json.Marshal(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Set(key(scope), val, pebble.Sync)
}

func (s *PebbleStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
