package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/fableweave/fableweave/internal/game"
)

// MemStore is an in-process SessionStore with the same snapshot semantics
// as the Redis implementation: fn always sees a fresh deep copy, and an
// error from fn leaves the stored document untouched. Backs tests and
// single-node development.
type MemStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{sessions: make(map[string][]byte)}
}

func (s *MemStore) Get(ctx context.Context, code string) (*game.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.sessions[code]
	if !ok {
		return nil, game.ErrSessionNotFound
	}
	var sess game.GameSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *MemStore) Create(ctx context.Context, sess *game.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.Code]; ok {
		return game.ErrConflict
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	s.sessions[sess.Code] = data
	return nil
}

func (s *MemStore) Update(ctx context.Context, code string, fn func(*game.GameSession) error) (*game.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.sessions[code]
	if !ok {
		return nil, game.ErrSessionNotFound
	}
	var sess game.GameSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	if err := fn(&sess); err != nil {
		return nil, err
	}
	out, err := json.Marshal(&sess)
	if err != nil {
		return nil, err
	}
	s.sessions[code] = out
	return &sess, nil
}
