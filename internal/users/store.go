// Package users tracks registered usernames and who is currently online.
package users

import (
	"context"
	"errors"
	"sync"
)

var ErrNameTaken = errors.New("username already taken")

// Store holds registered usernames.
type Store interface {
	Register(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
}

// Presence mirrors the relay's online roster somewhere other processes can read it.
type Presence interface {
	MarkOnline(ctx context.Context, name string) error
	MarkOffline(ctx context.Context, name string) error
}

// MemoryStore is a process-local Store. Registrations vanish on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	names map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{names: make(map[string]struct{})}
}

func (s *MemoryStore) Register(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.names[name]; exists {
		return ErrNameTaken
	}
	s.names[name] = struct{}{}
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.names[name]
	return exists, nil
}
