package session

import (
	"context"
	"sync"
)

// StatusChannel tracks the agent's availability with optimistic local writes.
// Both Toggle and Set roll the local flag back when the backend rejects the
// write, so the observed value is always the target of the last successful
// mutation.
type StatusChannel struct {
	api API

	mu       sync.Mutex
	isOnline bool
}

func NewStatusChannel(api API) *StatusChannel {
	return &StatusChannel{api: api}
}

// Refresh loads the authoritative flag from the backend. On failure the local
// value (offline by default) is kept and the error is returned for logging;
// there is no retry.
func (s *StatusChannel) Refresh(ctx context.Context) error {
	agent, err := s.api.Profile(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.isOnline = agent.IsOnline
	s.mu.Unlock()
	return nil
}

func (s *StatusChannel) IsOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isOnline
}

// Toggle flips the flag optimistically and syncs it to the backend, reverting
// on failure.
func (s *StatusChannel) Toggle(ctx context.Context) error {
	s.mu.Lock()
	target := !s.isOnline
	s.mu.Unlock()
	return s.Set(ctx, target)
}

// Set writes the flag optimistically and syncs it to the backend, reverting
// on failure.
func (s *StatusChannel) Set(ctx context.Context, online bool) error {
	s.mu.Lock()
	prev := s.isOnline
	s.isOnline = online
	s.mu.Unlock()

	if err := s.api.SetAvailability(ctx, online); err != nil {
		s.mu.Lock()
		s.isOnline = prev
		s.mu.Unlock()
		return err
	}
	return nil
}
