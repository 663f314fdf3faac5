// Package memstore is an in-process slot. Nothing survives the process; it
// backs tests and the "memory" backend.
package memstore

import (
	"context"
	"sync"
)

type Store struct {
	mu     sync.Mutex
	data   map[string][]byte
	sets   int
	getErr error
	setErr error
}

func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = append([]byte(nil), value...)
	s.sets++
	return nil
}

func (s *Store) Close() error { return nil }

// FailGets makes every Get return err until called again with nil.
func (s *Store) FailGets(err error) {
	s.mu.Lock()
	s.getErr = err
	s.mu.Unlock()
}

// FailSets makes every Set return err until called again with nil.
func (s *Store) FailSets(err error) {
	s.mu.Lock()
	s.setErr = err
	s.mu.Unlock()
}

// Sets counts successful writes.
func (s *Store) Sets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}
