// Package memory is an in-process object store for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/EgorLis/event-gallery/internal/domain"
)

type Op string

const (
	OpPut    Op = "put"
	OpGet    Op = "get"
	OpDelete Op = "delete"
)

// FaultFunc may return an error to fail the given operation on key.
type FaultFunc func(op Op, key string) error

type Store struct {
	mu      sync.RWMutex
	objects map[string]domain.Object
	fault   FaultFunc
	logger  *log.Logger
}

func New(logger *log.Logger) *Store {
	return &Store{objects: make(map[string]domain.Object), logger: logger}
}

// SetFault installs (or clears, with nil) a fault hook.
func (s *Store) SetFault(f FaultFunc) {
	s.mu.Lock()
	s.fault = f
	s.mu.Unlock()
}

func (s *Store) check(op Op, key string) error {
	if s.fault == nil {
		return nil
	}
	if err := s.fault(op, key); err != nil {
		return fmt.Errorf("%w: %s %q: %v", domain.ErrStorageUnavailable, op, key, err)
	}
	return nil
}

func (s *Store) Put(_ context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpPut, key); err != nil {
		s.logf("PUT %q failed: %v", key, err)
		return err
	}
	s.objects[key] = domain.Object{Data: append([]byte(nil), data...), ContentType: contentType}
	s.logf("PUT %q ok (%d bytes)", key, len(data))
	return nil
}

func (s *Store) Get(_ context.Context, key string) (domain.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(OpGet, key); err != nil {
		return domain.Object{}, err
	}
	obj, ok := s.objects[key]
	if !ok {
		return domain.Object{}, fmt.Errorf("%w: object %q", domain.ErrNotFound, key)
	}
	return domain.Object{Data: append([]byte(nil), obj.Data...), ContentType: obj.ContentType}, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpDelete, key); err != nil {
		s.logf("DELETE %q failed: %v", key, err)
		return err
	}
	delete(s.objects, key)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

// Keys lists stored keys with the given prefix in lexical order.
func (s *Store) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (s *Store) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
