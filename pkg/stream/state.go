// Package stream provides a single-value publish/subscribe cell. Subscribers
// receive the current value as soon as they subscribe and then every later
// value; a slow subscriber only ever sees the latest one.
package stream

import (
	"context"
	"sync"
)

type State[T any] struct {
	mu     sync.RWMutex
	value  T
	nextID uint64
	subs   map[uint64]chan T
}

func NewState[T any](initial T) *State[T] {
	return &State[T]{
		value: initial,
		subs:  make(map[uint64]chan T),
	}
}

func (s *State[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

func (s *State[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
	for _, ch := range s.subs {
		offer(ch, v)
	}
}

// Update applies fn to the current value under the write lock and publishes
// the result.
func (s *State[T]) Update(fn func(T) T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = fn(s.value)
	for _, ch := range s.subs {
		offer(ch, s.value)
	}
	return s.value
}

// Subscribe returns a channel that is closed once ctx is done.
func (s *State[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.value
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

func (s *State[T]) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// offer replaces whatever is buffered in ch with v. Callers hold the write
// lock, so nobody else sends on ch concurrently.
func offer[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	ch <- v
}
