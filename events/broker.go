// Package events is a small publish/subscribe primitive. Consumers hold a Subscription for as
// long as they want deliveries and release it when they detach.
package events

import (
	"sync"
)

// Handler receives published values.
type Handler[T any] func(T)

type entry[T any] struct {
	id      uint64
	handler Handler[T]
}

// Broker delivers each published value synchronously to every current subscriber, in
// subscription order.
type Broker[T any] struct {
	mu      sync.RWMutex
	nextID  uint64
	entries []entry[T]
}

// NewBroker creates an empty broker.
func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{}
}

// Subscribe attaches handler until the returned Subscription is released.
func (b *Broker[T]) Subscribe(handler Handler[T]) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.entries = append(b.entries, entry[T]{id: id, handler: handler})
	return &Subscription{cancel: func() { b.remove(id) }}
}

// Publish delivers v to the subscribers attached at the time of the call.
func (b *Broker[T]) Publish(v T) {
	b.mu.RLock()
	handlers := make([]Handler[T], 0, len(b.entries))
	for _, e := range b.entries {
		handlers = append(handlers, e.handler)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(v)
	}
}

// Len returns the number of attached subscribers.
func (b *Broker[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

func (b *Broker[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.entries {
		if e.id == id {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return
		}
	}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe detaches the handler. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}
