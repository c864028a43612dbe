// Package pubsub implements a small in-process broadcast channel.
//
// Every subscriber owns a channel with a buffer of one. Publishing never
// blocks: when a subscriber has not consumed the previous value it is
// replaced by the new one (drop-oldest). This suits payloads that are full
// recomputations, such as "the collection changed" tokens or UI states.
package pubsub

import (
	"sync"

	"github.com/google/uuid"
)

// Subscription is a registered receiver on a Broker.
type Subscription[T any] struct {
	id string
	ch chan T
}

// ID identifies the subscription, mostly for logging.
func (s *Subscription[T]) ID() string { return s.id }

// C returns the receive side. It is closed on Unsubscribe or Broker.Close.
func (s *Subscription[T]) C() <-chan T { return s.ch }

// Broker fans values out to any number of subscribers.
type Broker[T any] struct {
	mu     sync.Mutex
	subs   map[string]*Subscription[T]
	closed bool
	done   chan struct{}
}

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{subs: map[string]*Subscription[T]{}, done: make(chan struct{})}
}

// Subscribe registers a new subscriber. On a closed broker the returned
// subscription's channel is already closed.
func (b *Broker[T]) Subscribe() *Subscription[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subscribeLocked()
}

// SubscribeWith registers a subscriber and delivers initial to it before any
// later Publish can reach it.
func (b *Broker[T]) SubscribeWith(initial T) *Subscription[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := b.subscribeLocked()
	if !b.closed {
		deliver(sub.ch, initial)
	}
	return sub
}

func (b *Broker[T]) subscribeLocked() *Subscription[T] {
	sub := &Subscription[T]{id: uuid.NewString(), ch: make(chan T, 1)}
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes sub and closes its channel. Calling it twice is harmless.
func (b *Broker[T]) Unsubscribe(sub *Subscription[T]) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub.id]; !ok {
		return
	}
	delete(b.subs, sub.id)
	close(sub.ch)
}

// Publish delivers v to every subscriber without blocking.
func (b *Broker[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		deliver(sub.ch, v)
	}
}

// Len returns the number of live subscribers.
func (b *Broker[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Done is closed by Close.
func (b *Broker[T]) Done() <-chan struct{} { return b.done }

// Close closes every subscriber channel. Later Publish calls are no-ops.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}

// deliver writes v into a buffer-1 channel, evicting a pending value if needed.
// Callers hold the broker lock, so there is a single writer per channel.
func deliver[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
