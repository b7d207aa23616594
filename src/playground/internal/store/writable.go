// Package store provides an observable value holder.
package store

import (
	"sync"
)

// Subscriber is called with every new value.
type Subscriber[T any] func(T)

type subscription[T any] struct {
	id uint64
	fn Subscriber[T]
}

// Writable holds a value and notifies subscribers synchronously, in subscription
// order, whenever it changes. A Set made from inside a subscriber is queued and
// delivered once the current round of notifications has finished.
type Writable[T any] struct {
	mu        sync.Mutex
	value     T
	subs      []subscription[T]
	nextID    uint64
	pending   []T
	notifying bool
}

// NewWritable returns a Writable holding initial.
func NewWritable[T any](initial T) *Writable[T] {
	return &Writable[T]{value: initial}
}

// Get returns the current value.
func (w *Writable[T]) Get() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

// Set replaces the value and notifies subscribers.
func (w *Writable[T]) Set(v T) {
	w.mu.Lock()
	w.publishLocked(v)
}

// Update replaces the value with fn applied to the current one. fn runs under the
// store lock and must not call back into the Writable.
func (w *Writable[T]) Update(fn func(T) T) {
	w.mu.Lock()
	w.publishLocked(fn(w.value))
}

// publishLocked stores v and delivers pending values. w.mu must be held and is
// released on return.
func (w *Writable[T]) publishLocked(v T) {
	w.value = v
	w.pending = append(w.pending, v)
	if w.notifying {
		w.mu.Unlock()
		return
	}
	w.notifying = true
	for len(w.pending) > 0 {
		next := w.pending[0]
		w.pending = w.pending[1:]
		subs := make([]subscription[T], len(w.subs))
		copy(subs, w.subs)
		w.mu.Unlock()
		for _, s := range subs {
			s.fn(next)
		}
		w.mu.Lock()
	}
	w.notifying = false
	w.mu.Unlock()
}

// Subscribe registers fn for future values and returns a function that removes it.
// fn is not called with the current value.
func (w *Writable[T]) Subscribe(fn Subscriber[T]) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	id := w.nextID
	w.subs = append(w.subs, subscription[T]{id: id, fn: fn})
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		for i, s := range w.subs {
			if s.id == id {
				w.subs = append(w.subs[:i:i], w.subs[i+1:]...)
				return
			}
		}
	}
}
