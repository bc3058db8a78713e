package state

import "sync"

// Unsubscribe stops further notifications to the observer it was returned for.
type Unsubscribe func()

// Option configures a Writable.
type Option[T any] func(*Writable[T])

// WithEqual sets the comparison used by Set to decide whether a write is a
// change. Writes judged equal are stored but not broadcast.
func WithEqual[T any](equal func(a, b T) bool) Option[T] {
	return func(w *Writable[T]) {
		w.equal = equal
	}
}

type subscriber[T any] struct {
	fn     func(T)
	active bool
}

type notification[T any] struct {
	sub   *subscriber[T]
	value T
}

// Writable holds a single value and notifies subscribers whenever it changes.
//
// Observers run synchronously on the goroutine that delivers a change, in
// registration order, with no lock held. A mutation made from inside an
// observer is committed at once but its notifications are queued behind the
// pass already running, so every observer sees every committed value in
// commit order.
type Writable[T any] struct {
	mu       sync.Mutex
	value    T
	equal    func(a, b T) bool
	subs     []*subscriber[T]
	queue    []notification[T]
	draining bool
}

func NewWritable[T any](initial T, opts ...Option[T]) *Writable[T] {
	w := &Writable[T]{value: initial}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Get returns the current value.
func (w *Writable[T]) Get() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

// Len reports how many observers are registered.
func (w *Writable[T]) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}

// Subscribe registers fn and calls it once with the current value before
// returning.
func (w *Writable[T]) Subscribe(fn func(T)) Unsubscribe {
	sub := &subscriber[T]{fn: fn, active: true}

	w.mu.Lock()
	w.subs = append(w.subs, sub)
	current := w.value
	w.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() { w.remove(sub) })
	}
}

// Set stores v and notifies every observer unless v equals the current value.
func (w *Writable[T]) Set(v T) {
	w.mu.Lock()
	if w.equal != nil && w.equal(w.value, v) {
		w.value = v
		w.mu.Unlock()
		return
	}
	w.value = v
	for _, sub := range w.subs {
		w.queue = append(w.queue, notification[T]{sub: sub, value: v})
	}
	if w.draining {
		w.mu.Unlock()
		return
	}
	w.draining = true
	w.mu.Unlock()

	w.drain()
}

// Update replaces the value with fn applied to the current one.
func (w *Writable[T]) Update(fn func(T) T) {
	w.Set(fn(w.Get()))
}

// drain delivers queued notifications until the queue is empty. If an
// observer panics, the rest of the queue is dropped and the Writable is left
// ready for the next Set.
func (w *Writable[T]) drain() {
	finished := false
	defer func() {
		if finished {
			return
		}
		w.mu.Lock()
		w.queue = nil
		w.draining = false
		w.mu.Unlock()
	}()

	for {
		w.mu.Lock()
		if len(w.queue) == 0 {
			w.queue = nil
			w.draining = false
			finished = true
			w.mu.Unlock()
			return
		}
		next := w.queue[0]
		w.queue[0] = notification[T]{}
		w.queue = w.queue[1:]
		active := next.sub.active
		w.mu.Unlock()

		if active {
			next.sub.fn(next.value)
		}
	}
}

func (w *Writable[T]) remove(sub *subscriber[T]) {
	w.mu.Lock()
	defer w.mu.Unlock()

	sub.active = false
	for i, s := range w.subs {
		if s == sub {
			w.subs = append(w.subs[:i:i], w.subs[i+1:]...)
			return
		}
	}
}
