package archive

import "sync"

// Snapshot is what a Slot subscriber observes: the current value, or Present
// false once the slot has been cleared. Generation is the load the value
// belongs to.
type Snapshot[T any] struct {
	Value      T
	Present    bool
	Version    uint64
	Generation uint64
}

// Slot holds the latest published value of one archive output.
// It is not a queue: subscribers only ever see the most recent value, and a
// new subscriber receives the current value immediately.
type Slot[T any] struct {
	mu      sync.Mutex
	current Snapshot[T]
	nextSub int
	subs    map[int]chan Snapshot[T]
}

func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{subs: make(map[int]chan Snapshot[T])}
}

// Get returns the current value and whether one is present.
func (s *Slot[T]) Get() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Value, s.current.Present
}

// Load returns the full current snapshot.
func (s *Slot[T]) Load() Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set replaces the value with one produced by generation gen and notifies
// subscribers.
func (s *Slot[T]) Set(gen uint64, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Snapshot[T]{Value: v, Present: true, Version: s.current.Version + 1, Generation: gen}
	s.broadcast()
}

// Clear drops the value as generation gen starts. Subscribers observe a
// snapshot with Present false; clearing an empty slot notifies no one.
func (s *Slot[T]) Clear(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current.Present {
		s.current.Generation = gen
		return
	}
	var zero T
	s.current = Snapshot[T]{Value: zero, Version: s.current.Version + 1, Generation: gen}
	s.broadcast()
}

// Subscribe returns a channel carrying the latest snapshot and a cancel func
// that closes it. Slow readers skip intermediate values.
func (s *Slot[T]) Subscribe() (<-chan Snapshot[T], func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot[T], 1)
	s.subs[id] = ch
	if s.current.Present {
		ch <- s.current
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// broadcast must be called with s.mu held. s.mu makes it the only sender,
// so draining the one-slot buffer before sending never blocks.
func (s *Slot[T]) broadcast() {
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s.current
	}
}
