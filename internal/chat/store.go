package chat

import "sync"

// Store owns the canonical State. Every mutation goes through Dispatch, which
// serializes writers and publishes whole snapshots, so readers never observe
// a partially applied command or event.
type Store struct {
	mu     sync.Mutex
	state  *State
	subs   map[int]chan *State
	nextID int
}

func NewStore(initial *State) *Store {
	if initial == nil {
		initial = NewState("")
	}
	return &Store{
		state: initial,
		subs:  make(map[int]chan *State),
	}
}

// State returns the current snapshot.
func (s *Store) State() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch reduces all events in order as one atomic step and returns the
// resulting snapshot. Subscribers are notified once, and only if something
// changed.
func (s *Store) Dispatch(events ...Event) *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	next := prev
	for _, event := range events {
		next = Reduce(next, event)
		eventsAppliedTotal.WithLabelValues(event.Name()).Inc()
	}
	if next == prev {
		return next
	}

	s.state = next
	for _, ch := range s.subs {
		publish(ch, next)
	}
	return next
}

// Subscribe returns a channel that always holds the latest snapshot not yet
// received; slow readers skip intermediate states. The returned func stops
// delivery and closes the channel. It does not cancel anything in flight.
func (s *Store) Subscribe() (<-chan *State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan *State, 1)
	s.subs[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, unsubscribe
}

// publish replaces any unread snapshot. Callers hold s.mu, so no other sender races.
func publish(ch chan *State, st *State) {
	select {
	case ch <- st:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- st
}
