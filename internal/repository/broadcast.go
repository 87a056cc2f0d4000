package repository

import (
	"sync"

	"github.com/google/uuid"
)

// Subscription is a live feed returned by a repository's Subscribe method.
// Values arrive on C in publish order. Cancel stops delivery and closes C.
type Subscription[T any] struct {
	ID string
	C  <-chan T

	hub     *hub[T]
	out     chan T
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []T
	stopped bool
	done    chan struct{}
}

// Cancel unsubscribes. It is safe to call more than once.
func (s *Subscription[T]) Cancel() {
	s.hub.remove(s.ID)
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.done)
	}
	s.cond.Broadcast()
	s.mu.Unlock()
}

func (s *Subscription[T]) enqueue(v T) {
	s.mu.Lock()
	if !s.stopped {
		s.queue = append(s.queue, v)
		s.cond.Signal()
	}
	s.mu.Unlock()
}

// pump moves queued values to the channel so publishers never wait on a
// slow reader.
func (s *Subscription[T]) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.stopped {
			s.cond.Wait()
		}
		if s.stopped {
			s.mu.Unlock()
			return
		}
		v := s.queue[0]
		var zero T
		s.queue[0] = zero
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- v:
		case <-s.done:
			return
		}
	}
}

// hub fans values out to subscribers. When clone is set every subscriber gets
// its own copy of a published value.
type hub[T any] struct {
	mu   sync.Mutex
	subs map[string]*Subscription[T]
	// order keeps delivery deterministic across subscribers.
	order []string
	clone func(T) T
}

func newHub[T any](clone func(T) T) *hub[T] {
	return &hub[T]{subs: make(map[string]*Subscription[T]), clone: clone}
}

func (h *hub[T]) subscribe(buffer int) *Subscription[T] {
	if buffer < 0 {
		buffer = 0
	}
	out := make(chan T, buffer)
	sub := &Subscription[T]{
		ID:   uuid.NewString(),
		C:    out,
		hub:  h,
		out:  out,
		done: make(chan struct{}),
	}
	sub.cond = sync.NewCond(&sub.mu)

	h.mu.Lock()
	h.subs[sub.ID] = sub
	h.order = append(h.order, sub.ID)
	h.mu.Unlock()

	go sub.pump()
	return sub
}

// publish enqueues v for every subscriber. Holding h.mu while enqueueing keeps
// concurrent publishers from interleaving differently per subscriber.
func (h *hub[T]) publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range h.order {
		if h.clone != nil {
			h.subs[id].enqueue(h.clone(v))
			continue
		}
		h.subs[id].enqueue(v)
	}
}

func (h *hub[T]) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[id]; !ok {
		return
	}
	delete(h.subs, id)
	for i, sid := range h.order {
		if sid == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

func (h *hub[T]) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
