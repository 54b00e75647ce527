package submission

import "sync"

// Hub pushes submission changes to in-process subscribers, the way the
// review dashboard and lesson pages keep themselves current. Every mutation
// the service persists is broadcast to every subscriber whose filter matches.
type (
	// Filter limits the events a subscriber receives. Zero-value matches
	// everything (the reviewer dashboard case).
	Filter struct {
		StudentID string
		LessonID  string
	}

	subscriber struct {
		filter Filter
		ch     chan Submission
	}

	Hub struct {
		mu   sync.RWMutex
		subs map[int]*subscriber
		next int
	}
)

func NewHub() *Hub {
	return &Hub{subs: make(map[int]*subscriber)}
}

func (f Filter) matches(sub Submission) bool {
	if f.StudentID != "" && f.StudentID != sub.StudentID {
		return false
	}
	if f.LessonID != "" && f.LessonID != sub.LessonID {
		return false
	}
	return true
}

// Subscribe registers for change notifications. The returned cancel func
// must be called to release the subscription.
func (h *Hub) Subscribe(filter Filter) (<-chan Submission, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	sub := &subscriber{filter: filter, ch: make(chan Submission, 16)}
	h.subs[id] = sub

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if s, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// broadcast delivers without blocking; slow subscribers miss events rather
// than stalling mutations.
func (h *Hub) broadcast(sub Submission) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.subs {
		if !s.filter.matches(sub) {
			continue
		}
		select {
		case s.ch <- sub:
		default:
		}
	}
}
