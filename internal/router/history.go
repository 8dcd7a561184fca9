package router

import "sync"

// History is the shopper's navigation state. It implements transport.Navigator.
type History struct {
	mu      sync.Mutex
	current string
	pending string
}

// NewHistory starts at location.
func NewHistory(location string) *History {
	return &History{current: location}
}

// Push moves to location. The location is also kept as pending until taken.
func (h *History) Push(location string) {
	h.mu.Lock()
	h.current = location
	h.pending = location
	h.mu.Unlock()
}

// Current returns the current location.
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// TakePending returns the last pushed location once, then "".
func (h *History) TakePending() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	p := h.pending
	h.pending = ""
	return p
}
