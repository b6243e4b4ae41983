package backplane

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Memory is an in-process backplane. A single Memory bus can be shared by
// several gateway instances (each calling Subscribe once), which makes it
// useful both for single-instance deployments and for multi-instance tests.
type Memory struct {
	mu       sync.Mutex
	handlers []Handler
	closed   bool
}

// NewMemory creates an in-process backplane bus.
func NewMemory() *Memory {
	return &Memory{}
}

// Publish delivers the event synchronously to every subscribed handler in
// subscription order. Because delivery happens inline, events from one
// publishing goroutine arrive in publish order.
func (m *Memory) Publish(_ context.Context, ev Event) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New("backplane closed")
	}
	handlers := make([]Handler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
	return nil
}

// Subscribe registers a handler for all subsequently published events.
func (m *Memory) Subscribe(h Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("backplane closed")
	}
	m.handlers = append(m.handlers, h)
	return nil
}

// Close stops delivery; further publishes fail.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.handlers = nil
	return nil
}
