package core

import (
	"errors"
	"sync"
)

var ErrRouterStopped = errors.New("router stopped")

type envelope struct {
	run func(*DvRouter) error
	// drop is called instead of run if the router stops first
	drop func()
}

// mailbox is an unbounded FIFO of work for a single router goroutine.
// Pushing never blocks, so routers sending to each other cannot deadlock.
type mailbox struct {
	mu     sync.Mutex
	queue  []envelope
	signal chan struct{}
	closed bool
}

func newMailbox() *mailbox {
	return &mailbox{
		signal: make(chan struct{}, 1),
	}
}

func (m *mailbox) push(env envelope) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrRouterStopped
	}
	m.queue = append(m.queue, env)
	m.mu.Unlock()
	select {
	case m.signal <- struct{}{}:
	default:
	}
	return nil
}

// pop removes the oldest item, if any.
func (m *mailbox) pop() (envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return envelope{}, false
	}
	env := m.queue[0]
	m.queue[0] = envelope{}
	m.queue = m.queue[1:]
	return env, true
}

// close rejects further pushes and drops whatever was still queued.
func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	rest := m.queue
	m.queue = nil
	m.mu.Unlock()
	for _, env := range rest {
		if env.drop != nil {
			env.drop()
		}
	}
}

func (m *mailbox) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
