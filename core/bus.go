package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/encodeous/dvsim/perf"
	"github.com/encodeous/dvsim/state"
)

var ErrUnknownNode = errors.New("unknown node")

// Inbox accepts messages on behalf of a router. done must be called exactly
// once, after the message has been fully processed or discarded.
type Inbox interface {
	Deliver(msg state.UpdateMessage, done func()) error
}

// Bus delivers update messages between routers. Messages from one sender to one
// receiver arrive in send order; there is no ordering across senders. Nothing is
// dropped or duplicated.
type Bus struct {
	mu      sync.Mutex
	inboxes map[state.NodeId]Inbox
	pending int
	// idle is closed whenever pending is zero
	idle chan struct{}
	log  *slog.Logger
}

func NewBus(log *slog.Logger) *Bus {
	idle := make(chan struct{})
	close(idle)
	return &Bus{
		inboxes: make(map[state.NodeId]Inbox),
		idle:    idle,
		log:     log,
	}
}

func (b *Bus) Register(id state.NodeId, inbox Inbox) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inboxes[id] = inbox
}

func (b *Bus) Unregister(id state.NodeId) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.inboxes, id)
}

// Send enqueues msg for delivery to the router `to`. It may block if the
// receiving inbox applies backpressure, in which case ctx bounds the wait.
func (b *Bus) Send(ctx context.Context, from, to state.NodeId, msg state.UpdateMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	inbox, ok := b.inboxes[to]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s (from %s)", ErrUnknownNode, to, from)
	}
	b.addPending()
	b.mu.Unlock()

	err := inbox.Deliver(msg, b.done)
	if err != nil {
		b.done()
		return err
	}
	perf.UpdatesSent.Add(1)
	return nil
}

// must hold mu
func (b *Bus) addPending() {
	if b.pending == 0 {
		b.idle = make(chan struct{})
	}
	b.pending++
}

func (b *Bus) done() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == 0 {
		b.log.Error("bus pending count went negative")
		return
	}
	b.pending--
	if b.pending == 0 {
		close(b.idle)
	}
}

// Pending returns the number of messages sent but not yet processed.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

// WaitIdle blocks until every sent message has been processed.
func (b *Bus) WaitIdle(ctx context.Context) error {
	b.mu.Lock()
	idle := b.idle
	b.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
