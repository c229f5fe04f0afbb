package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/encodeous/dvsim/state"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

var ErrAlreadyStarted = errors.New("network already started")

// Network wires one router per node to a shared bus and runs them until the
// convergence monitor is satisfied.
type Network struct {
	cfg       state.TopologyCfg
	bus       *Bus
	routers   map[state.NodeId]*DvRouter
	order     []state.NodeId
	log       *slog.Logger
	observers []ChangeObserver
	maxRounds int
	dedupTTL  time.Duration
	clock     clockwork.Clock
	started   atomic.Bool
	stopOnce  sync.Once
}

type Option func(n *Network)

func WithLogger(log *slog.Logger) Option {
	return func(n *Network) {
		n.log = log
	}
}

// WithObserver registers an observer for every route change in the network. It may be given more than once.
func WithObserver(o ChangeObserver) Option {
	return func(n *Network) {
		n.observers = append(n.observers, o)
	}
}

// WithMaxRounds overrides the round bound of the topology.
func WithMaxRounds(rounds int) Option {
	return func(n *Network) {
		n.maxRounds = rounds
	}
}

// WithClock replaces the clock used for timing rounds and dispatches.
func WithClock(clock clockwork.Clock) Option {
	return func(n *Network) {
		n.clock = clock
	}
}

func WithDedupTTL(ttl time.Duration) Option {
	return func(n *Network) {
		n.dedupTTL = ttl
	}
}

// NewNetwork validates the topology and builds, but does not start, the routers.
func NewNetwork(cfg *state.TopologyCfg, opts ...Option) (*Network, error) {
	n := &Network{
		cfg:      *cfg,
		routers:  make(map[state.NodeId]*DvRouter),
		dedupTTL: state.SeqnoDedupTTL,
		clock:    clockwork.NewRealClock(),
	}
	n.cfg.Edges = slices.Clone(cfg.Edges)
	for _, opt := range opts {
		opt(n)
	}
	if n.log == nil {
		n.log = NewLogger(slog.LevelInfo, "dvsim")
	}
	err := state.ExpandTopology(&n.cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", state.ErrInvalidTopology, err)
	}
	err = state.TopologyValidator(&n.cfg)
	if err != nil {
		return nil, err
	}
	if n.maxRounds <= 0 {
		n.maxRounds = n.cfg.RoundBound()
	}

	n.bus = NewBus(n.log.With("component", "bus"))
	var observer ChangeObserver
	switch len(n.observers) {
	case 0:
	case 1:
		observer = n.observers[0]
	default:
		observer = multiObserver(n.observers)
	}

	tables := n.cfg.LinkTables()
	n.order = slices.Sorted(maps.Keys(tables))
	for _, id := range n.order {
		n.routers[id] = NewDvRouter(id, tables[id], n.bus,
			WithRouterLogger(n.log.With("node", id)),
			WithRouterObserver(observer),
			WithSeqnoDedupTTL(n.dedupTTL),
			WithRouterClock(n.clock),
		)
	}
	n.log.Debug("built network", "nodes", len(n.order), "edges", len(n.cfg.Triples()), "max_rounds", n.maxRounds)
	return n, nil
}

// Run starts every router, drives them to convergence and stops them again.
// The tables stay readable through Snapshot afterwards, whatever the outcome.
func (n *Network) Run(ctx context.Context) (Result, error) {
	if n.started.Swap(true) {
		return Result{}, ErrAlreadyStarted
	}
	g, gctx := errgroup.WithContext(ctx)
	flushers := make([]Flusher, 0, len(n.order))
	for _, id := range n.order {
		r := n.routers[id]
		flushers = append(flushers, r)
		g.Go(func() error {
			return r.Run(gctx)
		})
	}

	n.log.Info("starting simulation", "nodes", len(n.order))
	res, err := NewMonitor(n.bus, flushers, n.maxRounds, n.clock, n.log.With("component", "monitor")).Run(gctx)
	n.Stop()
	if werr := g.Wait(); werr != nil && err == nil {
		err = werr
	}
	if err != nil && ctx.Err() != nil {
		// routers shutting down under a cancelled context surface as ErrRouterStopped
		err = fmt.Errorf("simulation cancelled: %w", context.Cause(ctx))
	}
	if err != nil {
		n.log.Error("simulation aborted", "error", err, "rounds", res.Rounds)
		return res, err
	}
	return res, nil
}

// Stop asks every router to exit. It is safe to call more than once.
func (n *Network) Stop() {
	n.stopOnce.Do(func() {
		for _, id := range n.order {
			n.routers[id].Stop()
		}
	})
}

// Nodes returns every node id in sorted order.
func (n *Network) Nodes() []state.NodeId {
	return slices.Clone(n.order)
}

func (n *Network) Router(id state.NodeId) (*DvRouter, bool) {
	r, ok := n.routers[id]
	return r, ok
}

func (n *Network) Bus() *Bus {
	return n.bus
}

func (n *Network) Snapshot(id state.NodeId) (state.Snapshot, error) {
	r, ok := n.routers[id]
	if !ok {
		return state.Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	return r.Snapshot(context.Background())
}

func (n *Network) Snapshots() (map[state.NodeId]state.Snapshot, error) {
	out := make(map[state.NodeId]state.Snapshot, len(n.order))
	for _, id := range n.order {
		snap, err := n.Snapshot(id)
		if err != nil {
			return nil, err
		}
		out[id] = snap
	}
	return out, nil
}
