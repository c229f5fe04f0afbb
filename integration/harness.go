package integration

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/state"
)

type Signal chan bool

func NewSignal() Signal {
	return make(chan bool)
}
func (s Signal) Trigger() {
	select {
	case <-s:
	default:
		close(s)
	}
}
func (s Signal) Triggered() bool {
	select {
	case <-s:
		return true
	default:
		return false
	}
}
func (s Signal) Wait() {
	<-s
}

type VirtualLink struct {
	Edge    state.Pair[state.NodeId, state.NodeId]
	Cost    float64
	Latency time.Duration
	Jitter  time.Duration
}

func (v *VirtualLink) WithLatency(lat, jitter time.Duration) *VirtualLink {
	v.Latency = lat
	v.Jitter = jitter
	return v
}

// delay returns how long a single message spends on this link
func (v *VirtualLink) delay() time.Duration {
	if v.Latency == 0 && v.Jitter == 0 {
		return 0
	}
	return v.Latency + time.Duration(rand.Float64()*float64(v.Jitter.Nanoseconds()))
}

// VirtualHarness builds a network node by node and runs it with simulated link latency.
type VirtualHarness struct {
	Topology state.TopologyCfg
	Context  context.Context
	Cancel   context.CancelCauseFunc
	Net      *core.Network
	Links    []*VirtualLink
	Changes  *core.ChangeLog
	Result   core.Result
	Finished Signal
	// Debug logs every route change as it is traced
	Debug    bool
	wires    []*wire
	trace    *core.RouteTrace
	traceSub chan any
	traceMu  sync.Mutex
	traced   []core.RouteChange
	traceWg  sync.WaitGroup
}

func (v *VirtualHarness) NewNode(id state.NodeId) {
	v.Topology.Nodes = append(v.Topology.Nodes, id)
}

// AddLink connects a and b in both directions with the given cost.
func (v *VirtualHarness) AddLink(a, b state.NodeId, cost float64) *VirtualLink {
	link := &VirtualLink{
		Edge: state.Pair[state.NodeId, state.NodeId]{V1: a, V2: b},
		Cost: cost,
	}
	v.Links = append(v.Links, link)
	return link
}

func (v *VirtualHarness) linkTo(node state.NodeId) func(from state.NodeId) *VirtualLink {
	return func(from state.NodeId) *VirtualLink {
		idx := slices.IndexFunc(v.Links, func(link *VirtualLink) bool {
			return link.Edge == state.Pair[state.NodeId, state.NodeId]{V1: from, V2: node} ||
				link.Edge == state.Pair[state.NodeId, state.NodeId]{V1: node, V2: from}
		})
		if idx == -1 {
			return nil
		}
		return v.Links[idx]
	}
}

// Start runs the network in the background. The returned channel receives at
// most one error; Finished is triggered once the run is over.
func (v *VirtualHarness) Start(opts ...core.Option) chan error {
	ctx, cancel := context.WithCancelCause(context.Background())
	v.Context = ctx
	v.Cancel = cancel
	v.Changes = &core.ChangeLog{}
	v.Finished = NewSignal()
	errChan := make(chan error, 1)

	for _, link := range v.Links {
		v.Topology.Edges = append(v.Topology.Edges, state.EdgeCfg{A: link.Edge.V1, B: link.Edge.V2, Cost: link.Cost})
	}
	level := slog.LevelWarn
	if v.Debug {
		level = slog.LevelDebug
	}
	log := core.NewLogger(level, "vnet")
	opts = append([]core.Option{
		core.WithLogger(log),
		core.WithObserver(v.Changes),
	}, opts...)
	if v.Debug {
		opts = append(opts, core.WithObserver(v.startTrace(log)))
	}
	n, err := core.NewNetwork(&v.Topology, opts...)
	if err != nil {
		v.stopTrace()
		errChan <- err
		v.Finished.Trigger()
		return errChan
	}
	v.Net = n

	// put every router behind a wire that delays what it receives
	for _, id := range n.Nodes() {
		r, _ := n.Router(id)
		w := &wire{
			ctx:   ctx,
			inbox: r,
			link:  v.linkTo(id),
			queue: make(chan delayed, 1024),
		}
		v.wires = append(v.wires, w)
		n.Bus().Register(id, w)
	}
	var wg sync.WaitGroup
	for _, w := range v.wires {
		wg.Go(func() {
			w.run(ctx)
		})
	}

	go func() {
		defer v.Finished.Trigger()
		res, err := n.Run(ctx)
		v.Result = res
		cancel(fmt.Errorf("network finished"))
		wg.Wait()
		v.stopTrace()
		if err != nil {
			errChan <- err
		}
	}()
	return errChan
}

func (v *VirtualHarness) Stop() {
	if v.Cancel == nil {
		return
	}
	v.Cancel(fmt.Errorf("stopping harness"))
	v.Finished.Wait()
}

func (v *VirtualHarness) startTrace(log *slog.Logger) *core.RouteTrace {
	v.trace = core.NewRouteTrace(1024)
	v.traceSub = make(chan any, 1024)
	v.trace.Register(v.traceSub)
	v.traceWg.Go(func() {
		for item := range v.traceSub {
			c := item.(core.RouteChange)
			log.Debug("traced route change", "node", c.Node, "dst", c.Dst, "metric", c.Metric, "nh", c.Nh)
			v.traceMu.Lock()
			v.traced = append(v.traced, c)
			v.traceMu.Unlock()
		}
	})
	return v.trace
}

// stopTrace waits for every observed change to come through the trace, then detaches.
func (v *VirtualHarness) stopTrace() {
	if v.trace == nil {
		return
	}
	want := len(v.Changes.Changes())
	deadline := time.Now().Add(5 * time.Second)
	for len(v.Traced()) < want && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	v.trace.Unregister(v.traceSub)
	_ = v.trace.Close()
	close(v.traceSub)
	v.traceWg.Wait()
	v.trace = nil
}

// Traced returns the route changes received through the trace stream in Debug mode.
func (v *VirtualHarness) Traced() []core.RouteChange {
	v.traceMu.Lock()
	defer v.traceMu.Unlock()
	return slices.Clone(v.traced)
}

type delayed struct {
	msg  state.UpdateMessage
	done func()
	due  time.Time
}

// wire sits between the bus and a router. Messages are handed over in the
// order they were sent, each no earlier than its link latency allows.
type wire struct {
	ctx   context.Context
	inbox core.Inbox
	link  func(from state.NodeId) *VirtualLink
	queue chan delayed
}

func (w *wire) Deliver(msg state.UpdateMessage, done func()) error {
	var lat time.Duration
	if l := w.link(msg.Sender()); l != nil {
		lat = l.delay()
	}
	select {
	case w.queue <- delayed{msg: msg, done: done, due: time.Now().Add(lat)}:
		return nil
	case <-w.ctx.Done():
		return core.ErrRouterStopped
	}
}

func (w *wire) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case d := <-w.queue:
			select {
			case <-ctx.Done():
				d.done()
				w.drain()
				return
			case <-time.After(time.Until(d.due)):
			}
			if err := w.inbox.Deliver(d.msg, d.done); err != nil {
				d.done()
			}
		}
	}
}

func (w *wire) drain() {
	for {
		select {
		case d := <-w.queue:
			d.done()
		default:
			return
		}
	}
}

// Follow walks next hops from src to dst, returning the path and its cost.
func (v *VirtualHarness) Follow(src, dst state.NodeId) ([]state.NodeId, float64, error) {
	snaps, err := v.Net.Snapshots()
	if err != nil {
		return nil, 0, err
	}
	tables := v.Topology.LinkTables()
	path := []state.NodeId{src}
	cost := 0.0
	cur := src
	for cur != dst {
		nh, ok := snaps[cur].NextHop(dst)
		if !ok {
			return path, cost, fmt.Errorf("%s has no route to %s", cur, dst)
		}
		if slices.Contains(path, nh) {
			return path, cost, fmt.Errorf("routing loop at %s towards %s", nh, dst)
		}
		cost += tables[cur][nh]
		path = append(path, nh)
		cur = nh
	}
	return path, cost, nil
}
