package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/encodeous/dvsim/perf"
	"github.com/encodeous/dvsim/state"
	"github.com/jellydator/ttlcache/v3"
	"github.com/jonboulle/clockwork"
)

// DvRouter is the actor owning one node's tables. All access to its state
// happens on the goroutine executing Run; everything else talks to it through
// its mailbox.
type DvRouter struct {
	state      *state.RouterState
	bus        *Bus
	mail       *mailbox
	log        *slog.Logger
	observer   ChangeObserver
	seqnoDedup *ttlcache.Cache[state.NodeId, uint16]
	clock      clockwork.Clock
	// ctx is only set and read on the router goroutine
	ctx      context.Context
	started  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

type RouterOption func(r *DvRouter)

func WithRouterLogger(log *slog.Logger) RouterOption {
	return func(r *DvRouter) {
		r.log = log
	}
}

func WithRouterObserver(o ChangeObserver) RouterOption {
	return func(r *DvRouter) {
		r.observer = o
	}
}

func WithRouterClock(clock clockwork.Clock) RouterOption {
	return func(r *DvRouter) {
		r.clock = clock
	}
}

func WithSeqnoDedupTTL(ttl time.Duration) RouterOption {
	return func(r *DvRouter) {
		r.seqnoDedup = newSeqnoDedup(ttl)
	}
}

func newSeqnoDedup(ttl time.Duration) *ttlcache.Cache[state.NodeId, uint16] {
	return ttlcache.New[state.NodeId, uint16](
		ttlcache.WithTTL[state.NodeId, uint16](ttl),
		ttlcache.WithDisableTouchOnHit[state.NodeId, uint16](),
	)
}

// NewDvRouter initializes the router's tables and registers it with the bus.
func NewDvRouter(id state.NodeId, links state.LinkTable, bus *Bus, opts ...RouterOption) *DvRouter {
	r := &DvRouter{
		state: state.NewRouterState(id, links),
		bus:   bus,
		mail:  newMailbox(),
		log:   slog.Default(),
		clock: clockwork.NewRealClock(),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.seqnoDedup == nil {
		r.seqnoDedup = newSeqnoDedup(state.SeqnoDedupTTL)
	}
	bus.Register(id, r)
	return r
}

func (r *DvRouter) Id() state.NodeId {
	return r.state.Id
}

// Deliver implements Inbox.
func (r *DvRouter) Deliver(msg state.UpdateMessage, done func()) error {
	return r.mail.push(envelope{
		run: func(r *DvRouter) error {
			defer done()
			r.receive(msg)
			return nil
		},
		drop: done,
	})
}

// Dispatch queues fun to run on the router goroutine without waiting for it to complete
func (r *DvRouter) Dispatch(fun func(*DvRouter) error) error {
	return r.mail.push(envelope{run: fun})
}

// dispatchWait queues fun to run on the router goroutine and waits for it to complete
func dispatchWait[T any](ctx context.Context, r *DvRouter, fun func(*DvRouter) (T, error)) (T, error) {
	var zero T
	ret := make(chan state.Pair[T, error], 1)
	err := r.mail.push(envelope{run: func(r *DvRouter) (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
				ret <- state.Pair[T, error]{V1: zero, V2: err}
			}
		}()
		res, err := fun(r)
		ret <- state.Pair[T, error]{V1: res, V2: err}
		return err
	}})
	if err != nil {
		return zero, err
	}
	select {
	case res := <-ret:
		return res.V1, res.V2
	case <-r.done:
		select {
		case res := <-ret:
			return res.V1, res.V2
		default:
			return zero, ErrRouterStopped
		}
	case <-ctx.Done():
		return zero, context.Cause(ctx)
	}
}

// Flush broadcasts the router's vector if it changed since the last flush, and reports whether it did.
func (r *DvRouter) Flush(ctx context.Context) (bool, error) {
	return dispatchWait(ctx, r, func(r *DvRouter) (bool, error) {
		r.seqnoDedup.DeleteExpired()
		return FlushIfDirty(r.state, r), nil
	})
}

// Dirty reports whether the vector changed since the last flush.
func (r *DvRouter) Dirty(ctx context.Context) (bool, error) {
	return dispatchWait(ctx, r, func(r *DvRouter) (bool, error) {
		return r.state.Dirty, nil
	})
}

// Snapshot returns a copy of the router's tables. Before Run is called and after
// it returns, the tables are read directly.
func (r *DvRouter) Snapshot(ctx context.Context) (state.Snapshot, error) {
	if !r.started.Load() {
		return r.state.Snapshot(), nil
	}
	snap, err := dispatchWait(ctx, r, func(r *DvRouter) (state.Snapshot, error) {
		return r.state.Snapshot(), nil
	})
	if errors.Is(err, ErrRouterStopped) {
		<-r.done
		return r.state.Snapshot(), nil
	}
	return snap, err
}

// Run processes the mailbox until ctx is cancelled or Stop is called. A message
// being processed always completes before Run returns.
func (r *DvRouter) Run(ctx context.Context) error {
	if r.started.Swap(true) {
		return fmt.Errorf("router %s already started", r.state.Id)
	}
	r.ctx = ctx
	defer close(r.done)
	defer r.mail.close()

	r.log.Debug("started router", "links", len(r.state.Links))
	for !r.stopped(ctx) {
		select {
		case <-ctx.Done():
		case <-r.stop:
		case <-r.mail.signal:
			for !r.stopped(ctx) {
				env, ok := r.mail.pop()
				if !ok {
					break
				}
				r.exec(env)
			}
		}
	}
	reason := "stop requested"
	if ctx.Err() != nil {
		reason = context.Cause(ctx).Error()
	}
	r.log.Debug("stopped router", "reason", reason, "dropped", r.mail.len())
	return nil
}

func (r *DvRouter) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-r.stop:
		return true
	default:
		return false
	}
}

func (r *DvRouter) exec(env envelope) {
	start := r.clock.Now()
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("panic during dispatch", "panic", p)
		}
	}()
	err := env.run(r)
	if err != nil {
		r.log.Error("error occurred during dispatch", "error", err)
	}
	elapsed := r.clock.Since(start)
	perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
	if elapsed > state.SlowDispatchThreshold {
		r.log.Warn("dispatch took a long time!", "fun", runtime.FuncForPC(reflect.ValueOf(env.run).Pointer()).Name(), "elapsed", elapsed, "len", r.mail.len())
	}
}

// Stop asks the router goroutine to exit. It does not wait, use Done for that.
func (r *DvRouter) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
}

func (r *DvRouter) Done() <-chan struct{} {
	return r.done
}

func (r *DvRouter) receive(msg state.UpdateMessage) {
	perf.UpdatesRecv.Add(1)
	if _, ok := r.state.LinkCost(msg.Sender()); ok && r.isDuplicate(msg) {
		r.Log(DuplicateUpdate, "ignored update that was already applied", "from", msg.Sender(), "seqno", msg.Seqno())
		return
	}
	if HandleUpdate(r.state, r, msg) {
		r.log.Debug("updated table", "from", msg.Sender(), "seqno", msg.Seqno())
	}
}

func (r *DvRouter) isDuplicate(msg state.UpdateMessage) bool {
	from := msg.Sender()
	old := r.seqnoDedup.Get(from)
	if old != nil && SeqnoGe(old.Value(), msg.Seqno()) {
		return true // we have already processed this or a newer vector
	}
	r.seqnoDedup.Set(from, msg.Seqno(), ttlcache.DefaultTTL)
	return false
}

func (r *DvRouter) BroadcastUpdate(msg state.UpdateMessage) {
	ctx := r.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	for _, neigh := range r.state.Neighbours() {
		err := r.bus.Send(ctx, r.state.Id, neigh, msg)
		if err != nil {
			r.Log(SendFailed, "failed to send update", "to", neigh, "error", err)
		}
	}
}

func (r *DvRouter) RouteChanged(dst state.NodeId, metric state.Metric, nh state.NodeId) {
	perf.RouteChanges.Add(1)
	if r.observer != nil {
		r.observer.OnChange(r.state.Id, dst, metric, nh)
	}
}

func (r *DvRouter) Log(event RouterEvent, desc string, args ...any) {
	if event == UnknownSender {
		perf.RejectedUpdates.Add(1)
	}
	if event.IsWarning() {
		r.log.Warn(fmt.Sprintf("%s %s", event.String(), desc), args...)
		return
	}
	r.log.Debug(fmt.Sprintf("%s %s", event.String(), desc), args...)
}
