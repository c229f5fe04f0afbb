package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/encodeous/dvsim/perf"
	"github.com/encodeous/dvsim/state"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

type Outcome int

const (
	OutcomeConverged Outcome = iota
	OutcomeNotConverged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConverged:
		return "converged"
	case OutcomeNotConverged:
		return "not converged"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

type Result struct {
	Outcome Outcome
	// Rounds is the number of rounds that were run
	Rounds int
	// Broadcasts is the total number of vectors flushed, each sent once per neighbour
	Broadcasts int
	Elapsed    time.Duration
}

func (r Result) Converged() bool {
	return r.Outcome == OutcomeConverged
}

// Flusher is the part of a router the monitor drives.
type Flusher interface {
	Id() state.NodeId
	Flush(ctx context.Context) (bool, error)
}

// Monitor runs the network in rounds. A round flushes every dirty router, then
// waits for the bus to drain. The first round without a broadcast means no
// router has anything left to say: the network has converged.
type Monitor struct {
	bus       *Bus
	routers   []Flusher
	maxRounds int
	clock     clockwork.Clock
	log       *slog.Logger
}

func NewMonitor(bus *Bus, routers []Flusher, maxRounds int, clock clockwork.Clock, log *slog.Logger) *Monitor {
	if maxRounds <= 0 {
		maxRounds = state.MaxRoundsFor(len(routers))
	}
	return &Monitor{
		bus:       bus,
		routers:   routers,
		maxRounds: maxRounds,
		clock:     clock,
		log:       log,
	}
}

func (m *Monitor) MaxRounds() int {
	return m.maxRounds
}

// Run blocks until convergence, until the round bound is exceeded, or until ctx is done.
// Exceeding the bound is reported as OutcomeNotConverged, not as an error.
func (m *Monitor) Run(ctx context.Context) (res Result, err error) {
	start := m.clock.Now()
	res.Outcome = OutcomeNotConverged
	defer func() {
		res.Elapsed = m.clock.Since(start)
	}()

	for round := 1; ; round++ {
		if round > m.maxRounds {
			m.log.Warn("network did not converge", "rounds", res.Rounds, "max_rounds", m.maxRounds, "broadcasts", res.Broadcasts)
			return res, nil
		}
		var n int
		n, err = m.flushAll(ctx)
		if err != nil {
			return res, fmt.Errorf("round %d: %w", round, err)
		}
		err = m.bus.WaitIdle(ctx)
		if err != nil {
			return res, fmt.Errorf("round %d: %w", round, err)
		}
		res.Rounds = round
		res.Broadcasts += n
		perf.RoundBroadcasts.Add(float64(n))
		m.log.Debug("round complete", "round", round, "broadcasts", n)
		if n == 0 {
			res.Outcome = OutcomeConverged
			m.log.Info("network converged", "rounds", res.Rounds, "broadcasts", res.Broadcasts, "elapsed", m.clock.Since(start))
			return res, nil
		}
	}
}

func (m *Monitor) flushAll(ctx context.Context) (int, error) {
	var broadcasts atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range m.routers {
		g.Go(func() error {
			sent, err := r.Flush(gctx)
			if err != nil {
				return fmt.Errorf("flush %s: %w", r.Id(), err)
			}
			if sent {
				broadcasts.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()
	return int(broadcasts.Load()), err
}
