package state

import "time"

var (
	// SeqnoDedupTTL is how long a router remembers the last seqno accepted from a neighbour.
	SeqnoDedupTTL = time.Second * 30
	// RoundsPerNode scales the convergence monitor's round bound with the network size.
	RoundsPerNode = 2
	MinRounds     = 2
	// SlowDispatchThreshold is the dispatch latency above which a router logs a warning.
	SlowDispatchThreshold = time.Millisecond * 4
)

// MaxRoundsFor returns the default round bound for a network of n nodes.
func MaxRoundsFor(n int) int {
	return max(RoundsPerNode*n, MinRounds)
}
