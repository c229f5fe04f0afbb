package integration

import (
	"testing"
	"time"

	"github.com/encodeous/dvsim/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestRoutesAreConsistent(t *testing.T) {
	defer goleak.VerifyNone(t)

	vh := &VirtualHarness{}
	for _, n := range []state.NodeId{"a", "b", "c", "d", "e", "x"} {
		vh.NewNode(n)
	}
	vh.AddLink("a", "b", 1).WithLatency(2*time.Millisecond, time.Millisecond)
	vh.AddLink("b", "c", 1).WithLatency(2*time.Millisecond, time.Millisecond)
	vh.AddLink("c", "d", 1).WithLatency(2*time.Millisecond, time.Millisecond)
	vh.AddLink("a", "d", 2.5).WithLatency(2*time.Millisecond, time.Millisecond)
	vh.AddLink("d", "e", 0.5)

	errs := vh.Start()
	select {
	case <-vh.Finished:
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for convergence")
	case err := <-errs:
		t.Fatal(err)
	}
	require.True(t, vh.Result.Converged())

	connected := []state.NodeId{"a", "b", "c", "d", "e"}
	for _, src := range connected {
		for _, dst := range connected {
			path, cost, err := vh.Follow(src, dst)
			require.NoError(t, err, "%s -> %s", src, dst)
			snap, err := vh.Net.Snapshot(src)
			require.NoError(t, err)
			// following next hops costs exactly what the source advertises
			assert.InDelta(t, snap.Cost(dst).Cost, cost, 1e-9, "%s -> %s via %v", src, dst, path)
		}
		_, _, err := vh.Follow(src, "x")
		assert.Error(t, err)
	}
	vh.Stop()
}
