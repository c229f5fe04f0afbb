package integration

import (
	"testing"
	"time"

	"github.com/encodeous/dvsim/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	vh := &VirtualHarness{}
	vh.NewNode("node1")
	vh.NewNode("node2")
	vh.NewNode("node3")
	vh.AddLink("node1", "node2", 1).WithLatency(time.Second, 0)
	vh.AddLink("node2", "node3", 1).WithLatency(time.Second, 0)
	errs := vh.Start()
	select {
	case <-time.After(100 * time.Millisecond):
	case err := <-errs:
		t.Error(err)
	}
	vh.Stop()
	// stopped long before the slow links could deliver anything
	assert.False(t, vh.Result.Converged())
}

func TestSimpleLink(t *testing.T) {
	defer goleak.VerifyNone(t)
	vh := &VirtualHarness{}
	vh.NewNode("a")
	vh.NewNode("b")
	vh.AddLink("a", "b", 3).WithLatency(5*time.Millisecond, 0)

	errs := vh.Start()
	select {
	case <-vh.Finished:
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for convergence")
	}
	select {
	case err := <-errs:
		t.Fatal(err)
	default:
	}
	require.True(t, vh.Result.Converged())

	path, cost, err := vh.Follow("a", "b")
	require.NoError(t, err)
	assert.Equal(t, []state.NodeId{"a", "b"}, path)
	assert.Equal(t, 3.0, cost)
	vh.Stop()
}

func TestInvalidHarness(t *testing.T) {
	defer goleak.VerifyNone(t)
	vh := &VirtualHarness{}
	vh.NewNode("a")
	vh.AddLink("a", "ghost", 1)

	errs := vh.Start()
	err := <-errs
	assert.ErrorIs(t, err, state.ErrInvalidTopology)
	vh.Stop()
}
