package state

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestNewRouterState(t *testing.T) {
	links := LinkTable{"b": 2, "c": 6}
	s := NewRouterState("a", links)

	assert.Equal(t, Cost(0), s.Dist["a"])
	assert.Equal(t, NodeId("a"), s.Routes["a"])
	assert.Len(t, s.Dist, 1)
	assert.Len(t, s.Routes, 1)
	assert.True(t, s.Dirty)
	assert.Equal(t, []NodeId{"b", "c"}, s.Neighbours())

	// the link table is copied
	links["d"] = 1
	_, ok := s.LinkCost("d")
	assert.False(t, ok)
}

func TestSnapshotIsCopy(t *testing.T) {
	s := NewRouterState("a", LinkTable{"b": 1})
	snap := s.Snapshot()
	snap.Dist["b"] = Cost(1)
	snap.Routes["b"] = "b"

	assert.True(t, s.Dist.Get("b").IsInf())
	_, ok := s.Routes["b"]
	assert.False(t, ok)

	s.Dist["c"] = Cost(4)
	if diff := cmp.Diff(DistanceVector{"a": Cost(0), "b": Cost(1)}, snap.Dist); diff != "" {
		t.Errorf("snapshot changed (-want +got):\n%s", diff)
	}
}

func TestStringRoutes(t *testing.T) {
	s := NewRouterState("a", LinkTable{"b": 2})
	s.Dist["b"] = Cost(2)
	s.Routes["b"] = "b"
	s.Dist["c"] = Cost(5)
	s.Routes["c"] = "b"
	assert.Equal(t, `a via (nh: a, metric: 0)
b via (nh: b, metric: 2)
c via (nh: b, metric: 5)`, s.StringRoutes())

	snap := s.Snapshot()
	nh, ok := snap.NextHop("c")
	assert.True(t, ok)
	assert.Equal(t, NodeId("b"), nh)
	_, ok = snap.NextHop("e")
	assert.False(t, ok)
	assert.True(t, snap.Cost("e").IsInf())
}
