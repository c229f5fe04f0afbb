package state

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

type NodeId string

// LinkTable maps a direct neighbour to the cost of the link towards it.
type LinkTable map[NodeId]float64

// DistanceVector maps a destination to the best known cost.
type DistanceVector map[NodeId]Metric

// RoutingTable maps a destination to the neighbour the best cost is achieved through.
type RoutingTable map[NodeId]NodeId

func (dv DistanceVector) Get(dst NodeId) Metric {
	return dv[dst] // missing entries are INF
}

func (dv DistanceVector) Clone() DistanceVector {
	return maps.Clone(dv)
}

func (rt RoutingTable) Clone() RoutingTable {
	return maps.Clone(rt)
}

// RouterState is owned by a single router. It must only be accessed from that router's goroutine.
type RouterState struct {
	Id     NodeId
	Links  LinkTable
	Dist   DistanceVector
	Routes RoutingTable
	// Seqno is the sequence number of the last broadcast
	Seqno uint16
	// Dirty is set when Dist changed since the last broadcast
	Dirty bool
}

func NewRouterState(id NodeId, links LinkTable) *RouterState {
	s := &RouterState{
		Id:     id,
		Links:  maps.Clone(links),
		Dist:   make(DistanceVector),
		Routes: make(RoutingTable),
		Dirty:  true, // our own vector has never been advertised
	}
	if s.Links == nil {
		s.Links = make(LinkTable)
	}
	s.Dist[id] = Cost(0)
	s.Routes[id] = id
	return s
}

func (s *RouterState) LinkCost(neigh NodeId) (float64, bool) {
	c, ok := s.Links[neigh]
	return c, ok
}

// Neighbours returns the neighbour ids in sorted order.
func (s *RouterState) Neighbours() []NodeId {
	return slices.Sorted(maps.Keys(s.Links))
}

func (s *RouterState) Snapshot() Snapshot {
	return Snapshot{
		Id:     s.Id,
		Dist:   s.Dist.Clone(),
		Routes: s.Routes.Clone(),
	}
}

func (s *RouterState) StringRoutes() string {
	return s.Snapshot().StringRoutes()
}

// Snapshot is a read-only copy of a router's tables.
type Snapshot struct {
	Id     NodeId
	Dist   DistanceVector
	Routes RoutingTable
}

// NextHop returns the next hop towards dst, if dst is reachable.
func (s Snapshot) NextHop(dst NodeId) (NodeId, bool) {
	nh, ok := s.Routes[dst]
	return nh, ok
}

func (s Snapshot) Cost(dst NodeId) Metric {
	return s.Dist.Get(dst)
}

func (s Snapshot) StringRoutes() string {
	buf := make([]string, 0, len(s.Dist))
	for _, dst := range slices.Sorted(maps.Keys(s.Dist)) {
		nh, ok := s.Routes[dst]
		if !ok {
			buf = append(buf, fmt.Sprintf("%s unreachable (metric: %s)", dst, s.Dist[dst]))
			continue
		}
		buf = append(buf, fmt.Sprintf("%s via (nh: %s, metric: %s)", dst, nh, s.Dist[dst]))
	}
	return strings.Join(buf, "\n")
}
