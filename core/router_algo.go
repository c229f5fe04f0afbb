package core

// Distributed Bellman-Ford. Each router only knows its own links and the
// vectors its neighbours advertised to it.

import (
	"fmt"

	"github.com/encodeous/dvsim/state"
)

type RouterEvent int

// trace events

const (
	RouteImproved RouterEvent = iota
	RouteAdded
	UpdateBroadcast
	DuplicateUpdate
)

// warn events

const (
	UnknownSender RouterEvent = iota + 1000
	SendFailed
)

func (e RouterEvent) String() string {
	switch e {
	case RouteImproved:
		return "RouteImproved"
	case RouteAdded:
		return "RouteAdded"
	case UpdateBroadcast:
		return "UpdateBroadcast"
	case DuplicateUpdate:
		return "DuplicateUpdate"
	case UnknownSender:
		return "UnknownSender"
	case SendFailed:
		return "SendFailed"
	}
	return fmt.Sprintf("RouterEvent(%d)", int(e))
}

func (e RouterEvent) IsWarning() bool {
	return e >= 1000
}

// Router is an interface that defines the underlying router operations
type Router interface {
	// BroadcastUpdate hands msg to the bus once for every neighbour
	BroadcastUpdate(msg state.UpdateMessage)
	// RouteChanged is called synchronously for every distance or next hop change
	RouteChanged(dst state.NodeId, metric state.Metric, nh state.NodeId)
	Log(event RouterEvent, desc string, args ...any)
}

// ShouldSwitch only accepts strictly better routes, ties keep the current next hop.
func ShouldSwitch(cur state.Metric, candidate state.Metric) bool {
	return candidate.Less(cur)
}

// HandleUpdate relaxes every entry of the neighbour's vector against our own.
// It reports whether any entry changed.
func HandleUpdate(s *state.RouterState, r Router, msg state.UpdateMessage) bool {
	from := msg.Sender()
	link, ok := s.LinkCost(from)
	if !ok {
		r.Log(UnknownSender, "rejected update from unknown sender", "from", from, "seqno", msg.Seqno())
		return false
	}

	changed := false
	for _, entry := range msg.Entries() {
		dst, adv := entry.V1, entry.V2
		if dst == s.Id {
			continue // we never route to ourselves through others
		}
		if adv.IsInf() {
			continue
		}

		// Cost(A, B) + Cost(B, D)
		candidate := AddMetric(link, adv)
		cur := s.Dist.Get(dst)
		if !ShouldSwitch(cur, candidate) {
			continue
		}

		event := RouteImproved
		if cur.IsInf() {
			event = RouteAdded
		}
		s.Dist[dst] = candidate
		s.Routes[dst] = from
		s.Dirty = true
		changed = true
		r.Log(event, "route changed", "dst", dst, "from", cur, "to", candidate, "nh", from)
		r.RouteChanged(dst, candidate, from)
	}
	return changed
}

// FlushIfDirty broadcasts the full vector if it changed since the last broadcast.
func FlushIfDirty(s *state.RouterState, r Router) bool {
	if !s.Dirty {
		return false
	}
	s.Seqno++
	msg := state.NewUpdateMessage(s.Id, s.Seqno, s.Dist)
	s.Dirty = false
	r.Log(UpdateBroadcast, "broadcasting vector", "seqno", msg.Seqno(), "entries", msg.Len())
	r.BroadcastUpdate(msg)
	return true
}
