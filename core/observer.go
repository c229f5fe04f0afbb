package core

import (
	"sync"

	"github.com/encodeous/dvsim/state"
)

// ChangeObserver receives every distance / next hop change. It is called
// synchronously from the router that changed, so implementations must be safe
// for concurrent use by many routers.
type ChangeObserver interface {
	OnChange(node, dst state.NodeId, metric state.Metric, nh state.NodeId)
}

type ObserverFunc func(node, dst state.NodeId, metric state.Metric, nh state.NodeId)

func (f ObserverFunc) OnChange(node, dst state.NodeId, metric state.Metric, nh state.NodeId) {
	f(node, dst, metric, nh)
}

type RouteChange struct {
	Node   state.NodeId
	Dst    state.NodeId
	Metric state.Metric
	Nh     state.NodeId
}

// ChangeLog records every change it observes, in observation order.
type ChangeLog struct {
	mu      sync.Mutex
	changes []RouteChange
}

func (c *ChangeLog) OnChange(node, dst state.NodeId, metric state.Metric, nh state.NodeId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes = append(c.changes, RouteChange{node, dst, metric, nh})
}

func (c *ChangeLog) Changes() []RouteChange {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]RouteChange, len(c.changes))
	copy(out, c.changes)
	return out
}

// multiObserver fans a change out to several observers in order.
type multiObserver []ChangeObserver

func (m multiObserver) OnChange(node, dst state.NodeId, metric state.Metric, nh state.NodeId) {
	for _, o := range m {
		o.OnChange(node, dst, metric, nh)
	}
}
