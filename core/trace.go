package core

import (
	"github.com/dustin/go-broadcast"
	"github.com/encodeous/dvsim/state"
)

// RouteTrace publishes every RouteChange to registered subscriber channels.
// Subscribers must keep reading until they Unregister, Close must be called to release the broadcaster.
type RouteTrace struct {
	broadcast.Broadcaster
}

func NewRouteTrace(buf int) *RouteTrace {
	return &RouteTrace{
		Broadcaster: broadcast.NewBroadcaster(buf),
	}
}

func (t *RouteTrace) OnChange(node, dst state.NodeId, metric state.Metric, nh state.NodeId) {
	t.Submit(RouteChange{node, dst, metric, nh})
}
