package perf

import (
	"expvar"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency = metric.NewHistogram("1m1s")
	RoundBroadcasts = metric.NewHistogram("1m1s")
	UpdatesSent     = metric.NewCounter("10s1s")
	UpdatesRecv     = metric.NewCounter("10s1s")
	RejectedUpdates = metric.NewCounter("10s1s")
	RouteChanges    = metric.NewCounter("10s1s")
)

func init() {
	expvar.Publish("dvsim:DispatchLatency (µs)", DispatchLatency)
	expvar.Publish("dvsim:RoundBroadcasts", RoundBroadcasts)
	expvar.Publish("dvsim:UpdatesSent/s", UpdatesSent)
	expvar.Publish("dvsim:UpdatesRecv/s", UpdatesRecv)
	expvar.Publish("dvsim:RejectedUpdates/s", RejectedUpdates)
	expvar.Publish("dvsim:RouteChanges/s", RouteChanges)
}
