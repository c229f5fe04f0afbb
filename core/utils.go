package core

import (
	"github.com/encodeous/dvsim/state"
)

// AddMetric returns the cost of reaching a destination at m through a link of the given cost.
func AddMetric(link float64, m state.Metric) state.Metric {
	if m.IsInf() {
		return state.INF
	}
	return state.Cost(link + m.Cost)
}

func SeqnoLt(a, b uint16) bool {
	x := b - a
	return 0 < x && x < 32768
}

func SeqnoLe(a, b uint16) bool {
	return a == b || SeqnoLt(a, b)
}
func SeqnoGt(a, b uint16) bool {
	return !SeqnoLe(a, b)
}
func SeqnoGe(a, b uint16) bool {
	return !SeqnoLt(a, b)
}
