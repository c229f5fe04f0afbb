package state

import (
	"strconv"
)

// Metric is a path cost. The zero value is INF (unreachable), so a missing
// DistanceVector entry reads as unreachable.
type Metric struct {
	Cost      float64
	Reachable bool
}

// INF is the unreachable sentinel. It is never a floating point infinity.
var INF = Metric{}

func Cost(c float64) Metric {
	return Metric{Cost: c, Reachable: true}
}

func (m Metric) IsInf() bool {
	return !m.Reachable
}

// Less reports whether m is a strictly better cost than o. INF is never less than anything.
func (m Metric) Less(o Metric) bool {
	if !m.Reachable {
		return false
	}
	if !o.Reachable {
		return true
	}
	return m.Cost < o.Cost
}

func (m Metric) Equal(o Metric) bool {
	if !m.Reachable || !o.Reachable {
		return m.Reachable == o.Reachable
	}
	return m.Cost == o.Cost
}

func (m Metric) String() string {
	if !m.Reachable {
		return "inf"
	}
	return strconv.FormatFloat(m.Cost, 'g', -1, 64)
}

func (m Metric) MarshalYAML() (any, error) {
	if !m.Reachable {
		return "inf", nil
	}
	return m.Cost, nil
}
