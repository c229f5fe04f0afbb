package state

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// UpdateMessage carries a snapshot of the sender's distance vector. It is immutable,
// the vector is copied on construction and on every read.
type UpdateMessage struct {
	sender NodeId
	seqno  uint16
	vector DistanceVector
}

func NewUpdateMessage(sender NodeId, seqno uint16, dv DistanceVector) UpdateMessage {
	vec := make(DistanceVector, len(dv))
	for dst, m := range dv {
		if m.IsInf() {
			continue // unreachable destinations carry no information
		}
		vec[dst] = m
	}
	return UpdateMessage{
		sender: sender,
		seqno:  seqno,
		vector: vec,
	}
}

func (u UpdateMessage) Sender() NodeId {
	return u.sender
}

func (u UpdateMessage) Seqno() uint16 {
	return u.seqno
}

func (u UpdateMessage) Len() int {
	return len(u.vector)
}

func (u UpdateMessage) Cost(dst NodeId) Metric {
	return u.vector.Get(dst)
}

func (u UpdateMessage) Vector() DistanceVector {
	return u.vector.Clone()
}

// Entries returns the (destination, cost) pairs in destination order. This is the wire form of the message.
func (u UpdateMessage) Entries() []Pair[NodeId, Metric] {
	out := make([]Pair[NodeId, Metric], 0, len(u.vector))
	for _, dst := range slices.Sorted(maps.Keys(u.vector)) {
		out = append(out, Pair[NodeId, Metric]{V1: dst, V2: u.vector[dst]})
	}
	return out
}

func (u UpdateMessage) String() string {
	parts := make([]string, 0, len(u.vector))
	for _, e := range u.Entries() {
		parts = append(parts, fmt.Sprintf("%s: %s", e.V1, e.V2))
	}
	return fmt.Sprintf("(sender: %s, seqno: %d, vector: {%s})", u.sender, u.seqno, strings.Join(parts, ", "))
}

type updateEntryYAML struct {
	Dst    NodeId `yaml:"dst"`
	Metric Metric `yaml:"metric"`
}

type updateMessageYAML struct {
	Sender  NodeId            `yaml:"sender"`
	Seqno   uint16            `yaml:"seqno"`
	Entries []updateEntryYAML `yaml:"entries"`
}

func (u UpdateMessage) MarshalYAML() (any, error) {
	out := updateMessageYAML{
		Sender: u.sender,
		Seqno:  u.seqno,
	}
	for _, e := range u.Entries() {
		out.Entries = append(out.Entries, updateEntryYAML{Dst: e.V1, Metric: e.V2})
	}
	return out, nil
}
