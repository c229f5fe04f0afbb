package state

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
)

var ErrInvalidTopology = errors.New("invalid topology")

var namePattern = regexp.MustCompile("^[0-9A-Za-z._-]+$")

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

func CostValidator(c float64) error {
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return fmt.Errorf("cost %v is not finite", c)
	}
	if c <= 0 {
		return fmt.Errorf("cost %v must be positive", c)
	}
	return nil
}

// TopologyValidator rejects topologies no router may be started on. Errors wrap ErrInvalidTopology.
func TopologyValidator(cfg *TopologyCfg) error {
	if len(cfg.Graph) != 0 {
		return fmt.Errorf("%w: graph lines must be expanded before validation", ErrInvalidTopology)
	}
	if cfg.MaxRounds < 0 {
		return fmt.Errorf("%w: max_rounds must not be negative", ErrInvalidTopology)
	}
	seen := make(map[NodeId]struct{}, len(cfg.Nodes))
	for _, node := range cfg.Nodes {
		err := NameValidator(string(node))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTopology, err)
		}
		if _, ok := seen[node]; ok {
			return fmt.Errorf("%w: duplicate node: %s", ErrInvalidTopology, node)
		}
		seen[node] = struct{}{}
	}
	costs := make(map[Pair[NodeId, NodeId]]float64)
	for _, edge := range cfg.Edges {
		for _, end := range []NodeId{edge.A, edge.B} {
			if !slices.Contains(cfg.Nodes, end) {
				return fmt.Errorf("%w: node %s not defined", ErrInvalidTopology, end)
			}
		}
		if edge.A == edge.B {
			return fmt.Errorf("%w: self loop on %s", ErrInvalidTopology, edge.A)
		}
		err := CostValidator(edge.Cost)
		if err != nil {
			return fmt.Errorf("%w: edge %s: %w", ErrInvalidTopology, edge, err)
		}
		key := MakeSortedPair(edge.A, edge.B)
		if old, ok := costs[key]; ok && old != edge.Cost {
			// the same link listed twice must agree on its cost in both directions
			return fmt.Errorf("%w: asymmetric cost between %s and %s: %v != %v", ErrInvalidTopology, key.V1, key.V2, old, edge.Cost)
		}
		costs[key] = edge.Cost
	}
	return nil
}
