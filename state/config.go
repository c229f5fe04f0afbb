package state

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

type EdgeCfg struct {
	A    NodeId  `yaml:"a"`
	B    NodeId  `yaml:"b"`
	Cost float64 `yaml:"cost"`
}

func (e EdgeCfg) String() string {
	return fmt.Sprintf("(%s, %s, %s)", e.A, e.B, strconv.FormatFloat(e.Cost, 'g', -1, 64))
}

// TopologyCfg describes a static network. Every node must be listed in Nodes,
// edges are undirected.
type TopologyCfg struct {
	Nodes []NodeId  `yaml:"nodes"`
	Edges []EdgeCfg `yaml:"edges,omitempty"`
	// Graph holds edges in line form, "a, b, cost", merged into Edges by ExpandTopology
	Graph []string `yaml:"graph,omitempty"`
	// MaxRounds overrides the convergence round bound, 0 selects MaxRoundsFor(len(Nodes))
	MaxRounds int `yaml:"max_rounds,omitempty"`
}

// ParseTopology decodes, expands and validates a YAML topology.
func ParseTopology(data []byte) (*TopologyCfg, error) {
	var cfg TopologyCfg
	err := yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTopology, err)
	}
	err = ExpandTopology(&cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTopology, err)
	}
	err = TopologyValidator(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MarshalTopology(cfg *TopologyCfg) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// ExpandTopology moves the Graph lines into Edges.
func ExpandTopology(cfg *TopologyCfg) error {
	if len(cfg.Graph) == 0 {
		return nil
	}
	edges, err := ParseEdgeLines(cfg.Graph)
	if err != nil {
		return err
	}
	cfg.Edges = append(cfg.Edges, edges...)
	cfg.Graph = nil
	return nil
}

/*
ParseEdgeLines parses edges written one per line:

a, b, 2 // a and b are linked with cost 2

Blank lines and lines starting with # are skipped.
*/
func ParseEdgeLines(lines []string) ([]EdgeCfg, error) {
	edges := make([]EdgeCfg, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		spl := strings.Split(line, ",")
		if len(spl) != 3 {
			return nil, fmt.Errorf("invalid edge: %s. must be of the form \"a, b, cost\"", line)
		}
		cost, err := strconv.ParseFloat(strings.TrimSpace(spl[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid edge cost in %q: %w", line, err)
		}
		edges = append(edges, EdgeCfg{
			A:    NodeId(strings.TrimSpace(spl[0])),
			B:    NodeId(strings.TrimSpace(spl[1])),
			Cost: cost,
		})
	}
	return edges, nil
}

// LinkTables builds the per-node view of the edge list. The topology must have been validated.
func (c *TopologyCfg) LinkTables() map[NodeId]LinkTable {
	tables := make(map[NodeId]LinkTable, len(c.Nodes))
	for _, n := range c.Nodes {
		tables[n] = make(LinkTable)
	}
	for _, e := range c.Edges {
		tables[e.A][e.B] = e.Cost
		tables[e.B][e.A] = e.Cost
	}
	return tables
}

// Triples returns the deduplicated edge list as (a, b, cost) with a < b.
func (c *TopologyCfg) Triples() []Triple[NodeId, NodeId, float64] {
	seen := make(map[Pair[NodeId, NodeId]]float64)
	for _, e := range c.Edges {
		seen[MakeSortedPair(e.A, e.B)] = e.Cost
	}
	keys := slices.Collect(maps.Keys(seen))
	SortPairs(keys)
	out := make([]Triple[NodeId, NodeId, float64], 0, len(keys))
	for _, k := range keys {
		out = append(out, Triple[NodeId, NodeId, float64]{k.V1, k.V2, seen[k]})
	}
	return out
}

func (c *TopologyCfg) RoundBound() int {
	if c.MaxRounds > 0 {
		return c.MaxRounds
	}
	return MaxRoundsFor(len(c.Nodes))
}
