package state

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameValidator_Valid(t *testing.T) {
	assert.NoError(t, NameValidator("1"))
	assert.NoError(t, NameValidator("A"))
	assert.NoError(t, NameValidator("ab_cd"))
	assert.NoError(t, NameValidator("router-a.lan"))
}

func TestNameValidator_Invalid(t *testing.T) {
	assert.Error(t, NameValidator("node name"))
	assert.Error(t, NameValidator(""))
	assert.Error(t, NameValidator("\t"))
	assert.Error(t, NameValidator("abcd-a.com\\hi"))
	assert.Error(t, NameValidator(strings.Repeat("a", 200)))
}

func TestCostValidator(t *testing.T) {
	assert.NoError(t, CostValidator(0.5))
	assert.Error(t, CostValidator(0))
	assert.Error(t, CostValidator(-1))
	assert.Error(t, CostValidator(math.NaN()))
	assert.Error(t, CostValidator(math.Inf(1)))
}

func validTopology() *TopologyCfg {
	return &TopologyCfg{
		Nodes: []NodeId{"A", "B", "C"},
		Edges: []EdgeCfg{
			{A: "A", B: "B", Cost: 1},
			{A: "B", B: "C", Cost: 2},
		},
	}
}

func TestTopologyValidator_Valid(t *testing.T) {
	assert.NoError(t, TopologyValidator(validTopology()))

	// listing both directions with the same cost is fine
	cfg := validTopology()
	cfg.Edges = append(cfg.Edges, EdgeCfg{A: "B", B: "A", Cost: 1})
	assert.NoError(t, TopologyValidator(cfg))

	assert.NoError(t, TopologyValidator(&TopologyCfg{}))
}

func TestTopologyValidator_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *TopologyCfg)
		msg    string
	}{
		{"asymmetric", func(cfg *TopologyCfg) {
			cfg.Edges = append(cfg.Edges, EdgeCfg{A: "B", B: "A", Cost: 3})
		}, "asymmetric cost between A and B"},
		{"negative", func(cfg *TopologyCfg) {
			cfg.Edges[0].Cost = -2
		}, "must be positive"},
		{"unknown node", func(cfg *TopologyCfg) {
			cfg.Edges[0].B = "Z"
		}, "node Z not defined"},
		{"self loop", func(cfg *TopologyCfg) {
			cfg.Edges[0].B = "A"
		}, "self loop on A"},
		{"duplicate node", func(cfg *TopologyCfg) {
			cfg.Nodes = append(cfg.Nodes, "A")
		}, "duplicate node: A"},
		{"bad name", func(cfg *TopologyCfg) {
			cfg.Nodes[0] = "a b"
		}, "not a valid name"},
		{"negative rounds", func(cfg *TopologyCfg) {
			cfg.MaxRounds = -1
		}, "max_rounds"},
		{"unexpanded", func(cfg *TopologyCfg) {
			cfg.Graph = []string{"A, C, 1"}
		}, "must be expanded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTopology()
			tt.mutate(cfg)
			err := TopologyValidator(cfg)
			assert.ErrorIs(t, err, ErrInvalidTopology)
			assert.ErrorContains(t, err, tt.msg)
		})
	}
}
