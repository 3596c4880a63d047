package domain_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/memo/internal/core/domain"
)

func newNode(id string, deps ...string) *domain.Node {
	return &domain.Node{
		ID:           domain.NewInternedString(id),
		Dependencies: domain.NewInternedStrings(deps),
	}
}

func TestGraph_AddNode(t *testing.T) {
	t.Parallel()

	g := domain.NewGraph("/repo")
	require.NoError(t, g.AddNode(newNode("a")))

	err := g.AddNode(newNode("a"))
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrNodeAlreadyExists.Error())
	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, "/repo", g.Root())
}

func TestGraph_Validate_Cycle(t *testing.T) {
	t.Parallel()

	g := domain.NewGraph("/repo")
	require.NoError(t, g.AddNode(newNode("A", "B")))
	require.NoError(t, g.AddNode(newNode("B", "A")))

	err := g.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrCycleDetected.Error())
}

func TestGraph_Validate_MissingDependency(t *testing.T) {
	t.Parallel()

	g := domain.NewGraph("/repo")
	require.NoError(t, g.AddNode(newNode("A", "missing")))

	err := g.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrMissingDependency.Error())
}

func TestGraph_Walk(t *testing.T) {
	t.Parallel()

	g := domain.NewGraph("/repo")
	require.NoError(t, g.AddNode(newNode("app", "lib", "util")))
	require.NoError(t, g.AddNode(newNode("lib", "util")))
	require.NoError(t, g.AddNode(newNode("util")))
	require.NoError(t, g.Validate())

	var order []string
	for n := range g.Walk() {
		order = append(order, n.ID.String())
	}
	assert.Equal(t, []string{"util", "lib", "app"}, order)

	deps := g.Dependents(domain.NewInternedString("util"))
	assert.Len(t, deps, 2)
	assert.True(t, slices.Contains(deps, domain.NewInternedString("lib")))
}
