package graph

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

func link(id string, st types.EntityKind, sid string, tt types.EntityKind, tid string, rel types.Relation) *types.EntityLink {
	return &types.EntityLink{
		ID: id, SourceType: st, SourceID: sid,
		TargetType: tt, TargetID: tid, Relation: rel,
	}
}

func taskEdge(id, from, to string, rel types.Relation) *types.EntityLink {
	return link(id, types.KindTask, from, types.KindTask, to, rel)
}

func TestBuildDeterministicAcrossInputOrder(t *testing.T) {
	links := []*types.EntityLink{
		taskEdge("l1", "a", "b", types.RelationBlocks),
		taskEdge("l2", "b", "c", types.RelationDependsOn),
		taskEdge("l3", "a", "c", types.RelationRelatesTo),
		link("l4", types.KindFinding, "f", types.KindTask, "a", types.RelationValidates),
	}
	want := Build(links, Budget{})

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 5; trial++ {
		shuffled := make([]*types.EntityLink, len(links))
		copy(shuffled, links)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		got := Build(shuffled, Budget{})
		assert.Equal(t, want.Nodes, got.Nodes)
		assert.Equal(t, want.Edges, got.Edges)
	}
}

func TestBuildDeduplicatesNodes(t *testing.T) {
	g := Build([]*types.EntityLink{
		taskEdge("l1", "a", "b", types.RelationBlocks),
		taskEdge("l2", "a", "c", types.RelationBlocks),
		taskEdge("l3", "b", "c", types.RelationBlocks),
	}, Budget{})
	assert.Equal(t, 3, g.Order())
	assert.Equal(t, 3, g.Size())
	assert.False(t, g.Truncated)
}

func TestBuildTruncatesOnNodeBudget(t *testing.T) {
	var links []*types.EntityLink
	for i := 0; i < 50; i++ {
		links = append(links, taskEdge(
			fmt.Sprintf("l%02d", i),
			fmt.Sprintf("t%02d", i),
			fmt.Sprintf("t%02d", i+1),
			types.RelationDependsOn,
		))
	}
	g := Build(links, Budget{MaxNodes: 10, MaxEdges: 2000, MaxDepth: 10})
	assert.True(t, g.Truncated)
	assert.Equal(t, TruncatedNodes, g.TruncateReason)
	assert.Equal(t, 10, g.Order())
	assert.LessOrEqual(t, g.Size(), 10)
}

func TestBuildTruncatesOnEdgeBudget(t *testing.T) {
	var links []*types.EntityLink
	for i := 0; i < 20; i++ {
		links = append(links, taskEdge(
			fmt.Sprintf("l%02d", i), "hub", fmt.Sprintf("t%02d", i), types.RelationBlocks,
		))
	}
	g := Build(links, Budget{MaxNodes: 500, MaxEdges: 5, MaxDepth: 10})
	assert.True(t, g.Truncated)
	assert.Equal(t, TruncatedEdges, g.TruncateReason)
	assert.Equal(t, 5, g.Size())
}

func TestBuildFromBoundsExpansionToSeeds(t *testing.T) {
	// Two disconnected clusters; seeding one must keep the other out
	// no matter how generous the budget is.
	links := []*types.EntityLink{
		taskEdge("l1", "a", "b", types.RelationBlocks),
		taskEdge("l2", "b", "c", types.RelationDependsOn),
		taskEdge("l3", "x", "y", types.RelationBlocks),
		taskEdge("l4", "y", "z", types.RelationBlocks),
	}
	g := BuildFrom(links, []NodeKey{{types.KindTask, "a"}}, Budget{})
	require.Equal(t, 3, g.Order())
	assert.Equal(t, 2, g.Size())
	assert.False(t, g.Truncated)
	for _, n := range g.Nodes {
		assert.NotContains(t, []string{"x", "y", "z"}, n.Key.ID)
	}
}

func TestBuildFromExpandsUndirected(t *testing.T) {
	// Seeding the middle of a chain reaches both directions; the edges
	// themselves keep their recorded orientation.
	links := []*types.EntityLink{
		taskEdge("l1", "a", "b", types.RelationBlocks),
		taskEdge("l2", "b", "c", types.RelationBlocks),
	}
	g := BuildFrom(links, []NodeKey{{types.KindTask, "b"}}, Budget{})
	assert.Equal(t, 3, g.Order())
	assert.Equal(t, 2, g.Size())

	b, ok := g.Lookup(NodeKey{types.KindTask, "b"})
	require.True(t, ok)
	assert.Len(t, g.Successors(b), 1)
	assert.Len(t, g.Predecessors(b), 1)
}

func TestBuildFromDepthBudget(t *testing.T) {
	var links []*types.EntityLink
	for i := 0; i < 6; i++ {
		links = append(links, taskEdge(
			fmt.Sprintf("l%d", i),
			fmt.Sprintf("t%d", i),
			fmt.Sprintf("t%d", i+1),
			types.RelationDependsOn,
		))
	}
	g := BuildFrom(links, []NodeKey{{types.KindTask, "t0"}}, Budget{MaxNodes: 500, MaxEdges: 2000, MaxDepth: 2})
	assert.Equal(t, 3, g.Order())
	assert.Equal(t, 2, g.Size())
	assert.True(t, g.Truncated)
	assert.Equal(t, TruncatedDepth, g.TruncateReason)
}

func TestBuildFromDeterministicAcrossInputOrder(t *testing.T) {
	links := []*types.EntityLink{
		taskEdge("l1", "a", "b", types.RelationBlocks),
		taskEdge("l2", "b", "c", types.RelationDependsOn),
		taskEdge("l3", "a", "c", types.RelationRelatesTo),
		link("l4", types.KindFinding, "f", types.KindTask, "a", types.RelationValidates),
	}
	seeds := []NodeKey{{types.KindTask, "c"}, {types.KindTask, "a"}}
	want := BuildFrom(links, seeds, Budget{})

	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 5; trial++ {
		shuffled := make([]*types.EntityLink, len(links))
		copy(shuffled, links)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		got := BuildFrom(shuffled, []NodeKey{{types.KindTask, "a"}, {types.KindTask, "c"}}, Budget{})
		assert.Equal(t, want.Nodes, got.Nodes)
		assert.Equal(t, want.Edges, got.Edges)
	}
}

func TestBuildFromNoSeedsFallsBackToFullGraph(t *testing.T) {
	links := []*types.EntityLink{
		taskEdge("l1", "a", "b", types.RelationBlocks),
	}
	g := BuildFrom(links, nil, Budget{})
	assert.Equal(t, 2, g.Order())
	assert.Equal(t, 1, g.Size())
}

func TestBuildZeroBudgetFallsBackToDefault(t *testing.T) {
	g := Build([]*types.EntityLink{taskEdge("l1", "a", "b", types.RelationBlocks)}, Budget{})
	assert.Equal(t, 2, g.Order())
	assert.False(t, g.Truncated)
}

func TestSetLabelAndLookup(t *testing.T) {
	g := Build([]*types.EntityLink{taskEdge("l1", "a", "b", types.RelationBlocks)}, Budget{})
	key := NodeKey{types.KindTask, "a"}
	g.SetLabel(key, "first task")

	idx, ok := g.Lookup(key)
	require.True(t, ok)
	assert.Equal(t, "first task", g.Nodes[idx].Label)

	_, ok = g.Lookup(NodeKey{types.KindTask, "zz"})
	assert.False(t, ok)
}

func TestTopoSortChain(t *testing.T) {
	g := Build([]*types.EntityLink{
		taskEdge("l1", "c", "b", types.RelationDependsOn),
		taskEdge("l2", "b", "a", types.RelationDependsOn),
	}, Budget{})

	order, err := g.TopoSort()
	require.NoError(t, err)
	require.Len(t, order, 3)

	pos := map[string]int{}
	for i, idx := range order {
		pos[g.Nodes[idx].Key.ID] = i
	}
	assert.Less(t, pos["c"], pos["b"])
	assert.Less(t, pos["b"], pos["a"])
}

func TestTopoSortBreaksTiesByKey(t *testing.T) {
	// Two independent roots feed one sink; the smaller key goes first.
	g := Build([]*types.EntityLink{
		taskEdge("l1", "beta", "sink", types.RelationBlocks),
		taskEdge("l2", "alpha", "sink", types.RelationBlocks),
	}, Budget{})

	order, err := g.TopoSort()
	require.NoError(t, err)
	assert.Equal(t, "alpha", g.Nodes[order[0]].Key.ID)
	assert.Equal(t, "beta", g.Nodes[order[1]].Key.ID)
	assert.Equal(t, "sink", g.Nodes[order[2]].Key.ID)
}

func TestTopoSortCycle(t *testing.T) {
	g := Build([]*types.EntityLink{
		taskEdge("l1", "a", "b", types.RelationBlocks),
		taskEdge("l2", "b", "c", types.RelationBlocks),
		taskEdge("l3", "c", "a", types.RelationBlocks),
	}, Budget{})

	_, err := g.TopoSort()
	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	// The smallest key on the cycle names it.
	assert.Equal(t, NodeKey{types.KindTask, "a"}, cycle.Node)
	assert.Contains(t, cycle.Error(), "task/a")
}

func TestCyclesNoneInDAG(t *testing.T) {
	g := Build([]*types.EntityLink{
		taskEdge("l1", "a", "b", types.RelationBlocks),
		taskEdge("l2", "b", "c", types.RelationBlocks),
	}, Budget{})
	assert.Empty(t, g.Cycles())
}

func TestCyclesFindsComponents(t *testing.T) {
	g := Build([]*types.EntityLink{
		// One three-node cycle, one two-node cycle, one acyclic tail.
		taskEdge("l1", "p", "q", types.RelationBlocks),
		taskEdge("l2", "q", "r", types.RelationBlocks),
		taskEdge("l3", "r", "p", types.RelationBlocks),
		taskEdge("l4", "x", "y", types.RelationDependsOn),
		taskEdge("l5", "y", "x", types.RelationDependsOn),
		taskEdge("l6", "r", "tail", types.RelationBlocks),
	}, Budget{})

	cycles := g.Cycles()
	require.Len(t, cycles, 2)
	// Ordered by smallest member, members sorted by key.
	assert.Equal(t, []NodeKey{
		{types.KindTask, "p"}, {types.KindTask, "q"}, {types.KindTask, "r"},
	}, cycles[0])
	assert.Equal(t, []NodeKey{
		{types.KindTask, "x"}, {types.KindTask, "y"},
	}, cycles[1])
}

func TestCyclesSelfEdge(t *testing.T) {
	g := Build([]*types.EntityLink{
		taskEdge("l1", "loop", "loop", types.RelationRelatesTo),
		taskEdge("l2", "a", "b", types.RelationBlocks),
	}, Budget{})

	cycles := g.Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []NodeKey{{types.KindTask, "loop"}}, cycles[0])
}

func TestBetweennessChain(t *testing.T) {
	// a -> b -> c: only b sits on a shortest path between others.
	g := Build([]*types.EntityLink{
		taskEdge("l1", "a", "b", types.RelationBlocks),
		taskEdge("l2", "b", "c", types.RelationBlocks),
	}, Budget{})

	scores := g.Betweenness()
	byID := map[string]float64{}
	for idx := range g.Nodes {
		byID[g.Nodes[idx].Key.ID] = scores[idx]
	}
	assert.Zero(t, byID["a"])
	assert.Equal(t, 1.0, byID["b"])
	assert.Zero(t, byID["c"])
}

func TestHotspotsRankingAndTies(t *testing.T) {
	// Two three-node chains give their middles equal scores; the tie
	// breaks on the strongest incident relation.
	g := Build([]*types.EntityLink{
		taskEdge("l1", "a1", "mid-weak", types.RelationRelatesTo),
		taskEdge("l2", "mid-weak", "c1", types.RelationRelatesTo),
		taskEdge("l3", "a2", "mid-strong", types.RelationBlocks),
		taskEdge("l4", "mid-strong", "c2", types.RelationBlocks),
	}, Budget{})

	hotspots := g.Hotspots(2)
	require.Len(t, hotspots, 2)
	assert.Equal(t, "mid-strong", hotspots[0].Key.ID)
	assert.Equal(t, "mid-weak", hotspots[1].Key.ID)
	assert.Equal(t, hotspots[0].Score, hotspots[1].Score)
	assert.Equal(t, 2, hotspots[0].Degree)
}

func TestHotspotsZeroLimitReturnsAll(t *testing.T) {
	g := Build([]*types.EntityLink{
		taskEdge("l1", "a", "b", types.RelationBlocks),
	}, Budget{})
	assert.Len(t, g.Hotspots(0), 2)
}

func TestShortestPath(t *testing.T) {
	g := Build([]*types.EntityLink{
		taskEdge("l1", "a", "b", types.RelationBlocks),
		taskEdge("l2", "b", "d", types.RelationBlocks),
		taskEdge("l3", "a", "c", types.RelationBlocks),
		taskEdge("l4", "c", "d", types.RelationBlocks),
		taskEdge("l5", "d", "e", types.RelationBlocks),
	}, Budget{})

	path, found, truncated := g.ShortestPath(NodeKey{types.KindTask, "a"}, NodeKey{types.KindTask, "e"})
	require.True(t, found)
	assert.False(t, truncated)
	require.Len(t, path, 4)
	assert.Equal(t, "a", path[0].ID)
	assert.Equal(t, "e", path[3].ID)

	// Direction matters.
	_, found, _ = g.ShortestPath(NodeKey{types.KindTask, "e"}, NodeKey{types.KindTask, "a"})
	assert.False(t, found)

	// Identity path.
	path, found, _ = g.ShortestPath(NodeKey{types.KindTask, "a"}, NodeKey{types.KindTask, "a"})
	require.True(t, found)
	assert.Equal(t, []NodeKey{{types.KindTask, "a"}}, path)
}

func TestShortestPathMissingEndpoint(t *testing.T) {
	g := Build([]*types.EntityLink{taskEdge("l1", "a", "b", types.RelationBlocks)}, Budget{})
	_, found, truncated := g.ShortestPath(NodeKey{types.KindTask, "a"}, NodeKey{types.KindTask, "zz"})
	assert.False(t, found)
	assert.False(t, truncated)
}

func TestShortestPathDepthBudget(t *testing.T) {
	var links []*types.EntityLink
	for i := 0; i < 6; i++ {
		links = append(links, taskEdge(
			fmt.Sprintf("l%d", i),
			fmt.Sprintf("t%d", i),
			fmt.Sprintf("t%d", i+1),
			types.RelationDependsOn,
		))
	}
	g := Build(links, Budget{MaxNodes: 500, MaxEdges: 2000, MaxDepth: 3})

	_, found, truncated := g.ShortestPath(NodeKey{types.KindTask, "t0"}, NodeKey{types.KindTask, "t6"})
	assert.False(t, found)
	assert.True(t, truncated)

	path, found, _ := g.ShortestPath(NodeKey{types.KindTask, "t0"}, NodeKey{types.KindTask, "t3"})
	require.True(t, found)
	assert.Len(t, path, 4)
}

func TestComponents(t *testing.T) {
	g := Build([]*types.EntityLink{
		taskEdge("l1", "a", "b", types.RelationBlocks),
		taskEdge("l2", "c", "b", types.RelationBlocks),
		taskEdge("l3", "x", "y", types.RelationBlocks),
	}, Budget{})

	components := g.Components()
	require.Len(t, components, 2)
	// Largest first, members sorted by key.
	require.Len(t, components[0], 3)
	assert.Equal(t, "a", components[0][0].ID)
	assert.Equal(t, "b", components[0][1].ID)
	assert.Equal(t, "c", components[0][2].ID)
	require.Len(t, components[1], 2)
	assert.Equal(t, "x", components[1][0].ID)
}

func TestNeighborhood(t *testing.T) {
	g := Build([]*types.EntityLink{
		taskEdge("l1", "a", "b", types.RelationBlocks),
		taskEdge("l2", "b", "c", types.RelationBlocks),
		taskEdge("l3", "c", "d", types.RelationBlocks),
	}, Budget{})

	keys, truncated := g.Neighborhood(NodeKey{types.KindTask, "a"}, 2)
	assert.True(t, truncated)
	require.Len(t, keys, 3)
	assert.Equal(t, "a", keys[0].ID)
	assert.Equal(t, "c", keys[2].ID)

	keys, truncated = g.Neighborhood(NodeKey{types.KindTask, "a"}, 3)
	assert.False(t, truncated)
	assert.Len(t, keys, 4)

	keys, _ = g.Neighborhood(NodeKey{types.KindTask, "zz"}, 2)
	assert.Nil(t, keys)
}
