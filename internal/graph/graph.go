// Package graph builds an in-memory view of the entity link graph and
// answers structural questions about it: ordering, centrality, paths,
// components. Nodes live in an arena indexed by position; edges carry
// integer endpoints into it. Everything is deterministic: the builder
// sorts its input, traversals visit neighbors in index order, and ties
// always break the same way.
package graph

import (
	"sort"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

// NodeKey identifies an entity in the graph.
type NodeKey struct {
	Kind types.EntityKind
	ID   string
}

// Less orders keys by kind then id.
func (k NodeKey) Less(other NodeKey) bool {
	if k.Kind != other.Kind {
		return k.Kind < other.Kind
	}
	return k.ID < other.ID
}

// Node is one arena slot. Label is optional display text supplied by
// the caller.
type Node struct {
	Key   NodeKey
	Label string
}

// Edge is a directed, typed connection between two arena slots.
type Edge struct {
	From     int
	To       int
	Relation types.Relation
}

// Budget bounds graph construction and traversal. The engine truncates
// instead of erroring when a budget trips: a partial answer about a
// huge graph beats no answer.
type Budget struct {
	MaxNodes int
	MaxEdges int
	MaxDepth int
}

// DefaultBudget returns the standard limits.
func DefaultBudget() Budget {
	return Budget{MaxNodes: 500, MaxEdges: 2000, MaxDepth: 10}
}

// Truncation reasons.
const (
	TruncatedNodes = "node budget exhausted"
	TruncatedEdges = "edge budget exhausted"
	TruncatedDepth = "depth budget exhausted"
)

// Graph is the built arena plus adjacency. Truncated reports whether
// the budget cut construction short.
type Graph struct {
	Nodes []Node
	Edges []Edge

	Truncated      bool
	TruncateReason string

	budget Budget
	index  map[NodeKey]int
	out    [][]int // edge indices by source node
	in     [][]int // edge indices by target node
}

// Build constructs a graph from entity links. Input order does not
// matter; the builder sorts edges by source, relation priority, and
// target before inserting, so the same link set always produces the
// same arena layout.
func Build(links []*types.EntityLink, budget Budget) *Graph {
	if budget.MaxNodes <= 0 || budget.MaxEdges <= 0 || budget.MaxDepth <= 0 {
		budget = DefaultBudget()
	}

	sorted := sortLinks(links)
	g := &Graph{budget: budget, index: map[NodeKey]int{}}
	for _, link := range sorted {
		if len(g.Edges) >= budget.MaxEdges {
			g.truncate(TruncatedEdges)
			break
		}
		from, ok := g.intern(NodeKey{link.SourceType, link.SourceID})
		if !ok {
			break
		}
		to, ok := g.intern(NodeKey{link.TargetType, link.TargetID})
		if !ok {
			break
		}
		edgeIdx := len(g.Edges)
		g.Edges = append(g.Edges, Edge{From: from, To: to, Relation: link.Relation})
		g.out[from] = append(g.out[from], edgeIdx)
		g.in[to] = append(g.in[to], edgeIdx)
	}
	return g
}

// BuildFrom constructs a graph by breadth-first expansion outward from
// the seed entities. Only links reachable within the depth budget join
// the arena, so budgets bound the neighborhood around the caller's
// entities instead of truncating the global link set. Expansion treats
// edges as undirected; the edges themselves keep their direction.
// Determinism holds here too: seeds intern in sorted order, frontiers
// walk in arena order, and each node's incident links apply in the
// same order Build uses.
func BuildFrom(links []*types.EntityLink, seeds []NodeKey, budget Budget) *Graph {
	if len(seeds) == 0 {
		return Build(links, budget)
	}
	if budget.MaxNodes <= 0 || budget.MaxEdges <= 0 || budget.MaxDepth <= 0 {
		budget = DefaultBudget()
	}

	sorted := sortLinks(links)
	incident := map[NodeKey][]int{}
	for i, link := range sorted {
		sk := NodeKey{link.SourceType, link.SourceID}
		tk := NodeKey{link.TargetType, link.TargetID}
		incident[sk] = append(incident[sk], i)
		if tk != sk {
			incident[tk] = append(incident[tk], i)
		}
	}

	ordered := make([]NodeKey, len(seeds))
	copy(ordered, seeds)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Less(ordered[j]) })

	g := &Graph{budget: budget, index: map[NodeKey]int{}}
	frontier := []int{}
	for _, key := range ordered {
		if _, ok := g.index[key]; ok {
			continue
		}
		idx, ok := g.intern(key)
		if !ok {
			return g
		}
		frontier = append(frontier, idx)
	}

	taken := make([]bool, len(sorted))
	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= budget.MaxDepth {
			for _, at := range frontier {
				for _, li := range incident[g.Nodes[at].Key] {
					if !taken[li] {
						g.truncate(TruncatedDepth)
						return g
					}
				}
			}
			return g
		}
		var next []int
		for _, at := range frontier {
			for _, li := range incident[g.Nodes[at].Key] {
				if taken[li] {
					continue
				}
				if len(g.Edges) >= budget.MaxEdges {
					g.truncate(TruncatedEdges)
					return g
				}
				link := sorted[li]
				from, grew, ok := g.internTracked(NodeKey{link.SourceType, link.SourceID})
				if !ok {
					return g
				}
				if grew {
					next = append(next, from)
				}
				to, grew, ok := g.internTracked(NodeKey{link.TargetType, link.TargetID})
				if !ok {
					return g
				}
				if grew {
					next = append(next, to)
				}
				taken[li] = true
				edgeIdx := len(g.Edges)
				g.Edges = append(g.Edges, Edge{From: from, To: to, Relation: link.Relation})
				g.out[from] = append(g.out[from], edgeIdx)
				g.in[to] = append(g.in[to], edgeIdx)
			}
		}
		frontier = next
	}
	return g
}

// sortLinks orders edges by source, relation priority, and target so
// the same link set always produces the same arena layout.
func sortLinks(links []*types.EntityLink) []*types.EntityLink {
	sorted := make([]*types.EntityLink, len(links))
	copy(sorted, links)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		ak := NodeKey{a.SourceType, a.SourceID}
		bk := NodeKey{b.SourceType, b.SourceID}
		if ak != bk {
			return ak.Less(bk)
		}
		if a.Relation != b.Relation {
			return a.Relation.Priority() < b.Relation.Priority()
		}
		atk := NodeKey{a.TargetType, a.TargetID}
		btk := NodeKey{b.TargetType, b.TargetID}
		if atk != btk {
			return atk.Less(btk)
		}
		return a.ID < b.ID
	})
	return sorted
}

// internTracked interns a key and reports whether the arena grew.
func (g *Graph) internTracked(key NodeKey) (int, bool, bool) {
	if idx, ok := g.index[key]; ok {
		return idx, false, true
	}
	idx, ok := g.intern(key)
	return idx, ok, ok
}

// intern returns the arena slot for a key, allocating one if the node
// budget allows.
func (g *Graph) intern(key NodeKey) (int, bool) {
	if idx, ok := g.index[key]; ok {
		return idx, true
	}
	if len(g.Nodes) >= g.budget.MaxNodes {
		g.truncate(TruncatedNodes)
		return 0, false
	}
	idx := len(g.Nodes)
	g.Nodes = append(g.Nodes, Node{Key: key})
	g.index[key] = idx
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return idx, true
}

func (g *Graph) truncate(reason string) {
	if !g.Truncated {
		g.Truncated = true
		g.TruncateReason = reason
	}
}

// SetLabel attaches display text to a node if it is present.
func (g *Graph) SetLabel(key NodeKey, label string) {
	if idx, ok := g.index[key]; ok {
		g.Nodes[idx].Label = label
	}
}

// Lookup returns the arena index of a key.
func (g *Graph) Lookup(key NodeKey) (int, bool) {
	idx, ok := g.index[key]
	return idx, ok
}

// Order and Size report node and edge counts.
func (g *Graph) Order() int { return len(g.Nodes) }
func (g *Graph) Size() int  { return len(g.Edges) }

// Successors returns the target indices of a node's outgoing edges, in
// arena insertion order.
func (g *Graph) Successors(idx int) []int {
	targets := make([]int, 0, len(g.out[idx]))
	for _, e := range g.out[idx] {
		targets = append(targets, g.Edges[e].To)
	}
	return targets
}

// Predecessors returns the source indices of a node's incoming edges.
func (g *Graph) Predecessors(idx int) []int {
	sources := make([]int, 0, len(g.in[idx]))
	for _, e := range g.in[idx] {
		sources = append(sources, g.Edges[e].From)
	}
	return sources
}

// Degree returns in plus out degree.
func (g *Graph) Degree(idx int) int {
	return len(g.in[idx]) + len(g.out[idx])
}
