package graph

import "sort"

// ShortestPath returns the node keys along a shortest directed path
// from one entity to another, endpoints included. The search stops at
// the depth budget; a path that would exceed it reports truncated
// instead of found. Among equal-length paths the BFS visits neighbors
// in arena order, so the returned path is always the same one.
func (g *Graph) ShortestPath(from, to NodeKey) (path []NodeKey, found, truncated bool) {
	src, ok := g.Lookup(from)
	if !ok {
		return nil, false, false
	}
	dst, ok := g.Lookup(to)
	if !ok {
		return nil, false, false
	}
	if src == dst {
		return []NodeKey{from}, true, false
	}

	parent := make([]int, len(g.Nodes))
	dist := make([]int, len(g.Nodes))
	for i := range parent {
		parent[i] = -1
		dist[i] = -1
	}
	dist[src] = 0

	queue := []int{src}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		if dist[v] >= g.budget.MaxDepth {
			truncated = true
			continue
		}
		for _, e := range g.out[v] {
			w := g.Edges[e].To
			if dist[w] >= 0 {
				continue
			}
			dist[w] = dist[v] + 1
			parent[w] = v
			if w == dst {
				return g.tracePath(parent, src, dst), true, false
			}
			queue = append(queue, w)
		}
	}
	return nil, false, truncated
}

func (g *Graph) tracePath(parent []int, src, dst int) []NodeKey {
	var rev []NodeKey
	for v := dst; v != -1; v = parent[v] {
		rev = append(rev, g.Nodes[v].Key)
		if v == src {
			break
		}
	}
	path := make([]NodeKey, len(rev))
	for i := range rev {
		path[len(rev)-1-i] = rev[i]
	}
	return path
}

// Components returns the weakly connected components, each sorted by
// node key, largest component first. Edge direction is ignored;
// membership is what matters here.
func (g *Graph) Components() [][]NodeKey {
	seen := make([]bool, len(g.Nodes))
	var components [][]NodeKey

	for start := range g.Nodes {
		if seen[start] {
			continue
		}
		var member []int
		queue := []int{start}
		seen[start] = true
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			member = append(member, v)
			for _, w := range append(g.Successors(v), g.Predecessors(v)...) {
				if !seen[w] {
					seen[w] = true
					queue = append(queue, w)
				}
			}
		}
		keys := make([]NodeKey, len(member))
		for i, idx := range member {
			keys[i] = g.Nodes[idx].Key
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
		components = append(components, keys)
	}

	sort.SliceStable(components, func(i, j int) bool {
		if len(components[i]) != len(components[j]) {
			return len(components[i]) > len(components[j])
		}
		return components[i][0].Less(components[j][0])
	})
	return components
}

// Neighborhood returns every node reachable from start within the
// depth budget, sorted by key. Truncated reports whether the frontier
// was still growing when the budget tripped.
func (g *Graph) Neighborhood(start NodeKey, depth int) (keys []NodeKey, truncated bool) {
	src, ok := g.Lookup(start)
	if !ok {
		return nil, false
	}
	if depth <= 0 || depth > g.budget.MaxDepth {
		depth = g.budget.MaxDepth
	}

	dist := make([]int, len(g.Nodes))
	for i := range dist {
		dist[i] = -1
	}
	dist[src] = 0
	queue := []int{src}
	var member []int
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		member = append(member, v)
		if dist[v] >= depth {
			if len(g.out[v]) > 0 {
				truncated = true
			}
			continue
		}
		for _, w := range g.Successors(v) {
			if dist[w] < 0 {
				dist[w] = dist[v] + 1
				queue = append(queue, w)
			}
		}
	}

	keys = make([]NodeKey, len(member))
	for i, idx := range member {
		keys[i] = g.Nodes[idx].Key
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys, truncated
}
