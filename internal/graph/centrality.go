package graph

import "sort"

// Betweenness computes betweenness centrality for every node with
// Brandes' algorithm over unweighted directed edges. Scores are raw
// path counts, not normalized; callers compare within one graph.
func (g *Graph) Betweenness() []float64 {
	n := len(g.Nodes)
	centrality := make([]float64, n)

	for source := 0; source < n; source++ {
		// BFS from source, accumulating shortest-path counts.
		stack := make([]int, 0, n)
		preds := make([][]int, n)
		sigma := make([]float64, n)
		dist := make([]int, n)
		for i := range dist {
			dist[i] = -1
		}
		sigma[source] = 1
		dist[source] = 0

		queue := []int{source}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, e := range g.out[v] {
				w := g.Edges[e].To
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		// Dependency accumulation in reverse BFS order.
		delta := make([]float64, n)
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range preds[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != source {
				centrality[w] += delta[w]
			}
		}
	}
	return centrality
}

// Hotspot is one ranked node from a centrality pass.
type Hotspot struct {
	Key    NodeKey
	Label  string
	Score  float64
	Degree int
}

// Hotspots returns the top n nodes by betweenness. Ties break by kind
// priority of the node's strongest incident relation, then by key, so
// the ranking never shuffles between runs.
func (g *Graph) Hotspots(n int) []Hotspot {
	scores := g.Betweenness()
	hotspots := make([]Hotspot, 0, len(g.Nodes))
	for idx := range g.Nodes {
		hotspots = append(hotspots, Hotspot{
			Key:    g.Nodes[idx].Key,
			Label:  g.Nodes[idx].Label,
			Score:  scores[idx],
			Degree: g.Degree(idx),
		})
	}
	relRank := g.strongestRelations()
	sort.SliceStable(hotspots, func(i, j int) bool {
		if hotspots[i].Score != hotspots[j].Score {
			return hotspots[i].Score > hotspots[j].Score
		}
		ri, rj := relRank[hotspots[i].Key], relRank[hotspots[j].Key]
		if ri != rj {
			return ri < rj
		}
		return hotspots[i].Key.Less(hotspots[j].Key)
	})
	if n > 0 && n < len(hotspots) {
		hotspots = hotspots[:n]
	}
	return hotspots
}

// strongestRelations maps each node to the best priority among its
// incident edges.
func (g *Graph) strongestRelations() map[NodeKey]int {
	rank := make(map[NodeKey]int, len(g.Nodes))
	worst := 1 << 30
	for idx := range g.Nodes {
		rank[g.Nodes[idx].Key] = worst
	}
	for _, e := range g.Edges {
		p := e.Relation.Priority()
		for _, idx := range []int{e.From, e.To} {
			key := g.Nodes[idx].Key
			if p < rank[key] {
				rank[key] = p
			}
		}
	}
	return rank
}
