package graph

import (
	"container/heap"
	"fmt"
	"sort"
)

// CycleError names a node on a cycle so the caller can point at it.
type CycleError struct {
	Node NodeKey
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle through %s/%s", e.Node.Kind, e.Node.ID)
}

// TopoSort returns arena indices in dependency order: every edge runs
// from an earlier position to a later one. Among ready nodes the one
// with the smallest key goes first, so the order is total and stable.
// A cycle is an error naming one of its nodes.
func (g *Graph) TopoSort() ([]int, error) {
	indegree := make([]int, len(g.Nodes))
	for _, e := range g.Edges {
		indegree[e.To]++
	}

	ready := &nodeHeap{graph: g}
	heap.Init(ready)
	for idx := range g.Nodes {
		if indegree[idx] == 0 {
			heap.Push(ready, idx)
		}
	}

	order := make([]int, 0, len(g.Nodes))
	for ready.Len() > 0 {
		idx := heap.Pop(ready).(int)
		order = append(order, idx)
		for _, e := range g.out[idx] {
			to := g.Edges[e].To
			indegree[to]--
			if indegree[to] == 0 {
				heap.Push(ready, to)
			}
		}
	}

	if len(order) != len(g.Nodes) {
		// Every remaining node has positive indegree; the smallest key
		// among them names the cycle deterministically.
		var worst *NodeKey
		for idx := range g.Nodes {
			if indegree[idx] > 0 {
				key := g.Nodes[idx].Key
				if worst == nil || key.Less(*worst) {
					k := key
					worst = &k
				}
			}
		}
		return nil, &CycleError{Node: *worst}
	}
	return order, nil
}

// Cycles returns every dependency cycle as a strongly connected
// component: components with more than one node, plus single nodes
// carrying a self edge. Each cycle is sorted by key; cycles are ordered
// by their smallest member.
func (g *Graph) Cycles() [][]NodeKey {
	n := len(g.Nodes)
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}
	var stack []int
	counter := 0
	var components [][]int

	var strongConnect func(v int)
	strongConnect = func(v int) {
		index[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, e := range g.out[v] {
			w := g.Edges[e].To
			if index[w] < 0 {
				strongConnect(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			} else if onStack[w] && index[w] < low[v] {
				low[v] = index[w]
			}
		}

		if low[v] == index[v] {
			var comp []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			components = append(components, comp)
		}
	}
	for v := 0; v < n; v++ {
		if index[v] < 0 {
			strongConnect(v)
		}
	}

	var cycles [][]NodeKey
	for _, comp := range components {
		if len(comp) == 1 && !g.hasSelfEdge(comp[0]) {
			continue
		}
		keys := make([]NodeKey, len(comp))
		for i, idx := range comp {
			keys[i] = g.Nodes[idx].Key
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
		cycles = append(cycles, keys)
	}
	sort.SliceStable(cycles, func(i, j int) bool {
		return cycles[i][0].Less(cycles[j][0])
	})
	return cycles
}

func (g *Graph) hasSelfEdge(idx int) bool {
	for _, e := range g.out[idx] {
		if g.Edges[e].To == idx {
			return true
		}
	}
	return false
}

// nodeHeap orders arena indices by node key.
type nodeHeap struct {
	graph *Graph
	items []int
}

func (h *nodeHeap) Len() int { return len(h.items) }
func (h *nodeHeap) Less(i, j int) bool {
	return h.graph.Nodes[h.items[i]].Key.Less(h.graph.Nodes[h.items[j]].Key)
}
func (h *nodeHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *nodeHeap) Push(x any)    { h.items = append(h.items, x.(int)) }
func (h *nodeHeap) Pop() any {
	n := len(h.items)
	x := h.items[n-1]
	h.items = h.items[:n-1]
	return x
}
