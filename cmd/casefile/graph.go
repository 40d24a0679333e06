package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/casefile/internal/graph"
	"github.com/mesh-intelligence/casefile/pkg/types"
)

func newGraphCmd(flags *rootFlags) *cobra.Command {
	budget := graph.DefaultBudget()
	var seedArgs []string
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Analyze the entity link graph",
	}
	cmd.PersistentFlags().IntVar(&budget.MaxNodes, "max-nodes", budget.MaxNodes, "node budget")
	cmd.PersistentFlags().IntVar(&budget.MaxEdges, "max-edges", budget.MaxEdges, "edge budget")
	cmd.PersistentFlags().IntVar(&budget.MaxDepth, "max-depth", budget.MaxDepth, "traversal depth budget")
	cmd.PersistentFlags().StringArrayVar(&seedArgs, "seed", nil, "seed entity as kind:id, repeatable; bounds the graph to the seeds' neighborhood")

	build := func(a *app) (*graph.Graph, error) {
		links, err := a.store.AllLinks()
		if err != nil {
			return nil, err
		}
		seeds, err := parseSeeds(seedArgs)
		if err != nil {
			return nil, err
		}
		if len(seeds) > 0 {
			return graph.BuildFrom(links, seeds, budget), nil
		}
		return graph.Build(links, budget), nil
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show graph size and truncation state",
		Args:  cobra.NoArgs,
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, _ []string) error {
			g, err := build(a)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{
				"nodes":           g.Order(),
				"edges":           g.Size(),
				"truncated":       g.Truncated,
				"truncate_reason": g.TruncateReason,
			})
		}),
	}

	order := &cobra.Command{
		Use:   "order",
		Short: "Print nodes in dependency order",
		Args:  cobra.NoArgs,
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, _ []string) error {
			g, err := build(a)
			if err != nil {
				return err
			}
			sorted, err := g.TopoSort()
			if err != nil {
				return err
			}
			keys := make([]graph.NodeKey, len(sorted))
			for i, idx := range sorted {
				keys[i] = g.Nodes[idx].Key
			}
			return printJSON(cmd, keys)
		}),
	}

	var topN int
	hotspots := &cobra.Command{
		Use:   "hotspots",
		Short: "Rank nodes by betweenness centrality",
		Args:  cobra.NoArgs,
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, _ []string) error {
			g, err := build(a)
			if err != nil {
				return err
			}
			ranked := g.Hotspots(topN)
			for i := range ranked {
				ranked[i].Label = labelFor(a, ranked[i].Key)
			}
			return printJSON(cmd, ranked)
		}),
	}
	hotspots.Flags().IntVarP(&topN, "top", "n", 10, "how many nodes to show")

	path := &cobra.Command{
		Use:   "path <from-kind> <from-id> <to-kind> <to-id>",
		Short: "Find the shortest directed path between two records",
		Args:  cobra.ExactArgs(4),
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, args []string) error {
			g, err := build(a)
			if err != nil {
				return err
			}
			from := graph.NodeKey{Kind: types.EntityKind(args[0]), ID: args[1]}
			to := graph.NodeKey{Kind: types.EntityKind(args[2]), ID: args[3]}
			nodes, found, truncated := g.ShortestPath(from, to)
			return printJSON(cmd, map[string]any{
				"found":     found,
				"truncated": truncated,
				"path":      nodes,
			})
		}),
	}

	cycles := &cobra.Command{
		Use:   "cycles",
		Short: "List dependency cycles in the link graph",
		Args:  cobra.NoArgs,
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, _ []string) error {
			g, err := build(a)
			if err != nil {
				return err
			}
			return printJSON(cmd, g.Cycles())
		}),
	}

	components := &cobra.Command{
		Use:   "components",
		Short: "List weakly connected components, largest first",
		Args:  cobra.NoArgs,
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, _ []string) error {
			g, err := build(a)
			if err != nil {
				return err
			}
			return printJSON(cmd, g.Components())
		}),
	}

	var depth int
	neighbors := &cobra.Command{
		Use:   "neighbors <kind> <id>",
		Short: "List records reachable from one record",
		Args:  cobra.ExactArgs(2),
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, args []string) error {
			g, err := build(a)
			if err != nil {
				return err
			}
			start := graph.NodeKey{Kind: types.EntityKind(args[0]), ID: args[1]}
			keys, truncated := g.Neighborhood(start, depth)
			return printJSON(cmd, map[string]any{
				"truncated": truncated,
				"nodes":     keys,
			})
		}),
	}
	neighbors.Flags().IntVar(&depth, "depth", 0, "traversal depth, 0 for the budget maximum")

	cmd.AddCommand(stats, order, hotspots, path, cycles, components, neighbors)
	return cmd
}

// parseSeeds turns repeated kind:id flag values into node keys.
func parseSeeds(args []string) ([]graph.NodeKey, error) {
	seeds := make([]graph.NodeKey, 0, len(args))
	for _, arg := range args {
		kind, id, ok := strings.Cut(arg, ":")
		if !ok || id == "" {
			return nil, types.WrapInvalid("seed %q is not kind:id", arg)
		}
		if !types.ValidKind(types.EntityKind(kind)) {
			return nil, types.WrapInvalid("seed %q has unknown kind %q", arg, kind)
		}
		seeds = append(seeds, graph.NodeKey{Kind: types.EntityKind(kind), ID: id})
	}
	return seeds, nil
}

// labelFor resolves display text for a node, best effort. A missing
// record just renders without a label.
func labelFor(a *app, key graph.NodeKey) string {
	switch key.Kind {
	case types.KindSession:
		if s, err := a.store.GetSession(key.ID); err == nil {
			return s.Title
		}
	case types.KindResearch:
		if r, err := a.store.GetResearchItem(key.ID); err == nil {
			return r.Question
		}
	case types.KindFinding:
		if f, err := a.store.GetFinding(key.ID); err == nil {
			return f.Claim
		}
	case types.KindHypothesis:
		if h, err := a.store.GetHypothesis(key.ID); err == nil {
			return h.Statement
		}
	case types.KindInsight:
		if in, err := a.store.GetInsight(key.ID); err == nil {
			return in.Content
		}
	case types.KindTask:
		if t, err := a.store.GetTask(key.ID); err == nil {
			return t.Title
		}
	case types.KindDecision:
		if d, err := a.store.GetDecision(key.ID); err == nil {
			return d.Decision.Question
		}
	}
	return ""
}
