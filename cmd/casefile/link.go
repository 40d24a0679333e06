package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

func newLinkCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Manage typed edges between records",
	}

	add := &cobra.Command{
		Use:   "add <source-kind> <source-id> <relation> <target-kind> <target-id>",
		Short: "Create a typed edge",
		Args:  cobra.ExactArgs(5),
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, args []string) error {
			link, err := a.store.Link(
				types.EntityKind(args[0]), args[1],
				types.EntityKind(args[3]), args[4],
				types.Relation(args[2]),
			)
			if err != nil {
				return err
			}
			return printJSON(cmd, link)
		}),
	}

	remove := &cobra.Command{
		Use:   "remove <source-kind> <source-id> <relation> <target-kind> <target-id>",
		Short: "Remove a typed edge",
		Args:  cobra.ExactArgs(5),
		RunE: runWithApp(flags, func(a *app, _ *cobra.Command, args []string) error {
			return a.store.Unlink(
				types.EntityKind(args[0]), args[1],
				types.EntityKind(args[3]), args[4],
				types.Relation(args[2]),
			)
		}),
	}

	list := &cobra.Command{
		Use:   "list <kind> <id>",
		Short: "List edges touching a record",
		Args:  cobra.ExactArgs(2),
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, args []string) error {
			links, err := a.store.LinksFor(types.EntityKind(args[0]), args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, links)
		}),
	}

	cmd.AddCommand(add, remove, list)
	return cmd
}
