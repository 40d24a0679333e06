package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

func newResearchCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "research",
		Short: "Track open questions",
	}

	var session string
	add := &cobra.Command{
		Use:   "add <question>",
		Short: "Open a research question",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, args []string) error {
			r, err := a.store.CreateResearchItem(session, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, r)
		}),
	}
	add.Flags().StringVar(&session, "session", "", "session id (required)")
	add.MarkFlagRequired("session")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one research item",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, args []string) error {
			r, err := a.store.GetResearchItem(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, r)
		}),
	}

	var listSession string
	list := &cobra.Command{
		Use:   "list",
		Short: "List research items",
		Args:  cobra.NoArgs,
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, _ []string) error {
			items, err := a.store.ListResearchItems(listSession)
			if err != nil {
				return err
			}
			return printJSON(cmd, items)
		}),
	}
	list.Flags().StringVar(&listSession, "session", "", "filter by session")

	cmd.AddCommand(add, show, list,
		newUpdateCmd(flags, types.KindResearch),
		newStatusCmd(flags, types.KindResearch),
		newDeleteCmd(flags, types.KindResearch))
	return cmd
}
