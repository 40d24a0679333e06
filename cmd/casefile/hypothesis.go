package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

func newHypothesisCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hypothesis",
		Short: "Track proposed explanations",
	}

	var session string
	add := &cobra.Command{
		Use:   "add <statement>",
		Short: "Record a hypothesis",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, args []string) error {
			h, err := a.store.CreateHypothesis(session, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, h)
		}),
	}
	add.Flags().StringVar(&session, "session", "", "session id (required)")
	add.MarkFlagRequired("session")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one hypothesis",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, args []string) error {
			h, err := a.store.GetHypothesis(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, h)
		}),
	}

	var listSession string
	list := &cobra.Command{
		Use:   "list",
		Short: "List hypotheses",
		Args:  cobra.NoArgs,
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, _ []string) error {
			hypotheses, err := a.store.ListHypotheses(listSession)
			if err != nil {
				return err
			}
			return printJSON(cmd, hypotheses)
		}),
	}
	list.Flags().StringVar(&listSession, "session", "", "filter by session")

	cmd.AddCommand(add, show, list,
		newUpdateCmd(flags, types.KindHypothesis),
		newStatusCmd(flags, types.KindHypothesis),
		newDeleteCmd(flags, types.KindHypothesis))
	return cmd
}
