package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

func newInsightCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insight",
		Short: "Record distilled conclusions",
	}

	var session string
	add := &cobra.Command{
		Use:   "add <content>",
		Short: "Record an insight",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, args []string) error {
			in, err := a.store.CreateInsight(session, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, in)
		}),
	}
	add.Flags().StringVar(&session, "session", "", "session id (required)")
	add.MarkFlagRequired("session")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one insight",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, args []string) error {
			in, err := a.store.GetInsight(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, in)
		}),
	}

	var listSession string
	list := &cobra.Command{
		Use:   "list",
		Short: "List insights",
		Args:  cobra.NoArgs,
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, _ []string) error {
			insights, err := a.store.ListInsights(listSession)
			if err != nil {
				return err
			}
			return printJSON(cmd, insights)
		}),
	}
	list.Flags().StringVar(&listSession, "session", "", "filter by session")

	cmd.AddCommand(add, show, list,
		newUpdateCmd(flags, types.KindInsight),
		newDeleteCmd(flags, types.KindInsight))
	return cmd
}
