package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

func newTaskCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Track follow-up work",
	}

	var session, detail string
	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Open a task",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, args []string) error {
			t, err := a.store.CreateTask(session, args[0], detail)
			if err != nil {
				return err
			}
			return printJSON(cmd, t)
		}),
	}
	add.Flags().StringVar(&session, "session", "", "session id (required)")
	add.Flags().StringVar(&detail, "detail", "", "longer description")
	add.MarkFlagRequired("session")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, args []string) error {
			t, err := a.store.GetTask(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, t)
		}),
	}

	var listSession, listStatus string
	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, _ []string) error {
			tasks, err := a.store.ListTasks(listSession, listStatus)
			if err != nil {
				return err
			}
			return printJSON(cmd, tasks)
		}),
	}
	list.Flags().StringVar(&listSession, "session", "", "filter by session")
	list.Flags().StringVar(&listStatus, "status", "", "filter by status")

	cmd.AddCommand(add, show, list,
		newUpdateCmd(flags, types.KindTask),
		newStatusCmd(flags, types.KindTask),
		newDeleteCmd(flags, types.KindTask))
	return cmd
}
