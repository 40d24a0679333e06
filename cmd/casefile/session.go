package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

func newSessionCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage work sessions",
	}

	start := &cobra.Command{
		Use:   "start <title>",
		Short: "Start a new session",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, args []string) error {
			sess, err := a.store.CreateSession(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, sess)
		}),
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, args []string) error {
			sess, err := a.store.GetSession(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, sess)
		}),
	}

	var listStatus string
	list := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		Args:  cobra.NoArgs,
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, _ []string) error {
			sessions, err := a.store.ListSessions(listStatus)
			if err != nil {
				return err
			}
			return printJSON(cmd, sessions)
		}),
	}
	list.Flags().StringVar(&listStatus, "status", "", "filter by status")

	var wrapSummary string
	wrap := &cobra.Command{
		Use:   "wrap <id>",
		Short: "Wrap up a session",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, args []string) error {
			if wrapSummary != "" {
				patch, err := patchOf([]string{"title", "summary"}, map[string]any{"summary": wrapSummary})
				if err != nil {
					return err
				}
				if err := a.store.UpdateEntity(types.KindSession, args[0], patch); err != nil {
					return err
				}
			}
			if err := a.store.Transition(types.KindSession, args[0], types.SessionWrappedUp); err != nil {
				return err
			}
			sess, err := a.store.GetSession(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, sess)
		}),
	}
	wrap.Flags().StringVar(&wrapSummary, "summary", "", "closing summary")

	abandon := &cobra.Command{
		Use:   "abandon <id>",
		Short: "Abandon a session",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, args []string) error {
			if err := a.store.Transition(types.KindSession, args[0], types.SessionAbandoned); err != nil {
				return err
			}
			sess, err := a.store.GetSession(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, sess)
		}),
	}

	cmd.AddCommand(start, show, list, wrap, abandon)
	return cmd
}
