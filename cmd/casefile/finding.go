package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/casefile/internal/sqlite"
	"github.com/mesh-intelligence/casefile/pkg/types"
)

func newFindingCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finding",
		Short: "Record and inspect findings",
	}

	var session, confidence, source string
	add := &cobra.Command{
		Use:   "add <subject> <claim>",
		Short: "Record a finding against a subject",
		Args:  cobra.ExactArgs(2),
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, args []string) error {
			f, err := a.store.CreateFinding(session, args[0], args[1], types.Confidence(confidence), source)
			if err != nil {
				return err
			}
			return printJSON(cmd, f)
		}),
	}
	add.Flags().StringVar(&session, "session", "", "session id (required)")
	add.Flags().StringVar(&confidence, "confidence", string(types.ConfidenceMedium), "low, medium, or high")
	add.Flags().StringVar(&source, "source", "", "where the claim was observed")
	add.MarkFlagRequired("session")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one finding",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, args []string) error {
			f, err := a.store.GetFinding(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, f)
		}),
	}

	var listSession, listSubject string
	list := &cobra.Command{
		Use:   "list",
		Short: "List findings",
		Args:  cobra.NoArgs,
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, _ []string) error {
			findings, err := a.store.ListFindings(listSession, listSubject)
			if err != nil {
				return err
			}
			return printJSON(cmd, findings)
		}),
	}
	list.Flags().StringVar(&listSession, "session", "", "filter by session")
	list.Flags().StringVar(&listSubject, "subject", "", "filter by subject")

	var searchLimit int
	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Search findings by subject or claim text",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, args []string) error {
			findings, err := a.store.SearchFindings(args[0], searchLimit)
			if err != nil {
				return err
			}
			return printJSON(cmd, findings)
		}),
	}
	search.Flags().IntVarP(&searchLimit, "limit", "n", 20, "maximum results")

	cmd.AddCommand(add, show, list, search,
		newUpdateCmd(flags, types.KindFinding),
		newDeleteCmd(flags, types.KindFinding))
	return cmd
}

// newUpdateCmd builds the shared partial-update subcommand. Fields are
// set with repeated --set field=value and cleared with --clear field.
func newUpdateCmd(flags *rootFlags, kind types.EntityKind) *cobra.Command {
	var sets []string
	var clears []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Apply a partial update",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, args []string) error {
			cols, err := sqlite.PatchColumns(kind)
			if err != nil {
				return err
			}
			patch, err := buildPatch(cols, sets, clears)
			if err != nil {
				return err
			}
			return a.store.UpdateEntity(kind, args[0], patch)
		}),
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value to set")
	cmd.Flags().StringArrayVar(&clears, "clear", nil, "field to clear")
	return cmd
}

// newDeleteCmd builds the shared delete subcommand.
func newDeleteCmd(flags *rootFlags, kind types.EntityKind) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record and its links",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(flags, func(a *app, _ *cobra.Command, args []string) error {
			return a.store.DeleteEntity(kind, args[0])
		}),
	}
}

// newStatusCmd builds the shared lifecycle transition subcommand.
func newStatusCmd(flags *rootFlags, kind types.EntityKind) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <to>",
		Short: "Move a record through its lifecycle",
		Args:  cobra.ExactArgs(2),
		RunE: runWithApp(flags, func(a *app, _ *cobra.Command, args []string) error {
			return a.store.Transition(kind, args[0], args[1])
		}),
	}
}
