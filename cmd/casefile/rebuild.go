package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/casefile/internal/trail"
)

func newRebuildCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Drop the database contents and replay the trail",
		Long: "Rebuild empties every table and replays the trail directory from\n" +
			"scratch. The trail is the source of truth; the database is just a\n" +
			"materialized view of it.",
		Args: cobra.NoArgs,
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, _ []string) error {
			// Detach the writer so replay never logs its own writes.
			a.store.SetTrail(nil)
			defer func() {
				if a.writer != nil {
					a.store.SetTrail(a.writer)
				}
			}()

			replayer := trail.NewReplayer(a.store, a.cfg.TrailPath(), a.log)
			report, err := replayer.Rebuild()
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		}),
	}
}
