package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

func newPrecedentCmd(flags *rootFlags) *cobra.Command {
	var subjectType, subjectID, query string
	var limit int
	cmd := &cobra.Command{
		Use:   "precedent",
		Short: "Search past decisions relevant to a subject entity or question",
		Args:  cobra.NoArgs,
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, _ []string) error {
			hits, err := a.store.SearchPrecedents(
				types.EntityKind(subjectType), subjectID, query, time.Now(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, hits)
		}),
	}
	cmd.Flags().StringVar(&subjectType, "subject-type", "", "kind of the subject entity")
	cmd.Flags().StringVar(&subjectID, "subject-id", "", "id of the subject entity")
	cmd.Flags().StringVar(&query, "query", "", "free text matched against decision content")
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "maximum results")
	return cmd
}
