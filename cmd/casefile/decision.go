package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/casefile/internal/sqlite"
	"github.com/mesh-intelligence/casefile/pkg/types"
)

func newDecisionCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decision",
		Short: "Record and inspect decision traces",
	}
	cmd.AddCommand(
		newDecisionRecordCmd(flags),
		newDecisionShowCmd(flags),
		newDecisionListCmd(flags),
		newDecisionUpdateCmd(flags),
		newDecisionSupersedeCmd(flags),
		newDecisionPrecedentCmd(flags),
	)
	return cmd
}

func newDecisionRecordCmd(flags *rootFlags) *cobra.Command {
	var (
		jsonPath        string
		session         string
		question        string
		because         string
		category        string
		subjectType     string
		subjectID       string
		confidence      string
		outcomeSummary  string
		approver        string
		policyType      string
		policyID        string
		options         []string
		choose          string
		exceptionKind   string
		exceptionReason string
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a decision with its options and rationale",
		Long: "Record a decision. Either pass --json with a file (or - for stdin)\n" +
			"holding the full unit of work, or build it from flags: repeat\n" +
			"--option label=summary and pick one with --choose.",
		Args: cobra.NoArgs,
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, _ []string) error {
			var nd types.NewDecision
			if jsonPath != "" {
				if err := readNewDecision(jsonPath, &nd); err != nil {
					return err
				}
			} else {
				nd = types.NewDecision{
					Decision: types.Decision{
						SessionID:       session,
						Category:        category,
						SubjectType:     types.EntityKind(subjectType),
						SubjectID:       subjectID,
						Question:        question,
						Because:         because,
						OutcomeSummary:  outcomeSummary,
						PolicyType:      policyType,
						PolicyID:        policyID,
						ExceptionKind:   exceptionKind,
						ExceptionReason: exceptionReason,
						Approver:        approver,
						Confidence:      types.Confidence(confidence),
					},
				}
				for i, opt := range options {
					label, summary, _ := strings.Cut(opt, "=")
					nd.Options = append(nd.Options, types.DecisionOption{
						Label:    label,
						Summary:  summary,
						Chosen:   label == choose,
						Position: i,
					})
				}
			}
			view, err := a.store.CreateDecision(nd)
			if err != nil {
				return err
			}
			return printJSON(cmd, view)
		}),
	}
	cmd.Flags().StringVar(&jsonPath, "json", "", "read the full decision from a file, or - for stdin")
	cmd.Flags().StringVar(&session, "session", "", "session id")
	cmd.Flags().StringVar(&question, "question", "", "the question that was decided")
	cmd.Flags().StringVar(&because, "because", "", "why the chosen option won")
	cmd.Flags().StringVar(&category, "category", "", "verdict, architecture, planning, exception, or completion")
	cmd.Flags().StringVar(&subjectType, "subject-type", "", "kind of the entity the decision is about")
	cmd.Flags().StringVar(&subjectID, "subject-id", "", "id of the entity the decision is about")
	cmd.Flags().StringVar(&confidence, "confidence", "", "low, medium, or high")
	cmd.Flags().StringVar(&outcomeSummary, "outcome-summary", "", "one-line account of what the decision produced")
	cmd.Flags().StringVar(&approver, "approver", "", "who signed off")
	cmd.Flags().StringVar(&policyType, "policy-type", "", "kind of policy the decision applies or overrides")
	cmd.Flags().StringVar(&policyID, "policy-id", "", "id of that policy")
	cmd.Flags().StringArrayVar(&options, "option", nil, "candidate option as label=summary (repeatable)")
	cmd.Flags().StringVar(&choose, "choose", "", "label of the chosen option")
	cmd.Flags().StringVar(&exceptionKind, "exception-kind", "", "policy_override, precedent_break, or constraint_waiver")
	cmd.Flags().StringVar(&exceptionReason, "exception-reason", "", "why the exception was taken")
	return cmd
}

func readNewDecision(path string, nd *types.NewDecision) error {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, nd); err != nil {
		return types.WrapInvalid("malformed decision JSON: %v", err)
	}
	return nil
}

func newDecisionShowCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a decision with options, evidence, and outcomes",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, args []string) error {
			view, err := a.store.GetDecision(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, view)
		}),
	}
}

func newDecisionListCmd(flags *rootFlags) *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List decisions",
		Args:  cobra.NoArgs,
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, _ []string) error {
			views, err := a.store.ListDecisions(session)
			if err != nil {
				return err
			}
			return printJSON(cmd, views)
		}),
	}
	cmd.Flags().StringVar(&session, "session", "", "filter by session")
	return cmd
}

func newDecisionUpdateCmd(flags *rootFlags) *cobra.Command {
	var sets, clears []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Apply a partial update to a decision",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(flags, func(a *app, _ *cobra.Command, args []string) error {
			patch, err := buildPatch(sqlite.DecisionPatchColumns(), sets, clears)
			if err != nil {
				return err
			}
			return a.store.UpdateDecision(args[0], patch)
		}),
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value to set")
	cmd.Flags().StringArrayVar(&clears, "clear", nil, "field to clear")
	return cmd
}

func newDecisionSupersedeCmd(flags *rootFlags) *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "supersede <id>",
		Short: "Mark a decision as replaced by a newer one",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(flags, func(a *app, _ *cobra.Command, args []string) error {
			return a.store.SupersedeDecision(args[0], by)
		}),
	}
	cmd.Flags().StringVar(&by, "by", "", "id of the superseding decision (required)")
	cmd.MarkFlagRequired("by")
	return cmd
}

func newDecisionPrecedentCmd(flags *rootFlags) *cobra.Command {
	var follows string
	cmd := &cobra.Command{
		Use:   "precedent <id>",
		Short: "Record that a decision follows an earlier one",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(flags, func(a *app, _ *cobra.Command, args []string) error {
			return a.store.LinkPrecedent(args[0], follows)
		}),
	}
	cmd.Flags().StringVar(&follows, "follows", "", "id of the precedent decision (required)")
	cmd.MarkFlagRequired("follows")
	return cmd
}
