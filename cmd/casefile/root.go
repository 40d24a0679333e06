package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/casefile/internal/sqlite"
	"github.com/mesh-intelligence/casefile/internal/trail"
	"github.com/mesh-intelligence/casefile/pkg/types"
)

// app holds the wired runtime shared by every subcommand.
type app struct {
	cfg    types.Config
	store  *sqlite.Store
	writer *trail.Writer
	log    *slog.Logger
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}

// rootFlags are the persistent flags resolved before any subcommand
// runs.
type rootFlags struct {
	configDir string
	dataDir   string
	logLevel  string
	noTrail   bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "casefile",
		Short:         "Investigation log with decision traces and deterministic replay",
		Long:          "casefile records sessions, findings, hypotheses, tasks, and decisions\nin an append-only trail, materialized into SQLite for querying.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory")
	cmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory holding the database and trail")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&flags.noTrail, "no-trail", false, "disable trail appends for this invocation")

	cmd.AddCommand(
		newVersionCmd(),
		newInitCmd(flags),
		newSessionCmd(flags),
		newResearchCmd(flags),
		newFindingCmd(flags),
		newHypothesisCmd(flags),
		newInsightCmd(flags),
		newTaskCmd(flags),
		newLinkCmd(flags),
		newDecisionCmd(flags),
		newPrecedentCmd(flags),
		newGraphCmd(flags),
		newRebuildCmd(flags),
	)
	return cmd
}

// openApp resolves configuration, opens the store, and wires the trail
// writer. Callers defer a.close().
func openApp(flags *rootFlags) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg.LogLevel)

	store, err := sqlite.Open(cfg, log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, store: store, log: log}

	if cfg.TrailEnabled {
		writer, err := trail.NewWriter(cfg.TrailPath(), log)
		if err != nil {
			store.Close()
			return nil, err
		}
		a.writer = writer
		store.SetTrail(writer)
	}
	return a, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// newInitCmd creates the data directory, database schema, and trail
// directory, then reports the resolved paths.
func newInitCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and trail directory",
		Args:  cobra.NoArgs,
		RunE: runWithApp(flags, func(a *app, cmd *cobra.Command, _ []string) error {
			return printJSON(cmd, map[string]string{
				"data_dir": a.cfg.DataDir,
				"database": a.cfg.DatabasePath(),
				"trail":    a.cfg.TrailPath(),
			})
		}),
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the casefile version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// version is stamped by the build; see magefiles.
var version = "dev"
