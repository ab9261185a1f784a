package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/snapetech/playlist-dedup/internal/config"
	"github.com/snapetech/playlist-dedup/internal/history"
	"github.com/snapetech/playlist-dedup/internal/report"
)

func newHistoryCommand() *cobra.Command {
	var (
		configPath string
		dbPath     string
		runID      string
		format     string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past runs, or what one run removed, from the history database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(".env"); err != nil {
				return usage(err)
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return usage(err)
			}
			if cmd.Flags().Changed("history-db") {
				cfg.HistoryDB = dbPath
			}
			if cmd.Flags().Changed("report") {
				cfg.Report = format
			}
			if err := cfg.Validate(); err != nil {
				return usage(err)
			}
			if cfg.HistoryDB == "" {
				return usage(errors.New("no history database: pass --history-db or set history_db"))
			}
			// Reading must not create an empty database as a side effect.
			if _, err := os.Stat(cfg.HistoryDB); err != nil {
				return fail(fmt.Errorf("history db: %w", err))
			}

			ctx := cmd.Context()
			store, err := history.Open(ctx, cfg.HistoryDB)
			if err != nil {
				return fail(err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			f := report.Format(cfg.Report)
			if runID != "" {
				removals, err := store.Removals(ctx, runID)
				if err != nil {
					return fail(err)
				}
				return report.RenderRemovals(out, f, removals)
			}
			runs, err := store.Runs(ctx, limit)
			if err != nil {
				return fail(err)
			}
			return report.RenderRuns(out, f, runs)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "TOML configuration file")
	f.StringVar(&dbPath, "history-db", "", "SQLite history file written by earlier runs")
	f.StringVar(&runID, "run", "", "Show the entries removed by this run ID")
	f.StringVar(&format, "report", "", "Output format: table, json or yaml")
	f.IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 = all)")
	return cmd
}
