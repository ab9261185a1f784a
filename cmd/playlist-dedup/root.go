package main

import (
	"io"

	"github.com/spf13/cobra"
)

type options struct {
	input       string
	output      string
	format      string
	report      string
	configPath  string
	historyDB   string
	metricsFile string
	verbose     bool
	yes         bool
	dryRun      bool
	backup      bool
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "playlist-dedup -i PLAYLIST",
		Short: "Remove lower-quality duplicate channels from an M3U playlist",
		Long: `playlist-dedup groups channels whose names differ only by a quality suffix
(4K+, 4K, FHD, HD, SD) and keeps the best one of each group.

By default the input playlist is overwritten after confirmation.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd.Flags(), opts)
			if err != nil {
				return usage(err)
			}
			r := newRunner(opts, cfg, stdin, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return r.run(cmd.Context())
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "Path to the M3U/M3U Plus playlist (.br for brotli)")
	f.StringVarP(&opts.output, "output", "o", "", "Write the result here instead of overwriting the input")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output")
	f.BoolVarP(&opts.yes, "yes", "y", false, "Overwrite without asking")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Report duplicates without writing anything")
	f.BoolVar(&opts.backup, "backup", false, "Copy the input to <input>.bak before overwriting")
	f.StringVar(&opts.format, "format", "", "Output format: plus (keep attributes) or plain")
	f.StringVar(&opts.report, "report", "", "Report format: table, json or yaml")
	f.StringVar(&opts.configPath, "config", "", "TOML configuration file")
	f.StringVar(&opts.historyDB, "history-db", "", "SQLite file recording each run and its removals")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus textfile metrics here")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagFilename("input", "m3u", "m3u8", "br")
	_ = cmd.MarkFlagFilename("config", "toml")

	cmd.AddCommand(newHistoryCommand())
	return cmd
}
