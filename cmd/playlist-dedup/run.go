package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/snapetech/playlist-dedup/internal/catalog"
	"github.com/snapetech/playlist-dedup/internal/config"
	"github.com/snapetech/playlist-dedup/internal/dedup"
	"github.com/snapetech/playlist-dedup/internal/history"
	"github.com/snapetech/playlist-dedup/internal/indexer"
	"github.com/snapetech/playlist-dedup/internal/logging"
	"github.com/snapetech/playlist-dedup/internal/metrics"
	"github.com/snapetech/playlist-dedup/internal/prompt"
	"github.com/snapetech/playlist-dedup/internal/quality"
	"github.com/snapetech/playlist-dedup/internal/report"
)

// resolveConfig layers explicitly set flags over .env, the config file and the environment.
func resolveConfig(flags *pflag.FlagSet, opts options) (*config.Config, error) {
	if err := config.LoadEnvFile(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if flags.Changed("format") {
		cfg.Format = opts.format
	}
	if flags.Changed("report") {
		cfg.Report = opts.report
	}
	if flags.Changed("yes") {
		cfg.AssumeYes = opts.yes
	}
	if flags.Changed("backup") {
		cfg.Backup = opts.backup
	}
	if flags.Changed("history-db") {
		cfg.HistoryDB = opts.historyDB
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = opts.metricsFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type runner struct {
	opts  options
	cfg   *config.Config
	in    io.Reader
	out   io.Writer // report
	human io.Writer // status lines and the prompt; stderr when the report is machine-readable
	log   zerolog.Logger
	runID string
	now   func() time.Time
}

func newRunner(opts options, cfg *config.Config, in io.Reader, out, errOut io.Writer) *runner {
	runID := uuid.NewString()
	human := out
	if !strings.EqualFold(cfg.Report, string(report.FormatTable)) {
		human = errOut
	}
	return &runner{
		opts:  opts,
		cfg:   cfg,
		in:    in,
		out:   out,
		human: human,
		log: logging.New(logging.Options{
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Verbose: opts.verbose,
			Output:  errOut,
			RunID:   runID,
		}),
		runID: runID,
		now:   time.Now,
	}
}

func (r *runner) run(ctx context.Context) (err error) {
	start := r.now()
	input := filepath.Clean(r.opts.input)
	target := input
	if r.opts.output != "" {
		target = filepath.Clean(r.opts.output)
	}
	inPlace := samePath(input, target)
	format, _ := catalog.ParseFormat(r.cfg.Format) // validated by resolveConfig
	log := logging.WithComponent(r.log, "cli")
	log.Debug().Str("input", input).Str("output", target).Bool("dry_run", r.opts.dryRun).Msg("Processing...")

	m := metrics.NewRun()
	defer func() {
		if r.cfg.MetricsFile == "" {
			return
		}
		m.Finish(start, r.now(), err == nil)
		if werr := m.WriteFile(r.cfg.MetricsFile); werr != nil {
			log.Warn().Err(werr).Str("path", r.cfg.MetricsFile).Msg("write metrics")
		}
	}()

	if !r.opts.dryRun {
		paths := []string{input}
		if !inPlace {
			paths = append(paths, target)
		}
		release, lerr := lockPlaylists(paths...)
		if lerr != nil {
			return fail(lerr)
		}
		defer release()
	}

	pl, err := indexer.LoadFile(input)
	if err != nil {
		var de *indexer.DecodeError
		if errors.As(err, &de) {
			log.Error().Err(err).Int("offset", de.Offset).Msg("playlist is not valid text")
		} else {
			log.Error().Err(err).Msg("cannot load playlist")
		}
		return fail(err)
	}

	entries := pl.Snapshot()
	records := make([]dedup.Record, len(entries))
	for i := range entries {
		records[i] = entries[i]
	}
	res := dedup.New(quality.Default).Deduplicate(records)
	m.Observe(res, r.opts.dryRun)

	fmt.Fprintf(r.human, "Found %d duplicates.\n", res.Summary.Groups)
	dl := logging.WithComponent(r.log, "dedup")
	for _, g := range res.Groups {
		for _, k := range g.Kept {
			dl.Debug().Str("name", k.Name).Str("tier", string(k.Tier)).Msgf("Preserving %s", quality.RealName(k.Name))
		}
		for _, rm := range g.Removed {
			dl.Debug().Int("index", rm.Index).Str("name", rm.Name).Msgf("Removing %s %s", g.Key, rm.Tier)
		}
	}
	if err := report.Render(r.out, report.Format(r.cfg.Report), report.Document{
		Input:   input,
		DryRun:  r.opts.dryRun,
		Summary: res.Summary,
		Groups:  res.Groups,
	}); err != nil {
		return fail(fmt.Errorf("render report: %w", err))
	}

	if r.opts.dryRun {
		r.recordHistory(ctx, start, input, target, res, entries)
		return nil
	}

	if inPlace && res.Summary.Removed == 0 {
		log.Info().Msg("nothing to remove, playlist left untouched")
		fmt.Fprintln(r.human, "All done!")
		return nil
	}

	if inPlace && !r.cfg.AssumeYes {
		ok, perr := prompt.Confirm(r.in, r.human, prompt.OverwriteWarning)
		if perr != nil {
			return fail(perr)
		}
		if !ok {
			fmt.Fprintln(r.human, "Exiting...")
			return nil
		}
	}

	if inPlace && r.cfg.Backup {
		bak, berr := catalog.Backup(input)
		if berr != nil {
			return fail(berr)
		}
		log.Info().Str("backup", bak).Msg("backup written")
	}

	ids := make(map[string]struct{}, len(res.Removals))
	for _, rm := range res.Removals {
		ids[entries[rm.Index].ID] = struct{}{}
	}
	removed := pl.Remove(ids)
	if err := pl.Save(target, format); err != nil {
		log.Error().Err(err).Str("path", target).Msg("cannot write playlist")
		return fail(err)
	}
	log.Info().Int("removed", removed).Int("kept", pl.Len()).Str("path", target).Msg("playlist written")

	r.recordHistory(ctx, start, input, target, res, entries)
	fmt.Fprintln(r.human, "All done!")
	return nil
}

// recordHistory appends the run to the history DB when one is configured. Failures are
// logged, never fatal: the playlist has already been handled.
func (r *runner) recordHistory(ctx context.Context, start time.Time, input, target string, res dedup.Result, entries []catalog.Entry) {
	if r.cfg.HistoryDB == "" {
		return
	}
	log := logging.WithComponent(r.log, "history")
	store, err := history.Open(ctx, r.cfg.HistoryDB)
	if err != nil {
		log.Warn().Err(err).Msg("open history")
		return
	}
	defer store.Close()

	keys := make(map[int]string, len(res.Removals))
	for _, g := range res.Groups {
		for _, rm := range g.Removed {
			keys[rm.Index] = g.Key
		}
	}
	removals := make([]history.Removal, 0, len(res.Removals))
	for _, rm := range res.Removals {
		e := entries[rm.Index]
		removals = append(removals, history.Removal{
			Position: rm.Index,
			Key:      keys[rm.Index],
			Name:     rm.Name,
			Tier:     string(rm.Tier),
			TvgID:    indexer.AttrValue(e.Attrs, "tvg-id"),
			URL:      e.URL,
		})
	}
	if _, err := store.Record(ctx, history.Run{
		ID:        r.runID,
		StartedAt: start,
		Input:     input,
		Output:    target,
		DryRun:    r.opts.dryRun,
		Summary:   res.Summary,
	}, removals); err != nil {
		log.Warn().Err(err).Msg("record history")
	}
}

// lockPlaylists takes a non-blocking lock on <path>.lock for each path. It fails at once
// if another run holds any of them, releasing whatever it already took.
func lockPlaylists(paths ...string) (func(), error) {
	var held []*flock.Flock
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			_ = held[i].Unlock()
		}
	}
	for _, p := range paths {
		lock := flock.New(p + ".lock")
		ok, err := lock.TryLock()
		if err != nil {
			release()
			return nil, fmt.Errorf("lock %s: %w", p, err)
		}
		if !ok {
			release()
			return nil, fmt.Errorf("playlist %s is being rewritten by another run", p)
		}
		held = append(held, lock)
	}
	return release, nil
}

func samePath(a, b string) bool {
	if a == b {
		return true
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
