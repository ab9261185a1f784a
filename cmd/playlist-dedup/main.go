// Command playlist-dedup removes lower-quality copies of channels from an M3U playlist.
//
// A channel listed as "TVP1 HD", "TVP1 FHD" and "TVP1 4K+" keeps only "TVP1 4K+".
// Quality tiers, best to worst: 4K+, 4K, FHD, HD, SD.
//
//	playlist-dedup -i playlist.m3u            prompt, then overwrite playlist.m3u
//	playlist-dedup -i playlist.m3u -o out.m3u write the result elsewhere, no prompt
//	playlist-dedup -i playlist.m3u --dry-run  report only
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes.
const (
	exitOK    = 0
	exitFail  = 1 // load, write or lock failure
	exitUsage = 2 // bad flags or configuration
)

// exitError carries the process exit code for an error returned from the command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func fail(err error) error  { return &exitError{code: exitFail, err: err} }
func usage(err error) error { return &exitError{code: exitUsage, err: err} }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the root command with args and maps its error to an exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := newRootCommand(stdin, stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintln(stderr, "Error:", err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, context.Canceled) {
		return exitFail
	}
	// Anything cobra rejects before RunE (unknown flag, missing --input) is a usage error.
	fmt.Fprint(stderr, cmd.UsageString())
	return exitUsage
}
