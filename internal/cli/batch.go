package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/viewmerge/internal/engine"
)

// BatchCmdOptions holds flags for the batch command.
type BatchCmdOptions struct {
	*RootOptions
	Names    []string
	Force    bool
	PageSize int
	Jobs     int
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchCmdOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Compose every view group that needs it",
		Long: `Compose view groups page by page.

Without --force only groups that have extensions but no computed view yet
are composed. With --force every group that has extensions or a computed
view is recomposed. --name restricts the batch to originals with that name
and may be repeated; computed views of those names that no longer have an
eligible extension are removed.

Interrupt with Ctrl-C to stop after the current page.

Examples:
  viewmerge batch
  viewmerge batch --force --jobs 8
  viewmerge batch --name order_form --name partner_form`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(opts, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Names, "name", nil, "compose only originals with this name (repeatable)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "recompose groups that already have a computed view")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "candidates fetched per page (default from config)")
	cmd.Flags().IntVar(&opts.Jobs, "jobs", 0, "groups composed at once (default from config)")

	return cmd
}

func runBatch(opts *BatchCmdOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if opts.PageSize < 0 || opts.Jobs < 0 {
		_ = formatter.Error(ErrCodeInvalidArg, "--page-size and --jobs must not be negative", nil)
		return NewExitError(ExitCommandError, "--page-size and --jobs must not be negative")
	}

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	eng := opts.newEngine(st)

	ctx, stop := signalContext(cmd)
	defer stop()

	result, err := eng.ComposeBatch(ctx, engine.BatchOptions{
		Names:    opts.Names,
		Force:    opts.Force,
		PageSize: opts.PageSize,
		Jobs:     opts.Jobs,
	})

	var cliErr *CLIError
	var exitErr error
	switch {
	case err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		cliErr = &CLIError{Code: ErrCodeBatchFailed, Message: "batch interrupted"}
		exitErr = WrapExitError(ExitFailure, "batch interrupted", err)
	case err != nil:
		_ = formatter.Error(ErrCodeBatchFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "batch failed", err)
	case result.Failed > 0:
		cliErr = &CLIError{
			Code:    ErrCodeBatchFailed,
			Message: fmt.Sprintf("%d group(s) failed", result.Failed),
			Details: result.Failures,
		}
		exitErr = NewExitError(ExitFailure, fmt.Sprintf("%d group(s) failed", result.Failed))
	}

	if err := formatter.Result(result, cliErr, result.RunID); err != nil {
		return err
	}
	printBatchSummary(formatter, &result)
	if cliErr != nil && cliErr.Details == nil {
		formatter.Textf("%s %s", markFail, cliErr.Message)
	}
	return exitErr
}

// signalContext returns the command context, cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, func()) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping after the current page", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

func printBatchSummary(f *OutputFormatter, r *engine.BatchResult) {
	f.Textf("%s Run %s: %d candidate(s) in %d page(s)", markOK, r.RunID, r.Candidates, r.Pages)
	f.Textf("  generated %d (unchanged %d), emptied %d, removed %d, failed %d, diagnostics %d",
		r.Generated, r.Unchanged, r.Empty, r.Removed, r.Failed, r.Diagnostic)
	for _, failure := range r.Failures {
		f.Textf("%s %s: %s", markFail, failure.View, failure.Error)
	}
}
