package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/viewmerge/internal/loader"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	CollectAll bool
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load [workspace]",
		Short: "Load a workspace into the database",
		Long: `Load the modules, features and views of a workspace.

The workspace directory holds workspace.cue and, for every installed
module, a views/ directory of <object-views> files. Views are upserted and
every view name touched by the load is recomposed.

Examples:
  viewmerge load ./workspace
  viewmerge load --db ./views.db --collect-all ./workspace`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, opts.workspace(args), cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.CollectAll, "collect-all", false, "skip bad files and views instead of stopping at the first")

	return cmd
}

func runLoad(opts *LoadOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	mode := loader.LoadModeFailFast
	if opts.CollectAll {
		mode = loader.LoadModeCollectAll
	}
	l := loader.New(st, opts.newEngine(st), loader.WithLogger(slog.Default()), loader.WithMode(mode))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, errs := l.Load(ctx, dir)
	if result == nil {
		code, msg := loadErrorCode(errs[0])
		_ = formatter.Error(code, msg, nil)
		return WrapExitError(ExitCommandError, "failed to load workspace", errs[0])
	}

	formatter.VerboseLog("Loaded %d module(s) from %s", len(result.Manifest.Modules), dir)

	if len(errs) > 0 {
		messages := make([]string, len(errs))
		for i, e := range errs {
			messages[i] = e.Error()
		}
		if err := formatter.Result(result, &CLIError{
			Code:    ErrCodeGeneric,
			Message: fmt.Sprintf("%d error(s) while loading", len(errs)),
			Details: messages,
		}, batchRunID(result)); err != nil {
			return err
		}
		printLoadSummary(formatter, result)
		for _, m := range messages {
			formatter.Textf("%s %s", markFail, m)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d error(s) while loading %s", len(errs), dir))
	}

	if err := formatter.Result(result, nil, batchRunID(result)); err != nil {
		return err
	}
	printLoadSummary(formatter, result)
	return nil
}

func printLoadSummary(f *OutputFormatter, r *loader.Result) {
	for _, w := range r.Warnings {
		f.Textf("%s %s", markWarn, w.Message)
	}
	f.Textf("%s Loaded %d file(s): %d inserted, %d updated, %d unchanged",
		markOK, r.Files, r.Inserted, r.Updated, r.Skipped)
	if r.Batch != nil {
		printBatchSummary(f, r.Batch)
	}
}

func batchRunID(r *loader.Result) string {
	if r.Batch == nil {
		return ""
	}
	return r.Batch.RunID
}

// loadErrorCode returns the code and message of a loader error.
func loadErrorCode(err error) (string, string) {
	var le *loader.LoadError
	if errors.As(err, &le) {
		return le.Code, le.Message
	}
	return ErrCodeGeneric, err.Error()
}
