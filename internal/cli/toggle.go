package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/viewmerge/internal/engine"
	"github.com/roach88/viewmerge/internal/store"
)

// ToggleResult reports a feature or module switch and the recomposition it
// caused.
type ToggleResult struct {
	Kind    string              `json:"kind"` // "feature" | "module"
	Name    string              `json:"name"`
	Enabled bool                `json:"enabled"`
	Batch   *engine.BatchResult `json:"batch,omitempty"`
}

// NewFeatureCommand creates the feature command with its enable and
// disable subcommands.
func NewFeatureCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feature",
		Short: "Enable or disable a feature",
		Long: `Switch a feature on or off and recompose every view group.

Extensions and elements guarded by a feature only apply while it is
enabled.`,
	}

	set := func(ctx context.Context, st *store.Store, name string, on bool) error {
		return st.SetFeature(ctx, name, on)
	}
	cmd.AddCommand(newToggleCommand(rootOpts, "enable", "Enable a feature", "feature", true, set))
	cmd.AddCommand(newToggleCommand(rootOpts, "disable", "Disable a feature", "feature", false, set))
	return cmd
}

// NewModuleCommand creates the module command with its install and
// uninstall subcommands.
func NewModuleCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "module",
		Short: "Mark a module installed or uninstalled",
		Long: `Mark a module of the stored manifest installed or uninstalled and
recompose every view group.

Extends and elements guarded by a module only apply while it is
installed.`,
	}

	set := func(ctx context.Context, st *store.Store, name string, on bool) error {
		return st.SetInstalled(ctx, name, on)
	}
	cmd.AddCommand(newToggleCommand(rootOpts, "install", "Mark a module installed", "module", true, set))
	cmd.AddCommand(newToggleCommand(rootOpts, "uninstall", "Mark a module uninstalled", "module", false, set))
	return cmd
}

type toggleFunc func(ctx context.Context, st *store.Store, name string, on bool) error

func newToggleCommand(opts *RootOptions, use, short, kind string, on bool, set toggleFunc) *cobra.Command {
	return &cobra.Command{
		Use:           use + " <name>",
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToggle(opts, cmd, kind, args[0], on, set)
		},
	}
}

func runToggle(opts *RootOptions, cmd *cobra.Command, kind, name string, on bool, set toggleFunc) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	if err := set(ctx, st, name, on); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			msg := fmt.Sprintf("unknown %s %q", kind, name)
			_ = formatter.Error(ErrCodeInvalidArg, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to update %s", kind), err)
	}

	batch, err := opts.newEngine(st).ComposeBatch(ctx, engine.BatchOptions{Force: true})
	if err != nil {
		_ = formatter.Error(ErrCodeBatchFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, "recompose failed", err)
	}

	result := ToggleResult{Kind: kind, Name: name, Enabled: on, Batch: &batch}
	var cliErr *CLIError
	if batch.Failed > 0 {
		cliErr = &CLIError{
			Code:    ErrCodeBatchFailed,
			Message: fmt.Sprintf("%d group(s) failed", batch.Failed),
			Details: batch.Failures,
		}
	}
	if err := formatter.Result(result, cliErr, batch.RunID); err != nil {
		return err
	}

	state := "disabled"
	if on {
		state = "enabled"
	}
	if kind == "module" {
		state = "uninstalled"
		if on {
			state = "installed"
		}
	}
	formatter.Textf("%s %s %s %s", markOK, kind, name, state)
	printBatchSummary(formatter, &batch)

	if cliErr != nil {
		return NewExitError(ExitFailure, cliErr.Message)
	}
	return nil
}
