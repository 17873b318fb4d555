package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/viewmerge/internal/compiler"
	"github.com/roach88/viewmerge/internal/engine"
	"github.com/roach88/viewmerge/internal/loader"
	"github.com/roach88/viewmerge/internal/store"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Strict bool
}

// ValidationIssue is one problem found in a workspace.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool                    `json:"valid"`
	Errors      []ValidationIssue       `json:"errors,omitempty"`
	Warnings    []compiler.OrderWarning `json:"warnings,omitempty"`
	Views       int                     `json:"views"`
	Computed    int                     `json:"computed"`
	Diagnostics int                     `json:"diagnostics"`
	Failures    []engine.BatchFailure   `json:"failures,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [workspace]",
		Short: "Check a workspace without touching the database",
		Long: `Load a workspace into a throwaway in-memory database and compose
every group, reporting every bad file, invalid view and failed
composition. The configured database is not opened.

With --strict, composition diagnostics such as missing targets also make
the workspace invalid. Extends skipped by their guard never do.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, opts.workspace(args), cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "treat composition diagnostics as errors")

	return cmd
}

func runValidate(opts *ValidateOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create in-memory store", err)
	}
	defer closeStore(st)

	// Composition diagnostics are counted in the result; logging them too
	// would only repeat them.
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(st, st, st, engine.WithLogger(quiet))
	l := loader.New(st, eng, loader.WithLogger(quiet), loader.WithMode(loader.LoadModeCollectAll))

	loaded, errs := l.Load(ctx, dir)
	if loaded == nil {
		code, msg := loadErrorCode(errs[0])
		_ = formatter.Error(code, msg, nil)
		return WrapExitError(ExitCommandError, "failed to load workspace", errs[0])
	}

	result := ValidationResult{Warnings: loaded.Warnings}
	for _, e := range errs {
		code, msg := loadErrorCode(e)
		issue := ValidationIssue{Code: code, Message: msg}
		var le *loader.LoadError
		if errors.As(e, &le) {
			issue.File = le.File
		}
		result.Errors = append(result.Errors, issue)
	}

	views, err := st.ListViews(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list views", err)
	}
	for _, v := range views {
		if v.Computed {
			result.Computed++
		} else {
			result.Views++
		}
	}
	if loaded.Batch != nil {
		result.Diagnostics = loaded.Batch.Diagnostic
		result.Failures = loaded.Batch.Failures
	}

	result.Valid = len(result.Errors) == 0 && len(result.Failures) == 0 &&
		(!opts.Strict || result.Diagnostics == 0)

	var cliErr *CLIError
	if !result.Valid {
		cliErr = &CLIError{Code: compiler.ErrInvalidViewMarkup, Message: "workspace is invalid"}
	}
	if err := formatter.Result(result, cliErr, ""); err != nil {
		return err
	}

	for _, w := range result.Warnings {
		formatter.Textf("%s %s", markWarn, w.Message)
	}
	for _, e := range result.Errors {
		if e.File != "" {
			formatter.Textf("%s %s: [%s] %s", markFail, e.File, e.Code, e.Message)
		} else {
			formatter.Textf("%s [%s] %s", markFail, e.Code, e.Message)
		}
	}
	for _, f := range result.Failures {
		formatter.Textf("%s %s: %s", markFail, f.View, f.Error)
	}
	formatter.Textf("%d view(s), %d computed, %d diagnostic(s)", result.Views, result.Computed, result.Diagnostics)

	if !result.Valid {
		formatter.Textf("%s Workspace is invalid", markFail)
		return NewExitError(ExitFailure, fmt.Sprintf("workspace %s is invalid", dir))
	}
	formatter.Textf("%s Workspace is valid", markOK)
	return nil
}
