package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/viewmerge/internal/ir"
	"github.com/roach88/viewmerge/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Computed bool
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <xml-id>",
		Short: "Print a stored view",
		Long: `Print a stored view with its metadata.

With --computed the argument names an original and its computed view is
printed instead.

Examples:
  viewmerge show base.order_form
  viewmerge show base.order_form --computed
  viewmerge show base.order_form__computed__ --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Computed, "computed", false, "show the computed view of the named original")

	return cmd
}

func runShow(opts *ShowOptions, xmlID string, cmd *cobra.Command) error {
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

	var v *ir.View
	if opts.Computed {
		v, err = st.FindComputed(ctx, xmlID+ir.ComputedSuffix)
	} else {
		v, err = st.FindByXMLID(ctx, xmlID)
	}
	if errors.Is(err, store.ErrNotFound) {
		msg := fmt.Sprintf("view %s not found", xmlID)
		if opts.Computed {
			msg = fmt.Sprintf("view %s has no computed view", xmlID)
		}
		_ = formatter.Error(ErrCodeViewNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read view", err)
	}

	if err := formatter.Result(v, nil, ""); err != nil {
		return err
	}
	printView(formatter, v)
	return nil
}

func printView(f *OutputFormatter, v *ir.View) {
	kind := "original"
	switch {
	case v.Computed:
		kind = "computed"
	case v.Extension:
		kind = "extension"
	}

	f.Textf("%s (%s)", v.Label(), kind)
	f.Textf("  id:        %d", v.ID)
	f.Textf("  group:     %s", v.Key())
	f.Textf("  module:    %s", v.Module)
	f.Textf("  priority:  %d", v.Priority)
	if len(v.Groups) > 0 {
		f.Textf("  groups:    %s", ir.JoinCSV(v.Groups))
	}
	if len(v.DependentModules) > 0 {
		f.Textf("  modules:   %s", ir.JoinCSV(v.DependentModules))
	}
	if len(v.DependentFeatures) > 0 {
		f.Textf("  features:  %s", ir.JoinCSV(v.DependentFeatures))
	}
	if v.ContentHash != "" {
		f.Textf("  hash:      %s", v.ContentHash)
	}
	f.Textf("")
	f.Textf("%s", v.Content)
}
