package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/viewmerge/internal/engine"
	"github.com/roach88/viewmerge/internal/ir"
	"github.com/roach88/viewmerge/internal/store"
)

// ComposeSummary is the JSON form of one composition.
type ComposeSummary struct {
	View        string              `json:"view"`
	Computed    string              `json:"computed,omitempty"`
	Generated   bool                `json:"generated"`
	Unchanged   bool                `json:"unchanged"`
	Fragments   []string            `json:"fragments"`
	Excluded    int                 `json:"excluded"`
	Modules     []string            `json:"dependent_modules"`
	Features    []string            `json:"dependent_features"`
	Diagnostics []engine.Diagnostic `json:"diagnostics"`
}

// NewComposeCommand creates the compose command.
func NewComposeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose <id|xml-id|name>",
		Short: "Compose the group of one view",
		Long: `Compose the group a view belongs to and store its computed view.

The argument is a numeric view id, an XML ID, or a view name. A name
composes the group of every original with that name. Extension and
computed views compose the group of their original.

Examples:
  viewmerge compose 42
  viewmerge compose base.order_form
  viewmerge compose order_form --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompose(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCompose(opts *RootOptions, arg string, cmd *cobra.Command) error {
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

	views, err := findViews(ctx, st, arg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to look up view", err)
	}
	if len(views) == 0 {
		msg := fmt.Sprintf("no view matches %q", arg)
		_ = formatter.Error(ErrCodeViewNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	eng := opts.newEngine(st)
	env, err := engine.LoadEnvironment(ctx, st, st)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load environment", err)
	}

	summaries := make([]ComposeSummary, 0, len(views))
	for _, v := range views {
		formatter.VerboseLog("Composing %s", v.Label())
		res, err := eng.ComposeView(ctx, v, env)
		if err != nil {
			code := ErrCodeComposeFailed
			var ce *engine.ComposeError
			if errors.As(err, &ce) {
				code = string(ce.Code)
			}
			_ = formatter.Error(code, err.Error(), map[string]string{"view": v.Label()})
			return WrapExitError(ExitFailure, "composition failed", err)
		}
		summaries = append(summaries, summarize(res))
	}

	if err := formatter.Result(summaries, nil, ""); err != nil {
		return err
	}
	for _, s := range summaries {
		printComposeSummary(formatter, s)
	}
	return nil
}

// findViews resolves a compose argument: a numeric id, an XML ID, or the
// name of one or more originals (one per group, best first).
func findViews(ctx context.Context, st *store.Store, arg string) ([]*ir.View, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		v, err := st.FindByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []*ir.View{v}, nil
	}

	v, err := st.FindByXMLID(ctx, arg)
	switch {
	case err == nil:
		return []*ir.View{v}, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	originals, err := st.FindOriginals(ctx, arg)
	if err != nil {
		return nil, err
	}
	seen := make(map[ir.GroupKey]bool, len(originals))
	var out []*ir.View
	for _, o := range originals {
		if !seen[o.Key()] {
			seen[o.Key()] = true
			out = append(out, o)
		}
	}
	return out, nil
}

func summarize(res *engine.Result) ComposeSummary {
	s := ComposeSummary{
		View:        res.Original.Label(),
		Generated:   res.Generated,
		Unchanged:   res.Unchanged,
		Fragments:   res.Fragments,
		Excluded:    res.Excluded,
		Modules:     res.Original.DependentModules,
		Features:    res.Original.DependentFeatures,
		Diagnostics: res.Report.Diagnostics,
	}
	if res.Computed != nil {
		s.Computed = res.Computed.XMLID
	}
	if s.Modules == nil {
		s.Modules = []string{}
	}
	if s.Features == nil {
		s.Features = []string{}
	}
	if s.Diagnostics == nil {
		s.Diagnostics = []engine.Diagnostic{}
	}
	return s
}

func printComposeSummary(f *OutputFormatter, s ComposeSummary) {
	switch {
	case !s.Generated:
		f.Textf("%s %s: no extensions, no computed view", markSkip, s.View)
	case s.Unchanged:
		f.Textf("%s %s -> %s (%d fragment(s), unchanged)", markOK, s.View, s.Computed, len(s.Fragments))
	default:
		f.Textf("%s %s -> %s (%d fragment(s))", markOK, s.View, s.Computed, len(s.Fragments))
	}
	for _, d := range s.Diagnostics {
		f.Textf("  %s %s", markWarn, d.String())
	}
}
