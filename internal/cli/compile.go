package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/viewmerge/internal/compiler"
	"github.com/roach88/viewmerge/internal/ir"
	"github.com/roach88/viewmerge/internal/loader"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled manifest and its order warnings.
type CompilationResult struct {
	Manifest *ir.Manifest           `json:"manifest"`
	Warnings []compiler.OrderWarning `json:"warnings"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [workspace]",
		Short: "Compile workspace.cue to its module resolution order",
		Long: `Compile the workspace manifest and print the resolved modules.

Modules keep their declared order, which is the resolution order used to
apply extensions. Dependencies listed after their dependents and
dependency cycles are reported as warnings.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, opts.workspace(args), cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the compiled manifest as JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	path := filepath.Join(dir, loader.ManifestFile)
	formatter.VerboseLog("Compiling %s", path)

	m, err := compiler.LoadManifest(path)
	if err != nil {
		_ = formatter.Error(loader.ErrCodeManifest, err.Error(), nil)
		return WrapExitError(ExitFailure, "manifest does not compile", err)
	}

	result := &CompilationResult{
		Manifest: m,
		Warnings: compiler.AnalyzeModuleOrder(m),
	}

	if opts.Output != "" {
		if err := writeManifest(result, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
	}

	if err := formatter.Result(result, nil, ""); err != nil {
		return err
	}

	for i, mod := range m.Modules {
		flags := ""
		if !mod.Installed {
			flags += " (not installed)"
		}
		if mod.Removable {
			flags += " (removable)"
		}
		formatter.Textf("%3d. %s%s", i+1, mod.Name, flags)
	}
	if len(m.Features) > 0 {
		formatter.Textf("features: %s", ir.JoinCSV(m.Features))
	}
	for _, w := range result.Warnings {
		formatter.Textf("%s %s", markWarn, w.Message)
	}
	formatter.Textf("%s Compiled %d module(s), %d warning(s)", markOK, len(m.Modules), len(result.Warnings))
	return nil
}

func writeManifest(result *CompilationResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
