package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/viewmerge/internal/config"
	"github.com/roach88/viewmerge/internal/engine"
	"github.com/roach88/viewmerge/internal/ir"
	"github.com/roach88/viewmerge/internal/locator"
	"github.com/roach88/viewmerge/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Database   string // --db, overrides the config file
	ConfigPath string // --config, "" means ./viewmerge.toml when present

	// Config is filled in before any subcommand runs. Commands built
	// directly (as in tests) see the zero value and fall back to defaults.
	Config config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the viewmerge CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "viewmerge",
		Short:   "viewmerge - view extension composition",
		Version: ir.EngineVersion,
		Long: `Compose stored view documents with the extension fragments of
installed modules and keep the computed views up to date.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}

			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			opts.Config = cfg
			if opts.Database == "" {
				opts.Database = cfg.Database
			}

			setupLogging(cmd.ErrOrStderr(), opts.Verbose)
			slog.Debug("configuration loaded", "path", cfg.Path, "db", opts.Database)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to "+config.FileName)

	// Add subcommands
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewComposeCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewFeatureCommand(opts))
	cmd.AddCommand(NewModuleCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// setupLogging installs a text handler on w whose level follows --verbose.
func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

func (o *RootOptions) database() string {
	if o.Database != "" {
		return o.Database
	}
	return config.DefaultDatabase
}

func (o *RootOptions) workspace(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	if o.Config.Workspace != "" {
		return o.Config.Workspace
	}
	return config.DefaultWorkspace
}

// openStore opens the configured database, creating it if needed.
func (o *RootOptions) openStore() (*store.Store, error) {
	st, err := store.Open(o.database())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// newEngine builds an engine over st using the configured page size, job
// count and expression cache size. Unset values keep the engine defaults.
func (o *RootOptions) newEngine(st *store.Store) *engine.Engine {
	var cache *locator.Cache
	if o.Config.CacheSize > 0 {
		cache = locator.NewCache(o.Config.CacheSize)
	}
	return engine.New(st, st, st,
		engine.WithLogger(slog.Default()),
		engine.WithLocator(locator.New(cache)),
		engine.WithPageSize(o.Config.PageSize),
		engine.WithJobs(o.Config.Jobs),
	)
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
