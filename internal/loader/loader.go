package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/roach88/viewmerge/internal/compiler"
	"github.com/roach88/viewmerge/internal/dom"
	"github.com/roach88/viewmerge/internal/engine"
	"github.com/roach88/viewmerge/internal/ir"
	"github.com/roach88/viewmerge/internal/store"
)

// ManifestFile is the workspace manifest inside a workspace directory.
const ManifestFile = "workspace.cue"

// ContainerElement wraps the views of one file.
const ContainerElement = "object-views"

// DefaultPriority is the priority of a view that declares none.
const DefaultPriority = 20

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll skips bad files and views and reports them all.
	LoadModeCollectAll
)

// Error code constants.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeScanError     = "E002" // Directory scan error
	ErrCodeNotFound      = "E005" // Path not found
	ErrCodeManifest      = "E006" // workspace.cue does not compile
	ErrCodeInvalidFile   = "E007" // view file does not parse or has a wrong container
	ErrCodeInvalidView   = "E008" // view failed validation
	ErrCodeStore         = "E009" // store write failed
	ErrCodeInvalidNumber = "E010" // priority attribute is not an integer
)

// LoadError reports one problem found while loading.
type LoadError struct {
	Code    string
	Message string
	File    string // view file, "" for workspace-level errors
}

func (e *LoadError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Store is the part of the document store the loader writes through.
type Store interface {
	ReplaceManifest(ctx context.Context, m *ir.Manifest) error
	FindByXMLID(ctx context.Context, xmlID string) (*ir.View, error)
	FindByNameModule(ctx context.Context, name, module string) (*ir.View, error)
	FindOriginal(ctx context.Context, key ir.GroupKey) (*ir.View, error)
	SaveView(ctx context.Context, v *ir.View) error
}

// Result summarizes a load.
type Result struct {
	Manifest *ir.Manifest               `json:"manifest"`
	Warnings []compiler.OrderWarning    `json:"warnings"`
	Files    int                        `json:"files"`
	Inserted int                        `json:"inserted"`
	Updated  int                        `json:"updated"`
	Skipped  int                        `json:"unchanged"`
	Touched  []string                   `json:"touched"` // view names whose group needs recomposing
	Batch    *engine.BatchResult        `json:"batch,omitempty"`
	Invalid  []compiler.ValidationError `json:"invalid,omitempty"`
}

// Loader reads workspaces into a Store and recomposes what changed.
type Loader struct {
	store  Store
	engine *engine.Engine
	logger *slog.Logger
	mode   LoadMode
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithMode sets the error mode. Default: LoadModeFailFast.
func WithMode(mode LoadMode) Option {
	return func(l *Loader) {
		l.mode = mode
	}
}

// New creates a Loader. A nil engine skips recomposition.
func New(s Store, e *engine.Engine, opts ...Option) *Loader {
	l := &Loader{store: s, engine: e, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the workspace in dir. The manifest replaces the stored modules
// and features; views are upserted by XML ID, or by (name, module) when they
// have none. Afterwards every touched view name is recomposed with a forced,
// name-filtered batch.
//
// In LoadModeCollectAll the returned errors are the skipped files and views;
// the result is still complete for everything else.
func (l *Loader) Load(ctx context.Context, dir string) (*Result, []error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("workspace not found: %s", dir)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	manifest, err := compiler.LoadManifest(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeManifest, Message: err.Error(), File: ManifestFile}}
	}

	result := &Result{
		Manifest: manifest,
		Warnings: compiler.AnalyzeModuleOrder(manifest),
		Touched:  []string{},
	}
	for _, w := range result.Warnings {
		l.logger.Warn(w.Message, "path", w.Path)
	}

	if err := l.store.ReplaceManifest(ctx, manifest); err != nil {
		return result, []error{&LoadError{Code: ErrCodeStore, Message: err.Error()}}
	}

	var errs []error
	for _, mod := range manifest.Modules {
		if !mod.Installed {
			l.logger.Debug("module not installed, views skipped", "module", mod.Name)
			continue
		}

		files, err := viewFiles(filepath.Join(dir, mod.Path, "views"))
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeScanError, Message: err.Error()})
			if l.mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}

		for _, file := range files {
			if err := ctx.Err(); err != nil {
				return result, append(errs, err)
			}
			result.Files++
			fileErrs := l.loadFile(ctx, result, mod, file)
			errs = append(errs, fileErrs...)
			if len(fileErrs) > 0 && l.mode == LoadModeFailFast {
				return result, errs
			}
		}
	}

	result.Touched = ir.NormalizeSet(result.Touched)
	if l.engine != nil && len(result.Touched) > 0 {
		batch, err := l.engine.ComposeBatch(ctx, engine.BatchOptions{Names: result.Touched, Force: true})
		if err != nil {
			return result, append(errs, fmt.Errorf("recompose: %w", err))
		}
		result.Batch = &batch
	}

	l.logger.Info("workspace loaded",
		"dir", dir,
		"modules", len(manifest.Modules),
		"files", result.Files,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"unchanged", result.Skipped,
	)
	return result, errs
}

// viewFiles lists the .xml files of a views directory in name order. A
// missing directory holds no files.
func viewFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.xml"))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	slices.Sort(matches)
	return matches, nil
}

func (l *Loader) loadFile(ctx context.Context, result *Result, mod ir.Module, file string) []error {
	data, err := os.ReadFile(file)
	if err != nil {
		return []error{&LoadError{Code: ErrCodeInvalidFile, Message: err.Error(), File: file}}
	}
	doc, err := dom.ParseString(string(data))
	if err != nil {
		return []error{&LoadError{Code: ErrCodeInvalidFile, Message: err.Error(), File: file}}
	}
	container := doc.DocumentElement()
	if container.Name != ContainerElement {
		return []error{&LoadError{
			Code:    ErrCodeInvalidFile,
			Message: fmt.Sprintf("root element is <%s>, want <%s>", container.Name, ContainerElement),
			File:    file,
		}}
	}

	var errs []error
	for _, el := range container.Elements() {
		v, err := ViewFromElement(el, mod.Name)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeInvalidNumber, Message: err.Error(), File: file})
			if l.mode == LoadModeFailFast {
				return errs
			}
			continue
		}

		if invalid := compiler.Validate(v); len(invalid) > 0 {
			result.Invalid = append(result.Invalid, invalid...)
			for _, ve := range invalid {
				errs = append(errs, &LoadError{Code: ErrCodeInvalidView, Message: fmt.Sprintf("%s: %s", v.Label(), ve.Error()), File: file})
			}
			if l.mode == LoadModeFailFast {
				return errs
			}
			continue
		}

		if err := l.upsert(ctx, result, v, el.AttrValue("priority") != ""); err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeStore, Message: err.Error(), File: file})
			if l.mode == LoadModeFailFast {
				return errs
			}
		}
	}
	return errs
}

// ViewFromElement builds a view from one child of the container. The element
// itself, with all of its attributes, is the view content.
func ViewFromElement(el *dom.Node, module string) (*ir.View, error) {
	v := &ir.View{
		XMLID:     el.AttrValue("id"),
		Name:      el.AttrValue("name"),
		Type:      el.Name,
		Model:     el.AttrValue("model"),
		Module:    module,
		Title:     el.AttrValue("title"),
		Priority:  DefaultPriority,
		Extension: el.AttrValue("extension") == "true",
		Groups:    ir.SplitCSV(el.AttrValue("groups")),
		Content:   string(dom.MarshalNode(el)),
	}
	if p := el.AttrValue("priority"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("view %s: priority %q is not an integer", v.Label(), p)
		}
		v.Priority = n
	}
	return v, nil
}

func (l *Loader) upsert(ctx context.Context, result *Result, v *ir.View, explicitPriority bool) error {
	existing, err := l.lookup(ctx, v)
	if err != nil {
		return err
	}

	if existing == nil && !v.Extension && !explicitPriority {
		// A new original overriding another module's view of the same
		// group must outrank it.
		other, err := l.store.FindOriginal(ctx, v.Key())
		switch {
		case err == nil && other.Module != v.Module:
			v.Priority = other.Priority + 1
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return err
		}
	}

	if existing != nil {
		if !explicitPriority && !v.Extension {
			v.Priority = existing.Priority
		}
		same, err := sameSource(existing, v)
		if err != nil {
			return err
		}
		if same {
			result.Skipped++
			return nil
		}
		v.ID = existing.ID
	}

	if err := l.store.SaveView(ctx, v); err != nil {
		return err
	}
	if existing != nil {
		result.Updated++
		l.logger.Debug("view updated", "view", v.Name, "xml_id", v.XMLID, "module", v.Module)
	} else {
		result.Inserted++
		l.logger.Debug("view inserted", "view", v.Name, "xml_id", v.XMLID, "module", v.Module)
	}
	result.Touched = append(result.Touched, v.Name)
	return nil
}

// lookup finds the stored row v would replace, or nil.
func (l *Loader) lookup(ctx context.Context, v *ir.View) (*ir.View, error) {
	var (
		existing *ir.View
		err      error
	)
	if v.XMLID != "" {
		existing, err = l.store.FindByXMLID(ctx, v.XMLID)
	} else {
		existing, err = l.store.FindByNameModule(ctx, v.Name, v.Module)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return existing, err
}

func sameSource(a, b *ir.View) (bool, error) {
	ha, err := ir.SourceHash(a)
	if err != nil {
		return false, err
	}
	hb, err := ir.SourceHash(b)
	if err != nil {
		return false, err
	}
	return ha == hb, nil
}
