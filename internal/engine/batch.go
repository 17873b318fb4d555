package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/viewmerge/internal/ir"
)

// BatchOptions selects and paces a batch composition.
type BatchOptions struct {
	// Names restricts the batch to originals with these names. Empty means
	// every group.
	Names []string

	// Force recomposes groups that already have a computed view.
	Force bool

	// PageSize overrides the engine's page size when positive.
	PageSize int

	// Jobs overrides the engine's concurrency when positive.
	Jobs int
}

// BatchFailure records one group whose composition failed.
type BatchFailure struct {
	View  string `json:"view"`
	Error string `json:"error"`
}

// BatchResult summarizes a batch composition.
type BatchResult struct {
	RunID      string         `json:"run_id"`
	Pages      int            `json:"pages"`
	Candidates int            `json:"candidates"`
	Generated  int            `json:"generated"`
	Unchanged  int            `json:"unchanged"` // generated with identical content
	Empty      int            `json:"empty"`     // no eligible extension, computed view removed
	Failed     int            `json:"failed"`
	Removed    int            `json:"removed"` // orphaned computed views removed by name cleanup
	Failures   []BatchFailure `json:"failures"`
	Diagnostic int            `json:"diagnostics"`
}

type batchOutcome struct {
	res *Result
	err error
}

// ComposeBatch composes every candidate group page by page.
//
// Candidates are fetched by keyset on view id, so memory stays bounded by
// the page size. Each page takes one Environment snapshot and composes its
// groups concurrently, at most Jobs at a time. A failing group is counted
// and logged and never stops the batch. Cancellation is checked between
// pages; the result so far is returned with the context error.
//
// When Names is set, computed views of those names whose group has lost its
// original or every extension are removed afterwards.
func (e *Engine) ComposeBatch(ctx context.Context, opts BatchOptions) (BatchResult, error) {
	result := BatchResult{RunID: e.runIDs.Generate(), Failures: []BatchFailure{}}
	logger := e.logger.With("run_id", result.RunID)

	pageSize := e.pageSize
	if opts.PageSize > 0 {
		pageSize = opts.PageSize
	}
	jobs := e.jobs
	if opts.Jobs > 0 {
		jobs = opts.Jobs
	}

	filter := ir.CandidateFilter{
		Names:        ir.NormalizeSet(opts.Names),
		SkipComputed: !opts.Force,
	}
	logger.Info("batch started", "names", filter.Names, "force", opts.Force, "page_size", pageSize, "jobs", jobs)

	var after int64
	for {
		if err := ctx.Err(); err != nil {
			logger.Warn("batch cancelled", "pages", result.Pages, "generated", result.Generated)
			return result, err
		}

		page, err := e.store.ComputeCandidates(ctx, filter, after, pageSize)
		if err != nil {
			return result, fmt.Errorf("batch page after id %d: %w", after, err)
		}
		if len(page) == 0 {
			break
		}
		after = page[len(page)-1].ID

		env, err := LoadEnvironment(ctx, e.catalog, e.flags)
		if err != nil {
			return result, err
		}

		// Slots are per index, no locking needed.
		outcomes := make([]batchOutcome, len(page))

		var g errgroup.Group
		g.SetLimit(min(jobs, len(page)))
		for i, view := range page {
			g.Go(func() error {
				res, err := e.ComposeView(ctx, view, env)
				outcomes[i] = batchOutcome{res: res, err: err}
				return nil
			})
		}
		g.Wait()

		result.Pages++
		result.Candidates += len(page)
		for i, out := range outcomes {
			switch {
			case out.err != nil:
				result.Failed++
				result.Failures = append(result.Failures, BatchFailure{View: page[i].Label(), Error: out.err.Error()})
				logger.Error("compose failed", "view", page[i].Name, "xml_id", page[i].XMLID, "error", out.err)
			case out.res.Generated:
				result.Generated++
				if out.res.Unchanged {
					result.Unchanged++
				}
				result.Diagnostic += len(out.res.Report.Errors())
			default:
				result.Empty++
			}
		}
		logger.Debug("batch page done", "page", result.Pages, "candidates", len(page), "last_id", after)
	}

	if len(filter.Names) > 0 {
		n, err := e.store.DeleteOrphanedComputed(ctx, filter.Names)
		if err != nil {
			return result, err
		}
		result.Removed = n
	}

	logger.Info("batch finished",
		"pages", result.Pages,
		"candidates", result.Candidates,
		"generated", result.Generated,
		"unchanged", result.Unchanged,
		"failed", result.Failed,
		"removed", result.Removed,
	)
	return result, nil
}
