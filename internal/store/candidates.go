package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/viewmerge/internal/ir"
)

// ComputeCandidates returns up to limit originals with id > afterID that a
// batch composition should visit, ordered by id.
//
// A candidate is the original of its group (highest priority, newest on
// ties) and its group has an extension or an existing computed view. The
// second case lets a batch remove computed views whose extensions are gone.
// With filter.SkipComputed, groups that already have a computed view are
// left out.
//
// Callers page with the id of the last view returned:
//
//	var after int64
//	for {
//		page, err := s.ComputeCandidates(ctx, filter, after, 100)
//		if err != nil || len(page) == 0 { ... }
//		after = page[len(page)-1].ID
//	}
func (s *Store) ComputeCandidates(ctx context.Context, filter ir.CandidateFilter, afterID int64, limit int) ([]*ir.View, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("compute candidates: limit must be positive, got %d", limit)
	}

	var (
		where = []string{"v.extension = 0", "v.computed = 0", "v.id > ?"}
		args  = []any{afterID}
	)

	if len(filter.Names) > 0 {
		names := ir.NormalizeSet(filter.Names)
		where = append(where, "v.name IN ("+placeholders(len(names))+")")
		args = append(args, stringArgs(names)...)
	}

	// v is the group's original.
	where = append(where, `NOT EXISTS (
		SELECT 1 FROM views o
		WHERE o.name = v.name AND o.type = v.type AND o.model = v.model
			AND o.extension = 0 AND o.computed = 0
			AND (o.priority > v.priority OR (o.priority = v.priority AND o.id > v.id))
	)`)

	const hasComputed = `EXISTS (
		SELECT 1 FROM views c
		WHERE c.name = v.name AND c.type = v.type AND c.model = v.model AND c.computed = 1
	)`
	const hasExtension = `EXISTS (
		SELECT 1 FROM views e
		WHERE e.name = v.name AND e.type = v.type AND e.model = v.model AND e.extension = 1
	)`

	if filter.SkipComputed {
		where = append(where, hasExtension, "NOT "+hasComputed)
	} else {
		where = append(where, "("+hasExtension+" OR "+hasComputed+")")
	}

	query := `SELECT ` + prefixed("v", viewColumns) + ` FROM views v
		WHERE ` + strings.Join(where, "\n\t\tAND ") + `
		ORDER BY v.id ASC
		LIMIT ?`
	args = append(args, limit)

	return s.queryViews(ctx, "compute candidates", query, args...)
}

// prefixed qualifies each column of a column list with alias.
func prefixed(alias, columns string) string {
	fields := strings.Split(columns, ",")
	for i, f := range fields {
		fields[i] = alias + "." + strings.TrimSpace(f)
	}
	return strings.Join(fields, ", ")
}
