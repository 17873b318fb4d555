package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/viewmerge/internal/ir"
)

const viewColumns = `id, xml_id, name, type, model, module, title, priority,
	extension, computed, groups, dependent_modules, dependent_features,
	content, content_hash`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanView(row rowScanner) (*ir.View, error) {
	var (
		v                           ir.View
		xmlID                       sql.NullString
		groups, depModules, depFeat string
	)
	err := row.Scan(
		&v.ID, &xmlID, &v.Name, &v.Type, &v.Model, &v.Module, &v.Title, &v.Priority,
		&v.Extension, &v.Computed, &groups, &depModules, &depFeat,
		&v.Content, &v.ContentHash,
	)
	if err != nil {
		return nil, err
	}
	v.XMLID = xmlID.String
	v.Groups = ir.SplitCSV(groups)
	v.DependentModules = ir.SplitCSV(depModules)
	v.DependentFeatures = ir.SplitCSV(depFeat)
	return &v, nil
}

func (s *Store) queryView(ctx context.Context, what, query string, args ...any) (*ir.View, error) {
	v, err := scanView(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return v, nil
}

func (s *Store) queryViews(ctx context.Context, what, query string, args ...any) ([]*ir.View, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	defer rows.Close()

	views := []*ir.View{}
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", what, err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", what, err)
	}
	return views, nil
}

// FindByID returns the view with the given id.
func (s *Store) FindByID(ctx context.Context, id int64) (*ir.View, error) {
	return s.queryView(ctx, fmt.Sprintf("find view %d", id),
		`SELECT `+viewColumns+` FROM views WHERE id = ?`, id)
}

// FindByXMLID returns the view with the given XML ID.
func (s *Store) FindByXMLID(ctx context.Context, xmlID string) (*ir.View, error) {
	return s.queryView(ctx, fmt.Sprintf("find view %q", xmlID),
		`SELECT `+viewColumns+` FROM views WHERE xml_id = ?`, xmlID)
}

// FindComputed returns the computed view with the given XML ID.
func (s *Store) FindComputed(ctx context.Context, xmlID string) (*ir.View, error) {
	return s.queryView(ctx, fmt.Sprintf("find computed view %q", xmlID),
		`SELECT `+viewColumns+` FROM views WHERE xml_id = ? AND computed = 1`, xmlID)
}

// FindByNameModule returns the non-computed view named name that module
// declared without an XML ID.
func (s *Store) FindByNameModule(ctx context.Context, name, module string) (*ir.View, error) {
	return s.queryView(ctx, fmt.Sprintf("find view %s in module %s", name, module), `
		SELECT `+viewColumns+` FROM views
		WHERE name = ? AND module = ? AND xml_id IS NULL AND computed = 0
		ORDER BY id DESC
		LIMIT 1
	`, name, module)
}

// FindOriginal returns the original of a group: the non-extension,
// non-computed view with the highest priority, the newest on ties.
func (s *Store) FindOriginal(ctx context.Context, key ir.GroupKey) (*ir.View, error) {
	return s.queryView(ctx, fmt.Sprintf("find original %s", key), `
		SELECT `+viewColumns+` FROM views
		WHERE name = ? AND type = ? AND model = ? AND extension = 0 AND computed = 0
		ORDER BY priority DESC, id DESC
		LIMIT 1
	`, key.Name, key.Type, key.Model)
}

// FindOriginals returns every original named name, best first.
func (s *Store) FindOriginals(ctx context.Context, name string) ([]*ir.View, error) {
	return s.queryViews(ctx, fmt.Sprintf("find originals %s", name), `
		SELECT `+viewColumns+` FROM views
		WHERE name = ? AND extension = 0 AND computed = 0
		ORDER BY priority DESC, id DESC
	`, name)
}

// FindExtensions returns the extension views of a group ordered by
// priority descending, then id.
//
// Returns an empty slice (not nil) when the group has none.
func (s *Store) FindExtensions(ctx context.Context, key ir.GroupKey) ([]*ir.View, error) {
	return s.queryViews(ctx, fmt.Sprintf("find extensions %s", key), `
		SELECT `+viewColumns+` FROM views
		WHERE name = ? AND type = ? AND model = ? AND extension = 1
		ORDER BY priority DESC, id ASC
	`, key.Name, key.Type, key.Model)
}

// ListViews returns every view ordered by id.
func (s *Store) ListViews(ctx context.Context) ([]*ir.View, error) {
	return s.queryViews(ctx, "list views",
		`SELECT `+viewColumns+` FROM views ORDER BY id ASC`)
}

// SaveView inserts v when v.ID is zero and updates the row otherwise.
// v.ID is set on insert. Dependency sets and content hash are left to
// SaveComposition.
func (s *Store) SaveView(ctx context.Context, v *ir.View) error {
	if v.Computed {
		return fmt.Errorf("save view %s: computed views are written by composition", v.Label())
	}

	if v.ID != 0 {
		_, err := s.db.ExecContext(ctx, `
			UPDATE views SET xml_id = ?, name = ?, type = ?, model = ?, module = ?,
				title = ?, priority = ?, extension = ?, groups = ?, content = ?
			WHERE id = ?
		`,
			nullString(v.XMLID), v.Name, v.Type, v.Model, v.Module,
			v.Title, v.Priority, v.Extension, ir.JoinCSV(v.Groups), v.Content,
			v.ID,
		)
		if err != nil {
			return fmt.Errorf("update view %s: %w", v.Label(), err)
		}
		return nil
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO views (xml_id, name, type, model, module, title, priority,
			extension, computed, groups, content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`,
		nullString(v.XMLID), v.Name, v.Type, v.Model, v.Module, v.Title, v.Priority,
		v.Extension, ir.JoinCSV(v.Groups), v.Content,
	)
	if err != nil {
		return fmt.Errorf("insert view %s: %w", v.Label(), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert view %s: %w", v.Label(), err)
	}
	v.ID = id
	return nil
}

// SaveComposition upserts computed by XML ID and records the dependency
// sets of original in one transaction. computed.ID is set from the stored
// row.
func (s *Store) SaveComposition(ctx context.Context, original, computed *ir.View) error {
	if computed.XMLID == "" {
		return fmt.Errorf("save composition of %s: computed view has no xml id", original.Label())
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO views (xml_id, name, type, model, module, title, priority,
				extension, computed, groups, content, content_hash)
			VALUES (?, ?, ?, ?, ?, ?, ?, 0, 1, ?, ?, ?)
			ON CONFLICT(xml_id) DO UPDATE SET
				name = excluded.name,
				type = excluded.type,
				model = excluded.model,
				module = excluded.module,
				title = excluded.title,
				priority = excluded.priority,
				computed = 1,
				groups = excluded.groups,
				content = excluded.content,
				content_hash = excluded.content_hash
		`,
			computed.XMLID, computed.Name, computed.Type, computed.Model, computed.Module,
			computed.Title, computed.Priority, ir.JoinCSV(computed.Groups),
			computed.Content, computed.ContentHash,
		)
		if err != nil {
			return fmt.Errorf("upsert computed view %s: %w", computed.XMLID, err)
		}

		if err := tx.QueryRowContext(ctx,
			`SELECT id FROM views WHERE xml_id = ?`, computed.XMLID,
		).Scan(&computed.ID); err != nil {
			return fmt.Errorf("read computed view id %s: %w", computed.XMLID, err)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE views SET dependent_modules = ?, dependent_features = ?
			WHERE id = ?
		`, ir.JoinCSV(original.DependentModules), ir.JoinCSV(original.DependentFeatures), original.ID)
		if err != nil {
			return fmt.Errorf("update dependencies of %s: %w", original.Label(), err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("update dependencies of %s: %w", original.Label(), ErrNotFound)
		}
		return nil
	})
}

// DeleteComputed removes the computed view with the given XML ID. Deleting
// a missing view is not an error.
func (s *Store) DeleteComputed(ctx context.Context, xmlID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM views WHERE xml_id = ? AND computed = 1`, xmlID)
	if err != nil {
		return fmt.Errorf("delete computed view %s: %w", xmlID, err)
	}
	return nil
}

// DeleteOrphanedComputed removes computed views named one of names whose
// group has lost its original or every extension, and returns how many were
// removed. Computed views of groups that still have both are left alone.
func (s *Store) DeleteOrphanedComputed(ctx context.Context, names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}

	query := `DELETE FROM views WHERE computed = 1 AND name IN (` + placeholders(len(names)) + `)
		AND (
			NOT EXISTS (
				SELECT 1 FROM views o
				WHERE o.name = views.name AND o.type = views.type AND o.model = views.model
					AND o.extension = 0 AND o.computed = 0
			)
			OR NOT EXISTS (
				SELECT 1 FROM views e
				WHERE e.name = views.name AND e.type = views.type AND e.model = views.model
					AND e.extension = 1
			)
		)`
	res, err := s.db.ExecContext(ctx, query, stringArgs(names)...)
	if err != nil {
		return 0, fmt.Errorf("delete orphaned computed views: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete orphaned computed views: %w", err)
	}
	return int(n), nil
}

// DeleteView removes a loaded view. Computed views go through
// DeleteComputed.
func (s *Store) DeleteView(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM views WHERE id = ? AND computed = 0`, id)
	if err != nil {
		return fmt.Errorf("delete view %d: %w", id, err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(items []string) []any {
	args := make([]any, len(items))
	for i, s := range items {
		args[i] = s
	}
	return args
}
