package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/viewmerge/internal/ir"
)

// Modules returns the workspace modules in resolution order.
func (s *Store) Modules(ctx context.Context) ([]ir.Module, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, installed, removable, path, depends
		FROM modules
		ORDER BY ord ASC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query modules: %w", err)
	}
	defer rows.Close()

	modules := []ir.Module{}
	for rows.Next() {
		var (
			m       ir.Module
			depends string
		)
		if err := rows.Scan(&m.Name, &m.Installed, &m.Removable, &m.Path, &depends); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		if depends != "" {
			m.Depends = ir.SplitCSV(depends)
		}
		modules = append(modules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate modules: %w", err)
	}
	return modules, nil
}

// EnabledFeatures returns the enabled feature names, sorted.
func (s *Store) EnabledFeatures(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM features ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	features := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		features = append(features, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate features: %w", err)
	}
	return features, nil
}

// ReplaceManifest replaces the stored modules and features with those of m.
func (s *Store) ReplaceManifest(ctx context.Context, m *ir.Manifest) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM modules`); err != nil {
			return fmt.Errorf("clear modules: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM features`); err != nil {
			return fmt.Errorf("clear features: %w", err)
		}

		for i, mod := range m.Modules {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO modules (ord, name, installed, removable, path, depends)
				VALUES (?, ?, ?, ?, ?, ?)
			`, i, mod.Name, mod.Installed, mod.Removable, mod.Path, ir.JoinCSV(mod.Depends))
			if err != nil {
				return fmt.Errorf("insert module %s: %w", mod.Name, err)
			}
		}

		for _, f := range ir.NormalizeSet(m.Features) {
			if _, err := tx.ExecContext(ctx, `INSERT INTO features (name) VALUES (?)`, f); err != nil {
				return fmt.Errorf("insert feature %s: %w", f, err)
			}
		}
		return nil
	})
}

// SetFeature enables or disables one feature.
func (s *Store) SetFeature(ctx context.Context, name string, enabled bool) error {
	var err error
	if enabled {
		_, err = s.db.ExecContext(ctx, `INSERT INTO features (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name)
	} else {
		_, err = s.db.ExecContext(ctx, `DELETE FROM features WHERE name = ?`, name)
	}
	if err != nil {
		return fmt.Errorf("set feature %s: %w", name, err)
	}
	return nil
}

// SetInstalled marks a module installed or uninstalled.
func (s *Store) SetInstalled(ctx context.Context, name string, installed bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE modules SET installed = ? WHERE name = ?`, installed, name)
	if err != nil {
		return fmt.Errorf("set installed %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set installed %s: %w", name, ErrNotFound)
	}
	return nil
}
