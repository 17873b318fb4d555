package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewmerge.db")

	// Reopening an existing database must leave the schema intact.
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() #%d failed: %v", i, err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close() #%d failed: %v", i, err)
		}
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file missing: %v", err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"views", "modules", "features"} {
		if !hasObject(t, s, "table", table) {
			t.Errorf("table %q missing", table)
		}
	}
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer s.Close()

	// Writes through one call must be visible to the next; a second pooled
	// connection would open a different empty database.
	if _, err := s.db.Exec(`INSERT INTO features (name) VALUES ('sale.discount')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM features`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("features = %d, want 1", n)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	if _, err := Open("/nonexistent/dir/viewmerge.db"); err == nil {
		t.Error("expected error for a missing directory")
	}
}

func TestClose_Twice(t *testing.T) {
	s := createTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("first Close() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.pragma, func(t *testing.T) {
			var got string
			if err := s.db.QueryRow("PRAGMA " + tt.pragma).Scan(&got); err != nil {
				t.Fatalf("read %s: %v", tt.pragma, err)
			}
			if got != tt.want {
				t.Errorf("%s = %q, want %q", tt.pragma, got, tt.want)
			}
		})
	}
}

func TestSchema_ViewsColumns(t *testing.T) {
	s := createTestStore(t)

	columns := tableColumns(t, s, "views")
	for _, want := range []string{
		"id", "xml_id", "name", "type", "model", "module", "title", "priority",
		"extension", "computed", "groups", "dependent_modules", "dependent_features",
		"content", "content_hash",
	} {
		if !columns[want] {
			t.Errorf("views table missing column %q", want)
		}
	}
}

func TestMigrations(t *testing.T) {
	t.Run("fresh database is current", func(t *testing.T) {
		s := createTestStore(t)
		if got := userVersion(t, s.db); got != schemaVersion {
			t.Errorf("user_version = %d, want %d", got, schemaVersion)
		}
		for _, idx := range []string{"idx_views_group", "idx_views_module"} {
			if !hasObject(t, s, "index", idx) {
				t.Errorf("index %q missing", idx)
			}
		}
	})

	t.Run("old database is upgraded", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "old.db")
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() failed: %v", err)
		}
		// Roll back to a version 1 database.
		if _, err := s.db.Exec(`DROP INDEX idx_views_module`); err != nil {
			t.Fatalf("drop index: %v", err)
		}
		if _, err := s.db.Exec(`PRAGMA user_version = 1`); err != nil {
			t.Fatalf("set user_version: %v", err)
		}
		s.Close()

		s, err = Open(path)
		if err != nil {
			t.Fatalf("reopen failed: %v", err)
		}
		defer s.Close()
		if got := userVersion(t, s.db); got != schemaVersion {
			t.Errorf("user_version = %d, want %d", got, schemaVersion)
		}
		if !hasObject(t, s, "index", "idx_views_module") {
			t.Error("idx_views_module not recreated")
		}
	})

	t.Run("versions increase", func(t *testing.T) {
		for i, m := range migrations {
			if m.version != i+1 {
				t.Errorf("migrations[%d].version = %d, want %d", i, m.version, i+1)
			}
		}
	})
}

func TestConstraints(t *testing.T) {
	tests := []struct {
		name    string
		stmts   []string
		wantErr bool
	}{
		{
			name: "duplicate xml_id",
			stmts: []string{
				`INSERT INTO views (xml_id, name, type, content) VALUES ('dup', 'v', 'form', '<form/>')`,
				`INSERT INTO views (xml_id, name, type, content) VALUES ('dup', 'v', 'form', '<form/>')`,
			},
			wantErr: true,
		},
		{
			name: "null xml_ids are distinct",
			stmts: []string{
				`INSERT INTO views (xml_id, name, type, content) VALUES (NULL, 'v', 'form', '<form/>')`,
				`INSERT INTO views (xml_id, name, type, content) VALUES (NULL, 'v', 'form', '<form/>')`,
			},
		},
		{
			name: "computed extension",
			stmts: []string{
				`INSERT INTO views (name, type, extension, computed, content) VALUES ('v', 'form', 1, 1, '<form/>')`,
			},
			wantErr: true,
		},
		{
			name: "duplicate module",
			stmts: []string{
				`INSERT INTO modules (ord, name) VALUES (0, 'base')`,
				`INSERT INTO modules (ord, name) VALUES (1, 'base')`,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestStore(t)
			var err error
			for _, stmt := range tt.stmts {
				if _, err = s.db.Exec(stmt); err != nil {
					break
				}
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func userVersion(t *testing.T, db *sql.DB) int {
	t.Helper()
	var v int
	if err := db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		t.Fatalf("read user_version: %v", err)
	}
	return v
}

func hasObject(t *testing.T, s *Store, kind, name string) bool {
	t.Helper()
	var got string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type = ? AND name = ?", kind, name,
	).Scan(&got)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		t.Fatalf("sqlite_master lookup %s %s: %v", kind, name, err)
	}
	return true
}

func tableColumns(t *testing.T, s *Store, table string) map[string]bool {
	t.Helper()
	rows, err := s.db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		t.Fatalf("table_info(%s): %v", table, err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan column: %v", err)
		}
		columns[name] = true
	}
	return columns
}
