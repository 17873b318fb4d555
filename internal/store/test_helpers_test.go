package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/viewmerge/internal/ir"
)

// createTestStore creates a new file-backed store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestView creates a form view with minimal required fields.
func createTestView(xmlID, name, module string, priority int) *ir.View {
	return &ir.View{
		XMLID:    xmlID,
		Name:     name,
		Type:     "form",
		Model:    "com.example.Order",
		Module:   module,
		Priority: priority,
		Groups:   []string{},
		Content:  `<form name="` + name + `"/>`,
	}
}

// createTestExtension creates an extension of the form view name.
func createTestExtension(xmlID, name, module string) *ir.View {
	v := createTestView(xmlID, name, module, 20)
	v.Extension = true
	v.Content = `<form name="` + name + `" extension="true"/>`
	return v
}

// mustSave saves v and fails the test on error.
func mustSave(t *testing.T, s *Store, v *ir.View) *ir.View {
	t.Helper()
	if err := s.SaveView(context.Background(), v); err != nil {
		t.Fatalf("SaveView(%s) failed: %v", v.Label(), err)
	}
	return v
}

// mustCompose stores a computed view for original.
func mustCompose(t *testing.T, s *Store, original *ir.View) *ir.View {
	t.Helper()
	computed := &ir.View{
		XMLID:    ir.ComputedXMLID(original),
		Name:     original.Name,
		Type:     original.Type,
		Model:    original.Model,
		Module:   original.Module,
		Priority: original.Priority + 1,
		Computed: true,
		Content:  original.Content,
	}
	if err := s.SaveComposition(context.Background(), original, computed); err != nil {
		t.Fatalf("SaveComposition(%s) failed: %v", original.Label(), err)
	}
	return computed
}
