package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/viewmerge/internal/ir"
)

func TestSaveView_InsertAssignsID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	v := mustSave(t, s, createTestView("sale.order-form", "order-form", "sale", 20))
	require.NotZero(t, v.ID)

	got, err := s.FindByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "sale.order-form", got.XMLID)
	assert.Equal(t, "order-form", got.Name)
	assert.Equal(t, "com.example.Order", got.Model)
	assert.Equal(t, 20, got.Priority)
	assert.False(t, got.Extension)
	assert.False(t, got.Computed)
	assert.Equal(t, []string{}, got.Groups)
	assert.Equal(t, []string{}, got.DependentModules)
}

func TestSaveView_UpdateKeepsID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	v := mustSave(t, s, createTestView("sale.order-form", "order-form", "sale", 20))
	id := v.ID

	v.Title = "Order"
	v.Groups = []string{"sales", "admins", "sales"}
	mustSave(t, s, v)
	assert.Equal(t, id, v.ID)

	got, err := s.FindByXMLID(ctx, "sale.order-form")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Order", got.Title)
	assert.Equal(t, []string{"admins", "sales"}, got.Groups)
}

func TestSaveView_RejectsComputed(t *testing.T) {
	s := createTestStore(t)

	v := createTestView("x", "x", "base", 20)
	v.Computed = true
	err := s.SaveView(context.Background(), v)
	require.Error(t, err)
}

func TestFindByID_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.FindByID(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFindByNameModule(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustSave(t, s, createTestView("", "order-form", "sale", 20))
	other := mustSave(t, s, createTestView("", "order-form", "stock", 20))

	got, err := s.FindByNameModule(ctx, "order-form", "stock")
	require.NoError(t, err)
	assert.Equal(t, other.ID, got.ID)

	_, err = s.FindByNameModule(ctx, "order-form", "crm")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFindOriginal_HighestPriorityWins(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustSave(t, s, createTestView("base.order-form", "order-form", "base", 20))
	shadow := mustSave(t, s, createTestView("sale.order-form", "order-form", "sale", 21))
	mustSave(t, s, createTestExtension("crm.order-form", "order-form", "crm"))

	got, err := s.FindOriginal(ctx, shadow.Key())
	require.NoError(t, err)
	assert.Equal(t, shadow.ID, got.ID)
}

func TestFindOriginal_TieGoesToNewest(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustSave(t, s, createTestView("a", "order-form", "base", 20))
	newer := mustSave(t, s, createTestView("b", "order-form", "sale", 20))

	got, err := s.FindOriginal(ctx, newer.Key())
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)
}

func TestFindOriginal_ModelIsPartOfKey(t *testing.T) {
	s := createTestStore(t)

	v := mustSave(t, s, createTestView("a", "order-form", "base", 20))
	key := v.Key()
	key.Model = "com.example.Invoice"

	_, err := s.FindOriginal(context.Background(), key)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFindExtensions_Order(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	original := mustSave(t, s, createTestView("base.order-form", "order-form", "base", 20))

	low := createTestExtension("ext.low", "order-form", "a")
	low.Priority = 10
	mustSave(t, s, low)
	first := mustSave(t, s, createTestExtension("ext.first", "order-form", "b"))
	second := mustSave(t, s, createTestExtension("ext.second", "order-form", "c"))

	exts, err := s.FindExtensions(ctx, original.Key())
	require.NoError(t, err)
	require.Len(t, exts, 3)
	assert.Equal(t, first.ID, exts[0].ID)
	assert.Equal(t, second.ID, exts[1].ID)
	assert.Equal(t, low.ID, exts[2].ID)
}

func TestFindExtensions_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	exts, err := s.FindExtensions(context.Background(), ir.GroupKey{Name: "none", Type: "form"})
	require.NoError(t, err)
	assert.NotNil(t, exts)
	assert.Empty(t, exts)
}

func TestSaveComposition_UpsertsComputed(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	original := mustSave(t, s, createTestView("base.order-form", "order-form", "base", 20))
	original.DependentModules = []string{"sale"}
	original.DependentFeatures = []string{"discount"}

	first := mustCompose(t, s, original)
	require.NotZero(t, first.ID)

	second := mustCompose(t, s, original)
	assert.Equal(t, first.ID, second.ID, "recomposition must reuse the computed row")

	got, err := s.FindComputed(ctx, "base.order-form__computed__")
	require.NoError(t, err)
	assert.True(t, got.Computed)
	assert.Equal(t, 21, got.Priority)

	stored, err := s.FindByID(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"sale"}, stored.DependentModules)
	assert.Equal(t, []string{"discount"}, stored.DependentFeatures)
}

func TestSaveComposition_MissingOriginalRollsBack(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	original := createTestView("ghost", "ghost", "base", 20)
	original.ID = 999
	computed := &ir.View{XMLID: "ghost__computed__", Name: "ghost", Type: "form", Computed: true, Content: "<form/>"}

	err := s.SaveComposition(ctx, original, computed)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.FindComputed(ctx, "ghost__computed__")
	require.ErrorIs(t, err, ErrNotFound, "computed view must not survive a failed composition write")
}

func TestFindComputed_IgnoresLoadedViews(t *testing.T) {
	s := createTestStore(t)

	mustSave(t, s, createTestView("base.order-form", "order-form", "base", 20))

	_, err := s.FindComputed(context.Background(), "base.order-form")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteComputed(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	original := mustSave(t, s, createTestView("base.order-form", "order-form", "base", 20))
	computed := mustCompose(t, s, original)

	require.NoError(t, s.DeleteComputed(ctx, computed.XMLID))
	_, err := s.FindComputed(ctx, computed.XMLID)
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting again is fine.
	require.NoError(t, s.DeleteComputed(ctx, computed.XMLID))

	// The original is untouched.
	_, err = s.FindByID(ctx, original.ID)
	require.NoError(t, err)
}

func TestDeleteOrphanedComputed(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := mustSave(t, s, createTestView("a", "a-form", "base", 20))
	b := mustSave(t, s, createTestView("b", "b-form", "base", 20))
	c := mustSave(t, s, createTestView("c", "c-form", "base", 20))
	for _, v := range []*ir.View{a, b, c} {
		mustCompose(t, s, v)
	}
	// a keeps an extension, c loses its original, b never had an extension.
	mustSave(t, s, createTestExtension("m1.a", "a-form", "m1"))
	mustSave(t, s, createTestExtension("m1.c", "c-form", "m1"))
	require.NoError(t, s.DeleteView(ctx, c.ID))

	n, err := s.DeleteOrphanedComputed(ctx, []string{"a-form", "b-form", "c-form", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.FindComputed(ctx, "a__computed__")
	require.NoError(t, err, "a group with an original and an extension keeps its computed view")
	_, err = s.FindComputed(ctx, "b__computed__")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindComputed(ctx, "c__computed__")
	require.ErrorIs(t, err, ErrNotFound)

	n, err = s.DeleteOrphanedComputed(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteView(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	v := mustSave(t, s, createTestView("a", "a-form", "base", 20))
	require.NoError(t, s.DeleteView(ctx, v.ID))

	_, err := s.FindByID(ctx, v.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListViews(t *testing.T) {
	s := createTestStore(t)

	a := mustSave(t, s, createTestView("a", "a-form", "base", 20))
	b := mustSave(t, s, createTestExtension("b", "a-form", "sale"))

	views, err := s.ListViews(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, a.ID, views[0].ID)
	assert.Equal(t, b.ID, views[1].ID)
	assert.True(t, views[1].Extension)
}
