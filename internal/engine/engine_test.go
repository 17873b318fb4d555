package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/viewmerge/internal/dom"
	"github.com/roach88/viewmerge/internal/ir"
	"github.com/roach88/viewmerge/internal/locator"
	"github.com/roach88/viewmerge/internal/store"
	"github.com/roach88/viewmerge/internal/testutil"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(dir + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, s *store.Store, opts ...EngineOption) *Engine {
	t.Helper()
	base := []EngineOption{
		WithLogger(discardLogger()),
		WithRunIDGenerator(NewSequenceGenerator("run")),
	}
	return New(s, s, s, append(base, opts...)...)
}

// seedModules stores a manifest whose modules are all installed and, except
// for the first, removable.
func seedModules(t *testing.T, s *store.Store, features []string, names ...string) {
	t.Helper()
	require.NoError(t, s.ReplaceManifest(context.Background(), testutil.Manifest(features, names...)))
}

func saveOriginal(t *testing.T, s *store.Store, content string) *ir.View {
	t.Helper()
	v := testutil.Original("", "v1", "base", content)
	require.NoError(t, s.SaveView(context.Background(), v))
	return v
}

func saveExtension(t *testing.T, s *store.Store, xmlID, module, body string) *ir.View {
	t.Helper()
	v := testutil.Extension(xmlID, "v1", module, body)
	require.NoError(t, s.SaveView(context.Background(), v))
	return v
}

// compose runs one composition and returns the compact computed markup.
func compose(t *testing.T, e *Engine, s *store.Store, v *ir.View) (*Result, string) {
	t.Helper()
	ctx := context.Background()
	env, err := LoadEnvironment(ctx, s, s)
	require.NoError(t, err)

	res, err := e.ComposeView(ctx, v, env)
	require.NoError(t, err)
	if !res.Generated {
		return res, ""
	}
	return res, compact(t, res.Computed.Content)
}

func compact(t *testing.T, content string) string {
	t.Helper()
	doc, err := dom.ParseString(content)
	require.NoError(t, err)
	return string(dom.MarshalCompact(doc))
}

func TestEngine_NewDefaults(t *testing.T) {
	s := setupTestStore(t)
	e := New(s, s, s)

	assert.Equal(t, DefaultPageSize, e.pageSize)
	assert.Equal(t, DefaultJobs, e.jobs)
	assert.NotNil(t, e.Locator())
	assert.NotNil(t, e.logger)
	assert.IsType(t, UUIDv7Generator{}, e.runIDs)
}

func TestEngine_Options(t *testing.T) {
	s := setupTestStore(t)
	loc := locator.New(locator.NewCache(16))
	e := New(s, s, s, WithLocator(loc), WithPageSize(7), WithJobs(3), WithPageSize(0), WithJobs(-1))

	assert.Same(t, loc, e.Locator())
	assert.Equal(t, 7, e.pageSize)
	assert.Equal(t, 3, e.jobs)
}

func TestCompose_InsertIntoPanel(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><panel name="p1"/></form>`)
	saveExtension(t, s, "m1.v1-ext", "m1",
		`<extend target="//panel[@name='p1']"><insert position="inside-last"><field name="f1"/></insert></extend>`)

	res, got := compose(t, e, s, original)
	require.True(t, res.Generated)
	assert.Equal(t, `<form name="v1"><panel name="p1"><field name="f1"/></panel></form>`, got)

	assert.Equal(t, "v1__computed__", res.Computed.XMLID)
	assert.Equal(t, "v1", res.Computed.Name)
	assert.Equal(t, "m1", res.Computed.Module)
	assert.Equal(t, 21, res.Computed.Priority)
	assert.True(t, res.Computed.Computed)
	assert.NotEmpty(t, res.Computed.ContentHash)
	assert.Equal(t, []string{"v1(m1.v1-ext)"}, res.Fragments)
	assert.Empty(t, res.Report.Diagnostics)

	stored, err := s.FindComputed(context.Background(), "v1__computed__")
	require.NoError(t, err)
	assert.Equal(t, res.Computed.ID, stored.ID)
	assert.Equal(t, res.Computed.Content, stored.Content)
}

func TestCompose_ByID(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><panel name="p1"/></form>`)
	saveExtension(t, s, "m1.v1-ext", "m1",
		`<extend target="//panel[@name='p1']"><insert position="inside-last"><field name="f1"/></insert></extend>`)

	ok, err := e.Compose(context.Background(), original.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = e.Compose(context.Background(), 9999)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCompose_Idempotent(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><panel name="p1"/></form>`)
	saveExtension(t, s, "m1.v1-ext", "m1",
		`<extend target="//panel[@name='p1']"><insert position="inside-last"><field name="f1"/></insert></extend>`)

	first, _ := compose(t, e, s, original)
	second, _ := compose(t, e, s, original)

	assert.Equal(t, first.Computed.Content, second.Computed.Content)
	assert.Equal(t, first.Computed.ContentHash, second.Computed.ContentHash)
	assert.Equal(t, first.Computed.ID, second.Computed.ID)
	assert.False(t, first.Unchanged)
	assert.True(t, second.Unchanged)

	views, err := s.ListViews(context.Background())
	require.NoError(t, err)
	assert.Len(t, views, 3, "original, extension and one computed view")
}

func TestCompose_ModuleOrderWinsOverStoreOrder(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "b", "a")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><panel name="p1"/></form>`)
	saveExtension(t, s, "a.ext", "a",
		`<extend target="//panel[@name='p1']"><insert position="inside-last"><field name="fa"/></insert></extend>`)
	saveExtension(t, s, "b.ext", "b",
		`<extend target="//panel[@name='p1']"><insert position="inside-last"><field name="fb"/></insert></extend>`)

	res, got := compose(t, e, s, original)
	assert.Equal(t, `<form name="v1"><panel name="p1"><field name="fb"/><field name="fa"/></panel></form>`, got)
	assert.Equal(t, []string{"v1(b.ext)", "v1(a.ext)"}, res.Fragments)
	assert.Equal(t, "a", res.Computed.Module, "module of the last applied fragment")
}

func TestCompose_RootPositionsNormalized(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><panel name="p1"/></form>`)
	saveExtension(t, s, "m1.ext", "m1", `<extend target="/">`+
		`<insert position="after"><panel name="tail"/></insert>`+
		`<insert position="before"><panel name="head"/></insert>`+
		`</extend>`)

	res, got := compose(t, e, s, original)
	assert.Equal(t, `<form name="v1"><panel name="head"/><panel name="p1"/><panel name="tail"/></form>`, got)
	assert.Empty(t, res.Report.Diagnostics)
}

func TestCompose_InsertKeepsOrder(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><field name="a"/><field name="z"/></form>`)
	saveExtension(t, s, "m1.ext", "m1",
		`<extend target="//field[@name='a']"><insert position="after"><field name="b"/><field name="c"/></insert></extend>`)

	_, got := compose(t, e, s, original)
	assert.Equal(t, `<form name="v1"><field name="a"/><field name="b"/><field name="c"/><field name="z"/></form>`, got)
}

func TestCompose_ReplaceToEmptyThenSkipped(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><field name="f1"/><field name="f2"/></form>`)
	saveExtension(t, s, "m1.ext", "m1", `<extend target="//field[@name='f1']">`+
		`<replace/>`+
		`<attribute name="title" value="gone"/>`+
		`</extend>`)

	res, got := compose(t, e, s, original)
	assert.Equal(t, `<form name="v1"><field name="f2"/></form>`, got)
	assert.Equal(t, 1, res.Report.Count(DiagNoAnchor))
}

func TestCompose_ReplaceRetargetsLaterOperations(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><field name="f1"/><field name="z"/></form>`)
	saveExtension(t, s, "m1.ext", "m1", `<extend target="//field[@name='f1']">`+
		`<replace><field name="f2"/><field name="f3"/></replace>`+
		`<attribute name="readonly" value="true"/>`+
		`</extend>`)

	res, got := compose(t, e, s, original)
	assert.Equal(t, `<form name="v1"><field name="f2" readonly="true"/><field name="f3"/><field name="z"/></form>`, got)
	assert.Empty(t, res.Report.Diagnostics)
}

func TestCompose_ReplaceRootRejected(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><field name="f1"/></form>`)
	saveExtension(t, s, "m1.ext", "m1", `<extend target="/"><replace><form name="other"/></replace></extend>`)

	res, got := compose(t, e, s, original)
	assert.Equal(t, `<form name="v1"><field name="f1"/></form>`, got)
	assert.Equal(t, 1, res.Report.Count(DiagSchema))
}

func TestCompose_FailedGuardStillRecordsDependency(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><panel name="p1"/></form>`)
	saveExtension(t, s, "m1.ext", "m1", ``+
		`<extend target="//panel[@name='p1']" if-feature="beta"><insert position="inside-last"><field name="f1"/></insert></extend>`+
		`<extend target="//panel[@name='missing']" if-module="crm"><insert position="inside-last"><field name="f2"/></insert></extend>`)

	res, got := compose(t, e, s, original)
	require.True(t, res.Generated)
	assert.Equal(t, `<form name="v1"><panel name="p1"/></form>`, got)

	assert.Equal(t, 2, res.Report.Count(DiagGuard))
	assert.Zero(t, res.Report.Count(DiagTargetMissing), "guards are checked before the target")
	assert.Empty(t, res.Report.Errors())

	assert.Equal(t, []string{"beta"}, res.Original.DependentFeatures)
	assert.Equal(t, []string{"crm", "m1"}, res.Original.DependentModules)

	stored, err := s.FindByID(context.Background(), original.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, stored.DependentFeatures)
	assert.Equal(t, []string{"crm", "m1"}, stored.DependentModules)
}

func TestCompose_PassingGuards(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, []string{"beta"}, "base", "m1", "crm")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><panel name="p1"/></form>`)
	saveExtension(t, s, "m1.ext", "m1", ``+
		`<extend target="//panel[@name='p1']" if-feature="beta" if-module="crm">`+
		`<insert position="inside-last"><field name="f1"/></insert></extend>`)

	res, got := compose(t, e, s, original)
	assert.Equal(t, `<form name="v1"><panel name="p1"><field name="f1"/></panel></form>`, got)
	assert.Equal(t, []string{"beta"}, res.Original.DependentFeatures)
	assert.Equal(t, []string{"crm", "m1"}, res.Original.DependentModules)
}

func TestCompose_NonRemovableModuleNotRecorded(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><panel name="p1"/></form>`)
	saveExtension(t, s, "base.ext", "base",
		`<extend target="//panel[@name='p1']"><attribute name="title" value="P"/></extend>`)

	res, _ := compose(t, e, s, original)
	assert.Empty(t, res.Original.DependentModules)
}

func TestCompose_TargetMissingSkipsExtend(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><panel name="p1"/></form>`)
	saveExtension(t, s, "m1.ext", "m1", ``+
		`<extend target="//panel[@name='nope']"><insert position="inside-last"><field name="x"/></insert></extend>`+
		`<extend target="//panel[@name='p1']"><insert position="inside-last"><field name="y"/></insert></extend>`)

	res, got := compose(t, e, s, original)
	assert.Equal(t, `<form name="v1"><panel name="p1"><field name="y"/></panel></form>`, got)
	require.Len(t, res.Report.Diagnostics, 1)
	assert.Equal(t, DiagTargetMissing, res.Report.Diagnostics[0].Kind)
	assert.Equal(t, "m1.ext", res.Report.Diagnostics[0].XMLID)
	assert.Equal(t, "//panel[@name='nope']", res.Report.Diagnostics[0].Path)
}

func TestCompose_BadExpression(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><panel name="p1"/></form>`)
	saveExtension(t, s, "m1.ext", "m1", ``+
		`<extend target="//panel[@name="><insert><field name="x"/></insert></extend>`+
		`<extend target="//panel[@name='p1']"><insert position="inside-last"><field name="y"/></insert></extend>`)

	res, got := compose(t, e, s, original)
	assert.Equal(t, `<form name="v1"><panel name="p1"><field name="y"/></panel></form>`, got)
	assert.Equal(t, 1, res.Report.Count(DiagExpression))
}

func TestCompose_UnknownOperationReported(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><panel name="p1"/></form>`)
	saveExtension(t, s, "m1.ext", "m1", `<extend target="//panel[@name='p1']">`+
		`<delete/>`+
		`<attribute name="title" value="P"/>`+
		`</extend>`)

	res, got := compose(t, e, s, original)
	assert.Equal(t, `<form name="v1"><panel name="p1" title="P"/></form>`, got)
	assert.Equal(t, 1, res.Report.Count(DiagSchema))
}

func TestCompose_Move(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><panel name="p1"><field name="a"/></panel><panel name="p2"><field name="b"/></panel></form>`)
	saveExtension(t, s, "m1.ext", "m1", `<extend target="//panel[@name='p2']">`+
		`<move source="//field[@name='a']" position="inside-first"/>`+
		`<move source="//field[@name='ghost']" position="inside-first"/>`+
		`</extend>`)

	res, got := compose(t, e, s, original)
	assert.Equal(t, `<form name="v1"><panel name="p1"/><panel name="p2"><field name="a"/><field name="b"/></panel></form>`, got)
	assert.Equal(t, 1, res.Report.Count(DiagSourceMissing))
}

func TestCompose_MoveToRoot(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><panel name="p1"><field name="a"/></panel></form>`)
	saveExtension(t, s, "m1.ext", "m1",
		`<extend target="/"><move source="//field[@name='a']" position="after"/></extend>`)

	_, got := compose(t, e, s, original)
	assert.Equal(t, `<form name="v1"><panel name="p1"/><field name="a"/></form>`, got)
}

func TestCompose_MoveIntoOwnSubtreeRejected(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><panel name="p1"><field name="a"/></panel></form>`)
	saveExtension(t, s, "m1.ext", "m1",
		`<extend target="//field[@name='a']"><move source="//panel[@name='p1']" position="inside-last"/></extend>`)

	res, got := compose(t, e, s, original)
	assert.Equal(t, `<form name="v1"><panel name="p1"><field name="a"/></panel></form>`, got)
	assert.Equal(t, 1, res.Report.Count(DiagSchema))
}

func TestCompose_Attributes(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><field name="a" hidden="true"/></form>`)
	saveExtension(t, s, "m1.ext", "m1", `<extend target="//field[@name='a']">`+
		`<attribute name="title" value="A"/>`+
		`<attribute name="hidden" value=""/>`+
		`</extend>`)

	_, got := compose(t, e, s, original)
	assert.Equal(t, `<form name="v1"><field name="a" title="A"/></form>`, got)
}

func TestCompose_Slots(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1", "m2")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><panel name="p1"/></form>`)
	saveExtension(t, s, "m1.ext", "m1", `<extend target="/"><insert position="before">`+
		`<trailing-panel><panel name="mail"/></trailing-panel>`+
		`<panel name="p0"/>`+
		`<menu-bar><item name="m"/></menu-bar>`+
		`<toolbar><button name="b1"/></toolbar>`+
		`</insert></extend>`)
	saveExtension(t, s, "m2.ext", "m2", `<extend target="/"><insert position="after">`+
		`<toolbar><button name="b2"/></toolbar>`+
		`<panel name="p9"/>`+
		`</insert></extend>`)

	res, got := compose(t, e, s, original)
	assert.Equal(t, `<form name="v1">`+
		`<toolbar><button name="b1"/><button name="b2"/></toolbar>`+
		`<menu-bar><item name="m"/></menu-bar>`+
		`<panel name="p0"/>`+
		`<panel name="p1"/>`+
		`<panel name="p9"/>`+
		`<trailing-panel><panel name="mail"/></trailing-panel>`+
		`</form>`, got)
	assert.Empty(t, res.Report.Diagnostics)
}

func TestCompose_ReplaceSlot(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><toolbar><button name="old"/></toolbar><panel name="p1"/></form>`)
	saveExtension(t, s, "m1.ext", "m1", `<extend target="//panel[@name='p1']">`+
		`<replace><toolbar><button name="new"/></toolbar></replace>`+
		`</extend>`)

	_, got := compose(t, e, s, original)
	assert.Equal(t, `<form name="v1"><toolbar><button name="new"/></toolbar></form>`, got)
}

func TestCompose_ReplaceSlotTargetKeepsOtherChildren(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><toolbar/><panel name="p1"/></form>`)
	saveExtension(t, s, "m1.ext", "m1", `<extend target="//toolbar">`+
		`<replace><toolbar><button name="n"/></toolbar><field name="x"/><field name="y"/></replace>`+
		`<attribute name="title" value="X"/>`+
		`</extend>`)

	res, got := compose(t, e, s, original)
	assert.Equal(t, `<form name="v1">`+
		`<toolbar><button name="n"/></toolbar>`+
		`<field name="x" title="X"/><field name="y"/>`+
		`<panel name="p1"/></form>`, got)
	assert.Empty(t, res.Report.Diagnostics)
}

func TestCompose_AttributeOnNonElementSkipped(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><label>Hi</label><panel name="p1"/></form>`)
	saveExtension(t, s, "m1.ext", "m1",
		`<extend target="//label/text()"><attribute name="title" value="T"/></extend>`+
			`<extend target="//panel[@name='p1']"><attribute name="title" value="P"/></extend>`)

	res, got := compose(t, e, s, original)
	assert.Equal(t, `<form name="v1"><label>Hi</label><panel name="p1" title="P"/></form>`, got)
	assert.Equal(t, 1, res.Report.Count(DiagSchema))
	assert.True(t, res.Generated)
}

func TestCompose_AppendItems(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><panel name="p1"/><trailing-panel/></form>`)
	saveExtension(t, s, "m1.ext", "m1", `<panel name="extra"/>`)

	_, got := compose(t, e, s, original)
	assert.Equal(t, `<form name="v1"><panel name="p1"/><panel name="extra"/><trailing-panel/></form>`, got)
}

func TestCompose_GroupsFromRoot(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><panel name="p1"/></form>`)
	saveExtension(t, s, "m1.ext", "m1",
		`<extend target="/"><attribute name="groups" value="sales, admins"/></extend>`)

	res, _ := compose(t, e, s, original)
	assert.Equal(t, []string{"admins", "sales"}, res.Computed.Groups)
}

func TestCompose_NoExtensionsRemovesComputed(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)
	ctx := context.Background()

	original := saveOriginal(t, s, `<form name="v1"><panel name="p1"/></form>`)
	ext := saveExtension(t, s, "m1.ext", "m1",
		`<extend target="//panel[@name='p1']"><attribute name="title" value="P"/></extend>`)

	res, _ := compose(t, e, s, original)
	require.True(t, res.Generated)

	require.NoError(t, s.DeleteView(ctx, ext.ID))

	res, _ = compose(t, e, s, original)
	assert.False(t, res.Generated)
	assert.Nil(t, res.Computed)

	_, err := s.FindComputed(ctx, "v1__computed__")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCompose_GroupMismatchExcluded(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><panel name="p1"/></form>`)
	ext := &ir.View{
		XMLID: "m1.ext", Name: "v1", Type: "form", Module: "m1", Priority: 20,
		Extension: true, Groups: []string{"admins"},
		Content: `<form name="v1" extension="true"><extend target="/"><attribute name="title" value="T"/></extend></form>`,
	}
	require.NoError(t, s.SaveView(context.Background(), ext))

	res, _ := compose(t, e, s, original)
	assert.False(t, res.Generated)
	assert.Equal(t, 1, res.Excluded)
}

func TestCompose_RedirectsToOriginal(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><panel name="p1"/></form>`)
	ext := saveExtension(t, s, "m1.ext", "m1",
		`<extend target="//panel[@name='p1']"><attribute name="title" value="P"/></extend>`)

	first, _ := compose(t, e, s, original)

	fromComputed, got := compose(t, e, s, first.Computed)
	assert.Equal(t, original.ID, fromComputed.Original.ID)
	assert.Equal(t, `<form name="v1"><panel name="p1" title="P"/></form>`, got, "never composed on top of a computed view")

	fromExtension, _ := compose(t, e, s, ext)
	assert.Equal(t, original.ID, fromExtension.Original.ID)
}

func TestCompose_OriginalMissing(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	ext := saveExtension(t, s, "m1.ext", "m1", `<panel name="x"/>`)

	_, err := e.Compose(context.Background(), ext.ID)
	require.Error(t, err)
	assert.True(t, IsOriginalMissing(err))
}

func TestCompose_InvalidOriginal(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><panel>`)
	saveExtension(t, s, "m1.ext", "m1", `<panel name="x"/>`)

	_, err := e.Compose(context.Background(), original.ID)
	var ce *ComposeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeInvalidOriginal, ce.Code)
}

func TestCompose_UnparsableFragmentSkipped(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1", "m2")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><panel name="p1"/></form>`)
	broken := &ir.View{
		XMLID: "m1.broken", Name: "v1", Type: "form", Module: "m1", Priority: 20,
		Extension: true, Content: `<form name="v1" extension="true"><extend>`,
	}
	require.NoError(t, s.SaveView(context.Background(), broken))
	saveExtension(t, s, "m2.ext", "m2",
		`<extend target="//panel[@name='p1']"><attribute name="title" value="P"/></extend>`)

	res, got := compose(t, e, s, original)
	assert.Equal(t, `<form name="v1"><panel name="p1" title="P"/></form>`, got)
	assert.Equal(t, 1, res.Report.Count(DiagFragment))
	assert.Equal(t, []string{"v1(m2.ext)"}, res.Fragments)
}

func TestCompose_UnknownModuleAppliesLast(t *testing.T) {
	s := setupTestStore(t)
	seedModules(t, s, nil, "base", "m1")
	e := newTestEngine(t, s)

	original := saveOriginal(t, s, `<form name="v1"><panel name="p1"/></form>`)
	saveExtension(t, s, "stray.ext", "stray",
		`<extend target="//panel[@name='p1']"><insert position="inside-last"><field name="s"/></insert></extend>`)
	saveExtension(t, s, "m1.ext", "m1",
		`<extend target="//panel[@name='p1']"><insert position="inside-last"><field name="m"/></insert></extend>`)

	_, got := compose(t, e, s, original)
	assert.Equal(t, `<form name="v1"><panel name="p1"><field name="m"/><field name="s"/></panel></form>`, got)
}
