package locator

import (
	"fmt"
	"strings"

	"github.com/antchfx/xpath"

	"github.com/roach88/viewmerge/internal/dom"
)

// ExprError reports a path expression that cannot be compiled or evaluated.
type ExprError struct {
	Expr string
	Err  error
}

func (e *ExprError) Error() string {
	return fmt.Sprintf("path expression %q: %v", e.Expr, e.Err)
}

func (e *ExprError) Unwrap() error {
	return e.Err
}

// Locator resolves path expressions inside view documents.
type Locator struct {
	cache *Cache
}

// New returns a Locator backed by cache. A nil cache gets a private one of
// the default size.
func New(cache *Cache) *Locator {
	if cache == nil {
		cache = NewCache(DefaultCacheSize)
	}
	return &Locator{cache: cache}
}

// Cache returns the expression cache in use.
func (l *Locator) Cache() *Cache {
	return l.cache
}

// RootPath is the expression addressing the root of view (name, viewType).
func RootPath(name, viewType string) string {
	return "/" + viewType + "[@name=" + quote(name) + "]"
}

// Expression builds the full expression for a fragment relative to the root
// of view (name, viewType). One leading slash is stripped from fragment, so
// "//field" searches all descendants of the root. An empty fragment addresses
// the root itself.
func Expression(fragment, name, viewType string) string {
	root := RootPath(name, viewType)
	fragment = strings.TrimPrefix(strings.TrimSpace(fragment), "/")
	if fragment == "" {
		return root
	}
	return root + "/" + fragment
}

// Resolve returns the first node matched by fragment inside doc, scoped to
// view (name, viewType). It returns nil, nil when nothing matches. Matches on
// attributes or on the document node count as no match, since neither can be
// the target of an operation. Resolve never mutates doc.
func (l *Locator) Resolve(fragment, name, viewType string, doc *dom.Document) (*dom.Node, error) {
	full := Expression(fragment, name, viewType)

	expr, err := l.cache.Compile(full)
	if err != nil {
		return nil, &ExprError{Expr: full, Err: err}
	}

	nav, err := first(expr, doc)
	if err != nil {
		return nil, &ExprError{Expr: full, Err: err}
	}
	if nav == nil || nav.OnAttribute() || nav.Current().Kind == dom.DocumentNode {
		return nil, nil
	}
	return nav.Current(), nil
}

// first runs expr and returns the first selected position. Expressions that
// do not yield a node-set (count(), string literals) make the xpath package
// panic during iteration; that is reported as an error.
func first(expr *xpath.Expr, doc *dom.Document) (nav *dom.Navigator, err error) {
	defer func() {
		if r := recover(); r != nil {
			nav, err = nil, fmt.Errorf("does not select nodes: %v", r)
		}
	}()

	it := expr.Select(dom.NewNavigator(doc))
	if !it.MoveNext() {
		return nil, nil
	}
	cur, ok := it.Current().(*dom.Navigator)
	if !ok {
		return nil, fmt.Errorf("unexpected navigator %T", it.Current())
	}
	return cur, nil
}

// quote returns s as an XPath string literal. XPath 1.0 has no escapes, so
// a value holding both quote kinds becomes a concat() of its pieces.
func quote(s string) string {
	switch {
	case !strings.Contains(s, "'"):
		return "'" + s + "'"
	case !strings.Contains(s, `"`):
		return `"` + s + `"`
	}

	parts := strings.Split(s, "'")
	args := make([]string, 0, 2*len(parts)-1)
	for i, p := range parts {
		if i > 0 {
			args = append(args, `"'"`)
		}
		if p != "" {
			args = append(args, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(args, ", ") + ")"
}
