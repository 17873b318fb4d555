package locator

import (
	"github.com/antchfx/xpath"
	"github.com/jellydator/ttlcache/v3"
)

// DefaultCacheSize bounds the number of compiled expressions kept.
const DefaultCacheSize = 10_000

type compiled struct {
	expr *xpath.Expr
	err  error
}

// Cache holds compiled path expressions keyed by their literal text.
//
// It is safe for concurrent use. Two goroutines compiling the same expression
// at once both store the same result; the last write wins. Compile failures
// are cached too, since they are a pure function of the text.
type Cache struct {
	items *ttlcache.Cache[string, compiled]
}

// NewCache returns a cache holding at most size expressions. Entries never
// expire; the least recently used entry is evicted once the cache is full.
// A size of zero means DefaultCacheSize.
func NewCache(size uint64) *Cache {
	if size == 0 {
		size = DefaultCacheSize
	}
	return &Cache{
		items: ttlcache.New[string, compiled](
			ttlcache.WithCapacity[string, compiled](size),
			ttlcache.WithTTL[string, compiled](ttlcache.NoTTL),
		),
	}
}

// Compile returns the compiled form of expr, compiling it on a miss.
func (c *Cache) Compile(expr string) (*xpath.Expr, error) {
	if item := c.items.Get(expr); item != nil {
		v := item.Value()
		return v.expr, v.err
	}

	e, err := xpath.Compile(expr)
	c.items.Set(expr, compiled{expr: e, err: err}, ttlcache.NoTTL)
	return e, err
}

// Len returns the number of cached expressions.
func (c *Cache) Len() int {
	return c.items.Len()
}

// Purge drops every cached expression.
func (c *Cache) Purge() {
	c.items.DeleteAll()
}
