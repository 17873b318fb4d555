// Package locator resolves path expressions inside view documents and knows
// where the well-known slots (toolbar, menu-bar, trailing-panel) live.
//
// Expressions are XPath, evaluated with github.com/antchfx/xpath over the
// dom tree, and always scoped to one view root: /<type>[@name='<name>'].
// Compiled expressions are shared through an explicitly constructed Cache.
package locator
