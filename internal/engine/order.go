package engine

import (
	"slices"

	"github.com/roach88/viewmerge/internal/ir"
)

// OrderByModules reorders fragments by module resolution order.
//
// Fragments are grouped by owning module and the groups are emitted in
// order. Fragments whose module is not in order come last. Within a group,
// and among the unknown-module tail, the incoming order is kept.
func OrderByModules(views []*ir.View, order []string) []*ir.View {
	rank := make(map[string]int, len(order))
	for i, name := range order {
		if _, seen := rank[name]; !seen {
			rank[name] = i
		}
	}
	rankOf := func(v *ir.View) int {
		if r, ok := rank[v.Module]; ok {
			return r
		}
		return len(order)
	}

	out := slices.Clone(views)
	slices.SortStableFunc(out, func(a, b *ir.View) int {
		return rankOf(a) - rankOf(b)
	})
	return out
}

// eligibleExtensions keeps the extensions whose groups equal the original's.
func eligibleExtensions(original *ir.View, extensions []*ir.View) (eligible, excluded []*ir.View) {
	for _, ext := range extensions {
		if ir.SetEqual(ext.Groups, original.Groups) {
			eligible = append(eligible, ext)
		} else {
			excluded = append(excluded, ext)
		}
	}
	return eligible, excluded
}

// lastModule returns the module of the last view that declares one.
func lastModule(views []*ir.View) string {
	for i := len(views) - 1; i >= 0; i-- {
		if views[i].Module != "" {
			return views[i].Module
		}
	}
	return ""
}
