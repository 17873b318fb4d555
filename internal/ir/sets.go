package ir

import (
	"slices"
	"strings"
)

// NormalizeSet returns the sorted, deduplicated, blank-free copy of items.
// The result is never nil so empty sets serialize as [].
func NormalizeSet(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// SetEqual reports whether a and b hold the same members.
func SetEqual(a, b []string) bool {
	return slices.Equal(NormalizeSet(a), NormalizeSet(b))
}

// SetAdd returns set with s added, keeping it normalized.
func SetAdd(set []string, s string) []string {
	return NormalizeSet(append(slices.Clone(set), s))
}

// SplitCSV parses a comma-separated attribute value into a set.
func SplitCSV(s string) []string {
	return NormalizeSet(strings.Split(s, ","))
}

// JoinCSV is the inverse of SplitCSV.
func JoinCSV(set []string) string {
	return strings.Join(NormalizeSet(set), ",")
}
