package ir

import "fmt"

// Position says where inserted or moved nodes land relative to a target.
type Position int

const (
	After Position = iota
	Before
	InsideFirst
	InsideLast
)

var positionNames = map[Position]string{
	After:       "after",
	Before:      "before",
	InsideFirst: "inside-first",
	InsideLast:  "inside-last",
}

func (p Position) String() string {
	if s, ok := positionNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Position(%d)", int(p))
}

// ParsePosition parses a position attribute value. A blank value means After.
func ParsePosition(s string) (Position, error) {
	if s == "" {
		return After, nil
	}
	for p, name := range positionNames {
		if name == s {
			return p, nil
		}
	}
	return After, fmt.Errorf("unknown position %q (want before, after, inside-first or inside-last)", s)
}

// AtRoot normalizes p for a target that is the document root, which accepts
// no siblings.
func (p Position) AtRoot() Position {
	switch p {
	case Before, InsideFirst:
		return InsideFirst
	default:
		return InsideLast
	}
}

// Leading reports whether p places nodes ahead of the target's content.
func (p Position) Leading() bool {
	return p == Before || p == InsideFirst
}
