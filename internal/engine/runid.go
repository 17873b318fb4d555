package engine

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// RunIDGenerator names batch runs. The id is attached to every log record
// of the run and returned in BatchResult.RunID.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator is the default generator. UUIDv7 ids sort by creation
// time, so runs appear in order when logs are sorted by id.
type UUIDv7Generator struct{}

func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceGenerator yields prefix-1, prefix-2, ... and is safe for
// concurrent use. Tests use it for stable run ids.
type SequenceGenerator struct {
	prefix string
	n      atomic.Uint64
}

// NewSequenceGenerator returns a generator whose first id is prefix-1.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

func (g *SequenceGenerator) Generate() string {
	return g.prefix + "-" + strconv.FormatUint(g.n.Add(1), 10)
}
