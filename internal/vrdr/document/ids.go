package document

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator hands out identifiers that are unique within the process.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator generates random version 4 UUIDs.
type UUIDGenerator struct{}

// NewID returns a new random UUID.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// SequentialGenerator hands out UUID-shaped identifiers from a counter, which
// keeps document output stable across runs.
type SequentialGenerator struct {
	next atomic.Uint64
}

// NewID returns the next identifier in sequence.
func (g *SequentialGenerator) NewID() string {
	n := g.next.Add(1)
	return fmt.Sprintf("00000000-0000-4000-8000-%012x", n)
}

func urnUUID(id string) string {
	return "urn:uuid:" + id
}
