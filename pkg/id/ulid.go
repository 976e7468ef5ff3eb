package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULIDGenerator generates time-sortable unique IDs.
//
// ULID properties:
//   - sortable by creation time (millisecond precision)
//   - lexicographic order friendly (good for store keys)
//   - 26 characters (vs 36 for UUID)
//
// Format: 01AN4Z07BY79KA1307SR9X4MV3
//   - first 10 characters: timestamp (milliseconds)
//   - last 16 characters: random entropy
type ULIDGenerator struct {
	entropy io.Reader
	mu      sync.Mutex
}

// NewULIDGenerator creates a ULID generator with a monotonic entropy
// source so IDs generated within the same millisecond stay ordered.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate implements Generator.
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}
