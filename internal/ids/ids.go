// Package ids hands out todo item ids.
//
// Ids are plain integers so the stored list stays a JSON array of numbers the
// way the mobile app wrote it. Both generators stay below 2^53.
package ids

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxSafe is the largest integer a JSON number holds without losing precision.
const maxSafe = 1<<53 - 1

// Generator produces item ids.
type Generator interface {
	Next() int64
}

// Observer is implemented by generators that must stay ahead of ids they
// did not produce themselves (ids read back from storage).
type Observer interface {
	Observe(id int64)
}

// Monotonic uses Unix milliseconds, bumped by one whenever the clock has not
// moved past the last id handed out.
type Monotonic struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewMonotonic returns a timestamp generator. A nil clock means time.Now.
func NewMonotonic(now func() time.Time) *Monotonic {
	if now == nil {
		now = time.Now
	}
	return &Monotonic{now: now}
}

func (g *Monotonic) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

func (g *Monotonic) Observe(id int64) {
	g.mu.Lock()
	if id > g.last {
		g.last = id
	}
	g.mu.Unlock()
}

// Random derives ids from 53 random bits of a v4 uuid.
type Random struct{}

func NewRandom() Random { return Random{} }

func (Random) Next() int64 {
	for {
		u := uuid.New()
		id := int64(binary.BigEndian.Uint64(u[:8]) & maxSafe)
		if id != 0 {
			return id
		}
	}
}
