package gallery

import (
	"sync"

	"github.com/jonboulle/clockwork"
)

// idsPerMilli is the id space reserved for uploads landing in the same millisecond.
const idsPerMilli = 1000

// IDGenerator hands out strictly increasing image ids derived from the wall clock.
// Ids look like unix-millis*1000 so clients can still read a timestamp out of them;
// when the clock stalls or steps backwards the previous id is bumped by one instead.
type IDGenerator struct {
	clock clockwork.Clock

	mu   sync.Mutex
	last int64
}

// NewIDGenerator creates an id generator on top of the given clock.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
func NewIDGenerator(clock clockwork.Clock) *IDGenerator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &IDGenerator{clock: clock}
}

// Next returns an id greater than every id returned before it.
func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	candidate := g.clock.Now().UnixMilli() * idsPerMilli
	if candidate <= g.last {
		candidate = g.last + 1
	}
	g.last = candidate
	return candidate
}

// Last returns the most recently issued id, or zero if none was issued yet.
func (g *IDGenerator) Last() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}
