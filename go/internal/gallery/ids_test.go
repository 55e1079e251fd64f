package gallery

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDGenerator_SameMillisecondBurst(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	gen := NewIDGenerator(clock)

	first := gen.Next()
	assert.Equal(t, clock.Now().UnixMilli()*idsPerMilli, first)

	prev := first
	for i := 0; i < 5000; i++ {
		id := gen.Next()
		require.Greater(t, id, prev)
		prev = id
	}
}

func TestIDGenerator_ClockStepsBackwards(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	gen := NewIDGenerator(clock)

	a := gen.Next()
	clock.Advance(-2 * time.Second)
	b := gen.Next()
	assert.Equal(t, a+1, b)

	clock.Advance(time.Minute)
	c := gen.Next()
	assert.Equal(t, clock.Now().UnixMilli()*idsPerMilli, c)
	assert.Equal(t, c, gen.Last())
}

func TestIDGenerator_ConcurrentCallersGetDistinctIDs(t *testing.T) {
	gen := NewIDGenerator(clockwork.NewFakeClock())

	const workers, perWorker = 8, 500
	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := gen.Next()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}
