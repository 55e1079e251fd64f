package gallery

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func references(t *testing.T, s *Store) []string {
	t.Helper()
	snap := s.Snapshot()
	out := make([]string, len(snap))
	for i, rec := range snap {
		out[i] = rec.Reference
	}
	return out
}

func TestStore_AppendKeepsInsertionOrder(t *testing.T) {
	s := NewStore(clockwork.NewFakeClock())

	r1 := s.Append("/uploads/r1.jpg")
	r2 := s.Append("/uploads/r2.jpg")
	r3 := s.Append("/uploads/r3.jpg")

	assert.Equal(t, []string{"/uploads/r1.jpg", "/uploads/r2.jpg", "/uploads/r3.jpg"}, references(t, s))
	assert.Less(t, r1.ID, r2.ID)
	assert.Less(t, r2.ID, r3.ID)
	assert.Equal(t, 3, s.Len())
}

func TestStore_ClearThenSnapshotIsEmpty(t *testing.T) {
	s := NewStore(clockwork.NewFakeClock())
	for i := 0; i < 10; i++ {
		s.Append(fmt.Sprintf("/uploads/%d.png", i))
	}

	removed := s.Clear()
	assert.Equal(t, 10, removed)
	assert.Empty(t, s.Snapshot())
	assert.Equal(t, uint64(1), s.Epoch())
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	s := NewStore(clockwork.NewFakeClock())

	assert.Equal(t, 0, s.Clear())
	assert.Equal(t, 0, s.Clear())
	assert.Equal(t, uint64(0), s.Epoch())
	assert.Empty(t, s.Snapshot())
}

func TestStore_AppendAfterClearHasGreaterID(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewStore(clock)

	var maxID int64
	for _, ref := range []string{"r1", "r2", "r3"} {
		maxID = s.Append(ref).ID
	}
	s.Clear()

	// Same instant as the earlier uploads: the id must still move forward.
	r4 := s.Append("r4")
	assert.Greater(t, r4.ID, maxID)
	assert.Equal(t, []string{"r4"}, references(t, s))

	clock.Advance(time.Second)
	r5 := s.Append("r5")
	assert.Greater(t, r5.ID, r4.ID)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := NewStore(clockwork.NewFakeClock())
	s.Append("a")
	snap := s.Snapshot()

	snap[0].Reference = "mutated"
	s.Clear()
	s.Append("b")

	assert.Equal(t, "mutated", snap[0].Reference)
	assert.Equal(t, []string{"b"}, references(t, s))
}

func TestStore_ConcurrentAppendsStayOrdered(t *testing.T) {
	s := NewStore(clockwork.NewRealClock())

	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Append(fmt.Sprintf("%d-%d", w, i))
			}
		}(w)
	}
	wg.Wait()

	snap := s.Snapshot()
	require.Len(t, snap, 1600)
	for i := 1; i < len(snap); i++ {
		require.Greater(t, snap[i].ID, snap[i-1].ID, "ids must increase along insertion order")
	}
}
