package gallery

import (
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fotowall/go/internal/models"
)

// Store holds the authoritative, insertion-ordered list of images on the wall.
// It lives in memory only; a restart starts with an empty gallery.
type Store struct {
	clock clockwork.Clock
	ids   *IDGenerator

	mu     sync.RWMutex
	images []models.ImageRecord
	epoch  uint64
}

// NewStore creates an empty gallery store
func NewStore(clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		clock:  clock,
		ids:    NewIDGenerator(clock),
		images: make([]models.ImageRecord, 0, 64),
	}
}

// Append records a new image reference at the end of the gallery and returns it.
func (s *Store) Append(reference string) models.ImageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := models.ImageRecord{
		ID:        s.ids.Next(),
		Reference: reference,
		CreatedAt: s.clock.Now().UTC(),
	}

	if n := len(s.images); n > 0 && s.images[n-1].ID >= record.ID {
		panic(fmt.Errorf("%w: id %d issued after %d", ErrInvariant, record.ID, s.images[n-1].ID))
	}

	s.images = append(s.images, record)
	return record
}

// Clear empties the gallery and starts a new epoch. Clearing an empty gallery does
// nothing. It returns how many images were removed.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.images)
	if removed == 0 {
		return 0
	}

	// Drop the backing array so records handed out in snapshots stay untouched.
	s.images = make([]models.ImageRecord, 0, 64)
	s.epoch++
	return removed
}

// Snapshot returns a copy of the gallery in insertion order.
func (s *Store) Snapshot() []models.ImageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ImageRecord, len(s.images))
	copy(out, s.images)
	return out
}

// Len returns the number of images currently on the wall
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}

// Epoch returns how many non-empty clears the gallery has gone through.
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}
