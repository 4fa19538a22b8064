package policy

import (
	"errors"
	"sync/atomic"
)

// ErrStaleVersion is returned when a replacement snapshot is not newer than the current one.
var ErrStaleVersion = errors.New("policy snapshot version is not newer than current")

// Store publishes the current snapshot. Readers load a pointer and keep evaluating against
// that version even if a newer one is swapped in meanwhile.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store seeded with initial, or the default policy when nil.
func NewStore(initial *Snapshot) *Store {
	if initial == nil {
		initial = Default()
	}
	s := &Store{}
	s.current.Store(initial)
	return s
}

// Current returns the snapshot in effect.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Replace swaps in next if its version is greater than the current one.
func (s *Store) Replace(next *Snapshot) error {
	if next == nil {
		return errors.New("nil policy snapshot")
	}
	for {
		cur := s.current.Load()
		if cur != nil && next.Version() <= cur.Version() {
			return ErrStaleVersion
		}
		if s.current.CompareAndSwap(cur, next) {
			return nil
		}
	}
}
