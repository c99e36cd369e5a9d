// Serving store for the surge grid: a generation pointer swapped atomically.
// Readers never observe a mix of two generations; a failed refresh leaves the
// previous generation in place.
package surge

import (
	"sync/atomic"
)

type Store struct {
	current atomic.Pointer[Snapshot]
}

func NewStore() *Store {
	return &Store{}
}

// Current returns the serving generation, nil before the first publish.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Swap installs a fully built generation as the serving one.
func (s *Store) Swap(snap *Snapshot) {
	s.current.Store(snap)
}
