// internal/register/store.go
package register

import (
	"fmt"
	"sync"
)

// Snapshot is an immutable copy of the register store.
// Index i is store slot i.
type Snapshot []float64

// Value returns slot i, or 0 when i is outside the snapshot.
func (s Snapshot) Value(i int) float64 {
	if i < 0 || i >= len(s) {
		return 0
	}
	return s[i]
}

// Store holds the last successfully decoded value of every slot.
// One writer (the poller) and any number of readers; readers only
// ever see Snapshot copies.
type Store struct {
	mu    sync.RWMutex
	slots [StoreSlots]float64
}

// NewStore returns a zeroed store.
func NewStore() *Store {
	return &Store{}
}

// SetElapsed writes slot 0.
func (s *Store) SetElapsed(seconds float64) {
	s.mu.Lock()
	s.slots[SlotElapsed] = seconds
	s.mu.Unlock()
}

// Write copies values into consecutive slots starting at first.
// The whole write is rejected if it does not fit; nothing is modified then.
func (s *Store) Write(first int, values []float64) error {
	if first < 0 || first+len(values) > StoreSlots {
		return fmt.Errorf("register store: write of %d values at slot %d out of range", len(values), first)
	}

	s.mu.Lock()
	copy(s.slots[first:], values)
	s.mu.Unlock()
	return nil
}

// Snapshot returns a copy of every slot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	out := make(Snapshot, StoreSlots)
	copy(out, s.slots[:])
	s.mu.RUnlock()
	return out
}
