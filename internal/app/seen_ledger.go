package app

import "sync"

// SeenLedger is a fixed-capacity set of alert fingerprints with
// first-in-first-out eviction. Eviction follows insertion order only:
// looking up a fingerprint never refreshes its position.
type SeenLedger struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]struct{}
	order    []string
}

// NewSeenLedger creates a ledger holding at most capacity fingerprints.
func NewSeenLedger(capacity int) *SeenLedger {
	if capacity <= 0 {
		capacity = 5000
	}
	return &SeenLedger{
		capacity: capacity,
		entries:  make(map[string]struct{}, capacity),
		order:    make([]string, 0, capacity),
	}
}

// Contains reports whether the fingerprint has been recorded.
func (sl *SeenLedger) Contains(fingerprint string) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	_, ok := sl.entries[fingerprint]
	return ok
}

// Record adds a fingerprint to the ledger, evicting the oldest entry
// when full. Returns false without modifying the ledger if the
// fingerprint is already present.
func (sl *SeenLedger) Record(fingerprint string) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if _, ok := sl.entries[fingerprint]; ok {
		return false
	}

	if len(sl.order) >= sl.capacity {
		oldest := sl.order[0]
		sl.order = sl.order[1:]
		delete(sl.entries, oldest)
	}

	sl.entries[fingerprint] = struct{}{}
	sl.order = append(sl.order, fingerprint)
	return true
}

// Len returns the number of fingerprints currently held.
func (sl *SeenLedger) Len() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return len(sl.entries)
}

// Capacity returns the maximum number of fingerprints the ledger holds.
func (sl *SeenLedger) Capacity() int {
	return sl.capacity
}
