package app

import (
	"fmt"
	"testing"
)

func TestSeenLedger_RecordAndContains(t *testing.T) {
	ledger := NewSeenLedger(10)

	if ledger.Contains("fp-1") {
		t.Error("expected empty ledger to not contain fingerprint")
	}

	if !ledger.Record("fp-1") {
		t.Error("expected first record to succeed")
	}
	if !ledger.Contains("fp-1") {
		t.Error("expected recorded fingerprint to be present")
	}
	if ledger.Len() != 1 {
		t.Errorf("expected size 1, got %d", ledger.Len())
	}
}

func TestSeenLedger_DuplicateRejected(t *testing.T) {
	ledger := NewSeenLedger(10)

	if !ledger.Record("fp-1") {
		t.Error("expected first record to succeed")
	}
	if ledger.Record("fp-1") {
		t.Error("expected duplicate record to be rejected")
	}
	if ledger.Len() != 1 {
		t.Errorf("expected size 1 after duplicate, got %d", ledger.Len())
	}
}

func TestSeenLedger_FIFOEviction(t *testing.T) {
	capacity := 5
	ledger := NewSeenLedger(capacity)

	for i := 0; i <= capacity; i++ {
		ledger.Record(fmt.Sprintf("fp-%d", i))
	}

	if ledger.Len() != capacity {
		t.Errorf("expected size %d after overflow, got %d", capacity, ledger.Len())
	}
	if ledger.Contains("fp-0") {
		t.Error("expected oldest fingerprint to be evicted")
	}
	for i := 1; i <= capacity; i++ {
		if !ledger.Contains(fmt.Sprintf("fp-%d", i)) {
			t.Errorf("expected fp-%d to still be present", i)
		}
	}
}

func TestSeenLedger_EvictionIgnoresLookups(t *testing.T) {
	ledger := NewSeenLedger(3)

	ledger.Record("fp-a")
	ledger.Record("fp-b")
	ledger.Record("fp-c")

	// A lookup must not promote fp-a out of eviction order
	if !ledger.Contains("fp-a") {
		t.Fatal("expected fp-a to be present")
	}

	ledger.Record("fp-d")

	if ledger.Contains("fp-a") {
		t.Error("expected fp-a to be evicted despite the recent lookup")
	}
	if !ledger.Contains("fp-b") || !ledger.Contains("fp-c") || !ledger.Contains("fp-d") {
		t.Error("expected fp-b, fp-c, fp-d to be present")
	}
}

func TestSeenLedger_DuplicateDoesNotEvict(t *testing.T) {
	ledger := NewSeenLedger(2)

	ledger.Record("fp-a")
	ledger.Record("fp-b")

	// Re-recording fp-a is a no-op, not a re-insert
	if ledger.Record("fp-a") {
		t.Error("expected duplicate to be rejected")
	}
	if ledger.Len() != 2 {
		t.Errorf("expected size 2, got %d", ledger.Len())
	}

	// fp-a is still the oldest, so it goes first
	ledger.Record("fp-c")
	if ledger.Contains("fp-a") {
		t.Error("expected fp-a to be evicted first")
	}
	if !ledger.Contains("fp-b") || !ledger.Contains("fp-c") {
		t.Error("expected fp-b and fp-c to be present")
	}
}

func TestSeenLedger_DefaultCapacity(t *testing.T) {
	ledger := NewSeenLedger(0)
	if ledger.Capacity() != 5000 {
		t.Errorf("expected default capacity 5000, got %d", ledger.Capacity())
	}

	ledger = NewSeenLedger(-1)
	if ledger.Capacity() != 5000 {
		t.Errorf("expected default capacity 5000 for negative input, got %d", ledger.Capacity())
	}
}

func TestSeenLedger_Capacity(t *testing.T) {
	ledger := NewSeenLedger(100)
	if ledger.Capacity() != 100 {
		t.Errorf("expected capacity 100, got %d", ledger.Capacity())
	}
}

func TestSeenLedger_LargeOverflow(t *testing.T) {
	capacity := 50
	ledger := NewSeenLedger(capacity)

	for i := 0; i < capacity*3; i++ {
		ledger.Record(fmt.Sprintf("fp-%d", i))
	}

	if ledger.Len() != capacity {
		t.Errorf("expected size pinned at %d, got %d", capacity, ledger.Len())
	}
	// Only the newest window survives
	for i := capacity * 2; i < capacity*3; i++ {
		if !ledger.Contains(fmt.Sprintf("fp-%d", i)) {
			t.Errorf("expected fp-%d to be present", i)
		}
	}
	if ledger.Contains("fp-0") {
		t.Error("expected fp-0 to be long evicted")
	}
}
