package emission

import "testing"

func TestRefreshInsertsAndCounts(t *testing.T) {
	tracker := NewActivityTracker(24 * 60 * 60)
	if tracker.ActiveCount() != 0 {
		t.Fatalf("fresh tracker should be empty")
	}
	tracker.Refresh(addrOf(1), 1000)
	tracker.Refresh(addrOf(2), 2000)
	tracker.Refresh(addrOf(3), 3000)
	if tracker.ActiveCount() != 3 {
		t.Fatalf("count: got %d want 3", tracker.ActiveCount())
	}
	// A fresh entry keeps its recorded timestamp.
	tracker.Refresh(addrOf(1), 4000)
	if tracker.ActiveCount() != 3 {
		t.Fatalf("count after re-refresh: got %d want 3", tracker.ActiveCount())
	}
}

func TestRefreshEvictsStaleEntries(t *testing.T) {
	const window = 24 * 60 * 60
	tracker := NewActivityTracker(window)
	tracker.Refresh(addrOf(1), 0)
	tracker.Refresh(addrOf(2), 10)
	tracker.Refresh(addrOf(3), window)

	// One second past addr 2's window: addrs 1 and 2 expire, 3 survives.
	tracker.Refresh(addrOf(4), window+11)
	if tracker.ActiveCount() != 2 {
		t.Fatalf("count after sweep: got %d want 2", tracker.ActiveCount())
	}

	// A stale survivor refreshed again is re-seated with the new timestamp.
	tracker.Refresh(addrOf(3), 3*window)
	if tracker.ActiveCount() != 1 {
		t.Fatalf("count after second sweep: got %d want 1", tracker.ActiveCount())
	}
	tracker.Refresh(addrOf(3), 3*window+window/2)
	if tracker.ActiveCount() != 1 {
		t.Fatalf("fresh entry must not duplicate: got %d", tracker.ActiveCount())
	}
}

func TestSnapshotRestore(t *testing.T) {
	tracker := NewActivityTracker(100)
	tracker.Refresh(addrOf(1), 10)
	tracker.Refresh(addrOf(2), 20)
	entries, index := tracker.snapshot()

	tracker.Refresh(addrOf(3), 30)
	if tracker.ActiveCount() != 3 {
		t.Fatalf("count before restore: %d", tracker.ActiveCount())
	}
	tracker.restore(entries, index)
	if tracker.ActiveCount() != 2 {
		t.Fatalf("count after restore: %d", tracker.ActiveCount())
	}
	// The restored tracker keeps working.
	tracker.Refresh(addrOf(3), 40)
	if tracker.ActiveCount() != 3 {
		t.Fatalf("count after post-restore refresh: %d", tracker.ActiveCount())
	}
}
