package emission

// ActivityTracker maintains the set of participants seen within the rolling
// activity window. Eviction is lazy: stale entries are pruned during the next
// Refresh, not on a timer. The tracker is not safe for concurrent use on its
// own; the engine serialises access.
type ActivityTracker struct {
	windowSeconds uint64
	entries       []activityEntry
	index         map[[20]byte]int
}

type activityEntry struct {
	addr         [20]byte
	lastActivity uint64
}

// NewActivityTracker constructs a tracker with the supplied window length in
// seconds.
func NewActivityTracker(windowSeconds uint64) *ActivityTracker {
	return &ActivityTracker{
		windowSeconds: windowSeconds,
		index:         make(map[[20]byte]int),
	}
}

// Refresh marks the participant active when it is absent or its recorded
// activity has gone stale, then sweeps the whole set evicting expired
// entries. The sweep is a full linear scan per call.
func (t *ActivityTracker) Refresh(addr [20]byte, now uint64) {
	if pos, ok := t.index[addr]; ok {
		if now-t.entries[pos].lastActivity > t.windowSeconds {
			t.entries[pos].lastActivity = now
		}
	} else {
		t.index[addr] = len(t.entries)
		t.entries = append(t.entries, activityEntry{addr: addr, lastActivity: now})
	}
	// Compact by swapping expired entries with the tail.
	for i := 0; i < len(t.entries); {
		if now-t.entries[i].lastActivity > t.windowSeconds {
			last := len(t.entries) - 1
			delete(t.index, t.entries[i].addr)
			if i != last {
				t.entries[i] = t.entries[last]
				t.index[t.entries[i].addr] = i
			}
			t.entries = t.entries[:last]
			continue
		}
		i++
	}
}

// ActiveCount returns the current population of the activity window.
func (t *ActivityTracker) ActiveCount() int {
	return len(t.entries)
}

// snapshot captures the tracker state so a failed operation can restore it.
func (t *ActivityTracker) snapshot() ([]activityEntry, map[[20]byte]int) {
	entries := make([]activityEntry, len(t.entries))
	copy(entries, t.entries)
	index := make(map[[20]byte]int, len(t.index))
	for k, v := range t.index {
		index[k] = v
	}
	return entries, index
}

func (t *ActivityTracker) restore(entries []activityEntry, index map[[20]byte]int) {
	t.entries = entries
	t.index = index
}
