package watch

import (
	"sync"

	"github.com/google/gomemfs/inode"
)

// KeyState is a WatchKey's lifecycle state.
type KeyState int

const (
	Ready KeyState = iota
	Signalled
	Invalid
)

func (s KeyState) String() string {
	switch s {
	case Ready:
		return "READY"
	case Signalled:
		return "SIGNALLED"
	case Invalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}

// snapshotEntry is the (mtime, id) pair a poll tick compares against the
// prior tick's snapshot to classify a child as created/deleted/modified.
type snapshotEntry struct {
	display string
	mtime   int64
	id      inode.ID
}

func snapshotOf(dir *inode.Inode) map[string]snapshotEntry {
	entries := dir.Directory().Entries()
	out := make(map[string]snapshotEntry, len(entries))
	for _, e := range entries {
		out[e.Name.Canonical()] = snapshotEntry{
			display: e.Name.String(),
			mtime:   e.Inode.ModifiedTime(),
			id:      e.Inode.ID(),
		}
	}
	return out
}

// WatchKey is a handle tied to one registered directory.
type WatchKey struct {
	service *WatchService
	dir     *inode.Inode
	wanted  map[EventKind]bool

	mu       sync.Mutex
	state    KeyState // GUARDED_BY(mu)
	queue    []Event  // GUARDED_BY(mu)
	capacity int
	snapshot map[string]snapshotEntry // GUARDED_BY(mu)
}

func newWatchKey(s *WatchService, dir *inode.Inode, events []EventKind) *WatchKey {
	k := &WatchKey{
		service:  s,
		dir:      dir,
		wanted:   make(map[EventKind]bool, len(events)),
		state:    Ready,
		capacity: DefaultQueueCapacity,
	}
	for _, e := range events {
		k.wanted[e] = true
	}
	return k
}

// Directory returns the inode this key watches.
func (k *WatchKey) Directory() *inode.Inode { return k.dir }

// State returns the key's current lifecycle state.
func (k *WatchKey) State() KeyState {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.state
}

// PollEvents drains and returns the key's queued events without affecting
// its state; a caller still must call Reset to make the key eligible to
// be signalled again.
func (k *WatchKey) PollEvents() []Event {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := k.queue
	k.queue = nil
	return out
}

// Reset moves a SIGNALLED key back to READY, or requeues it immediately
// if events accumulated while it was being processed. Returns false if
// the key is INVALID.
func (k *WatchKey) Reset() bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.state == Invalid {
		return false
	}
	k.state = Ready
	if len(k.queue) > 0 {
		k.state = Signalled
		k.service.enqueueKey(k)
	}
	return true
}

// Cancel invalidates the key and unregisters it from its service.
func (k *WatchKey) Cancel() {
	k.mu.Lock()
	if k.state == Invalid {
		k.mu.Unlock()
		return
	}
	k.state = Invalid
	k.mu.Unlock()
	k.service.cancelKey(k)
}

func (k *WatchKey) invalidate() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.state = Invalid
}

// poll takes a fresh snapshot of the watched directory and diffs it
// against the key's stored snapshot, queuing any resulting events.
func (k *WatchKey) poll() {
	k.mu.Lock()
	if k.state == Invalid {
		k.mu.Unlock()
		return
	}
	old := k.snapshot
	k.mu.Unlock()

	next := snapshotOf(k.dir)
	var events []Event

	for name, e := range next {
		if _, existed := old[name]; !existed && k.wanted[Create] {
			events = append(events, Event{Kind: Create, Count: 1, Name: e.display})
		}
	}
	for name, e := range old {
		if _, exists := next[name]; !exists && k.wanted[Delete] {
			events = append(events, Event{Kind: Delete, Count: 1, Name: e.display})
		}
	}
	for name, e := range next {
		if oe, existed := old[name]; existed && k.wanted[Modify] {
			if oe.mtime != e.mtime || oe.id != e.id {
				events = append(events, Event{Kind: Modify, Count: 1, Name: e.display})
			}
		}
	}

	k.mu.Lock()
	k.snapshot = next
	if len(events) > 0 {
		k.enqueueLocked(events)
	}
	k.mu.Unlock()
}

// enqueueLocked appends events to the queue, collapsing overflow past
// capacity into a single OVERFLOW event, and signals the key if it was
// READY. REQUIRES: k.mu held.
func (k *WatchKey) enqueueLocked(events []Event) {
	for _, ev := range events {
		if len(k.queue) < k.capacity {
			k.queue = append(k.queue, ev)
			continue
		}
		last := len(k.queue) - 1
		if k.queue[last].Kind == Overflow {
			k.queue[last].Count++
		} else {
			// Both the overwritten event and ev are dropped.
			k.queue[last] = Event{Kind: Overflow, Count: 2}
		}
	}

	if k.state == Ready {
		k.state = Signalled
		k.service.enqueueKey(k)
	}
}
