package vfschan

import (
	"context"
	"sync"

	"github.com/google/gomemfs/vfserr"
)

// LockType distinguishes shared (read) from exclusive (write) locks. The
// numeric shape mirrors flock(2)'s LOCK_SH/LOCK_EX constants, even though
// these locks are advisory and in-process and never reach an actual
// syscall.
type LockType int

const (
	Shared LockType = 1 << iota
	Exclusive
)

// FileLock is one entry in a LockTable: an advisory, non-enforcing claim
// over a byte range of a file, held on behalf of one channel. Size == 0
// means "to end of file", matching the host-filesystem-API convention for
// an unbounded lock.
type FileLock struct {
	Position  int64
	Size      int64
	Type      LockType
	ChannelID uint64
}

func (l FileLock) end() int64 {
	if l.Size == 0 {
		return -1 // unbounded
	}
	return l.Position + l.Size
}

func (l FileLock) overlaps(o FileLock) bool {
	lEnd, oEnd := l.end(), o.end()
	if lEnd != -1 && o.Position >= lEnd {
		return false
	}
	if oEnd != -1 && l.Position >= oEnd {
		return false
	}
	return true
}

func (l FileLock) compatibleWith(o FileLock) bool {
	return l.Type == Shared && o.Type == Shared
}

// LockTable tracks the advisory locks held against a single inode's
// content. The contract is non-enforcing: nothing here blocks a Read or
// Write call from a channel that never acquired a lock.
type LockTable struct {
	mu     sync.Mutex
	cond   *sync.Cond
	nextID uint64
	locks  []FileLock
}

// NewLockTable returns an empty lock table.
func NewLockTable() *LockTable {
	t := &LockTable{}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// NextChannelID mints a table-unique small integer identifying one
// channel's locks within this table, distinct from the inode id.
func (t *LockTable) NextChannelID() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	return t.nextID
}

// conflictsLocked reports whether l overlaps an incompatible lock held by
// a different channel. REQUIRES: t.mu held.
func (t *LockTable) conflictsLocked(l FileLock) bool {
	for _, existing := range t.locks {
		if existing.ChannelID != l.ChannelID && existing.overlaps(l) && !existing.compatibleWith(l) {
			return true
		}
	}
	return false
}

// overlapsSameChannelLocked reports whether l overlaps a lock already held
// by its own channel. REQUIRES: t.mu held.
func (t *LockTable) overlapsSameChannelLocked(l FileLock) bool {
	for _, existing := range t.locks {
		if existing.ChannelID == l.ChannelID && existing.overlaps(l) {
			return true
		}
	}
	return false
}

// TryLock attempts to acquire l without blocking. It fails LOCK_CONFLICT
// if an incompatible lock held by another channel overlaps, or
// OVERLAPPING_LOCK if the requesting channel already holds an overlapping
// lock of its own.
func (t *LockTable) TryLock(l FileLock) (FileLock, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conflictsLocked(l) {
		return FileLock{}, vfserr.NewError(vfserr.LockConflict, "try-lock", "")
	}
	if t.overlapsSameChannelLocked(l) {
		return FileLock{}, vfserr.NewError(vfserr.OverlappingLock, "try-lock", "")
	}
	t.locks = append(t.locks, l)
	return l, nil
}

// Lock blocks until l can be acquired or ctx is done. A context
// cancellation while blocked fails INTERRUPTED.
func (t *LockTable) Lock(ctx context.Context, l FileLock) (FileLock, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Forward ctx cancellation into a Broadcast so the Wait loop below
	// notices it; the goroutine exits as soon as either happens.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			t.mu.Lock()
			t.cond.Broadcast()
			t.mu.Unlock()
		case <-done:
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return FileLock{}, vfserr.NewError(vfserr.Interrupted, "lock", "")
		}
		if !t.conflictsLocked(l) {
			if t.overlapsSameChannelLocked(l) {
				return FileLock{}, vfserr.NewError(vfserr.OverlappingLock, "lock", "")
			}
			t.locks = append(t.locks, l)
			return l, nil
		}
		t.cond.Wait()
	}
}

// Unlock releases l (matched by value) and wakes any blocked Lock callers.
func (t *LockTable) Unlock(l FileLock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, existing := range t.locks {
		if existing == l {
			t.locks = append(t.locks[:i], t.locks[i+1:]...)
			break
		}
	}
	t.cond.Broadcast()
}

// ReleaseChannel releases every lock held by channelID, e.g. on channel
// close.
func (t *LockTable) ReleaseChannel(channelID uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.locks[:0]
	for _, existing := range t.locks {
		if existing.ChannelID != channelID {
			kept = append(kept, existing)
		}
	}
	t.locks = kept
	t.cond.Broadcast()
}

// Locks returns a snapshot of currently held locks.
func (t *LockTable) Locks() []FileLock {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]FileLock, len(t.locks))
	copy(out, t.locks)
	return out
}
