// Package watch implements a polling change-notification service:
// WatchService registers directories and hands back WatchKeys that
// accumulate CREATE/DELETE/MODIFY events as a background worker diffs
// successive directory snapshots.
package watch

import (
	"context"
	"sync"
	"time"

	"github.com/google/gomemfs/inode"
	"github.com/google/gomemfs/vfserr"
	"github.com/jacobsa/timeutil"
	"golang.org/x/sync/errgroup"
)

// EventKind is one of the four event kinds a WatchKey can emit.
type EventKind int

const (
	Create EventKind = iota
	Delete
	Modify
	Overflow
)

func (k EventKind) String() string {
	switch k {
	case Create:
		return "ENTRY_CREATE"
	case Delete:
		return "ENTRY_DELETE"
	case Modify:
		return "ENTRY_MODIFY"
	case Overflow:
		return "OVERFLOW"
	default:
		return "UNKNOWN"
	}
}

// Event is one queued change, relative to the registered directory.
type Event struct {
	Kind EventKind
	// Count is the number of coalesced occurrences; always 1 except for
	// OVERFLOW, where it is the number of events that were dropped.
	Count int
	// Name is the child's display name, relative to the watched directory.
	Name string
}

// DefaultQueueCapacity bounds a WatchKey's pending event queue.
const DefaultQueueCapacity = 256

// DefaultPollInterval is the production poll tick; tests drive polling
// directly via PollNow instead of waiting on this.
const DefaultPollInterval = 200 * time.Millisecond

// WatchService owns the set of registered keys and a single background
// polling worker, started when the first key registers and stopped when
// the last is cancelled or the service is closed.
type WatchService struct {
	clock        timeutil.Clock
	pollInterval time.Duration

	mu      sync.Mutex
	cond    *sync.Cond
	closed  bool
	keys    map[*WatchKey]struct{}
	queue   []*WatchKey
	queued  map[*WatchKey]bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// NewWatchService returns a service that ticks its background poll loop
// every pollInterval once at least one key is registered.
func NewWatchService(clock timeutil.Clock, pollInterval time.Duration) *WatchService {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	s := &WatchService{
		clock:        clock,
		pollInterval: pollInterval,
		keys:         make(map[*WatchKey]struct{}),
		queued:       make(map[*WatchKey]bool),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Register starts watching dir for the given event kinds, returning a
// READY WatchKey with an initial snapshot taken immediately.
func (s *WatchService) Register(dir *inode.Inode, events []EventKind) (*WatchKey, error) {
	k := newWatchKey(s, dir, events)
	k.snapshot = snapshotOf(dir)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, vfserr.NewError(vfserr.ClosedService, "register", "")
	}
	first := len(s.keys) == 0
	s.keys[k] = struct{}{}
	s.mu.Unlock()

	if first {
		s.startPollWorker()
	}
	return k, nil
}

func (s *WatchService) startPollWorker() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	s.mu.Lock()
	s.cancel = cancel
	s.group = g
	s.mu.Unlock()

	g.Go(func() error {
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				s.PollNow()
			}
		}
	})
}

// stopPollWorker stops the background worker started with cancel and g;
// it does nothing if cancel is nil. Must
// be called without s.mu held, since it waits for the worker goroutine to
// exit and that goroutine itself takes s.mu inside PollNow.
func (s *WatchService) stopPollWorker(cancel context.CancelFunc, g *errgroup.Group) {
	if cancel == nil {
		return
	}
	cancel()
	g.Wait()
}

// PollNow executes a single poll pass synchronously over every registered
// key. Production code relies on the background ticker instead; tests
// call this directly to avoid sleeping for real wall-clock time.
func (s *WatchService) PollNow() {
	s.mu.Lock()
	keys := make([]*WatchKey, 0, len(s.keys))
	for k := range s.keys {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	for _, k := range keys {
		k.poll()
	}
}

// enqueueKey places k on the service's FIFO if it is not already queued.
func (s *WatchService) enqueueKey(k *WatchKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queued[k] {
		return
	}
	s.queued[k] = true
	s.queue = append(s.queue, k)
	s.cond.Broadcast()
}

// removeFromQueueLocked drops k from the FIFO if present. REQUIRES: s.mu held.
func (s *WatchService) removeFromQueueLocked(k *WatchKey) {
	if !s.queued[k] {
		return
	}
	delete(s.queued, k)
	for i, kk := range s.queue {
		if kk == k {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			break
		}
	}
}

// cancelKey removes k from the service entirely, stopping the background
// worker if k was the last registered key.
func (s *WatchService) cancelKey(k *WatchKey) {
	s.mu.Lock()
	delete(s.keys, k)
	s.removeFromQueueLocked(k)
	last := len(s.keys) == 0
	var cancel context.CancelFunc
	var g *errgroup.Group
	if last {
		cancel, s.cancel = s.cancel, nil
		g, s.group = s.group, nil
	}
	s.mu.Unlock()

	s.stopPollWorker(cancel, g)
}

// Take blocks until a signalled key is available, ctx is done, or the
// service is closed.
func (s *WatchService) Take(ctx context.Context) (*WatchKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.cond.Broadcast()
			s.mu.Unlock()
		case <-done:
		}
	}()

	for {
		if s.closed {
			return nil, vfserr.NewError(vfserr.ClosedService, "take", "")
		}
		if len(s.queue) > 0 {
			k := s.queue[0]
			s.queue = s.queue[1:]
			delete(s.queued, k)
			return k, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, vfserr.NewError(vfserr.Interrupted, "take", "")
		}
		s.cond.Wait()
	}
}

// Poll returns a signalled key without blocking, or (nil, false) if none
// is currently available.
func (s *WatchService) Poll() (*WatchKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.queue) == 0 {
		return nil, false
	}
	k := s.queue[0]
	s.queue = s.queue[1:]
	delete(s.queued, k)
	return k, true
}

// Close invalidates every registered key, stops the background worker,
// and fails any blocked Take with CLOSED_SERVICE. Close is idempotent.
func (s *WatchService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	keys := make([]*WatchKey, 0, len(s.keys))
	for k := range s.keys {
		keys = append(keys, k)
	}
	s.keys = make(map[*WatchKey]struct{})
	s.queue = nil
	s.queued = make(map[*WatchKey]bool)
	cancel, g := s.cancel, s.group
	s.cancel, s.group = nil, nil
	s.cond.Broadcast()
	s.mu.Unlock()

	for _, k := range keys {
		k.invalidate()
	}
	s.stopPollWorker(cancel, g)
	return nil
}
