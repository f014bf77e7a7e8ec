package vfschan

import (
	"context"
	"sync"

	"github.com/google/gomemfs/inode"
	"github.com/google/gomemfs/vfserr"
)

// Executor submits a unit of work for asynchronous execution. Production
// wiring can hand in any pool (a bounded goroutine pool, an errgroup-backed
// worker set); GoroutineExecutor is the zero-configuration default.
type Executor interface {
	Submit(func())
}

// GoroutineExecutor runs each submitted function on its own goroutine.
type GoroutineExecutor struct{}

func (GoroutineExecutor) Submit(fn func()) { go fn() }

// Future is the completion record for one AsyncFileChannel operation. A
// Future completes exactly once.
type Future struct {
	done chan struct{}

	mu        sync.Mutex
	started   bool
	cancelled bool
	n         int
	err       error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(n int, err error) {
	f.mu.Lock()
	f.n, f.err = n, err
	f.mu.Unlock()
	close(f.done)
}

// Cancel requests cancellation. It returns true if the operation had not
// yet begun I/O and will now complete as INTERRUPTED instead of running;
// it returns false if the operation was already in flight, in which case
// it will run to completion normally.
func (f *Future) Cancel() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return false
	}
	f.cancelled = true
	return true
}

// Wait blocks until the operation completes, or ctx is done, whichever
// comes first. A context cancellation here does not cancel the underlying
// operation (use Cancel for that); it only stops waiting for it.
func (f *Future) Wait(ctx context.Context) (int, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.n, f.err
	case <-ctx.Done():
		return 0, vfserr.NewError(vfserr.Interrupted, "wait", "")
	}
}

// Done reports whether the Future has completed, without blocking.
func (f *Future) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// asyncJob is one queued unit of work: op() plus the Future it reports
// completion through.
type asyncJob struct {
	fut *Future
	run func()
}

// asyncQueueCapacity bounds the per-channel dispatch queue. It only needs
// to be large enough that a burst of submissions does not block the
// caller on the channel's own mutex for long; the queue is drained by a
// dedicated dispatcher goroutine, one job at a time.
const asyncQueueCapacity = 256

// AsyncFileChannel is a stateless-with-respect-to-position wrapper over a
// regular-file inode: every call takes an explicit position and is
// dispatched to an Executor, surfacing a Future rather than blocking the
// caller.
//
// Calls submitted on the same channel complete in the order they were
// submitted (spec section 4.6), regardless of how much concurrency the
// plugged-in Executor itself offers: a single per-channel dispatcher
// goroutine hands jobs to the Executor one at a time, waiting for each to
// finish before handing off the next, so two goroutines racing to submit
// a later op first still only ever advance the queue in FIFO order.
type AsyncFileChannel struct {
	in    *inode.Inode
	store *inode.ByteStore
	opts  OpenOptions
	exec  Executor

	queue chan asyncJob

	mu        sync.Mutex
	closed    bool
	closeCode vfserr.Code // GUARDED_BY(mu): code every call fails with once closed
	onClose   func()      // GUARDED_BY(mu): invoked once, only on a caller-initiated Close
}

// NewAsyncFileChannel opens an async channel over in (a regular file),
// dispatching operations to exec.
func NewAsyncFileChannel(in *inode.Inode, opts OpenOptions, exec Executor) *AsyncFileChannel {
	in.AcquireHandle()
	c := &AsyncFileChannel{
		in:        in,
		store:     in.ByteStore(),
		opts:      opts,
		exec:      exec,
		closeCode: vfserr.ClosedChannel,
		queue:     make(chan asyncJob, asyncQueueCapacity),
	}
	go c.dispatchLoop()
	return c
}

// dispatchLoop drains the queue one job at a time, blocking until each
// job's Executor-submitted run completes before pulling the next. This is
// what turns "the Executor may run jobs concurrently" into "this channel's
// completions land in submission order".
func (c *AsyncFileChannel) dispatchLoop() {
	for job := range c.queue {
		done := make(chan struct{})
		c.exec.Submit(func() {
			job.run()
			close(done)
		})
		<-done
	}
}

// SetOnClose registers a callback invoked exactly once, the next time this
// channel is closed by its owner via Close. Not invoked by Invalidate; see
// SeekableByteChannel.SetOnClose for why.
func (c *AsyncFileChannel) SetOnClose(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = f
}

// Invalidate force-closes the channel the way FileSystemView.Close does:
// every subsequent call fails FILESYSTEM_CLOSED rather than
// CLOSED_CHANNEL. Idempotent.
func (c *AsyncFileChannel) Invalidate() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.closeCode = vfserr.FileSystemClosed
	close(c.queue)
	c.mu.Unlock()

	c.in.ReleaseHandle()
}

// ReadAt submits a read of len(dst) bytes at pos.
func (c *AsyncFileChannel) ReadAt(pos int64, dst []byte) *Future {
	fut := newFuture()
	if !c.opts.Read {
		fut.complete(0, vfserr.NewError(vfserr.UnsupportedOperation, "read", ""))
		return fut
	}
	c.submit(fut, func() (int, error) {
		n, err := c.store.Read(pos, dst)
		if n > 0 {
			c.in.NotifyRead()
		}
		return n, err
	})
	return fut
}

// WriteAt submits a write of src at pos.
func (c *AsyncFileChannel) WriteAt(pos int64, src []byte) *Future {
	fut := newFuture()
	if !c.opts.Write {
		fut.complete(0, vfserr.NewError(vfserr.UnsupportedOperation, "write", ""))
		return fut
	}
	c.submit(fut, func() (int, error) {
		n, err := c.store.Write(pos, src)
		if err == nil {
			c.in.NotifyModified()
		}
		return n, err
	})
	return fut
}

// Truncate submits a truncate to size n.
func (c *AsyncFileChannel) Truncate(n int64) *Future {
	fut := newFuture()
	if !c.opts.Write {
		fut.complete(0, vfserr.NewError(vfserr.UnsupportedOperation, "truncate", ""))
		return fut
	}
	c.submit(fut, func() (int, error) {
		err := c.store.Truncate(n)
		if err == nil {
			c.in.NotifyModified()
		}
		return 0, err
	})
	return fut
}

// submit enqueues op behind any earlier submission on this channel,
// honoring a cancellation requested before the op began running. If the
// channel is already closed, fut completes immediately with the
// channel's current close code rather than being queued.
func (c *AsyncFileChannel) submit(fut *Future, op func() (int, error)) {
	job := asyncJob{fut: fut, run: func() {
		fut.mu.Lock()
		if fut.cancelled {
			fut.mu.Unlock()
			fut.complete(0, vfserr.NewError(vfserr.Interrupted, "cancelled", ""))
			return
		}
		fut.started = true
		fut.mu.Unlock()

		n, err := op()
		fut.complete(n, err)
	}}

	c.mu.Lock()
	if c.closed {
		code := c.closeCode
		c.mu.Unlock()
		fut.complete(0, vfserr.NewError(code, "submit", ""))
		return
	}
	c.queue <- job
	c.mu.Unlock()
}

// Close detaches the channel; operations submitted but not yet started at
// close time still complete, in per-channel submission order. After
// Close, every method fails with CLOSED_CHANNEL. Close is idempotent.
func (c *AsyncFileChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	onClose := c.onClose
	close(c.queue)
	c.mu.Unlock()

	c.in.ReleaseHandle()
	if onClose != nil {
		onClose()
	}
	return nil
}
