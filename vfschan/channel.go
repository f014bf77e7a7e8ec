// Package vfschan implements the byte-channel layer over a regular-file
// inode: a seekable synchronous channel and a stateless async wrapper
// dispatched onto a caller-supplied executor, plus the per-inode advisory
// file lock table.
package vfschan

import (
	"sync"

	"github.com/google/gomemfs/inode"
	"github.com/google/gomemfs/vfserr"
)

// OpenOptions controls which operations a channel permits and whether it
// writes in append mode.
type OpenOptions struct {
	Read     bool
	Write    bool
	Append   bool
	Truncate bool // truncate content to zero length on open
}

// SeekableByteChannel is a position-cursor channel over a regular-file
// inode's ByteStore. It is not safe for concurrent use
// by multiple goroutines without external synchronization beyond what its
// own mutex provides for individual calls; position tracking across two
// concurrent calls is inherently racy the way POSIX file descriptors are.
type SeekableByteChannel struct {
	mu sync.Mutex

	in    *inode.Inode
	store *inode.ByteStore
	opts  OpenOptions

	pos       int64       // GUARDED_BY(mu)
	closed    bool        // GUARDED_BY(mu)
	closeCode vfserr.Code // GUARDED_BY(mu): code every call fails with once closed
	onClose   func()      // GUARDED_BY(mu): invoked once, only on a caller-initiated Close
}

// NewSeekableByteChannel opens a channel over in, which must be a regular
// file. The caller's open reference is recorded on the inode immediately
// (AcquireHandle) so that a concurrent unlink does not release content out
// from under an open channel.
func NewSeekableByteChannel(in *inode.Inode, opts OpenOptions) (*SeekableByteChannel, error) {
	in.AcquireHandle()
	c := &SeekableByteChannel{in: in, store: in.ByteStore(), opts: opts, closeCode: vfserr.ClosedChannel}
	if opts.Truncate {
		if err := c.store.Truncate(0); err != nil {
			in.ReleaseHandle()
			return nil, err
		}
	}
	return c, nil
}

// SetOnClose registers a callback invoked exactly once, the next time this
// channel is closed by its owner via Close. It is not invoked by
// Invalidate, since that path is driven by the owning FileSystemView
// itself (e.g. while iterating its own open-channel set on Close), and
// calling back into it there would reenter a lock it already holds.
func (c *SeekableByteChannel) SetOnClose(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = f
}

// Invalidate force-closes the channel the way FileSystemView.Close does:
// every subsequent call fails FILESYSTEM_CLOSED rather than
// CLOSED_CHANNEL, matching spec section 5's "closing the filesystem
// invalidates all open channels... subsequent operations fail
// FILESYSTEM_CLOSED." Idempotent, and safe to call concurrently with a
// caller-initiated Close.
func (c *SeekableByteChannel) Invalidate() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.closeCode = vfserr.FileSystemClosed
	c.mu.Unlock()

	c.in.ReleaseHandle()
}

// Read fills dst starting at the channel's current position and advances
// position by the number of bytes returned.
func (c *SeekableByteChannel) Read(dst []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, vfserr.NewError(c.closeCode, "read", "")
	}
	if !c.opts.Read {
		return 0, vfserr.NewError(vfserr.UnsupportedOperation, "read", "")
	}

	n, err := c.store.Read(c.pos, dst)
	c.pos += int64(n)
	if n > 0 {
		c.in.NotifyRead()
	}
	return n, err
}

// Write writes src at the channel's current position (or at the store's
// current size if the channel was opened in append mode), then advances
// position past the written bytes.
func (c *SeekableByteChannel) Write(src []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, vfserr.NewError(c.closeCode, "write", "")
	}
	if !c.opts.Write {
		return 0, vfserr.NewError(vfserr.UnsupportedOperation, "write", "")
	}

	var n int
	var err error
	if c.opts.Append {
		var pos int64
		pos, err = c.store.Append(src)
		n = len(src)
		c.pos = pos + int64(n)
	} else {
		n, err = c.store.Write(c.pos, src)
		c.pos += int64(n)
	}
	if err == nil {
		c.in.NotifyModified()
	}
	return n, err
}

// Position returns the channel's current cursor.
func (c *SeekableByteChannel) Position() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, vfserr.NewError(c.closeCode, "position", "")
	}
	return c.pos, nil
}

// SetPosition relocates the channel's cursor; it does not itself read,
// write, or validate against the store's current size.
func (c *SeekableByteChannel) SetPosition(n int64) error {
	if n < 0 {
		return vfserr.NewError(vfserr.InvalidArgument, "position", "")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return vfserr.NewError(c.closeCode, "position", "")
	}
	c.pos = n
	return nil
}

// Size returns the backing store's current logical size.
func (c *SeekableByteChannel) Size() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, vfserr.NewError(c.closeCode, "size", "")
	}
	return c.store.Size(), nil
}

// Truncate sets the backing store's logical size. Requires the channel to
// have been opened for writing.
func (c *SeekableByteChannel) Truncate(n int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return vfserr.NewError(c.closeCode, "truncate", "")
	}
	if !c.opts.Write {
		return vfserr.NewError(vfserr.UnsupportedOperation, "truncate", "")
	}
	err := c.store.Truncate(n)
	if err == nil {
		c.in.NotifyModified()
	}
	return err
}

// Close detaches the channel. After Close, every method fails with
// CLOSED_CHANNEL. Close is idempotent.
func (c *SeekableByteChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	onClose := c.onClose
	c.mu.Unlock()

	c.in.ReleaseHandle()
	if onClose != nil {
		onClose()
	}
	return nil
}

// Inode returns the inode this channel was opened against, for callers
// that need to attach a FileLock to the same identity the channel reads
// and writes through.
func (c *SeekableByteChannel) Inode() *inode.Inode { return c.in }
