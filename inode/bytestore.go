package inode

import (
	"io"

	"github.com/google/gomemfs/vfserr"
	"github.com/jacobsa/syncutil"
)

// DefaultBlockSize is the recommended block size used when a
// configuration does not override it.
const DefaultBlockSize = 8192

// ByteStore is the content of a regular-file inode: a resizable sequence
// of bytes organized as a grow-only list of fixed-size blocks, with
// logical size <= capacity. An internal read/write lock guards structural
// changes (block list, size); reads take the read lock, writes/append/
// truncate/transferFrom take the write lock, and transferTo takes (and may
// release-and-reacquire) the read lock so it does not starve writers.
type ByteStore struct {
	mu syncutil.InvariantMutex

	blockSize int

	// blocks is the grow-only list of fixed-size blocks backing the
	// store's content.
	//
	// INVARIANT: len(blocks)*blockSize >= size
	blocks [][]byte // GUARDED_BY(mu)

	// size is the logical length of the store.
	//
	// INVARIANT: size >= 0
	// INVARIANT: size <= len(blocks)*blockSize
	size int64 // GUARDED_BY(mu)
}

// NewByteStore returns an empty ByteStore using the given block size (or
// DefaultBlockSize if blockSize <= 0).
func NewByteStore(blockSize int) *ByteStore {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	s := &ByteStore{blockSize: blockSize}
	s.mu = syncutil.NewInvariantMutex(s.checkInvariants)
	return s
}

func (s *ByteStore) checkInvariants() {
	cap := int64(len(s.blocks)) * int64(s.blockSize)
	if s.size < 0 || s.size > cap {
		panic("ByteStore: size out of range of allocated capacity")
	}
}

// Size returns the current logical size.
func (s *ByteStore) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// capacityLocked returns the total allocated capacity. REQUIRES: s.mu held.
func (s *ByteStore) capacityLocked() int64 {
	return int64(len(s.blocks)) * int64(s.blockSize)
}

// growLocked ensures capacity >= n, doubling the block list (by block
// count) as needed and zero-initializing newly allocated blocks.
// EXCLUSIVE_LOCKS_REQUIRED(s.mu)
func (s *ByteStore) growLocked(n int64) {
	need := (n + int64(s.blockSize) - 1) / int64(s.blockSize)
	if int64(len(s.blocks)) >= need {
		return
	}

	newCount := int64(len(s.blocks))
	if newCount == 0 {
		newCount = 1
	}
	for newCount < need {
		newCount *= 2
	}

	for int64(len(s.blocks)) < newCount {
		s.blocks = append(s.blocks, make([]byte, s.blockSize))
	}
}

// readAtLocked copies into dst starting at pos, returning bytes copied.
// Bytes below size that were never written (holes) read as zero because
// blocks are zero-initialized; bytes at or past size are not copied (read
// clamps to size).
// SHARED_LOCKS_REQUIRED(s.mu)
func (s *ByteStore) readAtLocked(dst []byte, pos int64) int {
	if pos >= s.size {
		return 0
	}
	end := pos + int64(len(dst))
	if end > s.size {
		end = s.size
	}

	n := 0
	for p := pos; p < end; {
		blk := int(p / int64(s.blockSize))
		off := int(p % int64(s.blockSize))
		chunk := s.blockSize - off
		remaining := int(end - p)
		if chunk > remaining {
			chunk = remaining
		}
		copy(dst[n:n+chunk], s.blocks[blk][off:off+chunk])
		n += chunk
		p += int64(chunk)
	}
	return n
}

// Read copies up to len(dst) bytes starting at pos into dst. Holes (the
// range between the requested position and the logical size when pos is
// beyond content actually written but within size due to a prior
// forward-jump write) read back as zero because blocks are always
// zero-filled on allocation. Returns io.EOF when pos >= Size().
func (s *ByteStore) Read(pos int64, dst []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pos >= s.size {
		if len(dst) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}

	n := s.readAtLocked(dst, pos)
	var err error
	if int64(n) < int64(len(dst)) {
		err = io.EOF
	}
	return n, err
}

// writeAtLocked writes src at pos, extending size and allocated capacity
// as needed. EXCLUSIVE_LOCKS_REQUIRED(s.mu)
func (s *ByteStore) writeAtLocked(pos int64, src []byte) int {
	end := pos + int64(len(src))
	if end > s.capacityLocked() {
		s.growLocked(end)
	}

	n := 0
	for p := pos; p < end; {
		blk := int(p / int64(s.blockSize))
		off := int(p % int64(s.blockSize))
		chunk := s.blockSize - off
		remaining := int(end - p)
		if chunk > remaining {
			chunk = remaining
		}
		copy(s.blocks[blk][off:off+chunk], src[n:n+chunk])
		n += chunk
		p += int64(chunk)
	}

	if end > s.size {
		s.size = end
	}
	return n
}

// Write writes src at the given position, extending size (and zero-filling
// any intervening hole) as needed.
func (s *ByteStore) Write(pos int64, src []byte) (int, error) {
	if pos < 0 {
		return 0, vfserr.NewError(vfserr.InvalidArgument, "write", "")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeAtLocked(pos, src), nil
}

// Append writes src at the current size and advances size atomically
// under the write lock, returning the position it was written at.
func (s *ByteStore) Append(src []byte) (pos int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos = s.size
	s.writeAtLocked(pos, src)
	return pos, nil
}

// Truncate sets the logical size to n. If n < size, content beyond n is
// discarded (blocks may be released). If n >= size, size is unchanged; a
// truncate never extends a store.
func (s *ByteStore) Truncate(n int64) error {
	if n < 0 {
		return vfserr.NewError(vfserr.InvalidArgument, "truncate", "")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if n >= s.size {
		return nil
	}
	s.size = n

	keepBlocks := int((n + int64(s.blockSize) - 1) / int64(s.blockSize))
	if keepBlocks < len(s.blocks) {
		s.blocks = s.blocks[:keepBlocks]
	}
	// Zero the discarded tail of the last kept block, so a later write past
	// the new size leaves a hole of zeros rather than the old bytes.
	if off := int(n % int64(s.blockSize)); off != 0 {
		tail := s.blocks[keepBlocks-1][off:]
		for i := range tail {
			tail[i] = 0
		}
	}
	return nil
}

// TransferFrom reads up to n bytes from r and writes them at pos,
// returning the number of bytes transferred.
func (s *ByteStore) TransferFrom(r io.Reader, pos int64, n int64) (int64, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return 0, vfserr.WrapError(vfserr.IO, "transfer-from", "", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeAtLocked(pos, buf[:read])
	return int64(read), nil
}

// TransferTo writes the n bytes starting at pos to w in block-sized
// chunks, taking the read lock per chunk rather than across the whole
// transfer so it does not starve writers. Each chunk observes a
// consistent prefix of the store at the moment of that chunk's transfer,
// but the transfer as a whole is not atomic against concurrent writers.
func (s *ByteStore) TransferTo(pos int64, n int64, w io.Writer) (int64, error) {
	var total int64
	buf := make([]byte, s.blockSize)

	for total < n {
		chunk := int64(len(buf))
		if remaining := n - total; chunk > remaining {
			chunk = remaining
		}

		s.mu.RLock()
		read := s.readAtLocked(buf[:chunk], pos+total)
		s.mu.RUnlock()

		if read == 0 {
			break
		}
		if _, err := w.Write(buf[:read]); err != nil {
			return total, vfserr.WrapError(vfserr.IO, "transfer-to", "", err)
		}
		total += int64(read)
		if int64(read) < chunk {
			break
		}
	}

	return total, nil
}

// Copy returns a new ByteStore with the same block size and an
// independent copy of the current content.
func (s *ByteStore) Copy() *ByteStore {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := NewByteStore(s.blockSize)
	out.blocks = make([][]byte, len(s.blocks))
	for i, b := range s.blocks {
		cp := make([]byte, len(b))
		copy(cp, b)
		out.blocks[i] = cp
	}
	out.size = s.size
	return out
}

// ReplaceWith overwrites s's content with an independent copy of other's,
// without disturbing s's own lock (unlike assigning through *s = *other,
// which would carry over other's invariant-check closure bound to the
// wrong receiver).
func (s *ByteStore) ReplaceWith(other *ByteStore) {
	other.mu.RLock()
	blocks := make([][]byte, len(other.blocks))
	for i, b := range other.blocks {
		cp := make([]byte, len(b))
		copy(cp, b)
		blocks[i] = cp
	}
	size := other.size
	other.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blockSize = other.blockSize
	s.blocks = blocks
	s.size = size
}
