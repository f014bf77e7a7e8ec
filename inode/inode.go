package inode

import (
	"fmt"

	"github.com/google/gomemfs/pathutil"
	"github.com/google/gomemfs/vfserr"
	"github.com/jacobsa/syncutil"
	"github.com/jacobsa/timeutil"
)

// ID is a monotonic integer identity, stable for the lifetime of an Inode
//").
type ID uint64

// Inode is a file's metadata plus typed content. Its identity (ID) is
// immutable; everything else is mutable and guarded by mu.
//
// INVARIANT: links == count of directory entries referencing this inode
// across all DirectoryTables (self/parent back-pointers excluded).
type Inode struct {
	id    ID
	clock timeutil.Clock

	mu syncutil.InvariantMutex

	typ Type // GUARDED_BY(mu) — immutable after construction in practice, but read under mu for symmetry with the rest of the struct.

	createdAt  int64 // ms epoch, GUARDED_BY(mu)
	accessedAt int64 // GUARDED_BY(mu)
	modifiedAt int64 // GUARDED_BY(mu)

	links int // GUARDED_BY(mu)

	attrs map[string]interface{} // "view:name" -> value, GUARDED_BY(mu)

	// Exactly one of the following is populated, selected by typ.
	dir     *DirectoryTable // GUARDED_BY(mu) (structurally; the table has its own lock for entries)
	content *ByteStore
	target  pathutil.Path

	// openHandles counts live channels/streams referencing this inode.
	// Content is only released once links == 0 and openHandles == 0.
	openHandles int // GUARDED_BY(mu)
	released    bool
}

// New creates a new inode of the given type with the given id. Regular and
// Directory inodes get their content allocated here; Symlink inodes store
// target verbatim.
func New(id ID, typ Type, clock timeutil.Clock, blockSize int, target pathutil.Path) *Inode {
	now := clock.Now().UnixMilli()
	in := &Inode{
		id:         id,
		clock:      clock,
		typ:        typ,
		createdAt:  now,
		accessedAt: now,
		modifiedAt: now,
		attrs:      make(map[string]interface{}),
	}
	in.mu = syncutil.NewInvariantMutex(in.checkInvariants)

	switch typ {
	case Directory:
		in.dir = NewDirectoryTable(in)
	case Regular:
		in.content = NewByteStore(blockSize)
	case Symlink:
		in.target = target
	default:
		panic(fmt.Sprintf("inode: unknown type %v", typ))
	}

	return in
}

func (in *Inode) checkInvariants() {
	if in.links < 0 {
		panic("Inode: negative link count")
	}
	switch in.typ {
	case Directory:
		if in.dir == nil || in.content != nil {
			panic("Inode: directory inode missing table or has byte content")
		}
	case Regular:
		if in.content == nil || in.dir != nil {
			panic("Inode: regular inode missing content or has a directory table")
		}
	case Symlink:
		if in.dir != nil || in.content != nil {
			panic("Inode: symlink inode has directory or byte content")
		}
	}
}

// ID returns the inode's immutable identity.
func (in *Inode) ID() ID { return in.id }

// Type returns the content variant.
func (in *Inode) Type() Type { return in.typ }

func (in *Inode) IsDirectory() bool { return in.typ == Directory }
func (in *Inode) IsRegular() bool   { return in.typ == Regular }
func (in *Inode) IsSymlink() bool   { return in.typ == Symlink }

// Directory returns the backing DirectoryTable. Panics if not a directory.
func (in *Inode) Directory() *DirectoryTable {
	if in.typ != Directory {
		panic("Inode.Directory called on non-directory")
	}
	return in.dir
}

// ByteStore returns the backing content store. Panics if not regular.
func (in *Inode) ByteStore() *ByteStore {
	if in.typ != Regular {
		panic("Inode.ByteStore called on non-regular inode")
	}
	return in.content
}

// SymlinkTarget returns the stored symlink target. Panics if not a symlink.
func (in *Inode) SymlinkTarget() pathutil.Path {
	if in.typ != Symlink {
		panic("Inode.SymlinkTarget called on non-symlink")
	}
	return in.target
}

// Links returns the current hard-link count.
func (in *Inode) Links() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.links
}

// IncrementLinks bumps the link count. EXCLUSIVE_LOCKS_REQUIRED at the
// tree level (the tree write lock serializes all link-count changes).
func (in *Inode) IncrementLinks() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.links++
}

// DecrementLinks drops the link count by one, returning the count after
// the decrement. Panics if already zero.
func (in *Inode) DecrementLinks() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.links == 0 {
		panic("Inode.DecrementLinks: already zero")
	}
	in.links--
	return in.links
}

// AcquireHandle records a new open reference (channel or secure stream) to
// this inode, deferring content release even after links reaches zero.
func (in *Inode) AcquireHandle() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.openHandles++
}

// ReleaseHandle drops an open reference. If links == 0 and this was the
// last handle, the inode's content is released (POSIX-style deferred
// deletion).
func (in *Inode) ReleaseHandle() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.openHandles == 0 {
		panic("Inode.ReleaseHandle: no open handles")
	}
	in.openHandles--
	if in.openHandles == 0 && in.links == 0 {
		in.releaseContentLocked()
	}
}

// EXCLUSIVE_LOCKS_REQUIRED(in.mu)
func (in *Inode) releaseContentLocked() {
	in.released = true
	in.dir = nil
	in.content = nil
}

// Released reports whether this inode's content has been released
// (unlinked with no remaining open handles).
func (in *Inode) Released() bool {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.released
}

// MaybeReleaseIfUnreferenced releases content immediately if links == 0
// and there are no open handles. Called by the tree right after an
// unlink, since ReleaseHandle only fires for the handle-close path.
func (in *Inode) MaybeReleaseIfUnreferenced() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.links == 0 && in.openHandles == 0 {
		in.releaseContentLocked()
	}
}

////////////////////////////////////////////////////////////////////////
// Timestamps
////////////////////////////////////////////////////////////////////////

// CreationTime, AccessTime and ModifiedTime return millisecond-epoch
// timestamps.
func (in *Inode) CreationTime() int64 {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.createdAt
}

func (in *Inode) AccessTime() int64 {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.accessedAt
}

func (in *Inode) ModifiedTime() int64 {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.modifiedAt
}

// SetCreationTime, SetAccessTime and SetModifiedTime allow the basic
// attribute provider to implement its user-settable times.
func (in *Inode) SetCreationTime(ms int64) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.createdAt = ms
}

func (in *Inode) SetAccessTime(ms int64) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.accessedAt = ms
}

func (in *Inode) SetModifiedTime(ms int64) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.modifiedAt = ms
}

// NotifyRead stamps the access time to now. Called after a successful
// content read.
func (in *Inode) NotifyRead() {
	in.SetAccessTime(in.clock.Now().UnixMilli())
}

// NotifyModified stamps the modified time to now. Called after a
// successful write, truncate, or directory mutation.
func (in *Inode) NotifyModified() {
	in.SetModifiedTime(in.clock.Now().UnixMilli())
}

////////////////////////////////////////////////////////////////////////
// Attributes (flat map keyed by "view:name")
////////////////////////////////////////////////////////////////////////

func attrKey(view, name string) string { return view + ":" + name }

// GetAttribute returns the raw stored value for "view:name", or
// (nil, false) if unset.
func (in *Inode) GetAttribute(view, name string) (interface{}, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	v, ok := in.attrs[attrKey(view, name)]
	return v, ok
}

// SetAttribute stores a raw value for "view:name".
func (in *Inode) SetAttribute(view, name string, value interface{}) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.attrs[attrKey(view, name)] = value
}

// DeleteAttribute removes "view:name", if present.
func (in *Inode) DeleteAttribute(view, name string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	delete(in.attrs, attrKey(view, name))
}

// AttributeKeys returns every "view:name" key currently stored for view,
// or all views if view == "".
func (in *Inode) AttributeKeys(view string) []string {
	in.mu.RLock()
	defer in.mu.RUnlock()

	var keys []string
	prefix := view + ":"
	for k := range in.attrs {
		if view == "" || len(k) > len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	return keys
}

// errAttributeNotFound is a convenience for providers rejecting an unknown
// attribute name.
func errAttributeNotFound(view, name string) error {
	return vfserr.NewError(vfserr.InvalidArgument, "get-attribute", attrKey(view, name))
}
