package inode

import (
	"github.com/google/gomemfs/pathutil"
	"github.com/google/gomemfs/vfserr"
	"github.com/jacobsa/syncutil"
)

// dirEntry is one row of a DirectoryTable.
type dirEntry struct {
	name  *pathutil.Name
	inode *Inode
}

// DirectoryTable is the content of a directory inode: an insertion-order
// preserving mapping from Name to Inode, always containing the "." and
// ".." sentinel entries.
//
// All mutating operations are expected to run under the tree-wide write
// lock; DirectoryTable's own mutex exists so that
// concurrent readers (directory streams, attribute reads under the tree
// read lock) see a consistent view while a writer is mid-mutation within
// a single call.
type DirectoryTable struct {
	mu syncutil.InvariantMutex

	self   *Inode
	parent *Inode // GUARDED_BY(mu)

	// entries holds the user-visible children in insertion order. "."  and
	// ".." are not stored here; they are synthesized from self/parent.
	order   []*pathutil.Name          // GUARDED_BY(mu)
	entries map[string]*dirEntry      // canonical name -> entry, GUARDED_BY(mu)
}

// NewDirectoryTable creates an empty DirectoryTable whose "." sentinel is
// self. The ".." sentinel defaults to self (as for the super-root) until
// SetParent is called.
func NewDirectoryTable(self *Inode) *DirectoryTable {
	t := &DirectoryTable{
		self:    self,
		parent:  self,
		entries: make(map[string]*dirEntry),
	}
	t.mu = syncutil.NewInvariantMutex(t.checkInvariants)
	return t
}

func (t *DirectoryTable) checkInvariants() {
	if len(t.order) != len(t.entries) {
		panic("DirectoryTable: order/entries length mismatch")
	}
	seen := make(map[string]bool)
	for _, n := range t.order {
		c := n.Canonical()
		if seen[c] {
			panic("DirectoryTable: duplicate canonical name in order")
		}
		seen[c] = true
		if _, ok := t.entries[c]; !ok {
			panic("DirectoryTable: name in order missing from entries map")
		}
	}
}

// SetParent atomically rewrites the ".." sentinel. Used when a directory
// is moved or re-parented.
func (t *DirectoryTable) SetParent(parent *Inode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.parent = parent
}

// Parent returns the current ".." target.
func (t *DirectoryTable) Parent() *Inode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.parent
}

// Self returns the inode this table belongs to (the "." target).
func (t *DirectoryTable) Self() *Inode { return t.self }

// Get looks up name, also resolving the "." and ".." sentinels.
func (t *DirectoryTable) Get(name *pathutil.Name) (*Inode, bool) {
	if name.IsDot() {
		return t.self, true
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if name.IsDotDot() {
		return t.parent, true
	}

	e, ok := t.entries[name.Canonical()]
	if !ok {
		return nil, false
	}
	return e.inode, true
}

// Link adds an entry for name -> target, incrementing target's link
// count. Fails with ALREADY_EXISTS if name is already present. Linking a
// directory additionally rewrites its ".." entry to point at this table's
// directory.
//
// EXCLUSIVE_LOCKS_REQUIRED at the tree level.
func (t *DirectoryTable) Link(name *pathutil.Name, target *Inode) error {
	if name.IsDot() || name.IsDotDot() {
		return vfserr.NewError(vfserr.InvalidArgument, "link", name.String())
	}

	t.mu.Lock()
	if _, exists := t.entries[name.Canonical()]; exists {
		t.mu.Unlock()
		return vfserr.NewError(vfserr.AlreadyExists, "link", name.String())
	}
	t.entries[name.Canonical()] = &dirEntry{name: name, inode: target}
	t.order = append(t.order, name)
	t.mu.Unlock()

	target.IncrementLinks()
	if target.IsDirectory() {
		target.Directory().SetParent(t.self)
	}
	t.self.NotifyModified()
	return nil
}

// Unlink removes the entry for name, decrementing its inode's link count,
// and returns the removed inode. Fails with NOT_FOUND if absent.
func (t *DirectoryTable) Unlink(name *pathutil.Name) (*Inode, error) {
	if name.IsDot() || name.IsDotDot() {
		return nil, vfserr.NewError(vfserr.InvalidArgument, "unlink", name.String())
	}

	t.mu.Lock()
	e, ok := t.entries[name.Canonical()]
	if !ok {
		t.mu.Unlock()
		return nil, vfserr.NewError(vfserr.NotFound, "unlink", name.String())
	}
	delete(t.entries, name.Canonical())
	t.removeFromOrderLocked(name)
	t.mu.Unlock()

	e.inode.DecrementLinks()
	t.self.NotifyModified()
	return e.inode, nil
}

// EXCLUSIVE_LOCKS_REQUIRED(t.mu)
func (t *DirectoryTable) removeFromOrderLocked(name *pathutil.Name) {
	for i, n := range t.order {
		if n.Canonical() == name.Canonical() {
			t.order = append(t.order[:i], t.order[i+1:]...)
			return
		}
	}
}

// Rename atomically moves the entry at oldName to newName within the same
// table. Fails with NOT_FOUND if oldName is absent, ALREADY_EXISTS if
// newName is present.
func (t *DirectoryTable) Rename(oldName, newName *pathutil.Name) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[oldName.Canonical()]
	if !ok {
		return vfserr.NewError(vfserr.NotFound, "rename", oldName.String())
	}
	if _, exists := t.entries[newName.Canonical()]; exists {
		return vfserr.NewError(vfserr.AlreadyExists, "rename", newName.String())
	}

	delete(t.entries, oldName.Canonical())
	t.removeFromOrderLocked(oldName)

	e.name = newName
	t.entries[newName.Canonical()] = e
	t.order = append(t.order, newName)
	return nil
}

// Entry is a user-visible (name, inode) pair returned by Entries.
type Entry struct {
	Name  *pathutil.Name
	Inode *Inode
}

// Entries returns an iteration-safe snapshot of the table's user-visible
// entries, excluding "." and "..", in insertion order.
func (t *DirectoryTable) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Entry, 0, len(t.order))
	for _, n := range t.order {
		e := t.entries[n.Canonical()]
		out = append(out, Entry{Name: e.name, Inode: e.inode})
	}
	return out
}

// Len returns the number of user-visible entries (excluding "." and "..").
func (t *DirectoryTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// LinkCount returns the number of entries in this table referencing the
// given inode (debug helper).
func (t *DirectoryTable) LinkCount(target *Inode) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, e := range t.entries {
		if e.inode == target {
			n++
		}
	}
	return n
}
