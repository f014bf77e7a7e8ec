// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tree implements FileTree: the rooted DAG of inodes with a
// single super-root pseudo-directory, guarded by one tree-wide read/write
// lock, and the lookup/create/link/unlink/rename/copy protocol.
package tree

import (
	"github.com/google/gomemfs/inode"
	"github.com/google/gomemfs/pathutil"
	"github.com/google/gomemfs/vfserr"
	"github.com/jacobsa/syncutil"
	"github.com/jacobsa/timeutil"
)

// maxSymlinkDepth bounds symlink-chasing during lookup.
const maxSymlinkDepth = 40

// FollowMode controls whether the terminal name of a lookup is followed
// if it names a symlink. Intermediate (non-terminal) symlinks are always
// followed regardless of this flag.
type FollowMode int

const (
	Follow FollowMode = iota
	NoFollow
)

// Features gates optional behavior (configuration
// option "features").
type Features struct {
	SymbolicLinks bool
	Links         bool
}

// FileTree owns the super-root inode, the id generator, the shared
// RwLock, and a reference to the attribute Service.
// It has no notion of path flavor or name canonicalization: callers
// supply already-parsed pathutil.Path values built by a PathService that
// is configured consistently for the lifetime of one FileTree.
type FileTree struct {
	mu syncutil.InvariantMutex

	attrs     *inode.Service
	clock     timeutil.Clock
	blockSize int
	features  Features

	nextID    inode.ID // GUARDED_BY(mu)
	superRoot *inode.Inode
}

// New creates an empty FileTree with no roots. Call AddRoot to create each
// user-visible root the configuration names.
func New(attrs *inode.Service, clock timeutil.Clock, blockSize int, features Features) *FileTree {
	t := &FileTree{
		attrs:     attrs,
		clock:     clock,
		blockSize: blockSize,
		features:  features,
		nextID:    1,
	}
	t.mu = syncutil.NewInvariantMutex(t.checkInvariants)

	t.superRoot = t.newInodeLocked(inode.Directory, pathutil.Path{})
	// The super-root is self-parented; there is nothing above it.
	t.superRoot.Directory().SetParent(t.superRoot)

	return t
}

func (t *FileTree) checkInvariants() {
	if t.nextID == 0 {
		panic("FileTree: id generator wrapped to zero")
	}
}

// EXCLUSIVE_LOCKS_REQUIRED(t.mu)
func (t *FileTree) newInodeLocked(typ inode.Type, target pathutil.Path) *inode.Inode {
	id := t.nextID
	t.nextID++
	return inode.New(id, typ, t.clock, t.blockSize, target)
}

// AddRoot creates a user-visible root directory named name directly under
// the super-root (e.g. "/" on Unix, "C:\" on Windows).
func (t *FileTree) AddRoot(name *pathutil.Name) (*inode.Inode, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	root := t.newInodeLocked(inode.Directory, pathutil.Path{})
	if err := t.attrs.SetInitialAttributes(root, nil); err != nil {
		return nil, err
	}
	if err := t.superRoot.Directory().Link(name, root); err != nil {
		return nil, err
	}
	return root, nil
}

// SuperRoot returns the pseudo-directory whose entries are the
// filesystem's user-visible roots.
func (t *FileTree) SuperRoot() *inode.Inode { return t.superRoot }

// Attributes returns the attribute Service this tree was built with.
func (t *FileTree) Attributes() *inode.Service { return t.attrs }

////////////////////////////////////////////////////////////////////////
// Lookup
////////////////////////////////////////////////////////////////////////

// lookupResult is the outcome of walking a name sequence from a starting
// inode: either Found is non-nil, or Parent is non-nil and Terminal names
// the absent child (a parent-found outcome used by Create to avoid a
// second traversal).
type lookupResult struct {
	Found    *inode.Inode
	Parent   *inode.Inode
	Terminal *pathutil.Name
}

// Lookup resolves names starting from start (the working-directory inode
// for a relative path, or the super-root for an absolute one, sequenced
// through the root name first when absolute).
//
// SHARED_LOCKS_REQUIRED are acquired internally; callers do not hold
// t.mu.
func (t *FileTree) Lookup(start *inode.Inode, p pathutil.Path, follow FollowMode) (*inode.Inode, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	res, err := t.lookupLocked(start, p, follow)
	if err != nil {
		return nil, err
	}
	if res.Found == nil {
		return nil, vfserr.NewError(vfserr.NotFound, "lookup", p.String())
	}
	return res.Found, nil
}

// lookupForCreateLocked resolves p's parent directory and terminal name without
// requiring the terminal name to exist, for use by Create.
// EXCLUSIVE_LOCKS_REQUIRED(t.mu)
func (t *FileTree) lookupForCreateLocked(start *inode.Inode, p pathutil.Path) (*lookupResult, error) {
	return t.lookupLocked(start, p, Follow)
}

// namesFor builds the full name sequence to walk for p, prefixing the root
// name when p is absolute (so the super-root's single entry for that root
// is consumed as the first step).
func namesFor(p pathutil.Path) []*pathutil.Name {
	var names []*pathutil.Name
	if root, ok := p.Root(); ok {
		names = append(names, root)
	}
	for i := 0; i < p.NameCount(); i++ {
		names = append(names, p.GetName(i))
	}
	return names
}

// SHARED_LOCKS_REQUIRED(t.mu) or EXCLUSIVE_LOCKS_REQUIRED(t.mu) — either
// is fine, this only reads.
func (t *FileTree) lookupLocked(start *inode.Inode, p pathutil.Path, follow FollowMode) (*lookupResult, error) {
	return t.lookupDepthLocked(start, p, follow, 0)
}

// lookupDepthLocked is lookupLocked with the number of symlinks already
// followed, so nested resolutions share one maxSymlinkDepth budget.
func (t *FileTree) lookupDepthLocked(start *inode.Inode, p pathutil.Path, follow FollowMode, depth int) (*lookupResult, error) {
	cur := start
	if p.IsAbsolute() {
		cur = t.superRoot
	}

	names := namesFor(p)
	if len(names) == 0 {
		return &lookupResult{Found: cur}, nil
	}

	for i, name := range names {
		last := i == len(names)-1

		if !cur.IsDirectory() {
			return nil, vfserr.NewError(vfserr.NotADirectory, "lookup", name.String())
		}

		child, ok := cur.Directory().Get(name)
		if !ok {
			if last {
				return &lookupResult{Parent: cur, Terminal: name}, nil
			}
			return nil, vfserr.NewError(vfserr.NotFound, "lookup", name.String())
		}

		if child.IsSymlink() && (!last || follow == Follow) {
			depth++
			if depth > maxSymlinkDepth {
				return nil, vfserr.NewError(vfserr.Loop, "lookup", name.String())
			}

			target := child.SymlinkTarget()
			next := cur
			if target.IsAbsolute() {
				next = t.superRoot
			}
			resolved, err := t.lookupDepthLocked(next, target, Follow, depth)
			if err != nil {
				return nil, err
			}
			if resolved.Found == nil {
				return nil, vfserr.NewError(vfserr.NotFound, "lookup", name.String())
			}
			child = resolved.Found
		}

		cur = child
	}

	return &lookupResult{Found: cur}, nil
}

////////////////////////////////////////////////////////////////////////
// Create
////////////////////////////////////////////////////////////////////////

// Create makes a new inode of typ as a child of p's parent, applying
// initial attributes and then createAttrs. Fails NOT_FOUND if the parent
// does not exist, NOT_A_DIRECTORY if it is not a directory, and
// ALREADY_EXISTS if the terminal name is already present.
func (t *FileTree) Create(start *inode.Inode, p pathutil.Path, typ inode.Type, createAttrs map[string]interface{}) (*inode.Inode, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	res, err := t.lookupForCreateLocked(start, p)
	if err != nil {
		return nil, err
	}
	if res.Parent == nil {
		return nil, vfserr.NewError(vfserr.AlreadyExists, "create", p.String())
	}
	if !res.Parent.IsDirectory() {
		return nil, vfserr.NewError(vfserr.NotADirectory, "create", p.String())
	}

	child := t.newInodeLocked(typ, pathutil.Path{})
	if err := t.attrs.SetInitialAttributes(child, nil); err != nil {
		return nil, err
	}
	if err := res.Parent.Directory().Link(res.Terminal, child); err != nil {
		return nil, err
	}
	if len(createAttrs) > 0 {
		if err := t.attrs.SetInitialAttributes(child, createAttrs); err != nil {
			return nil, err
		}
	}

	return child, nil
}

// CreateSymlink makes a new symlink inode whose content is target,
// stored verbatim; resolution happens at lookup time. Fails
// UNSUPPORTED_OPERATION if SymbolicLinks is not enabled.
func (t *FileTree) CreateSymlink(start *inode.Inode, link pathutil.Path, target pathutil.Path) (*inode.Inode, error) {
	if !t.features.SymbolicLinks {
		return nil, vfserr.NewError(vfserr.UnsupportedOperation, "symlink", link.String())
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	res, err := t.lookupForCreateLocked(start, link)
	if err != nil {
		return nil, err
	}
	if res.Parent == nil {
		return nil, vfserr.NewError(vfserr.AlreadyExists, "symlink", link.String())
	}
	if !res.Parent.IsDirectory() {
		return nil, vfserr.NewError(vfserr.NotADirectory, "symlink", link.String())
	}

	child := t.newInodeLocked(inode.Symlink, target)
	if err := t.attrs.SetInitialAttributes(child, nil); err != nil {
		return nil, err
	}
	if err := res.Parent.Directory().Link(res.Terminal, child); err != nil {
		return nil, err
	}

	return child, nil
}

// Link creates a hard link at linkPath to the existing inode resolved by
// existingPath. The existing target must not be a directory. Fails
// UNSUPPORTED_OPERATION if Links is not enabled.
func (t *FileTree) Link(start *inode.Inode, linkPath, existingPath pathutil.Path) error {
	if !t.features.Links {
		return vfserr.NewError(vfserr.UnsupportedOperation, "link", linkPath.String())
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	existing, err := t.lookupLocked(start, existingPath, NoFollow)
	if err != nil {
		return err
	}
	if existing.Found == nil {
		return vfserr.NewError(vfserr.NotFound, "link", existingPath.String())
	}
	if existing.Found.IsDirectory() {
		return vfserr.NewError(vfserr.InvalidArgument, "link", existingPath.String())
	}

	res, err := t.lookupForCreateLocked(start, linkPath)
	if err != nil {
		return err
	}
	if res.Parent == nil {
		return vfserr.NewError(vfserr.AlreadyExists, "link", linkPath.String())
	}

	return res.Parent.Directory().Link(res.Terminal, existing.Found)
}

// ReadSymlink returns the verbatim stored target of the symlink at p.
func (t *FileTree) ReadSymlink(start *inode.Inode, p pathutil.Path) (pathutil.Path, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	res, err := t.lookupLocked(start, p, NoFollow)
	if err != nil {
		return pathutil.Path{}, err
	}
	if res.Found == nil {
		return pathutil.Path{}, vfserr.NewError(vfserr.NotFound, "read-symlink", p.String())
	}
	if !res.Found.IsSymlink() {
		return pathutil.Path{}, vfserr.NewError(vfserr.InvalidArgument, "read-symlink", p.String())
	}
	return res.Found.SymlinkTarget(), nil
}

////////////////////////////////////////////////////////////////////////
// DeleteMode / Unlink
////////////////////////////////////////////////////////////////////////

// DeleteMode restricts what kind of inode Delete will remove.
type DeleteMode int

const (
	DeleteAny DeleteMode = iota
	DeleteDirOnly
	DeleteNonDirOnly
)

// Delete resolves p's parent and terminal name and unlinks it. A
// directory may only be unlinked when empty (excluding "." and "..").
func (t *FileTree) Delete(start *inode.Inode, p pathutil.Path, mode DeleteMode) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	parentPath, name, err := splitParent(p)
	if err != nil {
		return err
	}

	parentRes, err := t.lookupLocked(start, parentPath, Follow)
	if err != nil {
		return err
	}
	parentInode := parentRes.Found
	if parentInode == nil || !parentInode.IsDirectory() {
		return vfserr.NewError(vfserr.NotADirectory, "delete", p.String())
	}

	target, ok := parentInode.Directory().Get(name)
	if !ok {
		return vfserr.NewError(vfserr.NotFound, "delete", p.String())
	}
	switch mode {
	case DeleteDirOnly:
		if !target.IsDirectory() {
			return vfserr.NewError(vfserr.NotADirectory, "delete", p.String())
		}
	case DeleteNonDirOnly:
		if target.IsDirectory() {
			return vfserr.NewError(vfserr.IsADirectory, "delete", p.String())
		}
	}

	if target.IsDirectory() && target.Directory().Len() != 0 {
		return vfserr.NewError(vfserr.DirectoryNotEmpty, "delete", p.String())
	}

	if _, err := parentInode.Directory().Unlink(name); err != nil {
		return err
	}
	target.MaybeReleaseIfUnreferenced()
	return nil
}

// splitParent returns the path to p's parent directory and p's terminal
// name. For a single-component relative path (e.g. "foo"), p.GetParent()
// has no path to return (there is nothing before "foo"), but the parent
// is still meaningful: it is whatever inode a lookup starts from, so the
// empty relative path stands in for it. Fails InvalidArgument for a bare
// root or empty path, which names no parent at all.
func splitParent(p pathutil.Path) (parentPath pathutil.Path, name *pathutil.Name, err error) {
	name, ok := p.GetFileName()
	if !ok {
		return pathutil.Path{}, nil, vfserr.NewError(vfserr.InvalidArgument, "path", p.String())
	}
	parentPath, ok = p.GetParent()
	if !ok {
		parentPath = pathutil.Path{}
	}
	return parentPath, name, nil
}

////////////////////////////////////////////////////////////////////////
// Rename
////////////////////////////////////////////////////////////////////////

// ReplaceExisting mirrors the copy-option of the same name.
type RenameOptions struct {
	ReplaceExisting bool
}

// Rename moves srcPath to dstPath. If they resolve to the same inode via
// the same parent entry, it is a no-op. If dstPath exists, behavior
// depends on ReplaceExisting. A directory may never be moved into itself
// or a descendant of itself.
func (t *FileTree) Rename(start *inode.Inode, srcPath, dstPath pathutil.Path, opts RenameOptions) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	srcParentPath, srcName, err := splitParent(srcPath)
	if err != nil {
		return err
	}
	dstParentPath, dstName, err := splitParent(dstPath)
	if err != nil {
		return err
	}

	srcParentRes, err := t.lookupLocked(start, srcParentPath, Follow)
	if err != nil {
		return err
	}
	srcParent := srcParentRes.Found
	if srcParent == nil || !srcParent.IsDirectory() {
		return vfserr.NewError(vfserr.NotADirectory, "rename", srcPath.String())
	}

	dstParentRes, err := t.lookupLocked(start, dstParentPath, Follow)
	if err != nil {
		return err
	}
	dstParent := dstParentRes.Found
	if dstParent == nil || !dstParent.IsDirectory() {
		return vfserr.NewError(vfserr.NotADirectory, "rename", dstPath.String())
	}

	srcChild, ok := srcParent.Directory().Get(srcName)
	if !ok {
		return vfserr.NewError(vfserr.NotFound, "rename", srcPath.String())
	}

	dstChild, dstExists := dstParent.Directory().Get(dstName)

	// Same inode via the same parent entry: no-op.
	if dstExists && dstChild == srcChild && srcParent == dstParent {
		return nil
	}

	if srcChild.IsDirectory() {
		if t.isAncestorLocked(srcChild, dstParent) || srcChild == dstParent {
			return vfserr.NewError(vfserr.InvalidArgument, "rename", dstPath.String())
		}
	}

	if dstExists {
		if !opts.ReplaceExisting {
			return vfserr.NewError(vfserr.AlreadyExists, "rename", dstPath.String())
		}
		if dstChild.IsDirectory() != srcChild.IsDirectory() {
			return vfserr.NewError(vfserr.InvalidArgument, "rename", dstPath.String())
		}
		if dstChild.IsDirectory() && dstChild.Directory().Len() != 0 {
			return vfserr.NewError(vfserr.DirectoryNotEmpty, "rename", dstPath.String())
		}
		if _, err := dstParent.Directory().Unlink(dstName); err != nil {
			return err
		}
		dstChild.MaybeReleaseIfUnreferenced()
	}

	if srcParent == dstParent {
		if err := srcParent.Directory().Rename(srcName, dstName); err != nil {
			return err
		}
	} else {
		if err := dstParent.Directory().Link(dstName, srcChild); err != nil {
			return err
		}
		if _, err := srcParent.Directory().Unlink(srcName); err != nil {
			return err
		}
	}

	return nil
}

// isAncestorLocked reports whether candidate is ancestor-or-self of node,
// walking up via ".." up to the super-root (cycle check for Rename).
// EXCLUSIVE_LOCKS_REQUIRED(t.mu)
func (t *FileTree) isAncestorLocked(candidate, node *inode.Inode) bool {
	cur := node
	for {
		if cur == candidate {
			return true
		}
		if cur == t.superRoot {
			return false
		}
		parent := cur.Directory().Parent()
		if parent == cur {
			return false
		}
		cur = parent
	}
}

////////////////////////////////////////////////////////////////////////
// Copy
////////////////////////////////////////////////////////////////////////

// CopyOptions gathers Copy's option flags (Rename takes RenameOptions).
// AtomicMove strengthens ReplaceExisting's atomicity guarantee; since
// in-memory rename is already atomic, it is accepted as a no-op alias
// rather than rejected.
type CopyOptions struct {
	ReplaceExisting bool
	CopyAttributes  bool
	AtomicMove      bool
}

// Copy resolves src, creates a new inode of the same type as a child of
// dst's parent, and for regular files copies the ByteStore content. For
// directories an empty directory is created (contents are not recursively
// copied; the façade layer supplies the recursion protocol). For
// symlinks, the target path is copied. Destination semantics mirror
// Rename for ReplaceExisting.
func (t *FileTree) Copy(start *inode.Inode, srcPath, dstPath pathutil.Path, opts CopyOptions) (*inode.Inode, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	srcRes, err := t.lookupLocked(start, srcPath, NoFollow)
	if err != nil {
		return nil, err
	}
	if srcRes.Found == nil {
		return nil, vfserr.NewError(vfserr.NotFound, "copy", srcPath.String())
	}
	src := srcRes.Found

	dstParentPath, dstName, err := splitParent(dstPath)
	if err != nil {
		return nil, err
	}
	dstParentRes, err := t.lookupLocked(start, dstParentPath, Follow)
	if err != nil {
		return nil, err
	}
	dstParent := dstParentRes.Found
	if dstParent == nil || !dstParent.IsDirectory() {
		return nil, vfserr.NewError(vfserr.NotADirectory, "copy", dstPath.String())
	}

	if existing, exists := dstParent.Directory().Get(dstName); exists {
		if !opts.ReplaceExisting {
			return nil, vfserr.NewError(vfserr.AlreadyExists, "copy", dstPath.String())
		}
		if existing.IsDirectory() && existing.Directory().Len() != 0 {
			return nil, vfserr.NewError(vfserr.DirectoryNotEmpty, "copy", dstPath.String())
		}
		if existing.IsDirectory() != src.IsDirectory() {
			return nil, vfserr.NewError(vfserr.InvalidArgument, "copy", dstPath.String())
		}
		if _, err := dstParent.Directory().Unlink(dstName); err != nil {
			return nil, err
		}
		existing.MaybeReleaseIfUnreferenced()
	}

	var dst *inode.Inode
	switch src.Type() {
	case inode.Regular:
		dst = t.newInodeLocked(inode.Regular, pathutil.Path{})
		dst.ByteStore().ReplaceWith(src.ByteStore())
	case inode.Directory:
		dst = t.newInodeLocked(inode.Directory, pathutil.Path{})
	case inode.Symlink:
		dst = t.newInodeLocked(inode.Symlink, src.SymlinkTarget())
	}

	if err := t.attrs.SetInitialAttributes(dst, nil); err != nil {
		return nil, err
	}
	if opts.CopyAttributes {
		for _, view := range t.attrs.Views() {
			attrsMap, err := t.attrs.ReadAttributes(src, view)
			if err != nil {
				continue
			}
			for key, value := range attrsMap {
				_ = t.attrs.SetAttribute(dst, key, value, true)
			}
		}
	}

	if err := dstParent.Directory().Link(dstName, dst); err != nil {
		return nil, err
	}

	return dst, nil
}

////////////////////////////////////////////////////////////////////////
// toRealPath
////////////////////////////////////////////////////////////////////////

// ToRealPath normalizes p and then resolves every symlink on the path,
// returning the canonical form built by splicing each resolved symlink's
// own real path in place of the link component, rather than keeping the
// link's name.
func (t *FileTree) ToRealPath(start *inode.Inode, p pathutil.Path, ps *pathutil.PathService) (pathutil.Path, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, names, root, err := t.realPathNamesLocked(start, p, 0)
	if err != nil {
		return pathutil.Path{}, err
	}
	if root != nil {
		return ps.Parse(root.String(), names...)
	}
	return ps.Parse("", names...)
}

// realPathNamesLocked walks p from start (or the super-root, if p is
// absolute), resolving every symlink encountered — including the
// terminal component — by splicing in that symlink's OWN resolved name
// sequence and root in place of the link's name, so the link's own
// display name never survives into the result. The returned root is nil
// for a result that is still relative.
// SHARED_LOCKS_REQUIRED(t.mu)
func (t *FileTree) realPathNamesLocked(start *inode.Inode, p pathutil.Path, depth int) (*inode.Inode, []string, *pathutil.Name, error) {
	cur := start
	root, _ := p.Root()
	if root != nil {
		r, ok := t.superRoot.Directory().Get(root)
		if !ok {
			return nil, nil, nil, vfserr.NewError(vfserr.NotFound, "real-path", root.String())
		}
		cur = r
	}

	var names []string
	normalized := p.Normalize()

	for i := 0; i < normalized.NameCount(); i++ {
		name := normalized.GetName(i)

		if !cur.IsDirectory() {
			return nil, nil, nil, vfserr.NewError(vfserr.NotADirectory, "real-path", name.String())
		}
		child, ok := cur.Directory().Get(name)
		if !ok {
			return nil, nil, nil, vfserr.NewError(vfserr.NotFound, "real-path", name.String())
		}

		if child.IsSymlink() {
			depth++
			if depth > maxSymlinkDepth {
				return nil, nil, nil, vfserr.NewError(vfserr.Loop, "real-path", name.String())
			}
			resolvedInode, resolvedNames, resolvedRoot, err := t.realPathNamesLocked(cur, child.SymlinkTarget(), depth)
			if err != nil {
				return nil, nil, nil, err
			}
			if resolvedRoot != nil {
				names = resolvedNames
				root = resolvedRoot
			} else {
				names = append(names, resolvedNames...)
			}
			cur = resolvedInode
			continue
		}

		if !name.IsDot() && !name.IsDotDot() {
			names = append(names, name.String())
		}
		cur = child
	}

	return cur, names, root, nil
}
