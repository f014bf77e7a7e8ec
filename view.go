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

package memfs

import (
	"sync"

	"github.com/google/gomemfs/dirstream"
	"github.com/google/gomemfs/inode"
	"github.com/google/gomemfs/pathutil"
	"github.com/google/gomemfs/tree"
	"github.com/google/gomemfs/vfschan"
	"github.com/google/gomemfs/vfserr"
	"github.com/google/gomemfs/watch"
)

// FileSystemView binds a *tree.FileTree, a working directory and a
// pathutil.PathService: the entry point for every path-based operation
// exposed to a caller of this package. Multiple FileSystemView
// values may coexist in the same process. A Path does not record which
// view built it: a path from one view passed to another is resolved in the
// receiving view's own tree, and no CROSS_DEVICE check is made (Link
// included).
type FileSystemView struct {
	tree     *tree.FileTree
	ps       *pathutil.PathService
	features Features
	watch    *watch.WatchService
	executor vfschan.Executor

	mu       sync.Mutex
	cwdPath  pathutil.Path
	cwd      *inode.Inode
	closed   bool
	channels map[invalidator]struct{} // GUARDED_BY(mu)

	lockTablesMu sync.Mutex
	lockTables   map[inode.ID]*vfschan.LockTable
}

// invalidator is the common surface of vfschan.SeekableByteChannel and
// vfschan.AsyncFileChannel that FileSystemView needs to force every open
// channel into FILESYSTEM_CLOSED on Close (spec section 5).
type invalidator interface {
	Invalidate()
	SetOnClose(func())
}

func (v *FileSystemView) checkOpen(op string) error {
	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return vfserr.NewError(vfserr.FileSystemClosed, op, "")
	}
	return nil
}

// start returns the inode a relative path resolves against: the working
// directory. Absolute paths ignore this and resolve from the super-root
// (tree.FileTree.Lookup already implements that).
func (v *FileSystemView) start() *inode.Inode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cwd
}

////////////////////////////////////////////////////////////////////////
// Paths
////////////////////////////////////////////////////////////////////////

// GetPath builds a Path from first plus more, joined and parsed the same
// way a PathService.Parse call does for any other operation's path
// argument.
func (v *FileSystemView) GetPath(first string, more ...string) (pathutil.Path, error) {
	return v.ps.Parse(first, more...)
}

// PathService returns the PathService this view was built with, for
// callers that need to build Path/Name values directly (e.g. to compile a
// glob Matcher with pathutil.CompilePattern).
func (v *FileSystemView) PathService() *pathutil.PathService { return v.ps }

// Roots returns the paths of the filesystem's user-visible roots.
func (v *FileSystemView) Roots() []pathutil.Path {
	var out []pathutil.Path
	for _, e := range v.tree.SuperRoot().Directory().Entries() {
		out = append(out, v.ps.RootPath(e.Name.String()))
	}
	return out
}

// WorkingDirectory returns the absolute path of the current working
// directory.
func (v *FileSystemView) WorkingDirectory() pathutil.Path {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cwdPath
}

////////////////////////////////////////////////////////////////////////
// Lookup / mkdir-all (used by New to create the working directory)
////////////////////////////////////////////////////////////////////////

// Lookup resolves p (relative to the working directory if not absolute)
// to its inode.
func (v *FileSystemView) Lookup(p pathutil.Path, follow tree.FollowMode) (*inode.Inode, error) {
	if err := v.checkOpen("lookup"); err != nil {
		return nil, err
	}
	return v.tree.Lookup(v.start(), p, follow)
}

// mkdirAllLocked creates every missing ancestor of p (POSIX "mkdir -p"),
// starting from start, returning p's own inode. It is used once, by New,
// to materialize the configured working directory; general-purpose
// directory creation is the façade's own responsibility one component at
// a time via CreateDirectory.
func (v *FileSystemView) mkdirAllLocked(start *inode.Inode, p pathutil.Path) (*inode.Inode, error) {
	cur := start
	root, hasRoot := p.Root()
	if hasRoot {
		r, err := v.tree.Lookup(start, v.ps.RootPath(root.String()), tree.Follow)
		if err != nil {
			return nil, err
		}
		cur = r
	}

	for i := 0; i < p.NameCount(); i++ {
		name := p.Subpath(i, i+1)
		child, err := v.tree.Lookup(cur, name, tree.Follow)
		if err != nil {
			child, err = v.tree.Create(cur, name, inode.Directory, nil)
			if err != nil {
				return nil, err
			}
		} else if !child.IsDirectory() {
			return nil, vfserr.NewError(vfserr.NotADirectory, "mkdir-all", p.String())
		}
		cur = child
	}
	return cur, nil
}

////////////////////////////////////////////////////////////////////////
// Create / Delete / Link / Symlink
////////////////////////////////////////////////////////////////////////

// Create makes a new inode of typ at p, applying attrs (a "view:name" ->
// value map) at creation time.
func (v *FileSystemView) Create(p pathutil.Path, typ inode.Type, attrs map[string]interface{}) (*inode.Inode, error) {
	if err := v.checkOpen("create"); err != nil {
		return nil, err
	}
	return v.tree.Create(v.start(), p, typ, attrs)
}

// CreateDirectory is a convenience wrapper around Create for the common
// directory case.
func (v *FileSystemView) CreateDirectory(p pathutil.Path, attrs map[string]interface{}) (*inode.Inode, error) {
	return v.Create(p, inode.Directory, attrs)
}

// CreateFile is a convenience wrapper around Create for the common
// regular-file case.
func (v *FileSystemView) CreateFile(p pathutil.Path, attrs map[string]interface{}) (*inode.Inode, error) {
	return v.Create(p, inode.Regular, attrs)
}

// Delete removes p according to mode (any / dir-only / non-dir-only).
func (v *FileSystemView) Delete(p pathutil.Path, mode tree.DeleteMode) error {
	if err := v.checkOpen("delete"); err != nil {
		return err
	}
	return v.tree.Delete(v.start(), p, mode)
}

// Link creates a hard link at linkPath to the inode resolved by
// existingPath.
func (v *FileSystemView) Link(linkPath, existingPath pathutil.Path) error {
	if err := v.checkOpen("link"); err != nil {
		return err
	}
	return v.tree.Link(v.start(), linkPath, existingPath)
}

// Symlink creates a symbolic link at linkPath whose content is target,
// stored verbatim.
func (v *FileSystemView) Symlink(linkPath, target pathutil.Path) error {
	if err := v.checkOpen("symlink"); err != nil {
		return err
	}
	_, err := v.tree.CreateSymlink(v.start(), linkPath, target)
	return err
}

// ReadSymlink returns the verbatim stored target of the symlink at p.
func (v *FileSystemView) ReadSymlink(p pathutil.Path) (pathutil.Path, error) {
	if err := v.checkOpen("read-symlink"); err != nil {
		return pathutil.Path{}, err
	}
	return v.tree.ReadSymlink(v.start(), p)
}

////////////////////////////////////////////////////////////////////////
// Copy / Move
////////////////////////////////////////////////////////////////////////

// Copy copies src to dst per opts. It is shallow: a directory's contents
// are not recursively copied; see CopyRecursive for that.
func (v *FileSystemView) Copy(src, dst pathutil.Path, opts tree.CopyOptions) (*inode.Inode, error) {
	if err := v.checkOpen("copy"); err != nil {
		return nil, err
	}
	return v.tree.Copy(v.start(), src, dst, opts)
}

// CopyRecursive walks src (which may be a directory, regular file, or
// symlink) and copies it to dst, descending into subdirectories, layering
// a recursive walk on top of Copy's shallow single-inode contract. Every
// src/dst pair passed down the recursion is resolved relative to the same
// starting inode (the view's working directory), exactly the way
// tree.Copy itself always resolves its source and destination paths from
// one shared starting point, so there is no separate "destination parent"
// bookkeeping to get wrong.
func (v *FileSystemView) CopyRecursive(src, dst pathutil.Path, opts tree.CopyOptions) error {
	if err := v.checkOpen("copy"); err != nil {
		return err
	}
	return v.copyRecursive(v.start(), src, dst, opts)
}

func (v *FileSystemView) copyRecursive(start *inode.Inode, src, dst pathutil.Path, opts tree.CopyOptions) error {
	srcInode, err := v.tree.Lookup(start, src, tree.NoFollow)
	if err != nil {
		return err
	}
	if _, err := v.tree.Copy(start, src, dst, opts); err != nil {
		return err
	}
	if !srcInode.IsDirectory() {
		return nil
	}

	stream := dirstream.New(v.ps, srcInode, src, nil)
	next, err := stream.Iterator()
	if err != nil {
		return err
	}
	for {
		childSrcPath, _, ok := next()
		if !ok {
			break
		}
		name, _ := childSrcPath.GetFileName()
		childDst := dst.Resolve(singleNamePath(v.ps, name))
		if err := v.copyRecursive(start, childSrcPath, childDst, opts); err != nil {
			return err
		}
	}
	return nil
}

// singleNamePath parses a single name's display string back into a
// one-component relative Path, for resolving a child path beneath dst.
func singleNamePath(ps *pathutil.PathService, n *pathutil.Name) pathutil.Path {
	p, _ := ps.Parse(n.String())
	return p
}

// Move renames src to dst per opts.
func (v *FileSystemView) Move(src, dst pathutil.Path, opts tree.RenameOptions) error {
	if err := v.checkOpen("move"); err != nil {
		return err
	}
	return v.tree.Rename(v.start(), src, dst, opts)
}

// ToRealPath normalizes p and resolves every symlink on it, returning the
// canonical display form.
func (v *FileSystemView) ToRealPath(p pathutil.Path) (pathutil.Path, error) {
	if err := v.checkOpen("real-path"); err != nil {
		return pathutil.Path{}, err
	}
	return v.tree.ToRealPath(v.start(), p, v.ps)
}

////////////////////////////////////////////////////////////////////////
// Channels
////////////////////////////////////////////////////////////////////////

// ChannelOptions extends vfschan.OpenOptions with the create/create-new
// semantics an open-channel operation needs but which belong above
// vfschan, since vfschan only ever opens a channel onto an inode that
// already exists.
type ChannelOptions struct {
	vfschan.OpenOptions
	Create    bool // create the file if it does not exist
	CreateNew bool // create the file, failing ALREADY_EXISTS if it does
	Follow    tree.FollowMode
}

// OpenChannel resolves (or creates, per opts) the regular file at p and
// returns a SeekableByteChannel over it.
func (v *FileSystemView) OpenChannel(p pathutil.Path, opts ChannelOptions, attrs map[string]interface{}) (*vfschan.SeekableByteChannel, error) {
	if err := v.checkOpen("open"); err != nil {
		return nil, err
	}

	in, err := v.tree.Lookup(v.start(), p, opts.Follow)
	if code, ok := vfserr.CodeOf(err); ok && code == vfserr.NotFound && (opts.Create || opts.CreateNew) {
		in, err = v.tree.Create(v.start(), p, inode.Regular, attrs)
	} else if err == nil && opts.CreateNew {
		return nil, vfserr.NewError(vfserr.AlreadyExists, "open", p.String())
	}
	if err != nil {
		return nil, err
	}
	if !in.IsRegular() {
		return nil, vfserr.NewError(vfserr.IsADirectory, "open", p.String())
	}

	c, err := vfschan.NewSeekableByteChannel(in, opts.OpenOptions)
	if err != nil {
		return nil, err
	}
	if err := v.track(c); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// OpenAsyncChannel is the async-channel counterpart of OpenChannel,
// dispatching operations onto this view's configured Executor.
func (v *FileSystemView) OpenAsyncChannel(p pathutil.Path, opts ChannelOptions, attrs map[string]interface{}) (*vfschan.AsyncFileChannel, error) {
	if err := v.checkOpen("open"); err != nil {
		return nil, err
	}

	in, err := v.tree.Lookup(v.start(), p, opts.Follow)
	if code, ok := vfserr.CodeOf(err); ok && code == vfserr.NotFound && (opts.Create || opts.CreateNew) {
		in, err = v.tree.Create(v.start(), p, inode.Regular, attrs)
	} else if err == nil && opts.CreateNew {
		return nil, vfserr.NewError(vfserr.AlreadyExists, "open", p.String())
	}
	if err != nil {
		return nil, err
	}
	if !in.IsRegular() {
		return nil, vfserr.NewError(vfserr.IsADirectory, "open", p.String())
	}

	c := vfschan.NewAsyncFileChannel(in, opts.OpenOptions, v.executor)
	if err := v.track(c); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// track registers an open channel so FileSystemView.Close can force it
// into FILESYSTEM_CLOSED (spec section 5), and arranges for it to
// deregister itself when the caller closes it normally. It re-checks
// v.closed under v.mu so a Close that raced the lookup/create above does
// not leave a channel open on an otherwise-closed view.
func (v *FileSystemView) track(c invalidator) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return vfserr.NewError(vfserr.FileSystemClosed, "open", "")
	}
	v.channels[c] = struct{}{}
	v.mu.Unlock()

	c.SetOnClose(func() {
		v.mu.Lock()
		delete(v.channels, c)
		v.mu.Unlock()
	})
	return nil
}

// LockTableFor returns the shared advisory LockTable for in's identity,
// creating it on first use. Every SeekableByteChannel/AsyncFileChannel
// opened onto the same inode shares one LockTable, kept in this view's map
// keyed by the inode's ID.
func (v *FileSystemView) LockTableFor(in *inode.Inode) *vfschan.LockTable {
	v.lockTablesMu.Lock()
	defer v.lockTablesMu.Unlock()
	t, ok := v.lockTables[in.ID()]
	if !ok {
		t = vfschan.NewLockTable()
		v.lockTables[in.ID()] = t
	}
	return t
}

////////////////////////////////////////////////////////////////////////
// Directory streams
////////////////////////////////////////////////////////////////////////

// NewDirectoryStream opens a snapshot stream over the directory at p.
func (v *FileSystemView) NewDirectoryStream(p pathutil.Path, filter dirstream.Filter) (*dirstream.DirectoryStream, error) {
	if err := v.checkOpen("open-directory-stream"); err != nil {
		return nil, err
	}
	in, err := v.tree.Lookup(v.start(), p, tree.Follow)
	if err != nil {
		return nil, err
	}
	if !in.IsDirectory() {
		return nil, vfserr.NewError(vfserr.NotADirectory, "open-directory-stream", p.String())
	}
	return dirstream.New(v.ps, in, p, filter), nil
}

// NewSecureDirectoryStream is NewDirectoryStream's secure variant, gated
// by the SecureDirectoryStreams feature.
func (v *FileSystemView) NewSecureDirectoryStream(p pathutil.Path, filter dirstream.Filter) (*dirstream.SecureDirectoryStream, error) {
	if !v.features.SecureDirectoryStreams {
		return nil, vfserr.NewError(vfserr.UnsupportedOperation, "open-secure-directory-stream", p.String())
	}
	if err := v.checkOpen("open-secure-directory-stream"); err != nil {
		return nil, err
	}
	in, err := v.tree.Lookup(v.start(), p, tree.Follow)
	if err != nil {
		return nil, err
	}
	if !in.IsDirectory() {
		return nil, vfserr.NewError(vfserr.NotADirectory, "open-secure-directory-stream", p.String())
	}
	return dirstream.NewSecure(v.tree, v.ps, in, p, filter), nil
}

////////////////////////////////////////////////////////////////////////
// Attributes
////////////////////////////////////////////////////////////////////////

// GetAttributeView returns a handle bound to the inode at p for reading
// and writing the named view's attributes.
func (v *FileSystemView) GetAttributeView(p pathutil.Path, view string, follow tree.FollowMode) (*inode.AttributeView, error) {
	if err := v.checkOpen("get-attribute-view"); err != nil {
		return nil, err
	}
	in, err := v.tree.Lookup(v.start(), p, follow)
	if err != nil {
		return nil, err
	}
	return v.tree.Attributes().View(in, view)
}

// ReadAttributes reads every attribute selector names (a single
// registered view, or "*" for all registered views) from the inode at p.
func (v *FileSystemView) ReadAttributes(p pathutil.Path, selector string, follow tree.FollowMode) (map[string]interface{}, error) {
	if err := v.checkOpen("read-attributes"); err != nil {
		return nil, err
	}
	in, err := v.tree.Lookup(v.start(), p, follow)
	if err != nil {
		return nil, err
	}
	return v.tree.Attributes().ReadAttributes(in, selector)
}

// SetGroup sets the "posix:group" attribute of the inode at p, gated by the
// Groups feature: a filesystem configured without group
// principals (e.g. WindowsConfiguration, which has no "posix" view at all)
// rejects this with UNSUPPORTED_OPERATION rather than silently no-op'ing.
func (v *FileSystemView) SetGroup(p pathutil.Path, group string, follow tree.FollowMode) error {
	if !v.features.Groups {
		return vfserr.NewError(vfserr.UnsupportedOperation, "set-group", p.String())
	}
	view, err := v.GetAttributeView(p, "posix", follow)
	if err != nil {
		return err
	}
	return view.Set("group", group)
}

// GrantEphemeralAccess appends an ACL entry to the inode at p for a freshly
// minted principal (inode.NewPrincipal) rather than an existing login or
// group name, and returns that principal so the caller can hand it to
// whatever one-off delegate it was minted for. Used for capability-style
// grants that have no standing identity to attach to.
func (v *FileSystemView) GrantEphemeralAccess(p pathutil.Path, typ inode.AclEntryType, perms inode.PermissionSet, flags inode.AclFlag, follow tree.FollowMode) (string, error) {
	view, err := v.GetAttributeView(p, "acl", follow)
	if err != nil {
		return "", err
	}
	current, err := view.Get("acl")
	if err != nil {
		return "", err
	}
	entries, _ := current.([]inode.AclEntry)

	principal := inode.NewPrincipal()
	entries = append(entries, inode.AclEntry{
		Type:        typ,
		Flags:       flags,
		Permissions: perms,
		Principal:   principal,
	})
	if err := view.Set("acl", entries); err != nil {
		return "", err
	}
	return principal, nil
}

////////////////////////////////////////////////////////////////////////
// Watch
////////////////////////////////////////////////////////////////////////

// Register registers p (which must be a directory) for change
// notification.
func (v *FileSystemView) Register(p pathutil.Path, events []watch.EventKind) (*watch.WatchKey, error) {
	if err := v.checkOpen("register"); err != nil {
		return nil, err
	}
	in, err := v.tree.Lookup(v.start(), p, tree.Follow)
	if err != nil {
		return nil, err
	}
	if !in.IsDirectory() {
		return nil, vfserr.NewError(vfserr.NotADirectory, "register", p.String())
	}
	return v.watch.Register(in, events)
}

// PollNow forces a single synchronous watch poll pass, bypassing the
// background ticker. Production callers have no need for it; it exists so
// tests can observe change-notification events without sleeping for the
// configured poll interval.
func (v *FileSystemView) PollNow() {
	v.watch.PollNow()
}

////////////////////////////////////////////////////////////////////////
// Lifecycle
////////////////////////////////////////////////////////////////////////

// Close invalidates this view: subsequent operations fail
// FILESYSTEM_CLOSED, every channel opened via OpenChannel/OpenAsyncChannel
// and still open is forced into FILESYSTEM_CLOSED, and the watch
// service's background worker and all its keys are stopped/cancelled, per
// spec section 5 ("closing the filesystem invalidates all open channels
// and watch keys").
func (v *FileSystemView) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	channels := v.channels
	v.channels = nil
	v.mu.Unlock()

	for c := range channels {
		c.Invalidate()
	}

	return v.watch.Close()
}
