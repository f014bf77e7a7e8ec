package dirstream_test

import (
	"testing"
	"time"

	"github.com/google/gomemfs/dirstream"
	"github.com/google/gomemfs/inode"
	"github.com/google/gomemfs/pathutil"
	"github.com/google/gomemfs/tree"
	"github.com/google/gomemfs/vfschan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func newAttrService() *inode.Service {
	return inode.NewService(
		inode.BasicProvider{},
		inode.OwnerProvider{},
		inode.PosixProvider{},
		inode.NewUnixProvider(),
	)
}

type harness struct {
	t    *testing.T
	tree *tree.FileTree
	ps   *pathutil.PathService
	root *inode.Inode
}

func newHarness(t *testing.T) *harness {
	ft := tree.New(newAttrService(), &fakeClock{now: time.Unix(1000000, 0)}, 0, tree.Features{})
	ps := pathutil.NewPathService(pathutil.Unix, nil)
	root, err := ft.AddRoot(ps.Name("/"))
	require.NoError(t, err)
	return &harness{t: t, tree: ft, ps: ps, root: root}
}

func (h *harness) parse(s string) pathutil.Path {
	p, err := h.ps.Parse(s)
	require.NoError(h.t, err)
	return p
}

func TestDirectoryStreamListsSnapshotOfEntries(t *testing.T) {
	h := newHarness(t)
	_, err := h.tree.Create(h.root, h.parse("/a.txt"), inode.Regular, nil)
	require.NoError(t, err)
	_, err = h.tree.Create(h.root, h.parse("/b.txt"), inode.Regular, nil)
	require.NoError(t, err)

	ds := dirstream.New(h.ps, h.root, h.parse("/"), nil)

	// A file created after the snapshot must not appear.
	_, err = h.tree.Create(h.root, h.parse("/c.txt"), inode.Regular, nil)
	require.NoError(t, err)

	next, err := ds.Iterator()
	require.NoError(t, err)

	var names []string
	for {
		p, _, ok := next()
		if !ok {
			break
		}
		names = append(names, p.String())
	}
	assert.ElementsMatch(t, []string{"/a.txt", "/b.txt"}, names)
}

func TestDirectoryStreamIteratorOnlyCallableOnce(t *testing.T) {
	h := newHarness(t)
	ds := dirstream.New(h.ps, h.root, h.parse("/"), nil)

	_, err := ds.Iterator()
	require.NoError(t, err)

	_, err = ds.Iterator()
	require.Error(t, err)
}

func TestDirectoryStreamFilterAppliesLazily(t *testing.T) {
	h := newHarness(t)
	_, err := h.tree.Create(h.root, h.parse("/keep.txt"), inode.Regular, nil)
	require.NoError(t, err)
	_, err = h.tree.Create(h.root, h.parse("/skip.log"), inode.Regular, nil)
	require.NoError(t, err)

	filter := func(n *pathutil.Name) bool {
		s := n.String()
		return len(s) >= 4 && s[len(s)-4:] == ".txt"
	}
	ds := dirstream.New(h.ps, h.root, h.parse("/"), filter)
	next, err := ds.Iterator()
	require.NoError(t, err)

	p, _, ok := next()
	require.True(t, ok)
	assert.Equal(t, "/keep.txt", p.String())

	_, _, ok = next()
	assert.False(t, ok)
}

func TestSecureDirectoryStreamOperationsSurviveDirectoryMove(t *testing.T) {
	h := newHarness(t)
	dir, err := h.tree.Create(h.root, h.parse("/d"), inode.Directory, nil)
	require.NoError(t, err)
	_, err = h.tree.Create(dir, h.parse("file.txt"), inode.Regular, nil)
	require.NoError(t, err)

	sds := dirstream.NewSecure(h.tree, h.ps, dir, h.parse("/d"), nil)

	// Move the directory itself elsewhere; the secure stream is bound to
	// dir's inode, not to "/d", so its operations should still work.
	_, err = h.tree.Create(h.root, h.parse("/parent2"), inode.Directory, nil)
	require.NoError(t, err)
	require.NoError(t, h.tree.Rename(h.root, h.parse("/d"), h.parse("/parent2/d"), tree.RenameOptions{}))

	ch, err := sds.NewByteChannel("file.txt", vfschan.OpenOptions{Read: true})
	require.NoError(t, err)
	require.NoError(t, ch.Close())

	require.NoError(t, sds.DeleteFile("file.txt"))

	_, err = h.tree.Lookup(h.root, h.parse("/parent2/d/file.txt"), tree.Follow)
	require.Error(t, err)
}

func TestSecureDirectoryStreamMoveRenamesWithinDirectory(t *testing.T) {
	h := newHarness(t)
	dir, err := h.tree.Create(h.root, h.parse("/d"), inode.Directory, nil)
	require.NoError(t, err)
	_, err = h.tree.Create(dir, h.parse("old.txt"), inode.Regular, nil)
	require.NoError(t, err)

	sds := dirstream.NewSecure(h.tree, h.ps, dir, h.parse("/d"), nil)
	require.NoError(t, sds.Move("old.txt", "new.txt", tree.RenameOptions{}))

	_, err = h.tree.Lookup(dir, h.parse("new.txt"), tree.Follow)
	require.NoError(t, err)
}

func TestSecureDirectoryStreamGetFileAttributeView(t *testing.T) {
	h := newHarness(t)
	dir, err := h.tree.Create(h.root, h.parse("/d"), inode.Directory, nil)
	require.NoError(t, err)
	_, err = h.tree.Create(dir, h.parse("f.txt"), inode.Regular, nil)
	require.NoError(t, err)

	sds := dirstream.NewSecure(h.tree, h.ps, dir, h.parse("/d"), nil)
	view, err := sds.GetFileAttributeView("f.txt", "basic", tree.Follow)
	require.NoError(t, err)

	v, err := view.Get("isRegularFile")
	require.NoError(t, err)
	assert.Equal(t, true, v)
}
