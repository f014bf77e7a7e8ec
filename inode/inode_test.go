package inode_test

import (
	"testing"

	"github.com/google/gomemfs/inode"
	"github.com/google/gomemfs/pathutil"
	. "github.com/jacobsa/ogletest"
)

func TestInode(t *testing.T) { RunTests(t) }

type InodeTest struct {
	clock *fakeClock
}

func init() { RegisterTestSuite(&InodeTest{}) }

func (t *InodeTest) SetUp(ti *TestInfo) {
	t.clock = newFakeClock()
}

func (t *InodeTest) DeferredDeletionUntilLastHandleCloses() {
	f := inode.New(1, inode.Regular, t.clock, 0, pathutil.Path{})
	f.IncrementLinks()
	f.AcquireHandle()

	f.DecrementLinks()
	ExpectFalse(f.Released())

	f.ReleaseHandle()
	ExpectTrue(f.Released())
}

func (t *InodeTest) UnlinkWithNoOpenHandlesReleasesImmediately() {
	f := inode.New(1, inode.Regular, t.clock, 0, pathutil.Path{})
	f.IncrementLinks()

	f.DecrementLinks()
	f.MaybeReleaseIfUnreferenced()
	ExpectTrue(f.Released())
}

func (t *InodeTest) AttributesRoundTrip() {
	f := inode.New(1, inode.Regular, t.clock, 0, pathutil.Path{})

	_, ok := f.GetAttribute("basic", "size")
	ExpectFalse(ok)

	f.SetAttribute("owner", "owner", "alice")
	v, ok := f.GetAttribute("owner", "owner")
	AssertTrue(ok)
	ExpectEq("alice", v)

	f.DeleteAttribute("owner", "owner")
	_, ok = f.GetAttribute("owner", "owner")
	ExpectFalse(ok)
}

func (t *InodeTest) ModifiedTimeAdvancesOnNotify() {
	f := inode.New(1, inode.Regular, t.clock, 0, pathutil.Path{})
	before := f.ModifiedTime()

	f.NotifyModified()
	after := f.ModifiedTime()
	ExpectTrue(after > before)
}
