package vfschan_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/gomemfs/inode"
	"github.com/google/gomemfs/pathutil"
	"github.com/google/gomemfs/vfschan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1000000, 0)} }

func newRegularInode() *inode.Inode {
	return inode.New(1, inode.Regular, newFakeClock(), 0, pathutil.Path{})
}

func TestSeekableChannelWriteThenReadRoundTrips(t *testing.T) {
	ch, err := vfschan.NewSeekableByteChannel(newRegularInode(), vfschan.OpenOptions{Read: true, Write: true})
	require.NoError(t, err)

	n, err := ch.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	require.NoError(t, ch.SetPosition(0))
	buf := make([]byte, 5)
	n, err = ch.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))
}

func TestSeekableChannelAppendIgnoresPosition(t *testing.T) {
	ch, err := vfschan.NewSeekableByteChannel(newRegularInode(), vfschan.OpenOptions{Write: true, Append: true})
	require.NoError(t, err)

	_, err = ch.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, ch.SetPosition(0))
	_, err = ch.Write([]byte{4, 5})
	require.NoError(t, err)

	size, err := ch.Size()
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)
}

func TestSeekableChannelClosedFailsAllOps(t *testing.T) {
	ch, err := vfschan.NewSeekableByteChannel(newRegularInode(), vfschan.OpenOptions{Read: true, Write: true})
	require.NoError(t, err)
	require.NoError(t, ch.Close())

	_, err = ch.Read(make([]byte, 1))
	require.Error(t, err)
	_, err = ch.Write([]byte{1})
	require.Error(t, err)
}

func TestSeekableChannelRequiresReadFlag(t *testing.T) {
	ch, err := vfschan.NewSeekableByteChannel(newRegularInode(), vfschan.OpenOptions{Write: true})
	require.NoError(t, err)

	_, err = ch.Read(make([]byte, 1))
	require.Error(t, err)
}

func TestAsyncChannelWriteThenRead(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ch := vfschan.NewAsyncFileChannel(newRegularInode(), vfschan.OpenOptions{Read: true, Write: true}, vfschan.GoroutineExecutor{})

	writeFut := ch.WriteAt(0, []byte("async"))
	n, err := writeFut.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 5)
	readFut := ch.ReadAt(0, buf)
	n, err = readFut.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "async", string(buf))
}

// blockingExecutor defers running fn until block is closed, so a test can
// call Future.Cancel before the operation actually starts.
type blockingExecutor struct{ block chan struct{} }

func (e blockingExecutor) Submit(fn func()) {
	go func() {
		<-e.block
		fn()
	}()
}

func TestAsyncChannelCancelBeforeStartSkipsOperation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	block := make(chan struct{})
	ch := vfschan.NewAsyncFileChannel(newRegularInode(), vfschan.OpenOptions{Write: true}, blockingExecutor{block: block})

	fut := ch.WriteAt(0, []byte("x"))
	assert.True(t, fut.Cancel())
	close(block)

	_, err := fut.Wait(ctx)
	require.Error(t, err)
}

func TestAsyncChannelRequiresWriteFlag(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ch := vfschan.NewAsyncFileChannel(newRegularInode(), vfschan.OpenOptions{Read: true}, vfschan.GoroutineExecutor{})
	_, err := ch.WriteAt(0, []byte{1}).Wait(ctx)
	require.Error(t, err)
}
