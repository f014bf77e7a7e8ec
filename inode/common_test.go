package inode_test

import "time"

// fakeClock is a minimal timeutil.Clock for tests that don't care about
// wall-clock behavior, only that Now() returns something monotonic
// enough to stamp inode timestamps.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Millisecond)
	return c.now
}
