package clock

import "time"

// FakeClock is a manually advanced Clock for tests. Time only moves when
// Advance is called, which keeps lease timestamps, finishAt comparisons and
// generation periods deterministic.
type FakeClock struct {
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the fake clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
