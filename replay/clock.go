package replay

import (
	"sync/atomic"
	"time"
)

// Clock reports demo time as wall time: a fixed base plus the parser's
// current offset. A session built with WithClock(clock.Now) then measures
// streak gaps and playtime in demo time.
type Clock struct {
	base   time.Time
	offset atomic.Int64
}

func NewClock(base time.Time) *Clock { return &Clock{base: base} }

func (c *Clock) Now() time.Time { return c.base.Add(time.Duration(c.offset.Load())) }

// Set moves the clock to base+d. The clock never runs backwards.
func (c *Clock) Set(d time.Duration) {
	for {
		cur := c.offset.Load()
		if int64(d) <= cur || c.offset.CompareAndSwap(cur, int64(d)) {
			return
		}
	}
}
