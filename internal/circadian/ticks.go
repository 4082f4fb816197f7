package circadian

// ticks returns the internal clock in seconds modulo one day.
// The delta is taken with uint32 subtraction so a wrapping host counter is
// transparent.
func (c *Clock) ticks() int {
	now := c.millis()
	delta := now - c.tickPrev
	c.tickAcc = uint32((uint64(c.tickAcc) + uint64(delta)) % msPerDay)
	c.tickPrev = now
	return int(c.tickAcc / 1000)
}
