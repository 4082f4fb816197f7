package circadian

// sync recomputes the offset from the current dawn and dusk and updates the
// in-sync bookkeeping.
func (c *Clock) sync() {
	c.lastOffset = c.offset
	if c.offsetDawn > c.offsetDusk {
		c.offset = wrap(c.offsetDusk + (c.offsetDawn-c.offsetDusk)/2)
	} else {
		c.offset = wrap(c.offsetDusk + (c.offsetDawn+TicksPerDay-c.offsetDusk)/2)
	}

	sd := c.SyncDiff()
	m := c.millis()
	c.isInSyncNow = (sd < MaxSyncDiff || sd > TicksPerDay-MaxSyncDiff) && m-c.lastSync < syncMaxAgeMs
	c.lastSync = m
	if c.isInSyncNow {
		c.lastGoodSync = c.lastSync
	}

	if !c.isInSync && !c.isInSyncNow {
		// never stable: expose the estimate immediately
		c.refreshLastGood()
	}
	if c.isInSyncNow {
		c.updateOffsets = true
	}

	if m-c.lastGoodSync < staleSyncHorizonMs {
		c.isInSync = c.isInSync || c.isInSyncNow
	} else {
		c.isInSync = false
	}
}

// SyncDiff returns the forward distance from the previous offset to the
// current one.
func (c *Clock) SyncDiff() int {
	return wrap(c.offset - c.lastOffset)
}
