package circadian

// DoTriggers advances the trigger window to the current time. It returns
// false, leaving the window unchanged, while Time() lies within the 12 hour
// lockout behind the window end.
func (c *Clock) DoTriggers() bool {
	t := c.Time()
	if IsIn(t, c.triggerNow-TriggerLockout+1, c.triggerNow+1) {
		return false
	}
	c.triggerLast = c.triggerNow
	c.triggerNow = t
	return true
}

// Trigger reports whether t lies in the window (triggerLast, triggerNow]
// established by the last successful DoTriggers.
func (c *Clock) Trigger(t int) bool {
	return IsIn(t, c.triggerLast+1, c.triggerNow+1)
}

// TriggerDawn is Trigger(TimeDawn() + dt).
func (c *Clock) TriggerDawn(dt int) bool {
	return c.Trigger(c.TimeDawn() + dt)
}

// TriggerDusk is Trigger(TimeDusk() + dt).
func (c *Clock) TriggerDusk(dt int) bool {
	return c.Trigger(c.TimeDusk() + dt)
}
