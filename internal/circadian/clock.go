package circadian

import "fmt"

// Clock is a self-synchronizing time-of-day clock.
// Not safe for concurrent use; the caller must synchronize.
type Clock struct {
	pin       int
	threshold int
	millis    func() uint32
	read      func(pin int) (int, error)

	state      State
	tripTime   int
	lastSample int

	offsetDawn int
	offsetDusk int
	offset     int
	lastOffset int

	// last good
	offsetDawnLG int
	offsetDuskLG int
	offsetLG     int

	triggerNow  int
	triggerLast int

	lastSync      uint32
	lastGoodSync  uint32
	isInSyncNow   bool
	isInSync      bool
	updateOffsets bool

	// tick source
	tickPrev uint32
	tickAcc  uint32
}

// New creates a Clock in the GUESS state. cfg.Millis must be set.
func New(cfg Config) *Clock {
	return &Clock{
		pin:       cfg.Pin,
		threshold: cfg.Threshold,
		millis:    cfg.Millis,
		read:      cfg.Read,
		state:     StateGuess,
	}
}

// SampleSensor reads the light level through Config.Read and feeds it to
// Sample. The clock is left untouched if the read fails.
func (c *Clock) SampleSensor() (*Transition, error) {
	if c.read == nil {
		return nil, fmt.Errorf("circadian: no sensor read function configured")
	}
	v, err := c.read(c.pin)
	if err != nil {
		return nil, fmt.Errorf("read light sensor pin %d: %w", c.pin, err)
	}
	return c.Sample(v), nil
}

// Sample processes a light reading. It returns the transition that fired,
// or nil if the day/night state did not change.
func (c *Clock) Sample(value int) *Transition {
	t := c.ticks()

	// trip on threshold crossing
	if (value > c.threshold) != (c.lastSample > c.threshold) {
		c.tripTime = t
	}
	c.lastSample = value

	var tr *Transition
	switch c.state {
	case StateGuess:
		tr = c.bootstrap(t, value > c.threshold)
	case StateNight:
		if value > c.threshold && c.sinceTrip(t) >= MinTripTime {
			c.offsetDawn = c.tripTime
			tr = c.transition(StateDay)
		}
	case StateDay:
		if value <= c.threshold && c.sinceTrip(t) >= MinTripTime {
			c.offsetDusk = c.tripTime
			tr = c.transition(StateNight)
		}
	}

	// refresh last good offsets after learned midnight
	if c.updateOffsets && c.IsInNow(0, MidnightWindow) {
		c.updateOffsets = false
		c.refreshLastGood()
	}
	return tr
}

// bootstrap leaves the GUESS state assuming it is either noon or midnight.
func (c *Clock) bootstrap(t int, light bool) *Transition {
	if light {
		// dawn was six hours ago
		c.state = StateDay
		c.offsetDawn = wrap(t - DayTime(6, 0, 0))
	} else {
		c.state = StateNight
		c.offsetDawn = wrap(t + DayTime(6, 0, 0))
	}
	c.offsetDusk = wrap(c.offsetDawn + DayTime(12, 0, 0))
	c.offsetDawnLG = c.offsetDawn
	c.offsetDuskLG = c.offsetDusk

	c.sync()
	// a bootstrap is never stable
	c.isInSyncNow = false
	c.isInSync = false
	c.offsetLG = c.offset
	c.lastOffset = c.offset

	c.triggerNow = c.Time()
	c.triggerLast = c.triggerNow

	return &Transition{
		From:      StateGuess,
		To:        c.state,
		TripTime:  c.tripTime,
		At:        c.triggerNow,
		Offset:    c.offset,
		Bootstrap: true,
	}
}

func (c *Clock) transition(to State) *Transition {
	from := c.state
	c.state = to
	c.sync()
	return &Transition{
		From:      from,
		To:        to,
		TripTime:  c.tripTime,
		At:        wrap(c.tripTime - c.offsetLG),
		Offset:    c.offset,
		InSyncNow: c.isInSyncNow,
		InSync:    c.isInSync,
	}
}

func (c *Clock) sinceTrip(t int) int {
	return wrap(t - c.tripTime)
}

func (c *Clock) refreshLastGood() {
	c.offsetDawnLG = c.offsetDawn
	c.offsetDuskLG = c.offsetDusk
	c.offsetLG = c.offset
}

// State returns the current day/night classification.
func (c *Clock) State() State {
	return c.state
}

// SampleValue returns the most recent light reading.
func (c *Clock) SampleValue() int {
	return c.lastSample
}

// InSync reports whether a stable sync happened within the last 28 days.
func (c *Clock) InSync() bool {
	return c.isInSync
}

// InSyncNow reports whether the most recent sync was stable.
func (c *Clock) InSyncNow() bool {
	return c.isInSyncNow
}

// Time returns the current time of day in day-seconds, using the last good
// offsets.
func (c *Clock) Time() int {
	return wrap(c.ticks() - c.offsetLG)
}

// TimeDawn returns the time of day of the last good dawn.
func (c *Clock) TimeDawn() int {
	return wrap(c.offsetDawnLG - c.offsetLG)
}

// TimeDusk returns the time of day of the last good dusk.
func (c *Clock) TimeDusk() int {
	return wrap(c.offsetDuskLG - c.offsetLG)
}

// IsIn reports whether n lies in the half-open circular arc [t, u).
// All arguments are reduced onto the day circle. The arc is empty when t == u.
func (c *Clock) IsIn(n, t, u int) bool {
	return IsIn(n, t, u)
}

// IsInNow reports whether Time() lies in [t, u).
func (c *Clock) IsInNow(t, u int) bool {
	return IsIn(c.Time(), t, u)
}

// IsIn reports whether n lies in the half-open circular arc [t, u).
func IsIn(n, t, u int) bool {
	n, t, u = wrap(n), wrap(t), wrap(u)
	if t == u {
		return false
	}
	if t < u {
		return n >= t && n < u
	}
	return n < u || n >= t
}

// Snapshot returns a copy of the internal state.
func (c *Clock) Snapshot() Snapshot {
	return Snapshot{
		State:        c.state,
		LastSample:   c.lastSample,
		TripTime:     c.tripTime,
		OffsetDawn:   c.offsetDawn,
		OffsetDusk:   c.offsetDusk,
		Offset:       c.offset,
		LastOffset:   c.lastOffset,
		OffsetDawnLG: c.offsetDawnLG,
		OffsetDuskLG: c.offsetDuskLG,
		OffsetLG:     c.offsetLG,
		TriggerLast:  c.triggerLast,
		TriggerNow:   c.triggerNow,
		LastSync:     c.lastSync,
		LastGoodSync: c.lastGoodSync,
		InSyncNow:    c.isInSyncNow,
		InSync:       c.isInSync,
		UpdateLG:     c.updateOffsets,
	}
}
