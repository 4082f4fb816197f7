// Package circadian implements a time-of-day clock that synchronizes itself
// from day/night transitions seen by an ambient light sensor.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// The millisecond counter and the sensor read are injected via Config.
package circadian

import "fmt"

// Day-second constants. All day-second values are in [0, TicksPerDay).
const (
	TicksPerDay = 86400

	// MinTripTime is how long the light level must stay on one side of the
	// threshold before the state can change.
	MinTripTime = 4 * 60

	// MaxSyncDiff is the allowed difference between successive offsets for a
	// sync to count as stable.
	MaxSyncDiff = 15 * 60

	// TriggerLockout is the window during which DoTriggers refuses to move
	// the trigger cursors.
	TriggerLockout = TicksPerDay / 2

	// TriggerLockoutMs is TriggerLockout expressed in milliseconds.
	TriggerLockoutMs = TriggerLockout * 1000

	// MidnightWindow is the length of the window after learned midnight in
	// which the last-good offsets are refreshed.
	MidnightWindow = 15 * 60
)

const (
	msPerDay           = 86400000
	syncMaxAgeMs       = msPerDay
	staleSyncHorizonMs = 28 * msPerDay
)

// State is the day/night classification of the clock.
type State int

const (
	StateNight State = iota
	StateDay
	StateGuess
)

func (s State) String() string {
	switch s {
	case StateNight:
		return "NIGHT"
	case StateDay:
		return "DAY"
	case StateGuess:
		return "GUESS"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Config holds the host-supplied capabilities of a Clock.
type Config struct {
	// Pin identifies the light sensor passed to Read.
	Pin int
	// Threshold is the light level above which it is considered day.
	Threshold int
	// Millis returns a free-running millisecond counter. It may wrap.
	Millis func() uint32
	// Read returns the current light level from the sensor on pin.
	// Only needed for SampleSensor.
	Read func(pin int) (int, error)
}

// Transition describes a day/night state change detected by Sample.
type Transition struct {
	From State
	To   State
	// TripTime is the tick at which the light crossed the threshold.
	TripTime int
	// At is the time of day of the crossing as read after the sync.
	At int
	// Offset is the new live offset computed by the sync.
	Offset    int
	InSyncNow bool
	InSync    bool
	// Bootstrap is set for the initial GUESS transition.
	Bootstrap bool
}

// Snapshot is a copy of the clock's internal state.
type Snapshot struct {
	State        State
	LastSample   int
	TripTime     int
	OffsetDawn   int
	OffsetDusk   int
	Offset       int
	LastOffset   int
	OffsetDawnLG int
	OffsetDuskLG int
	OffsetLG     int
	TriggerLast  int
	TriggerNow   int
	LastSync     uint32
	LastGoodSync uint32
	InSyncNow    bool
	InSync       bool
	UpdateLG     bool
}

// DayTime returns the day-second for h:m:s.
func DayTime(h, m, s int) int {
	return wrap(h*3600 + m*60 + s)
}

// Hour returns the hour of day-second t.
func Hour(t int) int { return t / 3600 }

// Minute returns the minute within the hour of day-second t.
func Minute(t int) int { return t / 60 % 60 }

// Second returns the second within the minute of day-second t.
func Second(t int) int { return t % 60 }

// FormatDayTime formats day-second t as HH:MM:SS.
func FormatDayTime(t int) string {
	t = wrap(t)
	return fmt.Sprintf("%02d:%02d:%02d", Hour(t), Minute(t), Second(t))
}

// wrap reduces t onto the day circle, including negative values.
func wrap(t int) int {
	t %= TicksPerDay
	if t < 0 {
		t += TicksPerDay
	}
	return t
}
