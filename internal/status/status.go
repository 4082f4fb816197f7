// Package status provides a thread-safe status tracker for the circadian-clock daemon.
// It is read by HTTP handlers, the heartbeat publisher and the metrics collector.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/circadian-clock/internal/circadian"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	Pin         int
	Threshold   int
}

// ClockState is the clock as seen from outside at one instant.
type ClockState struct {
	Internals circadian.Snapshot
	Time      int
	Dawn      int
	Dusk      int
	SyncDiff  int
}

// ReadClock captures the state of c.
func ReadClock(c *circadian.Clock) ClockState {
	return ClockState{
		Internals: c.Snapshot(),
		Time:      c.Time(),
		Dawn:      c.TimeDawn(),
		Dusk:      c.TimeDusk(),
		SyncDiff:  c.SyncDiff(),
	}
}

// Counts tracks the number of clock events since startup.
type Counts struct {
	Dawns    int
	Dusks    int
	Triggers int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Clock         ClockState
	Ready         bool // at least one sample has been taken
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu            sync.RWMutex
	snap          Snapshot
	lastHeartbeat time.Time
	now           func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		lastHeartbeat: startTime,
		now:           time.Now,
	}
}

// SetClock stores the latest clock state.
// Called from the poll loop on every tick.
func (t *Tracker) SetClock(cs ClockState) {
	t.mu.Lock()
	t.snap.Clock = cs
	t.snap.Ready = true
	t.mu.Unlock()
}

// CountTransition records a dawn or dusk detection.
func (t *Tracker) CountTransition(to circadian.State) {
	t.mu.Lock()
	switch to {
	case circadian.StateDay:
		t.snap.Counts.Dawns++
	case circadian.StateNight:
		t.snap.Counts.Dusks++
	}
	t.mu.Unlock()
}

// CountTrigger records a schedule entry firing.
func (t *Tracker) CountTrigger() {
	t.mu.Lock()
	t.snap.Counts.Triggers++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// CheckHeartbeat reports whether interval has elapsed since the last
// heartbeat (or startup), and if so records now as the last heartbeat.
// Always false before the first sample or when interval is <= 0.
func (t *Tracker) CheckHeartbeat(now time.Time, interval time.Duration) bool {
	if interval <= 0 {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.snap.Ready || now.Sub(t.lastHeartbeat) < interval {
		return false
	}
	t.lastHeartbeat = now
	return true
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	now := t.now
	t.mu.RUnlock()
	s.Now = now()
	return s
}
