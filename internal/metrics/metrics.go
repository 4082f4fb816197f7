// Package metrics exposes the clock state as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sweeney/circadian-clock/internal/circadian"
	"github.com/sweeney/circadian-clock/internal/status"
)

// Collector holds the clock metrics.
type Collector struct {
	TimeOfDay   prometheus.Gauge
	Dawn        prometheus.Gauge
	Dusk        prometheus.Gauge
	InSync      prometheus.Gauge
	InSyncNow   prometheus.Gauge
	SyncDiff    prometheus.Gauge
	Light       prometheus.Gauge
	Transitions *prometheus.CounterVec
	Triggers    *prometheus.CounterVec
}

// New registers the clock metrics on reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		TimeOfDay: f.NewGauge(prometheus.GaugeOpts{
			Name: "circadian_time_of_day_seconds",
			Help: "Learned time of day in seconds since midnight",
		}),
		Dawn: f.NewGauge(prometheus.GaugeOpts{
			Name: "circadian_dawn_seconds",
			Help: "Time of day of the last good dawn",
		}),
		Dusk: f.NewGauge(prometheus.GaugeOpts{
			Name: "circadian_dusk_seconds",
			Help: "Time of day of the last good dusk",
		}),
		InSync: f.NewGauge(prometheus.GaugeOpts{
			Name: "circadian_in_sync",
			Help: "1 if a stable sync happened within the last 28 days",
		}),
		InSyncNow: f.NewGauge(prometheus.GaugeOpts{
			Name: "circadian_in_sync_now",
			Help: "1 if the most recent sync was stable",
		}),
		SyncDiff: f.NewGauge(prometheus.GaugeOpts{
			Name: "circadian_sync_diff_seconds",
			Help: "Forward distance between the last two offset estimates",
		}),
		Light: f.NewGauge(prometheus.GaugeOpts{
			Name: "circadian_light_level",
			Help: "Most recent light sensor reading",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "circadian_transitions_total",
			Help: "Day/night transitions by target state",
		}, []string{"to"}),
		Triggers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "circadian_triggers_total",
			Help: "Schedule entries fired by name",
		}, []string{"name"}),
	}
}

// Update sets the gauges from a status snapshot.
func (c *Collector) Update(snap status.Snapshot) {
	cs := snap.Clock
	c.TimeOfDay.Set(float64(cs.Time))
	c.Dawn.Set(float64(cs.Dawn))
	c.Dusk.Set(float64(cs.Dusk))
	c.InSync.Set(boolValue(cs.Internals.InSync))
	c.InSyncNow.Set(boolValue(cs.Internals.InSyncNow))
	c.SyncDiff.Set(float64(cs.SyncDiff))
	c.Light.Set(float64(cs.Internals.LastSample))
}

// ObserveTransition counts a state change.
func (c *Collector) ObserveTransition(tr *circadian.Transition) {
	c.Transitions.WithLabelValues(tr.To.String()).Inc()
}

// ObserveTrigger counts a schedule entry firing.
func (c *Collector) ObserveTrigger(name string) {
	c.Triggers.WithLabelValues(name).Inc()
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
