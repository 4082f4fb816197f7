package internal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sweeney/circadian-clock/internal/circadian"
	"github.com/sweeney/circadian-clock/internal/metrics"
	"github.com/sweeney/circadian-clock/internal/mqtt"
	"github.com/sweeney/circadian-clock/internal/schedule"
	"github.com/sweeney/circadian-clock/internal/sensor"
	"github.com/sweeney/circadian-clock/internal/status"
)

const threshold = 500

// daylight is lit between 06:00 and 18:00 wall time.
func daylight(t time.Time) bool {
	return t.Hour() >= 6 && t.Hour() < 18
}

// sim mirrors the daemon poll loop with fakes and a one minute poll.
type sim struct {
	start     time.Time
	reader    *sensor.FakeReader
	clock     *circadian.Clock
	schedule  *schedule.Schedule
	publisher *mqtt.FakePublisher
	tracker   *status.Tracker
	metrics   *metrics.Collector
}

func newSim(t *testing.T, start time.Time, minutes int, lit func(time.Time) bool, defs []schedule.Definition) *sim {
	t.Helper()
	values := make([]int, minutes)
	for i := range values {
		if lit(start.Add(time.Duration(i) * time.Minute)) {
			values[i] = sensor.DefaultHigh
		} else {
			values[i] = sensor.DefaultLow
		}
	}

	sched, err := schedule.Parse(defs)
	if err != nil {
		t.Fatalf("parse schedule: %v", err)
	}

	s := &sim{
		start:     start,
		reader:    sensor.NewFakeReader(values),
		schedule:  sched,
		publisher: mqtt.NewFakePublisher(),
		tracker:   status.NewTracker(start, status.Config{Threshold: threshold}),
		metrics:   metrics.New(prometheus.NewRegistry()),
	}
	var minute uint32
	s.clock = circadian.New(circadian.Config{
		Threshold: threshold,
		Millis:    func() uint32 { return minute * 60000 },
		Read:      func(int) (int, error) { return s.reader.Read() },
	})

	for i := 0; i < minutes; i++ {
		minute = uint32(i)
		s.step(t, start.Add(time.Duration(i)*time.Minute))
	}
	return s
}

func (s *sim) step(t *testing.T, now time.Time) {
	tr, err := s.clock.SampleSensor()
	if err != nil {
		t.Fatalf("%s: sample: %v", now.Format(time.Kitchen), err)
	}
	if tr != nil {
		typ := mqtt.EventBootstrap
		if !tr.Bootstrap {
			s.tracker.CountTransition(tr.To)
			typ = mqtt.EventDawn
			if tr.To == circadian.StateNight {
				typ = mqtt.EventDusk
			}
		}
		s.metrics.ObserveTransition(tr)
		s.publish(t, mqtt.ClockEvent{Timestamp: now, Type: typ, DayTime: tr.At})
	}
	if s.clock.DoTriggers() {
		for _, e := range s.schedule.Due(s.clock) {
			s.tracker.CountTrigger()
			s.metrics.ObserveTrigger(e.Name)
			s.publish(t, mqtt.ClockEvent{Timestamp: now, Type: mqtt.EventTrigger, Name: e.Name, DayTime: e.Expr.Resolve(s.clock)})
		}
	}
	s.tracker.SetClock(status.ReadClock(s.clock))
	s.metrics.Update(s.tracker.Snapshot())
}

func (s *sim) publish(t *testing.T, ev mqtt.ClockEvent) {
	ev.InSync = s.clock.InSync()
	ev.InSyncNow = s.clock.InSyncNow()
	if err := s.publisher.Publish(ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
}

// eventsOn returns the published events whose wall time falls on day.
func (s *sim) eventsOn(day time.Time) []mqtt.ClockEvent {
	var out []mqtt.ClockEvent
	for _, ev := range s.publisher.Events {
		if ev.Timestamp.YearDay() == day.YearDay() {
			out = append(out, ev)
		}
	}
	return out
}

// TestIntegrationLearnsDay runs four days of 06:00-18:00 daylight starting at
// 10:00. The second dusk is the first stable sync; after that the learned
// time of day equals wall time and every event lands once per day.
func TestIntegrationLearnsDay(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	s := newSim(t, start, int(end.Sub(start)/time.Minute), daylight, []schedule.Definition{
		{Name: "morning", At: "07:00"},
		{Name: "porch", At: "@dusk + 30m"},
		{Name: "wake", At: "@dawn - 15m"},
	})

	if !s.clock.InSync() || !s.clock.InSyncNow() {
		t.Fatalf("clock should be in sync: in_sync=%v in_sync_now=%v", s.clock.InSync(), s.clock.InSyncNow())
	}
	if got, want := s.clock.TimeDawn(), circadian.DayTime(6, 0, 0); got != want {
		t.Errorf("learned dawn: got %s, want %s", circadian.FormatDayTime(got), circadian.FormatDayTime(want))
	}
	if got, want := s.clock.TimeDusk(), circadian.DayTime(18, 0, 0); got != want {
		t.Errorf("learned dusk: got %s, want %s", circadian.FormatDayTime(got), circadian.FormatDayTime(want))
	}
	// last sample was 23:59
	if got, want := s.clock.Time(), circadian.DayTime(23, 59, 0); got != want {
		t.Errorf("time: got %s, want %s", circadian.FormatDayTime(got), circadian.FormatDayTime(want))
	}

	type want struct {
		typ  mqtt.EventType
		name string
		at   int
		wall string
	}
	expected := []want{
		{mqtt.EventTrigger, "wake", circadian.DayTime(5, 45, 0), "05:45"},
		{mqtt.EventDawn, "", circadian.DayTime(6, 0, 0), "06:04"},
		{mqtt.EventTrigger, "morning", circadian.DayTime(7, 0, 0), "07:00"},
		{mqtt.EventDusk, "", circadian.DayTime(18, 0, 0), "18:04"},
		{mqtt.EventTrigger, "porch", circadian.DayTime(18, 30, 0), "18:30"},
	}

	for _, day := range []time.Time{
		time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
	} {
		events := s.eventsOn(day)
		if len(events) != len(expected) {
			t.Fatalf("%s: got %d events, want %d: %+v", day.Format("Jan 2"), len(events), len(expected), events)
		}
		for i, w := range expected {
			ev := events[i]
			if ev.Type != w.typ || ev.Name != w.name {
				t.Errorf("%s event %d: got %s %q, want %s %q", day.Format("Jan 2"), i, ev.Type, ev.Name, w.typ, w.name)
			}
			if ev.DayTime != w.at {
				t.Errorf("%s event %d: time got %s, want %s", day.Format("Jan 2"), i, circadian.FormatDayTime(ev.DayTime), circadian.FormatDayTime(w.at))
			}
			if got := ev.Timestamp.Format("15:04"); got != w.wall {
				t.Errorf("%s event %d: published at %s, want %s", day.Format("Jan 2"), i, got, w.wall)
			}
			if !ev.InSync {
				t.Errorf("%s event %d: expected in_sync", day.Format("Jan 2"), i)
			}
		}
	}

	counts := s.tracker.Snapshot().Counts
	if counts.Dawns != 3 || counts.Dusks != 4 {
		t.Errorf("counts: got %+v, want 3 dawns 4 dusks", counts)
	}
	if got := testutil.ToFloat64(s.metrics.InSync); got != 1 {
		t.Errorf("in_sync gauge: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(s.metrics.Triggers.WithLabelValues("morning")); got < 2 {
		t.Errorf("morning triggers metric: got %v, want at least 2", got)
	}
}

func TestIntegrationFirstEventIsBootstrap(t *testing.T) {
	start := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	s := newSim(t, start, 10, daylight, nil)

	types := s.publisher.EventTypes()
	if len(types) != 1 || types[0] != mqtt.EventBootstrap {
		t.Fatalf("events: got %v, want [BOOTSTRAP]", types)
	}
	// dark start guesses midnight
	if got := s.publisher.Events[0].DayTime; got != 0 {
		t.Errorf("bootstrap time: got %s, want 00:00:00", circadian.FormatDayTime(got))
	}
	if s.publisher.Events[0].InSync {
		t.Error("bootstrap must not be in sync")
	}
}

// TestIntegrationLampLeftOn never sees a dusk. The clock free-runs from the
// noon guess and fires fixed entries once per 24 hours.
func TestIntegrationLampLeftOn(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := newSim(t, start, 2*24*60, func(time.Time) bool { return true }, []schedule.Definition{
		{Name: "one", At: "13:00"},
	})

	var triggers int
	for _, ev := range s.publisher.Events {
		switch ev.Type {
		case mqtt.EventTrigger:
			triggers++
		case mqtt.EventDawn, mqtt.EventDusk:
			t.Errorf("unexpected %s", ev.Type)
		}
	}
	if triggers != 2 {
		t.Errorf("triggers: got %d, want 2", triggers)
	}
	if s.clock.InSync() {
		t.Error("clock should never sync without transitions")
	}
}

func TestIntegrationStatusJSON(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
	s := newSim(t, start, int(end.Sub(start)/time.Minute), daylight, nil)

	var body struct {
		Status struct {
			State  string `json:"state"`
			Time   string `json:"time"`
			Dawn   string `json:"dawn"`
			Dusk   string `json:"dusk"`
			InSync bool   `json:"in_sync"`
			Ready  bool   `json:"ready"`
		} `json:"status"`
	}
	if err := json.Unmarshal(status.FormatJSON(s.tracker.Snapshot()), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	st := body.Status
	if st.State != "DAY" || st.Time != "11:59:00" || st.Dawn != "06:00:00" || st.Dusk != "18:00:00" {
		t.Errorf("status: got %+v", st)
	}
	if !st.InSync || !st.Ready {
		t.Errorf("status flags: got %+v", st)
	}
}
