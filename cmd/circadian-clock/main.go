// Command circadian-clock learns the time of day from an ambient light sensor
// and publishes dawn, dusk and scheduled events to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/circadian-clock/internal/circadian"
	"github.com/sweeney/circadian-clock/internal/config"
	"github.com/sweeney/circadian-clock/internal/metrics"
	"github.com/sweeney/circadian-clock/internal/mqtt"
	"github.com/sweeney/circadian-clock/internal/schedule"
	"github.com/sweeney/circadian-clock/internal/sensor"
	"github.com/sweeney/circadian-clock/internal/status"
	"github.com/sweeney/circadian-clock/internal/web"
)

func main() {
	configPath := flag.String("config", "circadian.yaml", "Path to configuration file")
	printState := flag.Bool("print-state", false, "Print current light level and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	setupLogging(cfg.Log)

	if err := run(cfg, *printState); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

func setupLogging(lc config.LogConfig) {
	zerolog.TimeFieldFormat = time.RFC3339
	if lc.JSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !lc.Colors,
		})
	}
	zerolog.SetGlobalLevel(parseLevel(lc.Level))
}

func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func run(cfg *config.Config, printState bool) error {
	reader, err := sensor.NewRealReader(cfg.Sensor.Chip, cfg.Sensor.Pin, cfg.Sensor.Levels())
	if err != nil {
		return fmt.Errorf("init sensor: %w", err)
	}
	defer reader.Close()

	if printState {
		v, err := reader.Read()
		if err != nil {
			return fmt.Errorf("read sensor: %w", err)
		}
		fmt.Printf("light: %d (%s at threshold %d)\n", v, lightWord(v, cfg.Sensor.Threshold), cfg.Sensor.Threshold)
		return nil
	}

	sched, err := cfg.ParseSchedule()
	if err != nil {
		return fmt.Errorf("schedule: %w", err)
	}

	publisher := mqtt.NewRealPublisher(mqtt.Options{
		Broker:      cfg.MQTT.Broker,
		ClientID:    cfg.MQTT.ClientID,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		BufferSize:  cfg.MQTT.Buffer,
	})
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.Poll.Duration().Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Duration().Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP,
		Pin:         cfg.Sensor.Pin,
		Threshold:   cfg.Sensor.Threshold,
	})

	reg := prometheus.NewRegistry()
	collector := metrics.New(reg)

	startupEvent := mqtt.SystemEvent{
		Timestamp:  time.Now(),
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(tracker.Snapshot(), "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Warn().Err(err).Msg("failed to publish startup event")
	}

	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", cfg.HTTP).Msg("http status server listening")
	}

	log.Info().
		Dur("poll", cfg.Poll.Duration()).
		Int("pin", cfg.Sensor.Pin).
		Int("threshold", cfg.Sensor.Threshold).
		Str("broker", cfg.MQTT.Broker).
		Int("schedule", sched.Len()).
		Msg("started")

	start := time.Now()
	clock := circadian.New(circadian.Config{
		Pin:       cfg.Sensor.Pin,
		Threshold: cfg.Sensor.Threshold,
		Millis:    func() uint32 { return uint32(time.Since(start).Milliseconds()) },
		Read:      func(int) (int, error) { return reader.Read() },
	})

	ticker := time.NewTicker(cfg.Poll.Duration())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		clock:      clock,
		schedule:   sched,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		metrics:    collector,
		heartbeat:  cfg.Heartbeat.Duration(),
		now:        time.Now,
	}
	return l.run(ticker.C, sigCh)
}

// loop drives the clock from the poll ticker.
type loop struct {
	clock      *circadian.Clock
	schedule   *schedule.Schedule
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	metrics    *metrics.Collector
	heartbeat  time.Duration
	now        func() time.Time
}

func (l *loop) run(tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			l.shutdown(s)
			return nil
		case <-tick:
			l.step(l.now())
		}
	}
}

// step takes one sample and resolves any schedule entries that came due.
func (l *loop) step(t time.Time) {
	tr, err := l.clock.SampleSensor()
	if err != nil {
		log.Warn().Err(err).Msg("sensor read error")
		return
	}

	if tr != nil {
		l.onTransition(t, tr)
	}

	if l.clock.DoTriggers() {
		for _, e := range l.schedule.Due(l.clock) {
			l.onTrigger(t, e)
		}
	}

	l.tracker.SetClock(status.ReadClock(l.clock))
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
	snap := l.tracker.Snapshot()
	if l.metrics != nil {
		l.metrics.Update(snap)
	}

	if l.tracker.CheckHeartbeat(t, l.heartbeat) {
		log.Debug().
			Str("time", circadian.FormatDayTime(snap.Clock.Time)).
			Bool("in_sync", snap.Clock.Internals.InSync).
			Int("dawns", snap.Counts.Dawns).
			Int("dusks", snap.Counts.Dusks).
			Msg("heartbeat")
		hb := mqtt.SystemEvent{
			Timestamp:  t,
			Event:      "HEARTBEAT",
			RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
		}
		if err := l.publisher.PublishSystem(hb); err != nil {
			log.Warn().Err(err).Msg("heartbeat publish error")
		}
	}
}

func (l *loop) onTransition(t time.Time, tr *circadian.Transition) {
	eventType := mqtt.EventBootstrap
	if !tr.Bootstrap {
		l.tracker.CountTransition(tr.To)
		eventType = mqtt.EventDawn
		if tr.To == circadian.StateNight {
			eventType = mqtt.EventDusk
		}
	}
	if l.metrics != nil {
		l.metrics.ObserveTransition(tr)
	}

	log.Info().
		Stringer("from", tr.From).
		Stringer("to", tr.To).
		Str("at", circadian.FormatDayTime(tr.At)).
		Int("offset", tr.Offset).
		Bool("in_sync_now", tr.InSyncNow).
		Bool("in_sync", l.clock.InSync()).
		Msg("transition")

	event := mqtt.ClockEvent{
		Timestamp: t,
		Type:      eventType,
		DayTime:   tr.At,
		InSync:    l.clock.InSync(),
		InSyncNow: l.clock.InSyncNow(),
	}
	if err := l.publisher.Publish(event); err != nil {
		log.Warn().Err(err).Str("event", string(eventType)).Msg("publish error")
	}
}

func (l *loop) onTrigger(t time.Time, e schedule.Entry) {
	at := e.Expr.Resolve(l.clock)
	l.tracker.CountTrigger()
	if l.metrics != nil {
		l.metrics.ObserveTrigger(e.Name)
	}

	log.Info().Str("name", e.Name).Str("expr", e.Expr.Raw).Str("at", circadian.FormatDayTime(at)).Msg("trigger")

	event := mqtt.ClockEvent{
		Timestamp: t,
		Type:      mqtt.EventTrigger,
		Name:      e.Name,
		DayTime:   at,
		InSync:    l.clock.InSync(),
		InSyncNow: l.clock.InSyncNow(),
	}
	if err := l.publisher.Publish(event); err != nil {
		log.Warn().Err(err).Str("name", e.Name).Msg("publish error")
	}
}

func (l *loop) shutdown(s os.Signal) {
	log.Info().Stringer("signal", s).Msg("shutting down")
	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}

	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
	event := mqtt.SystemEvent{
		Timestamp:  l.now(),
		Event:      "SHUTDOWN",
		Reason:     signalName,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", signalName),
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		log.Warn().Err(err).Msg("failed to publish shutdown event")
	}
}

func lightWord(v, threshold int) string {
	if v > threshold {
		return "day"
	}
	return "night"
}
