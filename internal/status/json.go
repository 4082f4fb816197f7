package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/circadian-clock/internal/circadian"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	State         string      `json:"state"`
	Time          string      `json:"time"`
	Dawn          string      `json:"dawn"`
	Dusk          string      `json:"dusk"`
	InSync        bool        `json:"in_sync"`
	InSyncNow     bool        `json:"in_sync_now"`
	SyncDiff      int         `json:"sync_diff_seconds"`
	Light         int         `json:"light"`
	Ready         bool        `json:"ready"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Counts        CountsJSON  `json:"event_counts"`
	Offsets       OffsetsJSON `json:"offsets"`
	Config        ConfigJSON  `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Dawns    int `json:"dawns"`
	Dusks    int `json:"dusks"`
	Triggers int `json:"triggers"`
}

// OffsetsJSON exposes the raw tick offsets for debugging.
type OffsetsJSON struct {
	Offset       int `json:"offset"`
	OffsetDawn   int `json:"offset_dawn"`
	OffsetDusk   int `json:"offset_dusk"`
	OffsetLG     int `json:"offset_lg"`
	OffsetDawnLG int `json:"offset_dawn_lg"`
	OffsetDuskLG int `json:"offset_dusk_lg"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	Pin         int    `json:"pin"`
	Threshold   int    `json:"threshold"`
}

func buildInner(snap Snapshot) StatusInner {
	c := snap.Clock
	in := c.Internals
	state := in.State.String()
	if !snap.Ready {
		state = "UNKNOWN"
	}

	return StatusInner{
		State:         state,
		Time:          circadian.FormatDayTime(c.Time),
		Dawn:          circadian.FormatDayTime(c.Dawn),
		Dusk:          circadian.FormatDayTime(c.Dusk),
		InSync:        in.InSync,
		InSyncNow:     in.InSyncNow,
		SyncDiff:      c.SyncDiff,
		Light:         in.LastSample,
		Ready:         snap.Ready,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Dawns:    snap.Counts.Dawns,
			Dusks:    snap.Counts.Dusks,
			Triggers: snap.Counts.Triggers,
		},
		Offsets: OffsetsJSON{
			Offset:       in.Offset,
			OffsetDawn:   in.OffsetDawn,
			OffsetDusk:   in.OffsetDusk,
			OffsetLG:     in.OffsetLG,
			OffsetDawnLG: in.OffsetDawnLG,
			OffsetDuskLG: in.OffsetDuskLG,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			Pin:         snap.Config.Pin,
			Threshold:   snap.Config.Threshold,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
