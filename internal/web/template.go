package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/circadian-clock/internal/circadian"
	"github.com/sweeney/circadian-clock/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"daytime": circadian.FormatDayTime,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="30">
<title>Circadian Clock</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.day { color: #c80; font-weight: bold; }
.night { color: #348; font-weight: bold; }
.unknown { color: orange; }
.connected, .synced { color: green; }
.disconnected, .unsynced { color: red; }
</style>
</head>
<body>
<h1>Circadian Clock</h1>

<h2>Clock</h2>
<table>
{{if .Ready}}<tr><th>Time</th><td id="time">{{daytime .Clock.Time}}</td></tr>
<tr><th>State</th><td class="{{if eq .Clock.Internals.State.String "DAY"}}day{{else}}night{{end}}">{{.Clock.Internals.State}}</td></tr>
<tr><th>Dawn</th><td>{{daytime .Clock.Dawn}}</td></tr>
<tr><th>Dusk</th><td>{{daytime .Clock.Dusk}}</td></tr>
<tr><th>In sync</th><td class="{{if .Clock.Internals.InSync}}synced{{else}}unsynced{{end}}">{{if .Clock.Internals.InSync}}yes{{else}}no{{end}}{{if .Clock.Internals.InSyncNow}} (now){{end}}</td></tr>
<tr><th>Sync diff</th><td>{{.Clock.SyncDiff}}s</td></tr>
<tr><th>Light</th><td>{{.Clock.Internals.LastSample}} (threshold {{.Config.Threshold}})</td></tr>
{{else}}<tr><th>State</th><td class="unknown">UNKNOWN</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Dawns</th><td>{{.Counts.Dawns}}</td></tr>
<tr><th>Dusks</th><td>{{.Counts.Dusks}}</td></tr>
<tr><th>Triggers</th><td>{{.Counts.Triggers}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Sensor pin</th><td>{{.Config.Pin}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
