package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/gate-controller/internal/status"
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
	"secs": func(d time.Duration) string {
		return fmt.Sprintf("%.1fs", d.Seconds())
	},
	"drive": func(g status.Gate) string {
		return status.DriveName(g)
	},
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Gate Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
pre.lcd { background: #1d3b1d; color: #b6f2b6; padding: 8px 12px; display: inline-block; font-size: 1.2em; }
.drive-OPEN, .drive-CLOSE { color: green; font-weight: bold; }
.drive-OFF { color: #888; }
.warn { color: orange; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; background: orange; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
</style>
</head>
<body>
<h1>Gate Controller<span id="live-dot" class="live-dot" title="connecting"></span></h1>

<pre class="lcd" id="lcd">{{.Gate.Line1}}
{{.Gate.Line2}}</pre>

<h2>Gate</h2>
<table>
<tr><th>State</th><td id="state">{{stateOrUnknown (printf "%s" .Gate.State)}}</td></tr>
<tr><th>Drive</th><td id="drive" class="drive-{{drive .Gate}}">{{drive .Gate}}</td></tr>
<tr><th>Remaining</th><td id="remaining">{{secs .Gate.Remaining}}</td></tr>
<tr><th>Current</th><td id="amps">{{printf "%.2f" .Gate.Amps}} A</td></tr>
{{if .Gate.RequireSetup}}<tr><th>Setup</th><td class="warn">required</td></tr>{{end}}
<tr><th>Inputs ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
<tr><th>Inputs</th><td id="inputs">A={{.Gate.ButtonA}} B={{.Gate.ButtonB}} DIP={{.Gate.Dip}}</td></tr>
{{if not .Gate.LastObstruction.IsZero}}<tr><th>Last obstruction</th><td>{{.Gate.LastObstruction.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>{{end}}
</table>

<h2>Calibration</h2>
<table>
<tr><th>Drive duration</th><td>{{secs .Gate.Calibration.DriveDuration}}</td></tr>
<tr><th>Autoclose delay</th><td>{{secs .Gate.Calibration.AutocloseDelay}}</td></tr>
<tr><th>Current limit</th><td>{{printf "%.1f" .Gate.Calibration.CurrentLimit}} A</td></tr>
<tr><th>Obstruction lockout</th><td>{{secs .Gate.Calibration.ObstructionLockout}}</td></tr>
<tr><th>Stored</th><td>{{if .StoreStatus}}{{.StoreStatus}}{{else}}unknown{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Opens</th><td id="opens">{{.Counts.Opens}}</td></tr>
<tr><th>Closes</th><td id="closes">{{.Counts.Closes}}</td></tr>
<tr><th>Autocloses</th><td id="autocloses">{{.Counts.Autocloses}}</td></tr>
<tr><th>Obstructions</th><td id="obstructions">{{.Counts.Obstructions}}</td></tr>
<tr><th>Calibrations</th><td id="calibrations">{{.Counts.Calibrations}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  function setText(id, v) { document.getElementById(id).textContent = v; }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { dot.className = "live-dot ok"; dot.title = "live"; };
    ws.onclose = function() {
      dot.className = "live-dot err"; dot.title = "offline";
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(e) {
      try {
        var s = JSON.parse(e.data).status;
        setText("lcd", s.gate.display[0] + "\n" + s.gate.display[1]);
        setText("state", s.gate.state);
        var d = document.getElementById("drive");
        d.textContent = s.gate.drive;
        d.className = "drive-" + s.gate.drive;
        setText("remaining", (s.gate.remaining_ms / 1000).toFixed(1) + "s");
        setText("amps", s.gate.amps.toFixed(2) + " A");
        setText("inputs", "A=" + s.gate.inputs.a + " B=" + s.gate.inputs.b + " DIP=" + s.gate.inputs.dip);
        ["opens", "closes", "autocloses", "obstructions", "calibrations"].forEach(function(k) {
          setText(k, s.event_counts[k]);
        });
      } catch (err) {}
    };
  }
  connect();
})();
</script>
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
