package health

import (
	"bytes"
	"html/template"
)

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>GHG Footprint API · Status</title>
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <style>
    :root { --teal: #007473; --dark: #173E35; --muted: #64748b; --bg: #F8F9FA; }
    body { background: var(--bg); color: var(--dark); font-family: system-ui, sans-serif; margin: 0; padding: 40px 20px; }
    .container { max-width: 960px; margin: 0 auto; }
    h1 { font-size: 40px; font-weight: 900; letter-spacing: -2px; margin: 0 0 8px; }
    h1.issue { color: #B91C1C; }
    .subtext { color: var(--muted); font-weight: 700; margin-bottom: 30px; }
    .grid { display: grid; grid-template-columns: repeat(3, 1fr); gap: 20px; }
    .card { background: white; border-radius: 20px; padding: 28px; box-shadow: 0 20px 60px -20px rgba(0, 116, 115, 0.15); }
    .label { text-transform: uppercase; font-size: 11px; font-weight: 900; letter-spacing: 2px; color: #94a3b8; margin-bottom: 18px; }
    .big { font-size: 34px; font-weight: 900; margin-bottom: 10px; }
    .row { display: flex; justify-content: space-between; padding: 6px 0; border-bottom: 1px solid rgba(0,0,0,0.04); font-size: 14px; font-weight: 700; }
    .row:last-child { border-bottom: none; }
    .ok { color: var(--teal); }
    .err { color: #EF4444; }
    .links { margin-top: 24px; font-family: monospace; font-size: 13px; }
    .links a { color: var(--teal); margin-right: 18px; }
    @media (max-width: 800px) { .grid { grid-template-columns: 1fr; } }
  </style>
</head>
<body>
  <div class="container">
    {{if eq .Status "ok"}}<h1>All Systems Operational</h1>{{else}}<h1 class="issue">System Issues Detected</h1>{{end}}
    <p class="subtext">Footprint engine · activity mapping v{{.Engine.MappingVersion}} ({{.Engine.MappingCategories}} categories)</p>
    <div class="grid">
      <div class="card">
        <div class="label">Traffic</div>
        <div class="big">{{.Traffic.TotalRequests}}</div>
        <div class="row"><span>Successful</span><span class="ok">{{.Traffic.SuccessCount}}</span></div>
        <div class="row"><span>Failed</span><span class="err">{{.Traffic.FailedCount}}</span></div>
        <div class="row"><span>Success Rate</span><span>{{.Traffic.SuccessRate}}%</span></div>
        <div class="row"><span>Avg Latency</span><span>{{.Traffic.AvgResponseTime}}ms</span></div>
      </div>
      <div class="card">
        <div class="label">Runtime</div>
        <div class="big">{{.Runtime.UptimeSeconds}}s</div>
        <div class="row"><span>Heap In Use</span><span>{{.Runtime.Memory.HeapInMB}} MB</span></div>
        <div class="row"><span>Goroutines</span><span>{{.Runtime.Goroutines}}</span></div>
        <div class="row"><span>Platform</span><span>{{.Runtime.Platform}}</span></div>
        <div class="row"><span>Go</span><span>{{.Runtime.GoVersion}}</span></div>
      </div>
      <div class="card">
        <div class="label">Connectivity</div>
        {{range $name, $dep := .Dependencies}}
        <div class="row"><span>{{$name}}</span><span class="{{if eq $dep.Status "connected"}}ok{{else}}err{{end}}">{{$dep.Status}}{{if $dep.PingMs}} · {{$dep.PingMs}} ms{{end}}</span></div>
        {{end}}
        <div class="row"><span>Factor cache</span><span>{{.Engine.FactorCache}}</span></div>
        <div class="row"><span>Write lock</span><span>{{.Engine.WriteLock}}</span></div>
      </div>
    </div>
    <div class="links"><a href="/health/json">/health/json</a><a href="/health/errors">/health/errors</a></div>
  </div>
</body>
</html>`))

// RenderDashboardHTML returns the HTML status page served at GET /.
func RenderDashboardHTML(health CollectResult) (string, error) {
	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, health); err != nil {
		return "", err
	}
	return buf.String(), nil
}
