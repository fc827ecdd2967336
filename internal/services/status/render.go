package status

import (
	"fmt"
	"html/template"
	"io"

	"invitehound/internal/platform/logger"
)

// pageData is the flattened, pre-formatted input for the dashboard template
type pageData struct {
	Title         string
	SourceLabels  []string
	Uptime        string
	OCRStatus     string
	CodesSent     int64
	RedditCodes   int64
	DiscordCodes  int64
	SuccessRate   string
	TotalChecks   int64
	CheckInterval string
	LastCode      string
	ImagesScanned int64
	RecentCodes   string
	UpdatedAt     string
}

var dashboardTmpl = template.Must(template.New("dashboard").Parse(dashboardHTML))

func renderDashboard(w io.Writer, v view) {
	ocr := "Disabled"
	if v.OCREnabled {
		ocr = "Enabled"
	}
	data := pageData{
		Title:         "Invitehound Dashboard",
		SourceLabels:  v.SourceLabels,
		Uptime:        uptimeHMS(v.Snapshot.Uptime(v.Now)),
		OCRStatus:     ocr,
		CodesSent:     v.Snapshot.CodesSent,
		RedditCodes:   v.Snapshot.PerSource["reddit"],
		DiscordCodes:  v.Snapshot.PerSource["discord"],
		SuccessRate:   fmt.Sprintf("%.1f%%", v.Snapshot.SuccessRate()),
		TotalChecks:   v.Snapshot.TotalChecks,
		CheckInterval: v.CheckInterval.String(),
		LastCode:      lastCodeInfo(v.Snapshot, v.Now),
		ImagesScanned: v.Snapshot.ImagesScanned,
		RecentCodes:   recentCodesLine(v.Snapshot.RecentCodes),
		UpdatedAt:     v.Now.Format("2006-01-02 15:04:05"),
	}
	if err := dashboardTmpl.Execute(w, data); err != nil {
		logger.Named("status").Error().Err(err).Msg("dashboard render failed")
	}
}

const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<meta http-equiv="refresh" content="30">
	<title>{{.Title}}</title>
	<style>
		body {
			font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif;
			padding: 30px;
			background: linear-gradient(135deg, #1a1a2e 0%, #16213e 100%);
			color: #eee;
			margin: 0;
		}
		.container { max-width: 1200px; margin: 0 auto; }
		h1 {
			text-align: center;
			color: #00d4ff;
			font-size: 2.5em;
			margin-bottom: 10px;
			text-shadow: 0 0 10px rgba(0,212,255,0.5);
		}
		.subtitle { text-align: center; color: #aaa; margin-bottom: 40px; font-size: 1.1em; }
		.status-badge {
			display: inline-block;
			background: #00ff88;
			color: #000;
			padding: 5px 15px;
			border-radius: 20px;
			font-weight: bold;
			font-size: 0.9em;
			margin: 0 5px;
		}
		.grid {
			display: grid;
			grid-template-columns: repeat(auto-fit, minmax(280px, 1fr));
			gap: 20px;
			margin-bottom: 30px;
		}
		.card {
			background: rgba(42, 42, 58, 0.8);
			padding: 25px;
			border-radius: 15px;
			box-shadow: 0 8px 32px rgba(0, 0, 0, 0.3);
			border: 1px solid rgba(255, 255, 255, 0.1);
		}
		.card h2 {
			margin-top: 0;
			color: #00d4ff;
			font-size: 1.3em;
			border-bottom: 2px solid #00d4ff;
			padding-bottom: 10px;
			margin-bottom: 20px;
		}
		.stat-row {
			display: flex;
			justify-content: space-between;
			padding: 12px 0;
			border-bottom: 1px solid rgba(255, 255, 255, 0.1);
		}
		.stat-row:last-child { border-bottom: none; }
		.stat-label { color: #aaa; font-weight: 500; }
		.stat-value { color: #fff; font-weight: bold; font-size: 1.1em; }
		.highlight { color: #00ff88; }
		.footer {
			text-align: center;
			margin-top: 40px;
			padding-top: 20px;
			border-top: 1px solid rgba(255, 255, 255, 0.1);
			color: #888;
			font-size: 0.9em;
		}
		.codes-list {
			background: rgba(0, 0, 0, 0.3);
			padding: 15px;
			border-radius: 8px;
			font-family: 'Courier New', monospace;
			color: #00ff88;
			font-size: 1.1em;
			word-break: break-all;
		}
	</style>
</head>
<body>
	<div class="container">
		<h1>{{.Title}}</h1>
		<div class="subtitle">
			{{range .SourceLabels}}<span class="status-badge">{{.}}</span>{{end}}
			<br>Real-time invite code detection
		</div>

		<div class="grid">
			<div class="card">
				<h2>System Status</h2>
				<div class="stat-row">
					<span class="stat-label">Status</span>
					<span class="stat-value highlight">Online</span>
				</div>
				<div class="stat-row">
					<span class="stat-label">Uptime</span>
					<span class="stat-value">{{.Uptime}}</span>
				</div>
				<div class="stat-row">
					<span class="stat-label">OCR Engine</span>
					<span class="stat-value">{{.OCRStatus}}</span>
				</div>
			</div>

			<div class="card">
				<h2>Statistics</h2>
				<div class="stat-row">
					<span class="stat-label">Total Codes</span>
					<span class="stat-value highlight">{{.CodesSent}}</span>
				</div>
				<div class="stat-row">
					<span class="stat-label">Reddit Codes</span>
					<span class="stat-value">{{.RedditCodes}}</span>
				</div>
				<div class="stat-row">
					<span class="stat-label">Discord Codes</span>
					<span class="stat-value">{{.DiscordCodes}}</span>
				</div>
				<div class="stat-row">
					<span class="stat-label">Success Rate</span>
					<span class="stat-value">{{.SuccessRate}}</span>
				</div>
			</div>

			<div class="card">
				<h2>Performance</h2>
				<div class="stat-row">
					<span class="stat-label">Total Checks</span>
					<span class="stat-value">{{.TotalChecks}}</span>
				</div>
				<div class="stat-row">
					<span class="stat-label">Check Interval</span>
					<span class="stat-value">{{.CheckInterval}}</span>
				</div>
				<div class="stat-row">
					<span class="stat-label">Last Code</span>
					<span class="stat-value">{{.LastCode}}</span>
				</div>
				<div class="stat-row">
					<span class="stat-label">Images Scanned</span>
					<span class="stat-value">{{.ImagesScanned}}</span>
				</div>
			</div>
		</div>

		<div class="card">
			<h2>Recent Codes (Last 5)</h2>
			<div class="codes-list">{{.RecentCodes}}</div>
		</div>

		<div class="footer">
			Last Updated: {{.UpdatedAt}} | Auto-refresh: 30s
		</div>
	</div>
</body>
</html>
`
