// Package status serves the monitoring dashboard: an auto-refreshing HTML
// page, a JSON mirror of the same counters, and a liveness probe
package status

import (
	"bytes"
	"fmt"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	phttp "invitehound/internal/platform/net/http"
	"invitehound/internal/services/monitor/domain"
)

// Options configures the rendered dashboard
type Options struct {
	State *domain.PipelineState
	// SourceLabels appear as status badges, e.g. "REDDIT ACTIVE"
	SourceLabels []string
	// CheckInterval is displayed on the performance card
	CheckInterval time.Duration
	// OCREnabled toggles the OCR line on the system card
	OCREnabled bool
	// Now is a clock seam for tests, defaults to time.Now
	Now func() time.Time
}

// Register mounts the dashboard endpoints on the given router
func Register(r chi.Router, opt Options) {
	if opt.Now == nil {
		opt.Now = time.Now
	}
	h := &handlers{opt: opt}

	r.Get("/", h.dashboard)
	r.Get("/status.json", h.statusJSON)
	r.Get("/healthz", h.healthz)
}

type handlers struct{ opt Options }

func (h *handlers) dashboard(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
	snap := h.opt.State.Stats.Snapshot()
	now := h.opt.Now()

	var buf bytes.Buffer
	renderDashboard(&buf, view{
		Snapshot:      snap,
		Now:           now,
		SourceLabels:  h.opt.SourceLabels,
		CheckInterval: h.opt.CheckInterval,
		OCREnabled:    h.opt.OCREnabled,
	})
	phttp.HTML(w, stdhttp.StatusOK, buf.Bytes())
}

// statusPayload is the JSON mirror of the dashboard counters
type statusPayload struct {
	Status        string           `json:"status"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	TotalChecks   int64            `json:"total_checks"`
	CodesSent     int64            `json:"codes_sent"`
	CodesRejected int64            `json:"codes_rejected"`
	ImagesScanned int64            `json:"images_scanned"`
	SuccessRate   float64          `json:"success_rate"`
	LastCodeAgoS  int64            `json:"last_code_ago_seconds"`
	RecentCodes   []string         `json:"recent_codes"`
	PerSource     map[string]int64 `json:"per_source"`
}

func (h *handlers) statusJSON(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
	snap := h.opt.State.Stats.Snapshot()
	now := h.opt.Now()

	per := make(map[string]int64, len(snap.PerSource))
	for k, v := range snap.PerSource {
		per[string(k)] = v
	}
	lastAgo := int64(-1)
	if !snap.LastCodeTime.IsZero() {
		lastAgo = int64(now.Sub(snap.LastCodeTime).Seconds())
	}
	recent := snap.RecentCodes
	if recent == nil {
		recent = []string{}
	}

	phttp.JSON(w, statusPayload{
		Status:        "online",
		UptimeSeconds: int64(snap.Uptime(now).Seconds()),
		TotalChecks:   snap.TotalChecks,
		CodesSent:     snap.CodesSent,
		CodesRejected: snap.CodesRejected,
		ImagesScanned: snap.ImagesScanned,
		SuccessRate:   snap.SuccessRate(),
		LastCodeAgoS:  lastAgo,
		RecentCodes:   recent,
		PerSource:     per,
	})
}

func (h *handlers) healthz(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
	phttp.JSON(w, map[string]string{"status": "ok"})
}

// view bundles everything the template needs precomputed
type view struct {
	Snapshot      domain.Snapshot
	Now           time.Time
	SourceLabels  []string
	CheckInterval time.Duration
	OCREnabled    bool
}

// uptimeHMS formats uptime as the "1h 2m 3s" triple shown on the card
func uptimeHMS(d time.Duration) string {
	total := int64(d.Seconds())
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%dh %dm %ds", total/3600, (total%3600)/60, total%60)
}

// lastCodeInfo reports how long ago the newest code landed
func lastCodeInfo(snap domain.Snapshot, now time.Time) string {
	if snap.LastCodeTime.IsZero() {
		return "No codes sent yet"
	}
	return fmt.Sprintf("%ds ago", int64(now.Sub(snap.LastCodeTime).Seconds()))
}

// recentCodesLine joins the newest five codes for the monospace panel
func recentCodesLine(codes []string) string {
	if len(codes) == 0 {
		return "None"
	}
	if len(codes) > 5 {
		codes = codes[len(codes)-5:]
	}
	return strings.Join(codes, ", ")
}
