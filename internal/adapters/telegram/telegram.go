// Package telegram delivers detections through the Bot API sendMessage
// endpoint. Delivery reports a bare bool: the pipeline rolls back its code
// reservation on false, so errors stay local to this adapter
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"invitehound/internal/platform/logger"
	"invitehound/internal/services/monitor/domain"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	defaultTimeout = 10 * time.Second
)

// Options configures the Notifier
type Options struct {
	Token   string
	ChatID  string
	BaseURL string
	Timeout time.Duration
}

// Notifier sends HTML-formatted alerts to one chat
type Notifier struct {
	http *http.Client
	opts Options
	log  logger.Logger
}

// NewNotifier creates a Notifier with sane defaults
func NewNotifier(o Options) *Notifier {
	if o.BaseURL == "" {
		o.BaseURL = defaultBaseURL
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return &Notifier{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("telegram"),
	}
}

func sourceBadge(kind domain.SourceKind) (emoji, name string) {
	switch kind {
	case domain.SourceDiscord:
		return "\U0001F49C", "Discord"
	default:
		return "\U0001F534", "Reddit"
	}
}

// controlCodes are internal pipeline sentinels, never real invite codes.
// They are treated as delivered without ever reaching Telegram
var controlCodes = map[string]struct{}{
	"REPORT": {},
	"START":  {},
}

// Deliver sends one detection alert. True means Telegram accepted it
func (n *Notifier) Deliver(ctx context.Context, det domain.Detection) bool {
	if _, control := controlCodes[det.Code]; control {
		return true
	}

	emoji, name := sourceBadge(det.Source)
	rule := strings.Repeat("=", 30)

	var b strings.Builder
	fmt.Fprintf(&b, "\U0001F3AF <b>INVITE CODE DETECTED</b>\n")
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "\U0001F511 Code: <code>%s</code>\n", det.Code)
	fmt.Fprintf(&b, "⏰ Posted: %ds ago\n", det.ElapsedSeconds)
	fmt.Fprintf(&b, "%s Source: %s\n", emoji, name)
	b.WriteString(rule)
	if det.SourceURL != "" {
		fmt.Fprintf(&b, "\n\n\U0001F517 <a href='%s'>View Source</a>", det.SourceURL)
	}

	return n.send(ctx, b.String())
}

// Report sends a periodic counters summary. Always HTML like Deliver so
// the chat renders both the same way
func (n *Notifier) Report(ctx context.Context, snap domain.Snapshot) bool {
	var b strings.Builder
	b.WriteString("\U0001F4CA <b>MONITOR SUMMARY</b>\n")
	fmt.Fprintf(&b, "Uptime: %s\n", snap.Uptime(time.Now()).Round(time.Second))
	fmt.Fprintf(&b, "Checks: %d\n", snap.TotalChecks)
	fmt.Fprintf(&b, "Codes sent: %d\n", snap.CodesSent)
	fmt.Fprintf(&b, "Codes rejected: %d\n", snap.CodesRejected)
	fmt.Fprintf(&b, "Images scanned: %d\n", snap.ImagesScanned)
	fmt.Fprintf(&b, "Success rate: %.1f%%", snap.SuccessRate())

	return n.send(ctx, b.String())
}

func (n *Notifier) send(ctx context.Context, text string) bool {
	endpoint := n.opts.BaseURL + "/bot" + n.opts.Token + "/sendMessage"
	form := url.Values{
		"chat_id":                  {n.opts.ChatID},
		"text":                     {text},
		"parse_mode":               {"HTML"},
		"disable_web_page_preview": {"true"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.http.Do(req)
	if err != nil {
		n.log.Warn().Err(err).Msg("telegram send failed")
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode != http.StatusOK {
		n.log.Warn().Int("status", resp.StatusCode).Msg("telegram non-200")
		return false
	}
	return true
}

// compile-time check against the pipeline port
var _ domain.NotifierPort = (*Notifier)(nil)
