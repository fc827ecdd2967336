// Package domain holds the monitor's types, ports, and shared pipeline state
package domain

import "time"

// SourceKind tags where a piece of content came from. Provenance only;
// the pipeline never branches on it beyond labeling
type SourceKind string

const (
	// SourceReddit marks items pulled from the monitored Reddit thread
	SourceReddit SourceKind = "reddit"
	// SourceDiscord marks items pushed from the monitored Discord channel
	SourceDiscord SourceKind = "discord"
)

// ImageRef points at an image attachment worth OCR-scanning
type ImageRef struct {
	URL      string
	Filename string
}

// SourceItem is one unit of content from a producer: a comment or a message
type SourceItem struct {
	ID        string
	Body      string
	CreatedAt time.Time
	Permalink string
	Images    []ImageRef
	Source    SourceKind
}

// Detection is an accepted code plus its provenance, handed to the notifier
type Detection struct {
	Code           string
	SourceURL      string
	ElapsedSeconds int
	Source         SourceKind
	FromImage      bool
}

// Snapshot is a point-in-time copy of the running counters, safe to render
// without holding any pipeline lock
type Snapshot struct {
	StartTime     time.Time
	TotalChecks   int64
	CodesSent     int64
	CodesRejected int64
	ImagesScanned int64
	LastCodeTime  time.Time
	RecentCodes   []string
	PerSource     map[SourceKind]int64
}

// SuccessRate returns sent/(sent+rejected) in percent, 0 when nothing was classified
func (s Snapshot) SuccessRate() float64 {
	total := s.CodesSent + s.CodesRejected
	if total == 0 {
		return 0
	}
	return float64(s.CodesSent) / float64(total) * 100
}

// Uptime returns elapsed time since process start as of now
func (s Snapshot) Uptime(now time.Time) time.Duration { return now.Sub(s.StartTime) }
