package domain

import (
	"sync"
	"time"

	"invitehound/internal/core/dedup"
)

// recentCodesCap bounds the recent-codes ring kept for the dashboard
const recentCodesCap = 25

// Stats holds the running counters shared by every ingestion loop and the
// status endpoint. One mutex guards all mutation; readers take a Snapshot
// copy so the dashboard never holds a loop lock beyond a map copy
type Stats struct {
	mu            sync.Mutex
	startTime     time.Time
	totalChecks   int64
	codesSent     int64
	codesRejected int64
	imagesScanned int64
	lastCodeTime  time.Time
	recentCodes   []string
	perSource     map[SourceKind]int64
}

// NewStats constructs zeroed counters stamped with the process start time
func NewStats(now time.Time) *Stats {
	return &Stats{
		startTime: now,
		perSource: make(map[SourceKind]int64),
	}
}

// IncChecks counts one poll cycle
func (s *Stats) IncChecks() {
	s.mu.Lock()
	s.totalChecks++
	s.mu.Unlock()
}

// IncRejected counts one classifier rejection
func (s *Stats) IncRejected() {
	s.mu.Lock()
	s.codesRejected++
	s.mu.Unlock()
}

// IncImagesScanned counts one successful OCR resolve
func (s *Stats) IncImagesScanned() {
	s.mu.Lock()
	s.imagesScanned++
	s.mu.Unlock()
}

// RecordSent counts one delivered code with its provenance
func (s *Stats) RecordSent(det Detection, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codesSent++
	s.perSource[det.Source]++
	s.lastCodeTime = now
	s.recentCodes = append(s.recentCodes, det.Code)
	if len(s.recentCodes) > recentCodesCap {
		s.recentCodes = s.recentCodes[len(s.recentCodes)-recentCodesCap:]
	}
}

// Snapshot returns a copy of the counters safe for rendering
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	recent := make([]string, len(s.recentCodes))
	copy(recent, s.recentCodes)
	per := make(map[SourceKind]int64, len(s.perSource))
	for k, v := range s.perSource {
		per[k] = v
	}

	return Snapshot{
		StartTime:     s.startTime,
		TotalChecks:   s.totalChecks,
		CodesSent:     s.codesSent,
		CodesRejected: s.codesRejected,
		ImagesScanned: s.imagesScanned,
		LastCodeTime:  s.lastCodeTime,
		RecentCodes:   recent,
		PerSource:     per,
	}
}

// PipelineState bundles the shared dedup ledger and counters. Built once in
// main and injected into every loop and the status module, so nothing in the
// pipeline depends on process-global state
type PipelineState struct {
	Ledger *dedup.Ledger
	Stats  *Stats
}

// NewPipelineState constructs fresh shared state
func NewPipelineState(seenBound int, now time.Time) *PipelineState {
	return &PipelineState{
		Ledger: dedup.New(seenBound),
		Stats:  NewStats(now),
	}
}
