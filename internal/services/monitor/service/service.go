// Package service implements the code-detection pipeline: extraction,
// classification, dedup, and delivery, plus the per-source ingestion loops
package service

import (
	"context"
	"time"

	"invitehound/internal/core/classify"
	"invitehound/internal/core/extract"
	"invitehound/internal/core/normalize"
	"invitehound/internal/platform/config"
	perr "invitehound/internal/platform/errors"
	"invitehound/internal/platform/logger"
	"invitehound/internal/platform/validate"
	"invitehound/internal/services/monitor/domain"
)

// Config for the monitor pipeline
type Config struct {
	// PollInterval is the sleep between pull cycles
	PollInterval time.Duration `validate:"gt=0"`
	// RecencyWindow is the maximum item age still eligible for scanning
	RecencyWindow time.Duration `validate:"gt=0"`
	// ErrorBackoff is the longer sleep after a failed cycle
	ErrorBackoff time.Duration `validate:"gt=0"`
	// ImageCap bounds OCR calls per item
	ImageCap int `validate:"gte=0"`
	// PullBatch caps how many of the newest items one pull cycle considers
	PullBatch int `validate:"gt=0"`
	// HeartbeatEvery logs a cycle heartbeat every N cycles, 0 disables
	HeartbeatEvery int `validate:"gte=0"`
}

// DefaultConfig mirrors the production knobs
func DefaultConfig() Config {
	return Config{
		PollInterval:   10 * time.Second,
		RecencyWindow:  120 * time.Second,
		ErrorBackoff:   30 * time.Second,
		ImageCap:       2,
		PullBatch:      20,
		HeartbeatEvery: 30,
	}
}

// FromConf overlays the env knobs from c onto the defaults. Duration knobs
// accept bare seconds or a Go duration string
func FromConf(c config.Conf) Config {
	cfg := DefaultConfig()
	cfg.PollInterval = c.MaySeconds("POLL_INTERVAL", cfg.PollInterval)
	cfg.RecencyWindow = c.MaySeconds("RECENCY_WINDOW", cfg.RecencyWindow)
	cfg.ErrorBackoff = c.MaySeconds("ERROR_BACKOFF", cfg.ErrorBackoff)
	cfg.ImageCap = c.MayInt("IMAGE_CAP", cfg.ImageCap)
	cfg.PullBatch = c.MayInt("PULL_BATCH", cfg.PullBatch)
	cfg.HeartbeatEvery = c.MayInt("HEARTBEAT_EVERY", cfg.HeartbeatEvery)
	return cfg
}

// Service wires the extractor, classifier, ledger, resolver, and notifier
// into the single classify-and-notify procedure shared by every source
type Service struct {
	state    *domain.PipelineState
	norm     *normalize.Normalizer
	resolver domain.ResolverPort
	notifier domain.NotifierPort
	archive  domain.ArchivePort // optional, nil disables history
	cfg      Config
	log      logger.Logger
	now      func() time.Time
}

// New constructs the pipeline service after validating cfg
func New(
	state *domain.PipelineState,
	resolver domain.ResolverPort,
	notifier domain.NotifierPort,
	archive domain.ArchivePort,
	cfg Config,
) (*Service, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, err
	}
	if state == nil {
		return nil, perr.InvalidArgf("monitor service requires pipeline state")
	}
	if notifier == nil {
		return nil, perr.InvalidArgf("monitor service requires a notifier")
	}
	return &Service{
		state:    state,
		norm:     normalize.New(),
		resolver: resolver,
		notifier: notifier,
		archive:  archive,
		cfg:      cfg,
		log:      *logger.Named("monitor"),
		now:      time.Now,
	}, nil
}

// ScanItem runs the full pipeline over one source item: text first, then up
// to ImageCap attached images through the resolver. Safe to call from any
// loop; all shared state sits behind the ledger and stats locks
func (s *Service) ScanItem(ctx context.Context, item domain.SourceItem) {
	for _, tok := range extract.Tokens(s.norm.Normalize(item.Body)) {
		s.classifyAndNotify(ctx, tok, item, false)
	}

	if s.resolver == nil || len(item.Images) == 0 {
		return
	}
	images := item.Images
	if s.cfg.ImageCap > 0 && len(images) > s.cfg.ImageCap {
		images = images[:s.cfg.ImageCap]
	}
	for _, ref := range images {
		text, ok := s.resolver.Resolve(ctx, ref)
		if !ok {
			continue
		}
		s.state.Stats.IncImagesScanned()
		if text == "" {
			continue
		}
		for _, tok := range extract.Tokens(s.norm.Normalize(text)) {
			s.classifyAndNotify(ctx, tok, item, true)
		}
	}
}

// classifyAndNotify is the single decision procedure for one candidate
// token: classify, reserve, deliver, and either commit or roll back.
// Rejected tokens are never remembered, so a later occurrence of the same
// string is re-evaluated without penalty
func (s *Service) classifyAndNotify(ctx context.Context, raw string, item domain.SourceItem, fromImage bool) {
	res := classify.Classify(raw)
	if !res.Valid {
		s.state.Stats.IncRejected()
		s.log.Debug().
			Str("token", raw).
			Str("reason", string(res.Reason)).
			Str("source", string(item.Source)).
			Msg("token rejected")
		return
	}

	code := classify.Normalize(raw)

	// reserve before delivery so concurrent sources cannot double-send
	if !s.state.Ledger.TryReserve(code) {
		return
	}

	det := domain.Detection{
		Code:           code,
		SourceURL:      item.Permalink,
		ElapsedSeconds: int(s.now().Sub(item.CreatedAt).Seconds()),
		Source:         item.Source,
		FromImage:      fromImage,
	}

	if !s.notifier.Deliver(ctx, det) {
		// roll back so a later occurrence can retry
		s.state.Ledger.Release(code)
		s.log.Warn().Str("code", code).Str("source", string(item.Source)).Msg("delivery failed, reservation released")
		return
	}

	s.state.Stats.RecordSent(det, s.now())
	s.log.Info().
		Str("code", code).
		Str("source", string(item.Source)).
		Bool("from_image", fromImage).
		Int("elapsed_s", det.ElapsedSeconds).
		Msg("invite code detected")

	if s.archive != nil {
		if err := s.archive.Record(ctx, det); err != nil {
			s.log.Error().Err(err).Str("code", code).Bool("retryable", perr.Retryable(err)).Msg("archive record failed")
		}
	}
}

// RunPull drives a poll-based producer until ctx is cancelled. A failed
// cycle is logged and followed by the longer error backoff; a single bad
// cycle never terminates monitoring
func (s *Service) RunPull(ctx context.Context, producer domain.PullProducerPort) error {
	kind := producer.Kind()
	log := s.log.With().Str("source", string(kind)).Logger()
	log.Info().
		Dur("interval", s.cfg.PollInterval).
		Dur("recency_window", s.cfg.RecencyWindow).
		Msg("pull loop started")

	cycles := 0
	for {
		cycles++
		delay := s.cfg.PollInterval
		if err := s.pullCycle(ctx, producer); err != nil {
			log.Error().Err(err).Msg("pull cycle failed")
			delay = s.cfg.ErrorBackoff
		} else if s.cfg.HeartbeatEvery > 0 && cycles%s.cfg.HeartbeatEvery == 0 {
			log.Info().Int("cycle", cycles).Msg("pull loop heartbeat")
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("pull loop stopped")
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// pullCycle fetches the newest items, applies the recency window and
// seen-item dedup, and scans survivors. Panics inside the pipeline are
// contained here so one poisoned item cannot kill the loop
func (s *Service) pullCycle(ctx context.Context, producer domain.PullProducerPort) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = perr.PanicErrf("pull cycle panic: %v", v)
		}
	}()

	s.state.Stats.IncChecks()

	items, err := producer.FetchRecent(ctx)
	if err != nil {
		return err
	}
	if len(items) > s.cfg.PullBatch {
		items = items[:s.cfg.PullBatch]
	}

	now := s.now()
	for _, item := range items {
		if s.state.Ledger.HasSeenItem(item.ID) {
			continue
		}
		if now.Sub(item.CreatedAt) > s.cfg.RecencyWindow {
			continue
		}
		s.state.Ledger.MarkSeenItem(item.ID)
		s.ScanItem(ctx, item)
	}

	if s.state.Ledger.Compact() {
		s.log.Debug().Msg("seen items cleared")
	}
	return nil
}

// RunPush drives an event-driven producer. Each arriving item goes through
// seen-item dedup and the same scan pipeline; no recency filter is applied
// since delivery is already near-real-time
func (s *Service) RunPush(ctx context.Context, producer domain.PushProducerPort) error {
	kind := producer.Kind()
	log := s.log.With().Str("source", string(kind)).Logger()
	log.Info().Msg("push intake started")

	return producer.Run(ctx, func(ctx context.Context, item domain.SourceItem) {
		defer func() {
			if v := recover(); v != nil {
				log.Error().Interface("panic", v).Str("item", item.ID).Msg("push item panic recovered")
			}
		}()

		if s.state.Ledger.HasSeenItem(item.ID) {
			return
		}
		s.state.Ledger.MarkSeenItem(item.ID)
		s.ScanItem(ctx, item)

		if s.state.Ledger.Compact() {
			log.Debug().Msg("seen items cleared")
		}
	})
}

// Supervise restarts run after each failure, waiting delay between
// restarts. The attempts budget only counts consecutive short-lived runs:
// a run that stayed up for at least delay evidently got its connection
// established, so its eventual exit (a mid-session disconnect) starts a
// fresh budget instead of consuming a lifetime attempt. Only repeated
// failures to even get going, startup-style, exhaust the budget.
// ctx cancellation is a clean stop, never a retry
func Supervise(ctx context.Context, log *logger.Logger, attempts int, delay time.Duration, run func(context.Context) error) error {
	failures := 0
	for {
		start := time.Now()
		last := run(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(start) >= delay {
			failures = 0
		}
		failures++
		if failures >= attempts {
			return perr.Unavailablef("monitor loop gave up after %d attempts: %v", attempts, last)
		}
		log.Error().Err(last).Int("consecutive_failures", failures).Int("max_attempts", attempts).Msg("monitor loop exited, restarting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// RunReports periodically sends an aggregate summary through the notifier.
// A zero interval disables reporting entirely
func (s *Service) RunReports(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !s.notifier.Report(ctx, s.state.Stats.Snapshot()) {
				s.log.Warn().Msg("summary report delivery failed")
			}
		}
	}
}
