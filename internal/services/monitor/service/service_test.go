package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"invitehound/internal/platform/config"
	"invitehound/internal/platform/logger"
	"invitehound/internal/services/monitor/domain"
)

type fakeNotifier struct {
	mu        sync.Mutex
	delivered []domain.Detection
	failures  int // next N Deliver calls return false
	reports   int
}

func (f *fakeNotifier) Deliver(_ context.Context, det domain.Detection) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return false
	}
	f.delivered = append(f.delivered, det)
	return true
}

func (f *fakeNotifier) Report(_ context.Context, _ domain.Snapshot) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports++
	return true
}

func (f *fakeNotifier) deliveries() []domain.Detection {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Detection, len(f.delivered))
	copy(out, f.delivered)
	return out
}

type fakeResolver struct {
	texts map[string]string // URL -> extracted text
}

func (f *fakeResolver) Resolve(_ context.Context, ref domain.ImageRef) (string, bool) {
	text, ok := f.texts[ref.URL]
	return text, ok
}

type fakePull struct {
	kind    domain.SourceKind
	batches [][]domain.SourceItem
	calls   int
}

func (f *fakePull) Kind() domain.SourceKind { return f.kind }

func (f *fakePull) FetchRecent(_ context.Context) ([]domain.SourceItem, error) {
	if f.calls >= len(f.batches) {
		return nil, nil
	}
	b := f.batches[f.calls]
	f.calls++
	return b, nil
}

func newTestService(t *testing.T, notifier domain.NotifierPort, resolver domain.ResolverPort) *Service {
	t.Helper()
	state := domain.NewPipelineState(0, time.Now())
	svc, err := New(state, resolver, notifier, nil, DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func item(id, body string, source domain.SourceKind) domain.SourceItem {
	return domain.SourceItem{
		ID:        id,
		Body:      body,
		CreatedAt: time.Now(),
		Permalink: "https://example.test/" + id,
		Source:    source,
	}
}

func TestScanItem_ValidCodeDeliveredOnce(t *testing.T) {
	n := &fakeNotifier{}
	svc := newTestService(t, n, nil)

	svc.ScanItem(context.Background(), item("c1", "use code AB12CD now", domain.SourceReddit))

	got := n.deliveries()
	if len(got) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(got))
	}
	if got[0].Code != "AB12CD" {
		t.Fatalf("delivered code = %q, want AB12CD", got[0].Code)
	}
	if got[0].Source != domain.SourceReddit {
		t.Fatalf("delivered source = %q, want reddit", got[0].Source)
	}
	if got[0].FromImage {
		t.Fatal("text-sourced detection flagged as from image")
	}
	if !svc.state.Ledger.Accepted("AB12CD") {
		t.Fatal("delivered code not committed in ledger")
	}
	snap := svc.state.Stats.Snapshot()
	if snap.CodesSent != 1 {
		t.Fatalf("CodesSent = %d, want 1", snap.CodesSent)
	}
}

func TestScanItem_LowercaseCodeCanonicalized(t *testing.T) {
	n := &fakeNotifier{}
	svc := newTestService(t, n, nil)

	svc.ScanItem(context.Background(), item("c1", "grab ab12cd quickly", domain.SourceReddit))
	svc.ScanItem(context.Background(), item("c2", "still got AB12CD here", domain.SourceDiscord))

	got := n.deliveries()
	if len(got) != 1 {
		t.Fatalf("deliveries = %d, want 1 (case variants are the same code)", len(got))
	}
	if got[0].Code != "AB12CD" {
		t.Fatalf("delivered code = %q, want uppercase canonical form", got[0].Code)
	}
}

func TestScanItem_RejectionsNeverReachLedger(t *testing.T) {
	n := &fakeNotifier{}
	svc := newTestService(t, n, nil)

	// all-letter word, all-digit run, and a blacklisted-but-mixed shape
	svc.ScanItem(context.Background(), item("c1", "PLEASE wait for 123456", domain.SourceReddit))

	if got := n.deliveries(); len(got) != 0 {
		t.Fatalf("deliveries = %d, want 0", len(got))
	}
	snap := svc.state.Stats.Snapshot()
	if snap.CodesRejected != 2 {
		t.Fatalf("CodesRejected = %d, want 2", snap.CodesRejected)
	}
	if svc.state.Ledger.AcceptedCount() != 0 {
		t.Fatal("rejected tokens leaked into the accepted set")
	}
}

func TestScanItem_TextAndImageSameCodeSingleDelivery(t *testing.T) {
	n := &fakeNotifier{}
	r := &fakeResolver{texts: map[string]string{
		"https://i.example.test/shot.png": "screenshot says XY12ZQ",
	}}
	svc := newTestService(t, n, r)

	it := item("c1", "XY12ZQ posted", domain.SourceReddit)
	it.Images = []domain.ImageRef{{URL: "https://i.example.test/shot.png", Filename: "shot.png"}}
	svc.ScanItem(context.Background(), it)

	got := n.deliveries()
	if len(got) != 1 {
		t.Fatalf("deliveries = %d, want 1 (text reservation wins, image loses)", len(got))
	}
	if got[0].FromImage {
		t.Fatal("first delivery should come from the text scan")
	}
	snap := svc.state.Stats.Snapshot()
	if snap.ImagesScanned != 1 {
		t.Fatalf("ImagesScanned = %d, want 1", snap.ImagesScanned)
	}
}

func TestScanItem_ImageCapLimitsResolves(t *testing.T) {
	n := &fakeNotifier{}
	r := &fakeResolver{texts: map[string]string{
		"https://i.example.test/a.png": "nothing here",
		"https://i.example.test/b.png": "nothing here",
		"https://i.example.test/c.png": "QQ99QQ hidden in the third image",
	}}
	svc := newTestService(t, n, r)

	it := item("c1", "look at these", domain.SourceReddit)
	it.Images = []domain.ImageRef{
		{URL: "https://i.example.test/a.png"},
		{URL: "https://i.example.test/b.png"},
		{URL: "https://i.example.test/c.png"},
	}
	svc.ScanItem(context.Background(), it)

	if got := n.deliveries(); len(got) != 0 {
		t.Fatalf("deliveries = %d, want 0 (third image is past the cap)", len(got))
	}
	snap := svc.state.Stats.Snapshot()
	if snap.ImagesScanned != 2 {
		t.Fatalf("ImagesScanned = %d, want 2", snap.ImagesScanned)
	}
}

func TestScanItem_FailedDeliveryReleasesReservation(t *testing.T) {
	n := &fakeNotifier{failures: 1}
	svc := newTestService(t, n, nil)

	svc.ScanItem(context.Background(), item("c1", "code ZZ88AA", domain.SourceReddit))
	if svc.state.Ledger.Accepted("ZZ88AA") {
		t.Fatal("failed delivery left the code reserved")
	}

	// a later occurrence of the identical code retries cleanly
	svc.ScanItem(context.Background(), item("c2", "repost ZZ88AA", domain.SourceReddit))
	got := n.deliveries()
	if len(got) != 1 {
		t.Fatalf("deliveries = %d, want 1 after retry", len(got))
	}
	if got[0].Code != "ZZ88AA" {
		t.Fatalf("retried code = %q, want ZZ88AA", got[0].Code)
	}
}

func TestScanItem_CrossSourceRaceDeliversOnce(t *testing.T) {
	n := &fakeNotifier{}
	svc := newTestService(t, n, nil)

	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		source := domain.SourceReddit
		if i%2 == 1 {
			source = domain.SourceDiscord
		}
		go func(src domain.SourceKind) {
			defer wg.Done()
			svc.ScanItem(context.Background(), item("c", "hot drop KK11KK", src))
		}(source)
	}
	wg.Wait()

	if got := n.deliveries(); len(got) != 1 {
		t.Fatalf("deliveries = %d, want exactly 1 across racing sources", len(got))
	}
}

func TestPullCycle_RecencyAndSeenFiltering(t *testing.T) {
	n := &fakeNotifier{}
	svc := newTestService(t, n, nil)

	fresh := item("fresh", "take AA22BB", domain.SourceReddit)
	stale := item("stale", "take CC33DD", domain.SourceReddit)
	stale.CreatedAt = time.Now().Add(-10 * time.Minute)

	producer := &fakePull{
		kind: domain.SourceReddit,
		batches: [][]domain.SourceItem{
			{fresh, stale},
			{fresh}, // second cycle re-serves the same item
		},
	}

	for i := 0; i < 2; i++ {
		if err := svc.pullCycle(context.Background(), producer); err != nil {
			t.Fatalf("pullCycle %d: %v", i, err)
		}
	}

	got := n.deliveries()
	if len(got) != 1 {
		t.Fatalf("deliveries = %d, want 1 (stale skipped, rescan skipped)", len(got))
	}
	if got[0].Code != "AA22BB" {
		t.Fatalf("delivered code = %q, want AA22BB", got[0].Code)
	}
	snap := svc.state.Stats.Snapshot()
	if snap.TotalChecks != 2 {
		t.Fatalf("TotalChecks = %d, want 2", snap.TotalChecks)
	}
	if svc.state.Ledger.HasSeenItem("stale") {
		t.Fatal("stale items should not be marked seen")
	}
}

func TestPullCycle_BatchCapKeepsNewest(t *testing.T) {
	n := &fakeNotifier{}
	svc := newTestService(t, n, nil)
	svc.cfg.PullBatch = 2

	batch := []domain.SourceItem{
		item("c1", "first EE44FF", domain.SourceReddit),
		item("c2", "second GG55HH", domain.SourceReddit),
		item("c3", "third JJ66KK", domain.SourceReddit),
	}
	producer := &fakePull{kind: domain.SourceReddit, batches: [][]domain.SourceItem{batch}}

	if err := svc.pullCycle(context.Background(), producer); err != nil {
		t.Fatalf("pullCycle: %v", err)
	}

	got := n.deliveries()
	if len(got) != 2 {
		t.Fatalf("deliveries = %d, want 2 (newest-first cap)", len(got))
	}
	for _, det := range got {
		if det.Code == "JJ66KK" {
			t.Fatal("item past the batch cap was scanned")
		}
	}
}

type panicPull struct{}

func (panicPull) Kind() domain.SourceKind { return domain.SourceReddit }
func (panicPull) FetchRecent(context.Context) ([]domain.SourceItem, error) {
	panic("listing shape changed under us")
}

func TestPullCycle_PanicContained(t *testing.T) {
	n := &fakeNotifier{}
	svc := newTestService(t, n, nil)

	err := svc.pullCycle(context.Background(), panicPull{})
	if err == nil {
		t.Fatal("expected an error from a panicking producer")
	}
	if !strings.Contains(err.Error(), "panic") {
		t.Fatalf("error %q should mention the recovered panic", err)
	}
}

type fakePush struct {
	kind  domain.SourceKind
	items []domain.SourceItem
}

func (f *fakePush) Kind() domain.SourceKind { return f.kind }

func (f *fakePush) Run(ctx context.Context, onItem func(context.Context, domain.SourceItem)) error {
	for _, it := range f.items {
		onItem(ctx, it)
	}
	return nil
}

func TestRunPush_DedupsByItemID(t *testing.T) {
	n := &fakeNotifier{}
	svc := newTestService(t, n, nil)

	msg := item("m1", "drop LL77MM", domain.SourceDiscord)
	producer := &fakePush{kind: domain.SourceDiscord, items: []domain.SourceItem{msg, msg}}

	if err := svc.RunPush(context.Background(), producer); err != nil {
		t.Fatalf("RunPush: %v", err)
	}
	if got := n.deliveries(); len(got) != 1 {
		t.Fatalf("deliveries = %d, want 1 (duplicate message id skipped)", len(got))
	}
}

func TestRunReports_TicksUntilCancelled(t *testing.T) {
	n := &fakeNotifier{}
	svc := newTestService(t, n, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunReports(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		n.mu.Lock()
		sent := n.reports
		n.mu.Unlock()
		if sent >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("reports never arrived")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestSupervise_GivesUpAfterAttempts(t *testing.T) {
	calls := 0
	err := Supervise(context.Background(), logger.Named("test"), 3, 50*time.Millisecond, func(context.Context) error {
		calls++
		return errors.New("connection dropped")
	})
	if calls != 3 {
		t.Fatalf("run called %d times, want 3", calls)
	}
	if err == nil {
		t.Fatal("expected an error after attempts exhausted")
	}
}

func TestSupervise_LongRunResetsAttempts(t *testing.T) {
	// runs 1 and 3 stay up past the restart delay, so each of their exits
	// opens a fresh budget. With a 3-attempt budget the loop only gives up
	// after runs 3-5 fail back to back
	delay := 30 * time.Millisecond
	calls := 0
	err := Supervise(context.Background(), logger.Named("test"), 3, delay, func(context.Context) error {
		calls++
		if calls == 1 || calls == 3 {
			time.Sleep(2 * delay)
		}
		return errors.New("connection dropped")
	})
	if calls != 5 {
		t.Fatalf("run called %d times, want 5", calls)
	}
	if err == nil {
		t.Fatal("expected an error after attempts exhausted")
	}
}

func TestSupervise_CancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Supervise(ctx, logger.Named("test"), 10, time.Hour, func(context.Context) error {
		calls++
		cancel()
		return errors.New("connection dropped")
	})
	if calls != 1 {
		t.Fatalf("run called %d times, want 1", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestFromConf_OverlaysEnvOnDefaults(t *testing.T) {
	t.Setenv("MONITOR_POLL_INTERVAL", "90")
	t.Setenv("MONITOR_IMAGE_CAP", "1")
	t.Setenv("MONITOR_PULL_BATCH", "5")

	cfg := FromConf(config.New().Prefix("MONITOR_"))
	if cfg.PollInterval != 90*time.Second {
		t.Fatalf("PollInterval = %v, want 90s", cfg.PollInterval)
	}
	if cfg.ImageCap != 1 {
		t.Fatalf("ImageCap = %d, want 1", cfg.ImageCap)
	}
	if cfg.PullBatch != 5 {
		t.Fatalf("PullBatch = %d, want 5", cfg.PullBatch)
	}
	// unset knobs keep their defaults
	def := DefaultConfig()
	if cfg.RecencyWindow != def.RecencyWindow || cfg.HeartbeatEvery != def.HeartbeatEvery {
		t.Fatalf("unset knobs changed: got %+v", cfg)
	}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	state := domain.NewPipelineState(0, time.Now())
	cfg := DefaultConfig()
	cfg.PollInterval = 0
	if _, err := New(state, nil, &fakeNotifier{}, nil, cfg); err == nil {
		t.Fatal("expected validation error for zero poll interval")
	}

	if _, err := New(state, nil, nil, nil, DefaultConfig()); err == nil {
		t.Fatal("expected error for missing notifier")
	}
}
