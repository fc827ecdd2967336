package reddit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"invitehound/internal/services/monitor/domain"
)

const sampleListing = `[
  {"data": {"children": [{"kind": "t3", "data": {"id": "post1"}}]}},
  {"data": {"children": [
    {"kind": "t1", "data": {
      "id": "c_new",
      "body": "fresh drop AB12CD https://i.redd.it/proof.png",
      "created_utc": 1700000100,
      "permalink": "/r/test/comments/post1/c_new/"
    }},
    {"kind": "t1", "data": {
      "id": "c_old",
      "body": "older comment",
      "created_utc": 1700000000,
      "permalink": "/r/test/comments/post1/c_old/"
    }},
    {"kind": "more", "data": {"id": ""}}
  ]}}
]`

func TestParseListing_MapsComments(t *testing.T) {
	items, err := parseListing([]byte(sampleListing), 20)
	if err != nil {
		t.Fatalf("parseListing: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2 (more stub skipped)", len(items))
	}

	first := items[0]
	if first.ID != "c_new" {
		t.Fatalf("first item = %q, want newest comment", first.ID)
	}
	if first.Source != domain.SourceReddit {
		t.Fatalf("source = %q, want reddit", first.Source)
	}
	if first.Permalink != "https://reddit.com/r/test/comments/post1/c_new/" {
		t.Fatalf("permalink = %q", first.Permalink)
	}
	if got := first.CreatedAt.Unix(); got != 1700000100 {
		t.Fatalf("created = %d, want 1700000100", got)
	}
	if len(first.Images) != 1 || first.Images[0].URL != "https://i.redd.it/proof.png" {
		t.Fatalf("images = %#v", first.Images)
	}
}

func TestParseListing_LimitCapsNewest(t *testing.T) {
	items, err := parseListing([]byte(sampleListing), 1)
	if err != nil {
		t.Fatalf("parseListing: %v", err)
	}
	if len(items) != 1 || items[0].ID != "c_new" {
		t.Fatalf("items = %#v, want only the newest", items)
	}
}

func TestParseListing_RejectsShortPayload(t *testing.T) {
	if _, err := parseListing([]byte(`[{"data":{"children":[]}}]`), 20); err == nil {
		t.Fatal("expected error for one-page payload")
	}
	if _, err := parseListing([]byte(`not json`), 20); err == nil {
		t.Fatal("expected error for invalid json")
	}
}

func TestImageRefs_Heuristics(t *testing.T) {
	body := "see https://cdn.example.test/shot.PNG and " +
		"https://preview.redd.it/abc123 plus " +
		"https://imgur.com/xyz987 but not " +
		"https://imgur.com/a/album1 or https://example.test/page"

	refs := imageRefs(body)
	if len(refs) != 3 {
		t.Fatalf("refs = %d, want 3: %#v", len(refs), refs)
	}
	if refs[0].URL != "https://cdn.example.test/shot.PNG" || refs[0].Filename != "shot.PNG" {
		t.Fatalf("ext ref = %#v", refs[0])
	}
	if refs[1].URL != "https://preview.redd.it/abc123" {
		t.Fatalf("reddit host ref = %#v", refs[1])
	}
	if refs[2].URL != "https://imgur.com/xyz987.jpg" {
		t.Fatalf("imgur ref should gain .jpg: %#v", refs[2])
	}
}

func TestImageRefs_FilenameStripsQuery(t *testing.T) {
	refs := imageRefs("https://preview.redd.it/pic.png?width=640&format=png")
	if len(refs) != 1 {
		t.Fatalf("refs = %#v", refs)
	}
	if refs[0].Filename != "pic.png" {
		t.Fatalf("filename = %q, want pic.png", refs[0].Filename)
	}
}

func TestFetchRecent_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleListing))
	}))
	defer srv.Close()

	c := NewClient(Options{
		PostURL:    srv.URL + "/r/test/comments/post1/title/",
		MaxRetries: 3,
		RetryBase:  time.Millisecond,
	})
	c.sleep = func(time.Duration) {}

	items, err := c.FetchRecent(context.Background())
	if err != nil {
		t.Fatalf("FetchRecent: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2 (one retry)", calls.Load())
	}
}

func TestFetchRecent_GivesUpOnRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Options{
		PostURL:    srv.URL + "/r/test/comments/post1/title/",
		MaxRetries: 2,
		RetryBase:  time.Millisecond,
	})
	c.sleep = func(time.Duration) {}

	if _, err := c.FetchRecent(context.Background()); err == nil {
		t.Fatal("expected rate limit error after retries exhausted")
	}
}

func TestListingURL_Shape(t *testing.T) {
	c := NewClient(Options{PostURL: "https://www.reddit.com/r/x/comments/abc/title/", Limit: 20})
	got := c.listingURL()
	want := "https://www.reddit.com/r/x/comments/abc/title.json?sort=new&limit=20&raw_json=1"
	if got != want {
		t.Fatalf("listing url = %q, want %q", got, want)
	}
}
