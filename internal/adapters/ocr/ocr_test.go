package ocr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"invitehound/internal/services/monitor/domain"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Options{APIKey: "k", Endpoint: srv.URL})
}

func TestResolve_UppercasesParsedText(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = map[string]string{
			"url":       r.PostFormValue("url"),
			"apikey":    r.PostFormValue("apikey"),
			"language":  r.PostFormValue("language"),
			"OCREngine": r.PostFormValue("OCREngine"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"IsErroredOnProcessing": false,
			"ParsedResults": [{"ParsedText": "your code is ab12cd\n"}]
		}`))
	}))
	defer srv.Close()

	text, ok := newTestClient(srv).Resolve(context.Background(), domain.ImageRef{URL: "https://i.example.test/x.png"})
	if !ok {
		t.Fatal("expected ok")
	}
	if text != "YOUR CODE IS AB12CD\n" {
		t.Fatalf("text = %q", text)
	}
	if gotForm["url"] != "https://i.example.test/x.png" || gotForm["apikey"] != "k" {
		t.Fatalf("form = %v", gotForm)
	}
	if gotForm["language"] != "eng" || gotForm["OCREngine"] != "2" {
		t.Fatalf("engine params = %v", gotForm)
	}
}

func TestResolve_FailuresAreSilent(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-200", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"errored processing", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"IsErroredOnProcessing": true, "ParsedResults": []}`))
		}},
		{"no results", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"IsErroredOnProcessing": false, "ParsedResults": []}`))
		}},
		{"blank text", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"IsErroredOnProcessing": false, "ParsedResults": [{"ParsedText": "  \n"}]}`))
		}},
		{"bad json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<busy>`))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			if text, ok := newTestClient(srv).Resolve(context.Background(), domain.ImageRef{URL: "https://x.test/a.png"}); ok || text != "" {
				t.Fatalf("got (%q, %v), want empty miss", text, ok)
			}
		})
	}
}

func TestResolve_DeadServerIsAMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	if _, ok := newTestClient(srv).Resolve(context.Background(), domain.ImageRef{URL: "https://x.test/a.png"}); ok {
		t.Fatal("dead endpoint should resolve to a miss")
	}
}
