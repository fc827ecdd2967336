// Package ocr resolves image URLs to text via the OCR.Space parse API.
// Resolution is strictly best-effort: any transport, API, or parse failure
// maps to (empty, false) and never propagates into the scan pipeline
package ocr

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"invitehound/internal/platform/logger"
	"invitehound/internal/services/monitor/domain"
)

const (
	defaultEndpoint = "https://api.ocr.space/parse/image"
	defaultTimeout  = 30 * time.Second
)

// Options configures the Client
type Options struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
}

// Client posts image URLs to OCR.Space and returns uppercased text
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
}

// NewClient creates a Client with sane defaults
func NewClient(o Options) *Client {
	if o.Endpoint == "" {
		o.Endpoint = defaultEndpoint
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return &Client{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("ocr"),
	}
}

// parseResponse is the subset of the OCR.Space reply we read
type parseResponse struct {
	IsErroredOnProcessing bool `json:"IsErroredOnProcessing"`
	ParsedResults         []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
}

// Resolve extracts text from the image behind ref. Engine 2 with
// orientation detection and upscaling matches the hosted defaults that
// work best on screenshots
func (c *Client) Resolve(ctx context.Context, ref domain.ImageRef) (string, bool) {
	form := url.Values{
		"url":               {ref.URL},
		"apikey":            {c.opts.APIKey},
		"language":          {"eng"},
		"isOverlayRequired": {"false"},
		"detectOrientation": {"true"},
		"scale":             {"true"},
		"OCREngine":         {"2"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("image", ref.URL).Msg("ocr request failed")
		return "", false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.log.Debug().Int("status", resp.StatusCode).Str("image", ref.URL).Msg("ocr non-200")
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", false
	}

	var pr parseResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		c.log.Debug().Err(err).Str("image", ref.URL).Msg("ocr decode failed")
		return "", false
	}
	if pr.IsErroredOnProcessing || len(pr.ParsedResults) == 0 {
		return "", false
	}

	text := pr.ParsedResults[0].ParsedText
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return strings.ToUpper(text), true
}

// compile-time check against the pipeline port
var _ domain.ResolverPort = (*Client)(nil)
