// Package reddit polls a thread's public JSON listing for new comments.
// No OAuth: the anonymous .json endpoint is enough at one request per cycle
package reddit

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	perr "invitehound/internal/platform/errors"
	"invitehound/internal/platform/logger"
	"invitehound/internal/services/monitor/domain"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUA        = "invitehound/1.0"
	defaultMaxRetry  = 5
	defaultRetryBase = 500 * time.Millisecond
	defaultLimit     = 20
)

// Options configures the Client
type Options struct {
	// PostURL is the full thread URL, e.g. https://www.reddit.com/r/x/comments/abc/title/
	PostURL   string
	UserAgent string
	Timeout   time.Duration

	// Retry config for transient and rate limited responses
	MaxRetries int
	RetryBase  time.Duration

	// Limit caps the comment listing size per fetch
	Limit int
}

// Client fetches the newest comments of one thread with bounded retries
type Client struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	now   func() time.Time
	sleep func(time.Duration)
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	if o.Limit <= 0 {
		o.Limit = defaultLimit
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named("reddit"),
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// Kind labels items from this producer
func (c *Client) Kind() domain.SourceKind { return domain.SourceReddit }

// FetchRecent returns the thread's newest comments, newest first
func (c *Client) FetchRecent(ctx context.Context) ([]domain.SourceItem, error) {
	body, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return parseListing(body, c.opts.Limit)
}

// listingURL is the anonymous JSON view of the thread, newest comments first
func (c *Client) listingURL() string {
	return strings.TrimSuffix(c.opts.PostURL, "/") +
		".json?sort=new&limit=" + strconv.Itoa(c.opts.Limit) + "&raw_json=1"
}

func (c *Client) fetch(ctx context.Context) ([]byte, error) {
	url := c.listingURL()
	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "reddit new request failed")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/json")

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)

		if err != nil {
			if !c.shouldRetry(attempts) {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "reddit do failed")
			}
			back := c.backoff(attempts)
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempts).Msg("reddit transport error retrying")
			c.sleep(back)
			attempts++
			continue
		}

		c.log.Debug().
			Int("status", resp.StatusCode).
			Int("attempt", attempts).
			Dur("latency", lat).
			Msg("reddit http response")

		switch resp.StatusCode {
		case http.StatusOK:
			body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
			_ = resp.Body.Close()
			if err != nil {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "reddit body read failed")
			}
			return body, nil
		case http.StatusTooManyRequests:
			if !c.shouldRetry(attempts) {
				_ = drainAndClose(resp.Body)
				return nil, perr.Newf(perr.ErrorCodeTooManyRequests, "reddit rate limited")
			}
			wait := retryAfter(resp.Header)
			if wait <= 0 {
				wait = c.backoff(attempts)
			}
			c.log.Warn().Dur("sleep", wait).Msg("reddit rate limited backing off")
			_ = drainAndClose(resp.Body)
			c.sleep(wait)
			attempts++
			continue
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			if !c.shouldRetry(attempts) {
				_ = drainAndClose(resp.Body)
				return nil, perr.Newf(perr.ErrorCodeUnavailable, "reddit transient server error")
			}
			back := c.backoff(attempts)
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempts).Msg("reddit transient error retrying")
			_ = drainAndClose(resp.Body)
			c.sleep(back)
			attempts++
			continue
		default:
			tail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			return nil, perr.Newf(perr.ErrorCodeUnknown, "reddit unexpected status %d body %s", resp.StatusCode, string(tail))
		}
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	ms := int64(c.opts.RetryBase / time.Millisecond)
	ms = ms << uint(attempt)
	max := int64(30 * time.Second / time.Millisecond)
	if ms > max {
		ms = max
	}
	return time.Duration(ms) * time.Millisecond
}

func (c *Client) shouldRetry(attempt int) bool {
	return attempt < c.opts.MaxRetries
}

func retryAfter(h http.Header) time.Duration {
	if s := h.Get("Retry-After"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return 0
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 1<<20))
	return rc.Close()
}

// compile-time check against the pipeline port
var _ domain.PullProducerPort = (*Client)(nil)
