package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultMinInterval is the conservative default delay between two
	// requests issued by the same Fetcher.
	DefaultMinInterval = 1 * time.Second
	// DefaultMaxBody caps response bodies (provider catalogs can be huge,
	// but not unbounded).
	DefaultMaxBody = 500 << 20 // 500 MiB

	maxRetries     = 3
	initialBackoff = 2 * time.Second
	maxBackoff     = 60 * time.Second
)

// Fetcher issues throttled GETs against one provider. Each provider task owns
// its own Fetcher, so the minimum request interval is per task, not global;
// providers must not slow each other down.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	maxBody   int64
}

// New returns a Fetcher with the given user agent and request timeout.
// minInterval <= 0 selects DefaultMinInterval.
func New(userAgent string, timeout, minInterval time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Every(minInterval), 1),
		userAgent: userAgent,
		maxBody:   DefaultMaxBody,
	}
}

// GetJSON fetches url and unmarshals the response body into v.
func (f *Fetcher) GetJSON(ctx context.Context, url string, v any) error {
	body, err := f.get(ctx, url, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// GetText fetches url and returns the response body as a string.
func (f *Fetcher) GetText(ctx context.Context, url string) (string, error) {
	body, err := f.get(ctx, url, "*/*")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// get performs a throttled GET with retries on 5xx (and 429/408), honouring
// Retry-After and doubling the backoff otherwise. Other 4xx never retry.
func (f *Fetcher) get(ctx context.Context, url, accept string) ([]byte, error) {
	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", f.userAgent)
		req.Header.Set("Accept", accept)
		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxRetries {
				if err := sleep(ctx, backoff); err != nil {
					return nil, err
				}
				backoff = nextBackoff(backoff)
			}
			continue
		}
		body, readErr := readBounded(resp.Body, f.maxBody)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			if attempt < maxRetries {
				if err := sleep(ctx, backoff); err != nil {
					return nil, err
				}
				backoff = nextBackoff(backoff)
			}
			continue
		}
		if resp.StatusCode == http.StatusOK {
			return body, nil
		}
		lastErr = fmt.Errorf("%s: %s", url, resp.Status)
		if !retryableStatus(resp.StatusCode) || attempt == maxRetries {
			return nil, fmt.Errorf("get: %w", lastErr)
		}
		wait := parseRetryAfter(resp)
		if wait == 0 {
			wait = backoff
			backoff = nextBackoff(backoff)
		}
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("get: %w", lastErr)
}

func readBounded(r io.Reader, max int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > max {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", max)
	}
	return body, nil
}

// retryableStatus returns true for 429, 408 and 5xx.
func retryableStatus(code int) bool {
	if code == http.StatusTooManyRequests || code == http.StatusRequestTimeout {
		return true
	}
	return code >= 500 && code < 600
}

// parseRetryAfter parses Retry-After (seconds or HTTP-date); returns 0 if missing or invalid.
func parseRetryAfter(resp *http.Response) time.Duration {
	s := resp.Header.Get("Retry-After")
	if s == "" {
		return 0
	}
	if sec, err := strconv.Atoi(s); err == nil && sec > 0 {
		d := time.Duration(sec) * time.Second
		if d > maxBackoff {
			return maxBackoff
		}
		return d
	}
	if t, err := http.ParseTime(s); err == nil {
		d := time.Until(t)
		if d < 0 {
			return initialBackoff
		}
		if d > maxBackoff {
			return maxBackoff
		}
		return d
	}
	return 0
}

func nextBackoff(d time.Duration) time.Duration {
	if d < maxBackoff {
		return d * 2
	}
	return maxBackoff
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
