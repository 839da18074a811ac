package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestFetcher() *Fetcher {
	// Effectively unthrottled so tests stay fast.
	return New("test-agent", 5*time.Second, time.Nanosecond)
}

func TestGetJSON_sendsHeadersAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "test-agent" {
			t.Errorf("User-Agent = %q; want test-agent", ua)
		}
		w.Write([]byte(`[{"stream_id": 1, "name": "One"}]`))
	}))
	defer srv.Close()

	var records []apiRecord
	if err := newTestFetcher().GetJSON(context.Background(), srv.URL, &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Name != "One" {
		t.Errorf("records = %+v", records)
	}
}

func TestGet_clientErrorIsNotRetried(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher().GetText(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if hits != 1 {
		t.Errorf("hits = %d; want 1 (4xx must not retry)", hits)
	}
}

func TestGet_serverErrorRetriesUntilSuccess(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			// Retry-After keeps the test's backoff short.
			w.Header().Set("Retry-After", "1")
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := newTestFetcher().GetText(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if body != "ok" || hits != 2 {
		t.Errorf("body = %q hits = %d; want ok after one retry", body, hits)
	}
}

func TestRetryableStatus(t *testing.T) {
	for _, code := range []int{500, 502, 503, 429, 408} {
		if !retryableStatus(code) {
			t.Errorf("retryableStatus(%d) = false; want true", code)
		}
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404} {
		if retryableStatus(code) {
			t.Errorf("retryableStatus(%d) = true; want false", code)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	if d := parseRetryAfter(resp); d != 0 {
		t.Errorf("missing header: %v; want 0", d)
	}
	resp.Header.Set("Retry-After", "5")
	if d := parseRetryAfter(resp); d != 5*time.Second {
		t.Errorf("seconds form: %v; want 5s", d)
	}
	resp.Header.Set("Retry-After", "99999")
	if d := parseRetryAfter(resp); d != maxBackoff {
		t.Errorf("huge value: %v; want capped at %v", d, maxBackoff)
	}
	resp.Header.Set("Retry-After", "garbage")
	if d := parseRetryAfter(resp); d != 0 {
		t.Errorf("garbage: %v; want 0", d)
	}
}

func TestReadBounded_overLimit(t *testing.T) {
	if _, err := readBounded(strings.NewReader("0123456789"), 4); err == nil {
		t.Error("expected error for oversized body")
	}
	body, err := readBounded(strings.NewReader("0123"), 4)
	if err != nil || string(body) != "0123" {
		t.Errorf("body = %q err = %v", body, err)
	}
}

func TestNextBackoff_caps(t *testing.T) {
	if got := nextBackoff(2 * time.Second); got != 4*time.Second {
		t.Errorf("nextBackoff(2s) = %v; want 4s", got)
	}
	if got := nextBackoff(maxBackoff); got != maxBackoff {
		t.Errorf("nextBackoff(max) = %v; want %v", got, maxBackoff)
	}
}
