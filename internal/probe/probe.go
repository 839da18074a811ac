// Package probe classifies stream URLs as playable or dead.
package probe

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of probing one stream URL. Detected and Codec are
// informational; they never gate Valid.
type Result struct {
	Valid    bool
	Reason   string
	Detected []string
	Codec    string
}

// Tester probes stream URLs over HTTP, optionally deepened by ffprobe when
// the tool is present on the host.
type Tester struct {
	client      *http.Client
	timeout     time.Duration
	userAgent   string
	ffprobePath string
}

// NewTester returns a Tester with the given per-probe timeout (default 10s).
func NewTester(timeout time.Duration, userAgent string) *Tester {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if userAgent == "" {
		userAgent = "VLC/3.0.21 LibVLC/3.0.21"
	}
	path, err := exec.LookPath("ffprobe")
	if err != nil {
		path = ""
	}
	return &Tester{
		client:      &http.Client{Timeout: timeout},
		timeout:     timeout,
		userAgent:   userAgent,
		ffprobePath: path,
	}
}

// Test probes streamURL. The HTTP check decides validity; ffprobe only adds
// codec information and can never downgrade a passing HTTP check. If the
// combined path fails unexpectedly, a minimal range-request check is the
// last word before concluding invalid.
func (t *Tester) Test(ctx context.Context, streamURL string) (res Result) {
	if streamURL == "" {
		return Result{Reason: "No stream URL"}
	}
	defer func() {
		if recover() != nil {
			res = t.rangeCheck(ctx, streamURL)
		}
	}()
	return t.httpThenFFprobe(ctx, streamURL)
}

func (t *Tester) httpThenFFprobe(ctx context.Context, streamURL string) Result {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return Result{Reason: "Connection error"}
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "*/*")
	resp, err := t.client.Do(req)
	if err != nil {
		return Result{Reason: classifyTransportErr(err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return Result{Reason: "HTTP error: " + strconv.Itoa(resp.StatusCode)}
	}

	chunk := make([]byte, 2048)
	n, _ := io.ReadFull(resp.Body, chunk)
	if n == 0 {
		return Result{Reason: "No data received"}
	}
	chunk = chunk[:n]

	res := Result{
		Valid:    true,
		Detected: classifyContent(chunk, resp.Header.Get("Content-Type"), streamURL),
	}
	if t.ffprobePath != "" {
		// Probe failures are inconclusive: the HTTP check already passed.
		res.Codec = t.ffprobeCodec(ctx, streamURL)
	}
	return res
}

// rangeCheck is the HTTP-only fallback: a bounded range request, status-code
// classification only.
func (t *Tester) rangeCheck(ctx context.Context, streamURL string) Result {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return Result{Reason: "Connection error"}
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Range", "bytes=0-1023")
	resp, err := t.client.Do(req)
	if err != nil {
		return Result{Reason: classifyTransportErr(err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return Result{Reason: "HTTP error: " + strconv.Itoa(resp.StatusCode)}
	}
	return Result{Valid: true}
}

func classifyTransportErr(err error) string {
	msg := err.Error()
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline") {
		return "HTTP timeout"
	}
	return "Connection error"
}

// classifyContent guesses what kind of stream this is from the first chunk,
// the Content-Type header and the URL suffix. Informational only.
func classifyContent(chunk []byte, contentType, streamURL string) []string {
	ct := strings.ToLower(contentType)
	lower := strings.ToLower(streamURL)
	head := chunk
	if len(head) > 100 {
		head = head[:100]
	}
	var detected []string
	if bytes.Contains(chunk, []byte("#EXTM3U")) ||
		strings.Contains(ct, "application/vnd.apple.mpegurl") ||
		strings.Contains(ct, "application/x-mpegurl") ||
		strings.HasSuffix(lower, ".m3u8") {
		detected = append(detected, "hls")
	}
	if strings.Contains(ct, "application/dash+xml") || strings.HasSuffix(lower, ".mpd") {
		detected = append(detected, "dash")
	}
	if strings.Contains(ct, "video/") || hasAnySuffix(lower, ".mp4", ".mkv", ".avi", ".mov", ".wmv", ".flv", ".webm") {
		detected = append(detected, "video_file")
	}
	if strings.Contains(ct, "video/mp2t") || strings.HasSuffix(lower, ".ts") {
		detected = append(detected, "transport_stream")
	}
	if bytes.Contains(head, []byte("ftyp")) ||
		bytes.HasPrefix(chunk, []byte("FLV")) ||
		bytes.Contains(head, []byte("ID3")) ||
		bytes.HasPrefix(chunk, []byte{0x00, 0x00, 0x01, 0xba}) ||
		bytes.HasPrefix(chunk, []byte{'G', 0x40}) {
		detected = append(detected, "media_container")
	}
	if strings.HasPrefix(lower, "rtmp://") || strings.HasPrefix(lower, "rtmps://") || strings.HasPrefix(lower, "rtsp://") {
		detected = append(detected, "rtmp_like")
	}
	return detected
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
