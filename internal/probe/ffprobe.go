package probe

import (
	"context"
	"encoding/json"
	"os/exec"
)

// ffprobeCodec runs ffprobe against the URL with bounded analysis size and
// duration, and returns the first video stream's codec name. Any failure,
// timeout, or unparseable output yields "": the probe only ever adds
// information on top of a passing HTTP check.
func (t *Tester) ffprobeCodec(ctx context.Context, streamURL string) string {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, t.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "v:0",
		"-analyzeduration", "5000000",
		"-probesize", "5000000",
		streamURL,
	)
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	var parsed struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			CodecName string `json:"codec_name"`
		} `json:"streams"`
	}
	if json.Unmarshal(out, &parsed) != nil {
		return ""
	}
	for _, s := range parsed.Streams {
		if s.CodecType == "video" && s.CodecName != "" && s.CodecName != "unknown" {
			return s.CodecName
		}
	}
	return ""
}
