// SPDX-License-Identifier: MIT

package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"
)

// FFProbe validates a segment by asking ffprobe for its stream layout and
// requiring at least one decodable video stream. Any execution error, timeout
// or unusable output counts as a validation failure.
type FFProbe struct {
	BinPath string
	Timeout time.Duration
}

// NewFFProbe creates a validator with sane defaults.
func NewFFProbe(timeout time.Duration) *FFProbe {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &FFProbe{BinPath: "ffprobe", Timeout: timeout}
}

type probeData struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
	} `json:"streams"`
}

// Validate implements Validator.
func (f *FFProbe) Validate(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	bin := f.BinPath
	if bin == "" {
		bin = "ffprobe"
	}

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		path,
	}
	// #nosec G204 -- binary is fixed and args are strictly controlled
	cmd := exec.CommandContext(ctx, bin, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		errStr := stderr.String()
		if len(errStr) > 1024 {
			errStr = errStr[:1024] + "..."
		}
		return fmt.Errorf("ffprobe failed: %w (stderr: %s)", err, errStr)
	}

	var data probeData
	if err := json.Unmarshal(out, &data); err != nil {
		return fmt.Errorf("ffprobe json decode: %w", err)
	}

	for _, s := range data.Streams {
		if s.CodecType == "video" && s.CodecName != "" {
			return nil
		}
	}
	return fmt.Errorf("no video stream in %s", path)
}
