// SPDX-License-Identifier: MIT

//go:build unix

package probe

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProber writes a fake ffprobe executable that emits the given body.
func stubProber(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffprobe-stub")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755)) // #nosec G306
	return path
}

func TestFFProbeVideoStream(t *testing.T) {
	bin := stubProber(t, `echo '{"streams":[{"codec_type":"video","codec_name":"h264"}]}'`)
	f := &FFProbe{BinPath: bin, Timeout: 5 * time.Second}

	assert.NoError(t, f.Validate(context.Background(), "/tmp/seg.ts"))
}

func TestFFProbeAudioOnly(t *testing.T) {
	bin := stubProber(t, `echo '{"streams":[{"codec_type":"audio","codec_name":"aac"}]}'`)
	f := &FFProbe{BinPath: bin, Timeout: 5 * time.Second}

	err := f.Validate(context.Background(), "/tmp/seg.ts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no video stream")
}

func TestFFProbeNonZeroExit(t *testing.T) {
	bin := stubProber(t, `echo 'moov atom not found' >&2; exit 1`)
	f := &FFProbe{BinPath: bin, Timeout: 5 * time.Second}

	err := f.Validate(context.Background(), "/tmp/seg.ts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffprobe failed")
	assert.Contains(t, err.Error(), "moov atom not found")
}

func TestFFProbeGarbageOutput(t *testing.T) {
	bin := stubProber(t, `echo 'not json'`)
	f := &FFProbe{BinPath: bin, Timeout: 5 * time.Second}

	assert.Error(t, f.Validate(context.Background(), "/tmp/seg.ts"))
}

func TestFFProbeTimeout(t *testing.T) {
	bin := stubProber(t, `sleep 10`)
	f := &FFProbe{BinPath: bin, Timeout: 200 * time.Millisecond}

	start := time.Now()
	err := f.Validate(context.Background(), "/tmp/seg.ts")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNewFFProbeDefaults(t *testing.T) {
	f := NewFFProbe(0)
	assert.Equal(t, "ffprobe", f.BinPath)
	assert.Equal(t, 5*time.Second, f.Timeout)
}
