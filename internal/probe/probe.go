// SPDX-License-Identifier: MIT

// Package probe inspects the HLS output directory and renders a point-in-time
// verdict on whether the private artifact is trustworthy.
package probe

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/ManuGH/srtgate/internal/fsutil"
)

// Validator deep-checks a single media file. Implementations must treat every
// internal failure as a validation failure, never as a fatal condition.
type Validator interface {
	Validate(ctx context.Context, path string) error
}

// Snapshot is an immutable point-in-time evaluation of the output directory.
type Snapshot struct {
	PlaylistExists bool
	PlaylistAge    time.Duration // meaningful only when PlaylistExists
	Fresh          bool
	SegmentCount   int
	EnoughSegments bool
	DeepChecked    bool
	DeepErr        error
	Healthy        bool
}

// Probe evaluates the output directory against the configured thresholds.
// It holds no state; every Evaluate call recomputes from disk.
type Probe struct {
	PlaylistPath string
	SegmentGlob  string
	MaxStaleness time.Duration
	MinSegments  int
	Deep         Validator // nil disables deep validation
}

// Evaluate computes a fresh Snapshot. Freshness is mtime age of the private
// playlist; segment sufficiency is a glob count; the deep check (when
// enabled) runs against the newest segment only once the cheap checks pass.
func (p *Probe) Evaluate(ctx context.Context, now time.Time) Snapshot {
	var snap Snapshot

	if info, err := os.Stat(p.PlaylistPath); err == nil {
		snap.PlaylistExists = true
		snap.PlaylistAge = now.Sub(info.ModTime())
		snap.Fresh = snap.PlaylistAge <= p.MaxStaleness
	}

	segments, err := filepath.Glob(p.SegmentGlob)
	if err == nil {
		snap.SegmentCount = len(segments)
	}
	snap.EnoughSegments = snap.SegmentCount >= p.MinSegments

	deepOK := true
	if p.Deep != nil && snap.Fresh && snap.EnoughSegments {
		snap.DeepChecked = true
		if newest, ok := fsutil.NewestByModTime(segments); ok {
			snap.DeepErr = p.Deep.Validate(ctx, newest)
		}
		deepOK = snap.DeepErr == nil
	}

	snap.Healthy = snap.Fresh && snap.EnoughSegments && deepOK
	return snap
}
