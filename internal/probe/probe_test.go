// SPDX-License-Identifier: MIT

package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeValidator struct {
	err    error
	called int
	path   string
}

func (f *fakeValidator) Validate(_ context.Context, path string) error {
	f.called++
	f.path = path
	return f.err
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
}

func newProbe(dir string) *Probe {
	return &Probe{
		PlaylistPath: filepath.Join(dir, "stream.m3u8"),
		SegmentGlob:  filepath.Join(dir, "seg_*.ts"),
		MaxStaleness: 10 * time.Second,
		MinSegments:  2,
	}
}

func TestEvaluateEmptyDir(t *testing.T) {
	p := newProbe(t.TempDir())

	snap := p.Evaluate(context.Background(), time.Now())
	assert.False(t, snap.PlaylistExists)
	assert.False(t, snap.Fresh)
	assert.Equal(t, 0, snap.SegmentCount)
	assert.False(t, snap.Healthy)
}

func TestEvaluateHealthy(t *testing.T) {
	dir := t.TempDir()
	p := newProbe(dir)
	writeFile(t, p.PlaylistPath)
	writeFile(t, filepath.Join(dir, "seg_001.ts"))
	writeFile(t, filepath.Join(dir, "seg_002.ts"))

	snap := p.Evaluate(context.Background(), time.Now())
	assert.True(t, snap.PlaylistExists)
	assert.True(t, snap.Fresh)
	assert.Equal(t, 2, snap.SegmentCount)
	assert.True(t, snap.EnoughSegments)
	assert.False(t, snap.DeepChecked)
	assert.True(t, snap.Healthy)
}

func TestEvaluateStalePlaylist(t *testing.T) {
	dir := t.TempDir()
	p := newProbe(dir)
	writeFile(t, p.PlaylistPath)
	writeFile(t, filepath.Join(dir, "seg_001.ts"))
	writeFile(t, filepath.Join(dir, "seg_002.ts"))

	past := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(p.PlaylistPath, past, past))

	snap := p.Evaluate(context.Background(), time.Now())
	assert.True(t, snap.PlaylistExists)
	assert.False(t, snap.Fresh)
	assert.Greater(t, snap.PlaylistAge, 10*time.Second)
	assert.False(t, snap.Healthy)
}

func TestEvaluateTooFewSegments(t *testing.T) {
	dir := t.TempDir()
	p := newProbe(dir)
	writeFile(t, p.PlaylistPath)
	writeFile(t, filepath.Join(dir, "seg_001.ts"))

	snap := p.Evaluate(context.Background(), time.Now())
	assert.True(t, snap.Fresh)
	assert.False(t, snap.EnoughSegments)
	assert.False(t, snap.Healthy)
}

func TestEvaluateDeepValidationNewestSegment(t *testing.T) {
	dir := t.TempDir()
	p := newProbe(dir)
	writeFile(t, p.PlaylistPath)
	old := filepath.Join(dir, "seg_001.ts")
	newer := filepath.Join(dir, "seg_002.ts")
	writeFile(t, old)
	writeFile(t, newer)
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	v := &fakeValidator{}
	p.Deep = v

	snap := p.Evaluate(context.Background(), time.Now())
	assert.True(t, snap.DeepChecked)
	assert.Equal(t, 1, v.called)
	assert.Equal(t, newer, v.path)
	assert.True(t, snap.Healthy)
}

func TestEvaluateDeepValidationFailure(t *testing.T) {
	dir := t.TempDir()
	p := newProbe(dir)
	writeFile(t, p.PlaylistPath)
	writeFile(t, filepath.Join(dir, "seg_001.ts"))
	writeFile(t, filepath.Join(dir, "seg_002.ts"))

	p.Deep = &fakeValidator{err: errors.New("corrupt")}

	snap := p.Evaluate(context.Background(), time.Now())
	assert.True(t, snap.DeepChecked)
	assert.Error(t, snap.DeepErr)
	assert.False(t, snap.Healthy)
}

func TestEvaluateDeepSkippedWhenCheapChecksFail(t *testing.T) {
	dir := t.TempDir()
	p := newProbe(dir)
	writeFile(t, p.PlaylistPath) // no segments

	v := &fakeValidator{}
	p.Deep = v

	snap := p.Evaluate(context.Background(), time.Now())
	assert.False(t, snap.DeepChecked)
	assert.Zero(t, v.called)
	assert.False(t, snap.Healthy)
}
