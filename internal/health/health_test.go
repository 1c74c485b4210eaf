// SPDX-License-Identifier: MIT

package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReporter(t *testing.T) (*Reporter, string) {
	t.Helper()
	dir := t.TempDir()
	r := NewReporter(
		filepath.Join(dir, "stream.m3u8"),
		filepath.Join(dir, "live.m3u8"),
		10*time.Second,
	)
	return r, dir
}

func TestReportMissingPlaylist(t *testing.T) {
	r, _ := newTestReporter(t)

	rep := r.Report()
	assert.False(t, rep.OK)
	assert.False(t, rep.Exists)
	assert.Nil(t, rep.PlaylistAgeSec)
	assert.False(t, rep.PublicExists)
	assert.Equal(t, 10.0, rep.MaxStalenessSec)
}

func TestReportFreshPlaylist(t *testing.T) {
	r, _ := newTestReporter(t)
	require.NoError(t, os.WriteFile(r.PlaylistPath, []byte("#EXTM3U\n"), 0o644))
	require.NoError(t, os.WriteFile(r.PublicPath, []byte("#EXTM3U\n"), 0o644))

	rep := r.Report()
	assert.True(t, rep.OK)
	assert.True(t, rep.Exists)
	require.NotNil(t, rep.PlaylistAgeSec)
	assert.LessOrEqual(t, *rep.PlaylistAgeSec, 10.0)
	assert.True(t, rep.PublicExists)
}

func TestReportStalePlaylist(t *testing.T) {
	r, _ := newTestReporter(t)
	require.NoError(t, os.WriteFile(r.PlaylistPath, []byte("#EXTM3U\n"), 0o644))
	past := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(r.PlaylistPath, past, past))

	rep := r.Report()
	assert.False(t, rep.OK)
	assert.True(t, rep.Exists)
	require.NotNil(t, rep.PlaylistAgeSec)
	assert.Greater(t, *rep.PlaylistAgeSec, 10.0)
}

func TestServeHTTPStatusCodes(t *testing.T) {
	r, _ := newTestReporter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.NoError(t, os.WriteFile(r.PlaylistPath, []byte("#EXTM3U\n"), 0o644))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var rep Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.True(t, rep.OK)
	assert.Equal(t, r.PlaylistPath, rep.Playlist)
}

func TestReportJSONFieldNames(t *testing.T) {
	r, _ := newTestReporter(t)

	body, err := json.Marshal(r.Report())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	for _, key := range []string{"ok", "playlist", "exists", "playlist_age_sec", "public_exists", "max_staleness_sec"} {
		assert.Contains(t, raw, key)
	}
	assert.Nil(t, raw["playlist_age_sec"])
}
