// SPDX-License-Identifier: MIT

// Package health assembles the externally visible health view of the gateway:
// private playlist freshness plus current publish state.
package health

import (
	"encoding/json"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/ManuGH/srtgate/internal/log"
)

// Report is the JSON body of the health endpoint.
type Report struct {
	OK              bool     `json:"ok"`
	Playlist        string   `json:"playlist"`
	Exists          bool     `json:"exists"`
	PlaylistAgeSec  *float64 `json:"playlist_age_sec"`
	PublicExists    bool     `json:"public_exists"`
	MaxStalenessSec float64  `json:"max_staleness_sec"`
}

// Reporter produces Reports from the on-disk artifacts. Stateless; every
// call re-reads the filesystem.
type Reporter struct {
	PlaylistPath string
	PublicPath   string
	MaxStaleness time.Duration

	now func() time.Time
}

// NewReporter creates a reporter for the given artifact pair.
func NewReporter(playlistPath, publicPath string, maxStaleness time.Duration) *Reporter {
	return &Reporter{
		PlaylistPath: playlistPath,
		PublicPath:   publicPath,
		MaxStaleness: maxStaleness,
		now:          time.Now,
	}
}

// Report computes the current health view. Overall OK means the private
// playlist exists and is fresh.
func (r *Reporter) Report() Report {
	rep := Report{
		Playlist:        r.PlaylistPath,
		MaxStalenessSec: r.MaxStaleness.Seconds(),
	}

	if info, err := os.Stat(r.PlaylistPath); err == nil {
		rep.Exists = true
		age := math.Round(r.now().Sub(info.ModTime()).Seconds()*1000) / 1000
		rep.PlaylistAgeSec = &age
		rep.OK = age <= r.MaxStaleness.Seconds()
	}

	if _, err := os.Stat(r.PublicPath); err == nil {
		rep.PublicExists = true
	}

	return rep
}

// ServeHTTP answers the health endpoint: 200 when healthy, 503 otherwise.
func (r *Reporter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	rep := r.Report()

	w.Header().Set("Content-Type", "application/json")
	if rep.OK {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(rep); err != nil {
		logger := log.WithComponent("health")
		logger.Error().
			Err(err).
			Str("event", "health.encode_error").
			Msg("failed to encode health response")
	}
}
