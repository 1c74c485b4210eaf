// SPDX-License-Identifier: MIT

// Package fsutil holds small filesystem helpers for the HLS output directory.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// EnsureDir creates the directory (and parents) if it does not exist.
func EnsureDir(dir string) error {
	// #nosec G301 -- segments must be readable by the fronting web server
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	return nil
}

// CleanOutputDir removes leftover HLS artifacts (*.ts, *.m3u8, *.tmp) from a
// previous run. Individual removal failures are skipped; a fresh ffmpeg run
// overwrites stragglers anyway.
func CleanOutputDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".ts") || strings.HasSuffix(name, ".m3u8") || strings.HasSuffix(name, ".tmp") {
			_ = os.Remove(filepath.Join(dir, name))
		}
	}
	return nil
}

// NewestByModTime returns the path in paths with the most recent modification
// time. Paths that cannot be stat'ed are skipped.
func NewestByModTime(paths []string) (string, bool) {
	var newest string
	var newestMod time.Time
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = p
			newestMod = info.ModTime()
		}
	}
	return newest, newest != ""
}
