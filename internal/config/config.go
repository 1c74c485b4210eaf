// SPDX-License-Identifier: MIT

// Package config builds the srtgate runtime configuration from the process
// environment. Precedence is ENV > defaults; the resulting Config is immutable
// and passed by value.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// PipelineMode selects how many external stages form one pipeline instance.
type PipelineMode string

const (
	// ModeDirect runs a single ffmpeg stage listening on SRT directly.
	ModeDirect PipelineMode = "direct"
	// ModeRelay fronts ffmpeg with srt-live-transmit over a UDP loopback leg.
	ModeRelay PipelineMode = "relay"
)

// Config is the complete runtime configuration of the gateway.
type Config struct {
	// Input
	InputPort int
	Mode      PipelineMode

	// Output layout
	HLSDir             string
	PlaylistName       string // private playlist, written by ffmpeg
	PublicPlaylistName string // gated copy, written only by the publisher

	// HLS behavior
	HLSTime            int
	HLSListSize        int
	HLSDeleteThreshold int

	// Transcoding / repackaging
	VideoCodec     string
	AudioCodec     string
	X264Preset     string
	X264Tune       string
	VideoCRF       string
	VideoBitrate   string
	AudioBitrate   string
	ForceKeyframes bool

	// SRT tuning
	SRTLatencyUS   int
	SRTRcvbufBytes int
	SRTTranstype   string
	SRTPktSize     int

	// Input probing / format override
	InputFormat     string
	ProbeSize       string
	AnalyzeDuration string
	ExtraInputArgs  []string

	// Restart behavior
	RestartBackoff time.Duration
	StopGrace      time.Duration

	// Health endpoint
	HealthAddr   string
	MaxStaleness time.Duration

	// Stability gate
	MinSegments    int
	DebounceWindow time.Duration
	TickInterval   time.Duration
	DeepProbe      bool
	ProbeTimeout   time.Duration

	// Startup
	CleanupOnStart bool
}

// FromEnv assembles a Config from the environment, applying the gateway's
// defaults for anything unset.
func FromEnv() Config {
	return Config{
		InputPort: ParseInt("INPUT_PORT", 9000),
		Mode:      PipelineMode(ParseString("PIPELINE_MODE", string(ModeDirect))),

		HLSDir:             ParseString("HLS_DIR", "/var/www/html/hls"),
		PlaylistName:       ParseString("PLAYLIST_NAME", "stream.m3u8"),
		PublicPlaylistName: ParseString("PUBLIC_PLAYLIST_NAME", "live.m3u8"),

		HLSTime:            ParseInt("HLS_TIME_SEC", 2),
		HLSListSize:        ParseInt("HLS_LIST_SIZE", 6),
		HLSDeleteThreshold: ParseInt("HLS_DELETE_THRESHOLD", 1),

		VideoCodec:     ParseString("VIDEO_CODEC", "copy"),
		AudioCodec:     ParseString("AUDIO_CODEC", "aac"),
		X264Preset:     ParseString("X264_PRESET", "veryfast"),
		X264Tune:       ParseString("X264_TUNE", "zerolatency"),
		VideoCRF:       ParseString("VIDEO_CRF", ""),
		VideoBitrate:   ParseString("VIDEO_BITRATE", ""),
		AudioBitrate:   ParseString("AUDIO_BITRATE", "128k"),
		ForceKeyframes: ParseBool("FORCE_KEYFRAMES", false),

		SRTLatencyUS:   ParseInt("SRT_LATENCY_US", 800000),
		SRTRcvbufBytes: ParseInt("SRT_RCVBUF_BYTES", 268435456),
		SRTTranstype:   ParseString("SRT_TRANSTYPE", "live"),
		SRTPktSize:     ParseInt("SRT_PKT_SIZE", 1316),

		InputFormat:     ParseString("INPUT_FORMAT", "mpegts"),
		ProbeSize:       ParseString("PROBE_SIZE", "5M"),
		AnalyzeDuration: ParseString("ANALYZE_DURATION", "5M"),
		ExtraInputArgs:  splitArgs(ParseString("FFMPEG_INPUT_ARGS", "")),

		RestartBackoff: ParseSeconds("RESTART_SLEEP_SEC", 2*time.Second),
		StopGrace:      ParseSeconds("STOP_GRACE_SEC", 5*time.Second),

		HealthAddr:   fmt.Sprintf(":%d", ParseInt("HEALTH_PORT", 8088)),
		MaxStaleness: ParseSeconds("HEALTH_MAX_STALENESS_SEC", 10*time.Second),

		MinSegments:    ParseInt("MIN_SEGMENTS", 2),
		DebounceWindow: ParseSeconds("DEBOUNCE_WINDOW_SEC", 8*time.Second),
		TickInterval:   ParseSeconds("GATE_TICK_SEC", 1*time.Second),
		DeepProbe:      ParseBool("DEEP_PROBE", false),
		ProbeTimeout:   ParseSeconds("PROBE_TIMEOUT_SEC", 5*time.Second),

		CleanupOnStart: ParseBool("CLEANUP_ON_START", true),
	}
}

// Validate rejects configurations the gateway cannot run with.
func (c Config) Validate() error {
	if c.InputPort <= 0 || c.InputPort > 65535 {
		return fmt.Errorf("invalid input port %d", c.InputPort)
	}
	if c.Mode != ModeDirect && c.Mode != ModeRelay {
		return fmt.Errorf("invalid pipeline mode %q", c.Mode)
	}
	if c.HLSDir == "" {
		return fmt.Errorf("hls dir must not be empty")
	}
	if c.PlaylistName == "" || c.PublicPlaylistName == "" {
		return fmt.Errorf("playlist names must not be empty")
	}
	if c.PlaylistName == c.PublicPlaylistName {
		return fmt.Errorf("private and public playlist names must differ")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("gate tick interval must be positive")
	}
	if c.DebounceWindow < 0 {
		return fmt.Errorf("debounce window must not be negative")
	}
	if c.MaxStaleness <= 0 {
		return fmt.Errorf("max staleness must be positive")
	}
	if c.MinSegments < 1 {
		return fmt.Errorf("min segments must be at least 1")
	}
	if c.RestartBackoff < 0 {
		return fmt.Errorf("restart backoff must not be negative")
	}
	if c.StopGrace <= 0 {
		return fmt.Errorf("stop grace must be positive")
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be positive")
	}
	return nil
}

// PrivatePlaylistPath is the path ffmpeg continuously rewrites.
func (c Config) PrivatePlaylistPath() string {
	return filepath.Join(c.HLSDir, c.PlaylistName)
}

// PublicPlaylistPath is the consumer-visible path managed by the publisher.
func (c Config) PublicPlaylistPath() string {
	return filepath.Join(c.HLSDir, c.PublicPlaylistName)
}

// splitArgs splits whitespace-separated ad-hoc ffmpeg flags. Quoting is not
// supported; operators needing spaces in values should bake a custom spec.
func splitArgs(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	return fields
}
