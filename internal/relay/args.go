// SPDX-License-Identifier: MIT

// Package relay constructs the external stage commands that move an SRT input
// to HLS output. The supervisor treats the resulting specs as opaque.
package relay

import (
	"fmt"
	"path/filepath"

	"github.com/ManuGH/srtgate/internal/config"
)

// StageSpec is one external process of a pipeline: executable, argument
// vector and a human-readable label. Immutable once built.
type StageSpec struct {
	Label string
	Bin   string
	Args  []string
}

// String renders the full command line for logging.
func (s StageSpec) String() string {
	out := s.Bin
	for _, a := range s.Args {
		out += " " + a
	}
	return out
}

// relayUDPPort is the loopback leg between srt-live-transmit and ffmpeg in
// relay mode. Kept off the common ephemeral range.
const relayUDPPort = 10500

// BuildPipeline assembles the ordered stage list for the configured mode.
// All stages of the returned slice form one atomic pipeline instance.
func BuildPipeline(cfg config.Config) []StageSpec {
	switch cfg.Mode {
	case config.ModeRelay:
		return []StageSpec{
			{
				Label: "srt-relay",
				Bin:   "srt-live-transmit",
				Args: []string{
					"-loglevel:warning",
					srtListenURL(cfg),
					fmt.Sprintf("udp://127.0.0.1:%d?pkt_size=%d", relayUDPPort, cfg.SRTPktSize),
				},
			},
			{
				Label: "ffmpeg",
				Bin:   "ffmpeg",
				Args:  ffmpegArgs(cfg, fmt.Sprintf("udp://127.0.0.1:%d", relayUDPPort)),
			},
		}
	default:
		return []StageSpec{
			{
				Label: "ffmpeg",
				Bin:   "ffmpeg",
				Args:  ffmpegArgs(cfg, srtListenURL(cfg)),
			},
		}
	}
}

func srtListenURL(cfg config.Config) string {
	return fmt.Sprintf(
		"srt://0.0.0.0:%d?mode=listener&transtype=%s&pkt_size=%d&latency=%d&rcvbuf=%d",
		cfg.InputPort, cfg.SRTTranstype, cfg.SRTPktSize, cfg.SRTLatencyUS, cfg.SRTRcvbufBytes,
	)
}

// SegmentGlob matches the segment files ffmpeg writes into dir.
func SegmentGlob(dir string) string {
	return filepath.Join(dir, "seg_*.ts")
}

func ffmpegArgs(cfg config.Config, input string) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "warning",

		// Tolerate imperfect live inputs.
		"-fflags", "+genpts+discardcorrupt",
		"-err_detect", "ignore_err",

		// Avoid stdin blocking in containers.
		"-nostdin",
	}

	if cfg.AnalyzeDuration != "" {
		args = append(args, "-analyzeduration", cfg.AnalyzeDuration)
	}
	if cfg.ProbeSize != "" {
		args = append(args, "-probesize", cfg.ProbeSize)
	}
	if cfg.InputFormat != "" {
		args = append(args, "-f", cfg.InputFormat)
	}
	args = append(args, cfg.ExtraInputArgs...)

	args = append(args, "-i", input)

	// First video stream plus optional audio.
	args = append(args, "-map", "0:v:0", "-map", "0:a?")

	args = append(args, codecArgs(cfg)...)

	// temp_file keeps playlist updates atomic on the ffmpeg side;
	// delete_segments bounds disk usage.
	hlsFlags := "delete_segments+append_list+independent_segments+program_date_time+temp_file"

	args = append(args,
		"-f", "hls",
		"-hls_time", fmt.Sprintf("%d", cfg.HLSTime),
		"-hls_list_size", fmt.Sprintf("%d", cfg.HLSListSize),
		"-hls_delete_threshold", fmt.Sprintf("%d", cfg.HLSDeleteThreshold),
		"-hls_flags", hlsFlags,
		"-strftime", "1",
		"-hls_segment_filename", filepath.Join(cfg.HLSDir, "seg_%Y%m%d_%H%M%S.ts"),
		cfg.PrivatePlaylistPath(),
	)
	return args
}

func codecArgs(cfg config.Config) []string {
	var args []string

	if cfg.VideoCodec == "copy" {
		args = append(args, "-c:v", "copy")
	} else {
		args = append(args, "-c:v", cfg.VideoCodec)
		if cfg.VideoCodec == "libx264" {
			args = append(args, "-preset", cfg.X264Preset, "-tune", cfg.X264Tune)
			// Repeat SPS/PPS in output for HLS robustness.
			args = append(args, "-x264-params", "repeat-headers=1")
		}
		if (cfg.VideoCodec == "libx264" || cfg.VideoCodec == "libx265") && cfg.VideoCRF != "" {
			args = append(args, "-crf", cfg.VideoCRF)
		}
		if cfg.VideoBitrate != "" {
			args = append(args, "-b:v", cfg.VideoBitrate)
		}
		if cfg.ForceKeyframes {
			// Align keyframes to segment boundaries.
			args = append(args, "-force_key_frames", fmt.Sprintf("expr:gte(t,n_forced*%d)", cfg.HLSTime))
		}
	}

	switch cfg.AudioCodec {
	case "none", "disable", "disabled", "no":
		args = append(args, "-an")
	case "copy":
		args = append(args, "-c:a", "copy")
	default:
		args = append(args, "-c:a", cfg.AudioCodec)
		if cfg.AudioBitrate != "" {
			args = append(args, "-b:a", cfg.AudioBitrate)
		}
		// Helps strict HLS players; harmless if the input already matches.
		args = append(args, "-ar", "48000", "-ac", "2")
	}

	return args
}
