// SPDX-License-Identifier: MIT

// Command daemon runs the srtgate live-stream gateway: a supervised
// SRT-to-HLS pipeline with stability-gated publishing and a read-only
// health/metrics endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/srtgate/internal/api"
	"github.com/ManuGH/srtgate/internal/config"
	"github.com/ManuGH/srtgate/internal/fsutil"
	"github.com/ManuGH/srtgate/internal/gate"
	"github.com/ManuGH/srtgate/internal/health"
	sglog "github.com/ManuGH/srtgate/internal/log"
	"github.com/ManuGH/srtgate/internal/probe"
	"github.com/ManuGH/srtgate/internal/relay"
	"github.com/ManuGH/srtgate/internal/supervisor"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	sglog.Configure(sglog.Config{
		Level:   os.Getenv("LOG_LEVEL"),
		Service: "srtgate",
		Version: version,
	})
	logger := sglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.invalid").
			Msg("invalid configuration")
	}

	specs := relay.BuildPipeline(cfg)

	// Missing stage binaries are the only fatal failure class; everything
	// after this point is retried forever.
	if err := supervisor.CheckBinaries(specs); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.dependency_missing").
			Msg("required external binary not available")
	}
	if cfg.DeepProbe {
		if err := supervisor.CheckBinaries([]relay.StageSpec{{Label: "ffprobe", Bin: "ffprobe"}}); err != nil {
			logger.Fatal().
				Err(err).
				Str("event", "daemon.dependency_missing").
				Msg("deep probing enabled but ffprobe not available")
		}
	}

	if err := fsutil.EnsureDir(cfg.HLSDir); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.output_dir_failed").
			Msg("cannot create output directory")
	}
	if cfg.CleanupOnStart {
		if err := fsutil.CleanOutputDir(cfg.HLSDir); err != nil {
			logger.Warn().
				Err(err).
				Str("event", "daemon.cleanup_failed").
				Msg("output directory cleanup failed, continuing")
		}
	}

	artifactProbe := &probe.Probe{
		PlaylistPath: cfg.PrivatePlaylistPath(),
		SegmentGlob:  relay.SegmentGlob(cfg.HLSDir),
		MaxStaleness: cfg.MaxStaleness,
		MinSegments:  cfg.MinSegments,
	}
	if cfg.DeepProbe {
		artifactProbe.Deep = probe.NewFFProbe(cfg.ProbeTimeout)
	}

	publisher := gate.NewPublisher(cfg.PrivatePlaylistPath(), cfg.PublicPlaylistPath())
	gatekeeper := gate.New(artifactProbe, publisher, cfg.TickInterval, cfg.DebounceWindow)
	sup := supervisor.New(specs, cfg.RestartBackoff, cfg.StopGrace)

	reporter := health.NewReporter(cfg.PrivatePlaylistPath(), cfg.PublicPlaylistPath(), cfg.MaxStaleness)
	apiServer := api.NewServer(cfg.HealthAddr, reporter)

	logger.Info().
		Str("event", "daemon.starting").
		Str("mode", string(cfg.Mode)).
		Str("srt_input", fmt.Sprintf("srt://<host>:%d?mode=caller", cfg.InputPort)).
		Str("hls_output", cfg.PublicPlaylistPath()).
		Str("hls_dir", cfg.HLSDir).
		Str("health_addr", cfg.HealthAddr).
		Msg("srt listener to hls gateway starting")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sup.Run(ctx)
		return nil
	})
	g.Go(func() error {
		gatekeeper.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return apiServer.Run(ctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().
			Err(err).
			Str("event", "daemon.failed").
			Msg("gateway terminated with error")
		os.Exit(1)
	}

	logger.Info().Str("event", "daemon.stopped").Msg("shutdown complete")
}
