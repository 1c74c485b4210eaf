// SPDX-License-Identifier: MIT

// Package gate runs the stability-gated publishing loop. The gatekeeper is
// the sole decision authority over the public playlist: it publishes only
// after sustained health and hides the stream on the first unhealthy tick.
package gate

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/srtgate/internal/log"
	"github.com/ManuGH/srtgate/internal/metrics"
	"github.com/ManuGH/srtgate/internal/probe"
)

// Gatekeeper evaluates the output directory on a fixed tick and drives the
// publisher. Single-threaded; all fields are owned by the Run goroutine.
type Gatekeeper struct {
	Probe     *probe.Probe
	Publisher *Publisher
	Tick      time.Duration
	Debounce  time.Duration

	logger zerolog.Logger
	now    func() time.Time

	stableSince time.Time // zero while unhealthy
	published   bool
}

// New creates a gatekeeper.
func New(p *probe.Probe, pub *Publisher, tick, debounce time.Duration) *Gatekeeper {
	return &Gatekeeper{
		Probe:     p,
		Publisher: pub,
		Tick:      tick,
		Debounce:  debounce,
		logger:    log.WithComponent("gatekeeper"),
		now:       time.Now,
	}
}

// Run evaluates once per tick until ctx is cancelled.
func (g *Gatekeeper) Run(ctx context.Context) {
	ticker := time.NewTicker(g.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.logger.Info().Str("event", "gate.stopped").Msg("gatekeeper loop exiting")
			return
		case <-ticker.C:
			g.tick(ctx)
		}
	}
}

// tick performs one evaluation. Hysteresis is asymmetric: a single unhealthy
// tick unpublishes immediately, while publishing requires the full debounce
// window of continuous health. I/O failures count as a failed tick and are
// retried on the next one.
func (g *Gatekeeper) tick(ctx context.Context) {
	now := g.now()
	snap := g.Probe.Evaluate(ctx, now)

	metrics.IncGateTick(snap.Healthy)
	g.countFailures(snap)

	if !snap.Healthy {
		if !g.stableSince.IsZero() {
			g.logger.Warn().
				Str("event", "gate.health_lost").
				Bool("fresh", snap.Fresh).
				Int("segments", snap.SegmentCount).
				AnErr("deep_err", snap.DeepErr).
				Msg("output unhealthy, hiding public playlist")
		}
		g.stableSince = time.Time{}

		if err := g.Publisher.Unpublish(); err != nil {
			g.logger.Error().Err(err).Str("event", "gate.unpublish_failed").Msg("unpublish failed, retrying next tick")
			return
		}
		if g.published {
			metrics.PublishTransitionTotal.WithLabelValues("unpublish").Inc()
			g.logger.Info().Str("event", "gate.unpublished").Msg("public playlist removed")
		}
		g.published = false
		metrics.SetPublished(false)
		return
	}

	if g.stableSince.IsZero() {
		g.stableSince = now
		g.logger.Info().
			Str("event", "gate.health_gained").
			Dur("debounce", g.Debounce).
			Msg("output healthy, debounce window started")
	}
	if now.Sub(g.stableSince) < g.Debounce {
		return
	}

	if err := g.Publisher.Publish(); err != nil {
		g.logger.Error().Err(err).Str("event", "gate.publish_failed").Msg("publish failed, retrying next tick")
		return
	}
	if !g.published {
		metrics.PublishTransitionTotal.WithLabelValues("publish").Inc()
		g.logger.Info().
			Str("event", "gate.published").
			Dur("stable_for", now.Sub(g.stableSince)).
			Msg("public playlist published")
	}
	g.published = true
	metrics.SetPublished(true)
}

func (g *Gatekeeper) countFailures(snap probe.Snapshot) {
	if !snap.Fresh {
		metrics.IncProbeFailure("freshness")
	}
	if !snap.EnoughSegments {
		metrics.IncProbeFailure("segments")
	}
	if snap.DeepChecked && snap.DeepErr != nil {
		metrics.IncProbeFailure("deep")
	}
}
