// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus instrumentation for the gateway.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StageStartTotal tracks stage spawn attempts by result.
	StageStartTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "srtgate_stage_start_total",
		Help: "Total number of stage process starts",
	}, []string{"stage", "result"})

	// StageExitTotal tracks stage process exits.
	StageExitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "srtgate_stage_exit_total",
		Help: "Total number of stage process exits",
	}, []string{"stage"})

	// PipelineRestartTotal counts pipeline generations beyond the first.
	PipelineRestartTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "srtgate_pipeline_restart_total",
		Help: "Total number of pipeline restarts",
	})

	// GateTickTotal counts gatekeeper evaluations by verdict.
	GateTickTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "srtgate_gate_tick_total",
		Help: "Total number of gatekeeper evaluations by health verdict",
	}, []string{"healthy"})

	// ProbeFailureTotal counts failed artifact checks by check name.
	ProbeFailureTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "srtgate_probe_failure_total",
		Help: "Total number of failed artifact probe checks",
	}, []string{"check"})

	// PublishTransitionTotal counts publish/unpublish state transitions.
	PublishTransitionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "srtgate_publish_transition_total",
		Help: "Total number of publish state transitions",
	}, []string{"action"})

	// Published reflects whether the public playlist currently exists.
	Published = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "srtgate_published",
		Help: "1 when the public playlist is published, 0 otherwise",
	})
)

// IncStageStart records a stage spawn attempt outcome.
func IncStageStart(stage string, ok bool) {
	result := "error"
	if ok {
		result = "ok"
	}
	StageStartTotal.WithLabelValues(stage, result).Inc()
}

// IncStageExit records a stage process exit.
func IncStageExit(stage string) {
	StageExitTotal.WithLabelValues(stage).Inc()
}

// IncGateTick records a gatekeeper evaluation verdict.
func IncGateTick(healthy bool) {
	GateTickTotal.WithLabelValues(strconv.FormatBool(healthy)).Inc()
}

// IncProbeFailure records a failed probe check ("freshness", "segments", "deep").
func IncProbeFailure(check string) {
	ProbeFailureTotal.WithLabelValues(check).Inc()
}

// SetPublished records the current publish state.
func SetPublished(published bool) {
	if published {
		Published.Set(1)
	} else {
		Published.Set(0)
	}
}
