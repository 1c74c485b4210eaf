// SPDX-License-Identifier: MIT

// Package supervisor restarts the external stage pipeline forever. All stages
// of one generation live and die together; a new generation is only spawned
// after the previous one is fully torn down.
package supervisor

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/srtgate/internal/log"
	"github.com/ManuGH/srtgate/internal/metrics"
	"github.com/ManuGH/srtgate/internal/relay"
	"github.com/ManuGH/srtgate/internal/stage"
)

// State describes where a pipeline instance is in its lifecycle.
type State int

const (
	StateStarting State = iota
	StateRunning
	StateTerminating
	StateExited
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateTerminating:
		return "terminating"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// CheckBinaries verifies every stage executable is resolvable. Called once at
// startup; a missing binary is the only fatal failure class.
func CheckBinaries(specs []relay.StageSpec) error {
	seen := map[string]bool{}
	for _, spec := range specs {
		if seen[spec.Bin] {
			continue
		}
		seen[spec.Bin] = true
		if _, err := exec.LookPath(spec.Bin); err != nil {
			return fmt.Errorf("required binary %q not found in PATH: %w", spec.Bin, err)
		}
	}
	return nil
}

// Instance is one generation of the pipeline: every stage spawned together.
type Instance struct {
	procs []*stage.Process
	state State
}

// startInstance spawns all stages in order. If stage k fails to launch, the
// already-running stages are torn down before the error is returned.
func startInstance(specs []relay.StageSpec, ring *stage.LineRing, grace time.Duration) (*Instance, error) {
	inst := &Instance{state: StateStarting}
	for _, spec := range specs {
		p, err := stage.Start(spec, ring)
		if err != nil {
			inst.teardown(grace)
			return nil, err
		}
		inst.procs = append(inst.procs, p)
	}
	inst.state = StateRunning
	return inst, nil
}

// firstExit returns a channel that yields the first stage to exit.
func (i *Instance) firstExit() <-chan *stage.Process {
	ch := make(chan *stage.Process, 1)
	for _, p := range i.procs {
		go func(p *stage.Process) {
			<-p.Done()
			select {
			case ch <- p:
			default:
			}
		}(p)
	}
	return ch
}

// teardown terminates every still-running stage, grace then force. Teardown
// completes before the caller may spawn the next generation.
func (i *Instance) teardown(grace time.Duration) {
	i.state = StateTerminating
	for _, p := range i.procs {
		if err := p.Terminate(grace); err != nil {
			logger := log.WithComponent("supervisor")
			logger.Warn().
				Err(err).
				Str("event", "supervisor.teardown_error").
				Str("stage", p.Label()).
				Msg("stage teardown failed")
		}
	}
	i.state = StateExited
}

// Supervisor owns the restart loop for the pipeline.
type Supervisor struct {
	specs   []relay.StageSpec
	backoff time.Duration
	grace   time.Duration
	ring    *stage.LineRing
	logger  zerolog.Logger
}

// New creates a supervisor for the given stage list.
func New(specs []relay.StageSpec, backoff, grace time.Duration) *Supervisor {
	return &Supervisor{
		specs:   specs,
		backoff: backoff,
		grace:   grace,
		ring:    stage.NewLineRing(256),
		logger:  log.WithComponent("supervisor"),
	}
}

// Run restarts the pipeline until ctx is cancelled. Any stage exit, for any
// reason, is treated as abnormal for a continuous live stream and triggers a
// full restart; there is no retry cutoff.
func (s *Supervisor) Run(ctx context.Context) {
	generation := 0
	for {
		if ctx.Err() != nil {
			s.logger.Info().Str("event", "supervisor.stopped").Msg("supervisor loop exiting")
			return
		}

		generation++
		if generation > 1 {
			metrics.PipelineRestartTotal.Inc()
		}
		s.runGeneration(ctx, generation)

		if ctx.Err() != nil {
			continue // loop head logs and returns
		}
		if !sleepInterruptible(ctx, s.backoff) {
			continue
		}
	}
}

func (s *Supervisor) runGeneration(ctx context.Context, generation int) {
	for _, spec := range s.specs {
		s.logger.Info().
			Str("event", "supervisor.spawning").
			Int("generation", generation).
			Str("stage", spec.Label).
			Str("command", spec.String()).
			Msg("starting pipeline stage")
	}

	inst, err := startInstance(s.specs, s.ring, s.grace)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("event", "supervisor.launch_failed").
			Int("generation", generation).
			Msg("pipeline launch failed, will retry")
		return
	}

	select {
	case p := <-inst.firstExit():
		code, _ := p.Exited()
		s.logger.Warn().
			Str("event", "supervisor.stage_exited").
			Int("generation", generation).
			Str("stage", p.Label()).
			Int("exit_code", code).
			Strs("output_tail", s.ring.LastN(20)).
			Msg("stage exited, tearing down pipeline instance")
	case <-ctx.Done():
		s.logger.Info().
			Str("event", "supervisor.stop_requested").
			Int("generation", generation).
			Msg("stop requested, tearing down pipeline instance")
	}

	// One stage down means the instance is no longer coherent: the partner
	// stages would drift or write stale output. Kill them all before any
	// restart decision.
	inst.teardown(s.grace)
}

// sleepInterruptible sleeps d in one-second slices so a stop request bounds
// shutdown latency. Returns false if ctx was cancelled.
func sleepInterruptible(ctx context.Context, d time.Duration) bool {
	for remaining := d; remaining > 0; remaining -= time.Second {
		slice := time.Second
		if remaining < slice {
			slice = remaining
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(slice):
		}
	}
	return true
}
