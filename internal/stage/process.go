// SPDX-License-Identifier: MIT

// Package stage owns a single external pipeline process: spawn with merged
// output, continuous draining, non-blocking exit polling and graceful
// termination.
package stage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/srtgate/internal/log"
	"github.com/ManuGH/srtgate/internal/metrics"
	"github.com/ManuGH/srtgate/internal/procgroup"
	"github.com/ManuGH/srtgate/internal/relay"
)

// ErrLaunch marks a failure to spawn the stage executable.
var ErrLaunch = errors.New("stage launch failed")

// Process is one running external stage. Create with Start; after Done is
// closed the exit code is available via Exited.
type Process struct {
	spec relay.StageSpec
	cmd  *exec.Cmd
	ring *LineRing

	done     chan struct{}
	exitCode int
	exitErr  error
}

// Start spawns the stage with stdout and stderr merged onto a single pipe and
// the process placed in its own group. The output pump runs on its own
// goroutine; failing to drain it would eventually block the stage on a full
// pipe buffer.
func Start(spec relay.StageSpec, ring *LineRing) (*Process, error) {
	cmd := exec.Command(spec.Bin, spec.Args...) // #nosec G204 -- specs are built internally, no shell
	procgroup.Set(cmd)

	out, err := cmd.StdoutPipe()
	if err != nil {
		metrics.IncStageStart(spec.Label, false)
		return nil, fmt.Errorf("%w: %s: %v", ErrLaunch, spec.Label, err)
	}
	// StdoutPipe set cmd.Stdout to the pipe's write end; reuse it for stderr
	// so both streams arrive interleaved on one reader.
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		metrics.IncStageStart(spec.Label, false)
		return nil, fmt.Errorf("%w: %s: %v", ErrLaunch, spec.Label, err)
	}
	metrics.IncStageStart(spec.Label, true)

	p := &Process{
		spec: spec,
		cmd:  cmd,
		ring: ring,
		done: make(chan struct{}),
	}

	go p.pump(out)
	return p, nil
}

// pump forwards output lines to the logging sink and the ring buffer until
// the stream closes, then reaps the process exactly once.
func (p *Process) pump(out io.Reader) {
	logger := log.WithComponent(p.spec.Label)

	scanner := bufio.NewScanner(out)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if p.ring != nil {
			p.ring.Append(line)
		}
		logger.Info().Str("event", "stage.output").Msg(line)
	}
	if scanErr := scanner.Err(); scanErr != nil {
		// The pipe must stay drained even when line splitting gives up
		// (e.g. a token past the buffer cap), or the stage blocks on a
		// full pipe and is never reaped.
		logger.Warn().Err(scanErr).Str("event", "stage.output_unscannable").Msg("draining remaining output unparsed")
		_, _ = io.Copy(io.Discard, out)
	}

	err := p.cmd.Wait()
	p.exitCode = exitCodeOf(err)
	p.exitErr = err
	metrics.IncStageExit(p.spec.Label)
	close(p.done)
}

// Label returns the human-readable stage name.
func (p *Process) Label() string {
	return p.spec.Label
}

// Done is closed once the process has exited and its output is fully drained.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Exited reports the exit code if the process has terminated. It never
// blocks.
func (p *Process) Exited() (int, bool) {
	select {
	case <-p.done:
		return p.exitCode, true
	default:
		return 0, false
	}
}

// Terminate requests a graceful stop of the whole process group, waits up to
// grace, then force-kills. Safe to call on an already-exited process.
func (p *Process) Terminate(grace time.Duration) error {
	select {
	case <-p.done:
		return nil
	default:
	}

	logger := log.WithComponent(p.spec.Label)
	if err := procgroup.Signal(p.cmd, syscall.SIGTERM); err != nil {
		logger.Warn().Err(err).Str("event", "stage.term_failed").Msg("SIGTERM delivery failed")
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(grace):
	}

	logger.Warn().
		Str("event", "stage.force_kill").
		Dur("grace", grace).
		Msg("stage survived grace period, sending SIGKILL")
	if err := procgroup.Signal(p.cmd, syscall.SIGKILL); err != nil {
		return fmt.Errorf("kill %s: %w", p.spec.Label, err)
	}

	// SIGKILL cannot be ignored; the pump's Wait must return.
	<-p.done
	return nil
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
