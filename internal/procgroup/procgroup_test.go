// SPDX-License-Identifier: MIT

//go:build unix

package procgroup

import (
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalNilSafe(t *testing.T) {
	assert.NoError(t, Signal(nil, syscall.SIGTERM))
	assert.NoError(t, Signal(&exec.Cmd{}, syscall.SIGTERM))
}

func TestSignalTerminatesGroup(t *testing.T) {
	// The shell forks a child sleep; both must die with one group signal.
	cmd := exec.Command("sh", "-c", "sleep 30 & wait")
	Set(cmd)
	require.NoError(t, cmd.Start())

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	require.NoError(t, Signal(cmd, syscall.SIGKILL))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("process group did not die after SIGKILL")
	}
}

func TestSignalAfterExit(t *testing.T) {
	cmd := exec.Command("true")
	Set(cmd)
	require.NoError(t, cmd.Start())
	require.NoError(t, cmd.Wait())

	assert.NoError(t, Signal(cmd, syscall.SIGTERM))
}
