//go:build !windows

package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tools.zach/dev/flagman/internal/paths"
)

// flock locks belong to the open file description, so a second open in the
// same process sees the lock as held.
func TestAcquirePID_Held(t *testing.T) {
	dp := paths.DataDir{Root: t.TempDir()}

	p, err := acquirePID(dp)
	require.NoError(t, err)
	defer p.Release()

	_, err = acquirePID(dp)
	var running *runningError
	require.ErrorAs(t, err, &running)
	assert.Equal(t, os.Getpid(), running.PID)
	assert.FileExists(t, dp.PID(), "held PID file must not be removed")
}

func TestLockFile_Contention(t *testing.T) {
	path := paths.DataDir{Root: t.TempDir()}.PID()
	a, err := os.Create(path)
	require.NoError(t, err)
	defer a.Close()
	b, err := os.Open(path)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, lockFile(a))
	assert.ErrorIs(t, lockFile(b), errLocked)
	require.NoError(t, unlockFile(a))
	assert.NoError(t, lockFile(b), "lockFile(b) after unlock")
}
