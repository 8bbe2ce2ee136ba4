//go:build !windows

package supervisor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript drops an executable shell script that ignores the JVM-style
// argument vector the supervisor always passes.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fakejava.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o750))
	return path
}

func TestSpawnRealProcessExitZero(t *testing.T) {
	rec := newRecorder()
	s := New(rec.callbacks())

	s.Spawn(LaunchSpec{
		ID:       "alpha",
		JavaPath: writeScript(t, `echo "Done! For help, type \"help\""`),
		Dir:      t.TempDir(),
		JarPath:  "server.jar",
	})
	rec.waitExit(t)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.exits, 1)
	require.NotNil(t, rec.exits[0])
	assert.Equal(t, 0, *rec.exits[0])
	assert.Contains(t, strings.Join(rec.stdout, ""), "For help")
}

func TestKillDeliversSignalExit(t *testing.T) {
	rec := newRecorder()
	s := New(rec.callbacks())

	s.Spawn(LaunchSpec{
		ID:       "alpha",
		JavaPath: writeScript(t, "echo up\nsleep 30"),
		Dir:      t.TempDir(),
		JarPath:  "server.jar",
	})

	// Wait for the process to come up before signaling.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !s.IsRunning("alpha") {
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, s.IsRunning("alpha"))

	require.True(t, s.Kill("alpha"))
	rec.waitExit(t)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.exits, 1)
	// Terminated by signal: no portable exit code.
	assert.Nil(t, rec.exits[0])
}
