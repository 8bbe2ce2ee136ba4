package supervisor

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePID is far above any real pid so stray signal calls fail harmlessly.
const fakePID = 999_999_999

type fakeCommand struct {
	mu       sync.Mutex
	stdin    bytes.Buffer
	startErr error
	code     *int

	waitCh chan struct{}
	outR   *io.PipeReader
	outW   *io.PipeWriter
	errR   *io.PipeReader
	errW   *io.PipeWriter
}

func newFakeCommand(code *int) *fakeCommand {
	f := &fakeCommand{code: code, waitCh: make(chan struct{})}
	f.outR, f.outW = io.Pipe()
	f.errR, f.errW = io.Pipe()
	return f
}

func (f *fakeCommand) Start() error { return f.startErr }
func (f *fakeCommand) Wait() error  { <-f.waitCh; return nil }
func (f *fakeCommand) PID() int     { return fakePID }

func (f *fakeCommand) ExitCode() *int { return f.code }

func (f *fakeCommand) StdoutPipe() (io.ReadCloser, error) { return f.outR, nil }
func (f *fakeCommand) StderrPipe() (io.ReadCloser, error) { return f.errR, nil }

func (f *fakeCommand) StdinPipe() (io.WriteCloser, error) {
	return nopWriteCloser{f}, nil
}

func (f *fakeCommand) stdinString() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stdin.String()
}

// finish simulates process exit: EOF on both pipes, then Wait returns.
func (f *fakeCommand) finish() {
	_ = f.outW.Close()
	_ = f.errW.Close()
	close(f.waitCh)
}

type nopWriteCloser struct{ f *fakeCommand }

func (w nopWriteCloser) Write(p []byte) (int, error) {
	w.f.mu.Lock()
	defer w.f.mu.Unlock()
	return w.f.stdin.Write(p)
}

func (w nopWriteCloser) Close() error { return nil }

type recorder struct {
	mu     sync.Mutex
	stdout []string
	exits  []*int
	errs   []error
	exitCh chan struct{}
	errCh  chan struct{}
}

func newRecorder() *recorder {
	return &recorder{exitCh: make(chan struct{}, 8), errCh: make(chan struct{}, 8)}
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnStdout: func(_, chunk string) {
			r.mu.Lock()
			r.stdout = append(r.stdout, chunk)
			r.mu.Unlock()
		},
		OnExit: func(_ string, code *int) {
			r.mu.Lock()
			r.exits = append(r.exits, code)
			r.mu.Unlock()
			r.exitCh <- struct{}{}
		},
		OnError: func(_ string, err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
			r.errCh <- struct{}{}
		},
	}
}

func (r *recorder) waitExit(t *testing.T) {
	t.Helper()
	select {
	case <-r.exitCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for exit event")
	}
}

func (r *recorder) waitError(t *testing.T) {
	t.Helper()
	select {
	case <-r.errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error event")
	}
}

func newTestSupervisor(rec *recorder, next func() *fakeCommand) *Supervisor {
	s := New(rec.callbacks())
	s.newCommand = func(LaunchSpec) commandHandle { return next() }
	return s
}

func TestSpawnStreamsOutputAndReportsExit(t *testing.T) {
	rec := newRecorder()
	code := 0
	fake := newFakeCommand(&code)
	s := newTestSupervisor(rec, func() *fakeCommand { return fake })

	s.Spawn(LaunchSpec{ID: "alpha"})
	require.True(t, s.IsRunning("alpha"))

	_, err := fake.outW.Write([]byte("Starting server\n"))
	require.NoError(t, err)
	fake.finish()
	rec.waitExit(t)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.exits, 1)
	require.NotNil(t, rec.exits[0])
	assert.Equal(t, 0, *rec.exits[0])
	assert.Contains(t, rec.stdout, "Starting server\n")
	assert.False(t, s.IsRunning("alpha"))
}

func TestSpawnNilExitCodeMeansSignal(t *testing.T) {
	rec := newRecorder()
	fake := newFakeCommand(nil)
	s := newTestSupervisor(rec, func() *fakeCommand { return fake })

	s.Spawn(LaunchSpec{ID: "alpha"})
	fake.finish()
	rec.waitExit(t)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.exits, 1)
	assert.Nil(t, rec.exits[0])
}

func TestSpawnStartFailureBecomesErrorEvent(t *testing.T) {
	rec := newRecorder()
	fake := newFakeCommand(nil)
	fake.startErr = errors.New("no such file")
	s := newTestSupervisor(rec, func() *fakeCommand { return fake })

	// Never returns an error: failures arrive on the callback.
	s.Spawn(LaunchSpec{ID: "alpha"})
	rec.waitError(t)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.errs, 1)
	assert.Empty(t, rec.exits)
	assert.False(t, s.IsRunning("alpha"))
}

func TestRespawnSupersedesOldProcess(t *testing.T) {
	rec := newRecorder()
	code1, code2 := 1, 0
	first := newFakeCommand(&code1)
	second := newFakeCommand(&code2)
	fakes := []*fakeCommand{first, second}
	s := newTestSupervisor(rec, func() *fakeCommand {
		f := fakes[0]
		fakes = fakes[1:]
		return f
	})

	s.Spawn(LaunchSpec{ID: "alpha"})
	s.Spawn(LaunchSpec{ID: "alpha"})

	// The replaced process exits later; its event must be suppressed so it
	// cannot clobber the successor's state.
	first.finish()
	second.finish()
	rec.waitExit(t)

	time.Sleep(100 * time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.exits, 1)
	require.NotNil(t, rec.exits[0])
	assert.Equal(t, 0, *rec.exits[0])
}

func TestWriteStdinAppendsNewline(t *testing.T) {
	rec := newRecorder()
	fake := newFakeCommand(nil)
	s := newTestSupervisor(rec, func() *fakeCommand { return fake })

	s.Spawn(LaunchSpec{ID: "alpha"})
	require.True(t, s.WriteStdin("alpha", "stop"))
	require.True(t, s.WriteStdin("alpha", "say hi\n"))
	assert.Equal(t, "stop\nsay hi\n", fake.stdinString())

	assert.False(t, s.WriteStdin("ghost", "stop"))
	fake.finish()
	rec.waitExit(t)
	assert.False(t, s.WriteStdin("alpha", "stop"))
}

func TestStartedAt(t *testing.T) {
	rec := newRecorder()
	fake := newFakeCommand(nil)
	s := newTestSupervisor(rec, func() *fakeCommand { return fake })

	_, ok := s.StartedAt("alpha")
	assert.False(t, ok)

	s.Spawn(LaunchSpec{ID: "alpha"})
	at, ok := s.StartedAt("alpha")
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), at, time.Minute)
	fake.finish()
	rec.waitExit(t)
}
