// Package supervisor owns the raw OS child process per server identifier:
// spawn, signal, stdin writes and liveness checks. It reports everything else
// (stdio chunks, exit, spawn failure) asynchronously through callbacks and
// enforces at most one live process per identifier.
package supervisor

import (
	"io"
	"sync"
	"time"
)

// Callbacks receive raw process events. All callbacks are invoked from
// supervisor goroutines; OnExit fires exactly once per process lifetime.
// Stdout/stderr chunks are raw reads, not guaranteed to be line-aligned.
type Callbacks struct {
	OnStdout func(id, chunk string)
	OnStderr func(id, chunk string)
	OnExit   func(id string, code *int)
	OnError  func(id string, err error)
}

const (
	// removeDelay keeps the process record around briefly after exit so
	// trailing asynchronous reads still resolve against a known id.
	removeDelay = 500 * time.Millisecond
	// shutdownWait bounds the graceful window during full teardown.
	shutdownWait = 5 * time.Second
	readBufSize  = 4096
)

type proc struct {
	cmd       commandHandle
	stdin     io.WriteCloser
	startedAt time.Time

	mu         sync.Mutex
	exited     bool
	superseded bool // replaced by a newer spawn; suppress its exit event
}

func (p *proc) markExited() {
	p.mu.Lock()
	p.exited = true
	p.mu.Unlock()
}

func (p *proc) isExited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}

func (p *proc) supersede() {
	p.mu.Lock()
	p.superseded = true
	p.mu.Unlock()
}

func (p *proc) isSuperseded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.superseded
}

// commandHandle abstracts the parts of exec.Cmd the supervisor touches so
// tests can substitute fakes.
type commandHandle interface {
	Start() error
	Wait() error
	PID() int
	ExitCode() *int
	StdoutPipe() (io.ReadCloser, error)
	StderrPipe() (io.ReadCloser, error)
	StdinPipe() (io.WriteCloser, error)
}

// Supervisor tracks one live process per identifier.
type Supervisor struct {
	mu    sync.Mutex
	procs map[string]*proc
	cb    Callbacks

	// newCommand is swappable in tests; defaults to exec-backed commands.
	newCommand func(LaunchSpec) commandHandle
}

func New(cb Callbacks) *Supervisor {
	return &Supervisor{
		procs:      make(map[string]*proc),
		cb:         cb,
		newCommand: newExecCommand,
	}
}

// Spawn starts the process described by spec. If a process is already
// tracked for the identifier it is terminated first: at most one live
// process per identifier. Spawn never fails synchronously; OS-level start
// failures are delivered as an error event so they flow through the same
// channel as runtime failures.
func (s *Supervisor) Spawn(spec LaunchSpec) {
	s.mu.Lock()
	if old, ok := s.procs[spec.ID]; ok {
		old.supersede()
		if !old.isExited() {
			if err := terminate(old.cmd.PID()); err != nil {
				_ = kill(old.cmd.PID())
			}
		}
		delete(s.procs, spec.ID)
	}
	s.mu.Unlock()

	cmd := s.newCommand(spec)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		s.emitError(spec.ID, err)
		return
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.emitError(spec.ID, err)
		return
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.emitError(spec.ID, err)
		return
	}

	if err := cmd.Start(); err != nil {
		s.emitError(spec.ID, err)
		return
	}

	p := &proc{cmd: cmd, stdin: stdin, startedAt: time.Now()}
	s.mu.Lock()
	s.procs[spec.ID] = p
	s.mu.Unlock()

	var pumps sync.WaitGroup
	pumps.Add(2)
	go s.pump(&pumps, spec.ID, stdout, s.cb.OnStdout)
	go s.pump(&pumps, spec.ID, stderr, s.cb.OnStderr)
	go s.watch(spec.ID, p, &pumps)
}

// pump streams raw chunks from one stdio channel to the callback.
func (s *Supervisor) pump(wg *sync.WaitGroup, id string, r io.Reader, fn func(id, chunk string)) {
	defer wg.Done()
	buf := make([]byte, readBufSize)
	for {
		n, err := r.Read(buf)
		if n > 0 && fn != nil {
			fn(id, string(buf[:n]))
		}
		if err != nil {
			return
		}
	}
}

// watch reaps the process and delivers the exit event. The record is removed
// after a short delay to tolerate trailing reads; a superseded process never
// reports exit because its successor already owns the identifier.
func (s *Supervisor) watch(id string, p *proc, pumps *sync.WaitGroup) {
	pumps.Wait()
	_ = p.cmd.Wait()
	p.markExited()

	code := p.cmd.ExitCode()

	if !p.isSuperseded() && s.cb.OnExit != nil {
		s.cb.OnExit(id, code)
	}

	time.AfterFunc(removeDelay, func() {
		s.mu.Lock()
		if cur, ok := s.procs[id]; ok && cur == p {
			delete(s.procs, id)
		}
		s.mu.Unlock()
	})
}

func (s *Supervisor) emitError(id string, err error) {
	if s.cb.OnError == nil {
		return
	}
	go s.cb.OnError(id, err)
}

func (s *Supervisor) get(id string) *proc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.procs[id]
}

// Kill requests graceful termination. Returns whether a tracked process
// existed; actual termination is observed later via the exit event.
func (s *Supervisor) Kill(id string) bool {
	p := s.get(id)
	if p == nil {
		return false
	}
	if !p.isExited() {
		_ = terminate(p.cmd.PID())
	}
	return true
}

// ForceKill terminates immediately, used as escalation after the grace
// window elapses.
func (s *Supervisor) ForceKill(id string) bool {
	p := s.get(id)
	if p == nil {
		return false
	}
	if !p.isExited() {
		_ = kill(p.cmd.PID())
	}
	return true
}

// WriteStdin writes data to the process's input stream, appending a trailing
// newline when absent. Returns false when no live process or stream exists
// or the write fails.
func (s *Supervisor) WriteStdin(id, data string) bool {
	p := s.get(id)
	if p == nil || p.isExited() || p.stdin == nil {
		return false
	}
	if len(data) == 0 || data[len(data)-1] != '\n' {
		data += "\n"
	}
	_, err := io.WriteString(p.stdin, data)
	return err == nil
}

// IsRunning reports whether a process is tracked and has not exited.
func (s *Supervisor) IsRunning(id string) bool {
	p := s.get(id)
	return p != nil && !p.isExited()
}

// StartedAt returns the spawn timestamp of the tracked process, if any.
func (s *Supervisor) StartedAt(id string) (time.Time, bool) {
	p := s.get(id)
	if p == nil {
		return time.Time{}, false
	}
	return p.startedAt, true
}

// Shutdown terminates every tracked process: SIGTERM, bounded wait, SIGKILL.
// No child may be orphaned by launcher teardown.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	live := make(map[string]*proc, len(s.procs))
	for id, p := range s.procs {
		live[id] = p
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for id, p := range live {
		if p.isExited() {
			continue
		}
		wg.Add(1)
		go func(id string, p *proc) {
			defer wg.Done()
			_ = terminate(p.cmd.PID())
			deadline := time.Now().Add(shutdownWait)
			for time.Now().Before(deadline) {
				if p.isExited() {
					return
				}
				time.Sleep(50 * time.Millisecond)
			}
			_ = kill(p.cmd.PID())
		}(id, p)
	}
	wg.Wait()
}
