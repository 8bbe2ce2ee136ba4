package orchestrator

import (
	"context"
	"time"

	"github.com/craftd/craftd/internal/events"
	"github.com/craftd/craftd/internal/history"
	"github.com/craftd/craftd/internal/instance"
	"github.com/craftd/craftd/internal/java"
	"github.com/craftd/craftd/internal/logline"
	"github.com/craftd/craftd/internal/metrics"
	"github.com/craftd/craftd/internal/supervisor"
)

func defaultResolveJava(ctx context.Context, configured, fallback string, timeout time.Duration) (string, error) {
	return java.Resolve(ctx, configured, fallback, timeout)
}

// Start validates the configured Java executable and launch artifact, then
// transitions stopped -> starting -> running around the spawn. Validation
// errors leave the status untouched; a spawn failure arrives as an async
// error event and drives the instance back to stopped.
func (m *Manager) Start(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	m.mu.Unlock()
	if !ok {
		return instance.ErrNotFound(id)
	}
	if !e.opMu.TryLock() {
		m.mu.Lock()
		name, st := e.inst.Name, e.inst.Status
		m.mu.Unlock()
		return instance.ErrInvalidState(name, st, "start")
	}
	defer e.opMu.Unlock()

	m.mu.Lock()
	inst := e.inst
	if inst.Status == instance.StatusRunning || inst.Status == instance.StatusStarting {
		st, name := inst.Status, inst.Name
		m.mu.Unlock()
		return instance.ErrInvalidState(name, st, "start")
	}
	name := inst.Name
	dir := inst.Dir
	configured := inst.JavaPath
	spec := supervisor.LaunchSpec{
		ID:       id,
		Dir:      dir,
		RAMMinMB: inst.RAMMinMB,
		RAMMaxMB: inst.RAMMaxMB,
		JVMArgs:  append([]string(nil), inst.JVMArgs...),
	}
	m.mu.Unlock()

	if configured == "" {
		configured = m.defaultJava
	}
	javaBin, err := m.resolveJava(ctx, configured, m.defaultJava, m.probeTimeout)
	if err != nil {
		return err
	}
	spec.JavaPath = javaBin

	// An installer-written marker switches to the args-file launch mode;
	// otherwise the conventional jar must exist.
	if m.st.UsesArgsFile(dir) {
		spec.ArgsFile = m.st.ArgsFile(dir)
	} else {
		if !m.st.JarExists(dir) {
			return instance.ErrJarNotFound(m.st.JarPath(dir))
		}
		spec.JarPath = m.st.JarPath(dir)
	}

	m.mu.Lock()
	// A superseded stop must not kill the process we are about to spawn.
	if e.stopTimer != nil {
		e.stopTimer.Stop()
		e.stopTimer = nil
	}
	e.readySeen = false
	from := e.inst.Status
	e.inst.Status = instance.StatusStarting
	e.inst.LastStartedAt = time.Now().UTC()
	snapshot := e.inst.Clone()
	m.mu.Unlock()

	m.publishStatus(id, instance.StatusStarting, nil)
	metrics.RecordStateTransition(name, from.String(), instance.StatusStarting.String())

	m.sup.Spawn(spec)

	if err := m.st.SaveMetadata(snapshot); err != nil {
		m.log.Warn("failed to persist last start time", "id", id, "err", err)
	}

	m.mu.Lock()
	// The error event for a failed spawn arrives on a supervisor goroutine
	// and may not have landed yet; requiring a live process keeps a doomed
	// start from flashing through running.
	started := e.inst.Status == instance.StatusStarting && m.sup.IsRunning(id)
	if started {
		e.inst.Status = instance.StatusRunning
	}
	m.mu.Unlock()
	if started {
		m.publishStatus(id, instance.StatusRunning, nil)
		metrics.RecordStateTransition(name, instance.StatusStarting.String(), instance.StatusRunning.String())
		metrics.IncStart(name)
		m.recordHistory(history.EventStarted, snapshot, nil)
		m.log.Info("server started", "id", id, "name", name, "java", javaBin)
	}
	return nil
}

// Stop writes the conventional stop command to the server console (falling
// back to an outright kill when the write fails) and arms the grace timer
// that escalates to a forced kill.
func (m *Manager) Stop(id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	m.mu.Unlock()
	if !ok {
		return instance.ErrNotFound(id)
	}
	if !e.opMu.TryLock() {
		m.mu.Lock()
		name, st := e.inst.Name, e.inst.Status
		m.mu.Unlock()
		return instance.ErrInvalidState(name, st, "stop")
	}
	defer e.opMu.Unlock()

	m.mu.Lock()
	if e.inst.Status == instance.StatusStopped {
		name := e.inst.Name
		m.mu.Unlock()
		return instance.ErrInvalidState(name, instance.StatusStopped, "stop")
	}
	from := e.inst.Status
	name := e.inst.Name
	e.inst.Status = instance.StatusStopping
	m.mu.Unlock()

	m.publishStatus(id, instance.StatusStopping, nil)
	metrics.RecordStateTransition(name, from.String(), instance.StatusStopping.String())

	if !m.sup.WriteStdin(id, m.stopCommand) {
		m.log.Warn("stop command write failed, killing process", "id", id)
		m.sup.Kill(id)
	}
	m.armStopTimer(id, e)
	return nil
}

// SendCommand writes an arbitrary console command. Legal only while the
// server is exactly running; starting and stopping servers do not accept
// commands. A local echo is published so observers see the command inline
// with server output.
func (m *Manager) SendCommand(id, text string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	m.mu.Unlock()
	if !ok {
		return instance.ErrNotFound(id)
	}
	m.mu.Lock()
	st, name := e.inst.Status, e.inst.Name
	m.mu.Unlock()
	if st != instance.StatusRunning {
		return instance.ErrInvalidState(name, st, "send command to")
	}
	if !m.sup.WriteStdin(id, text) {
		return instance.ErrCommandFailed(id)
	}
	m.bus.PublishLog(events.LogEntry{
		ID:        id,
		Level:     logline.LevelInfo,
		Message:   "> " + text,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// armStopTimer tracks one pending forced kill per instance. The handle lives
// on the entry so a superseding start or an observed exit can cancel it.
func (m *Manager) armStopTimer(id string, e *entry) {
	m.mu.Lock()
	if e.stopTimer != nil {
		e.stopTimer.Stop()
	}
	e.stopTimer = time.AfterFunc(m.gracePeriod, func() {
		m.mu.Lock()
		cur, ok := m.entries[id]
		fire := ok && cur == e && e.inst.Status != instance.StatusStopped
		if fire {
			e.stopTimer = nil
		}
		m.mu.Unlock()
		if fire {
			m.log.Warn("grace window elapsed, force killing", "id", id)
			m.sup.ForceKill(id)
		}
	})
	m.mu.Unlock()
}

// stopAndWait drives a non-stopped instance to stopped synchronously, used
// by Delete. Caller holds e.opMu.
func (m *Manager) stopAndWait(id string, e *entry) {
	m.mu.Lock()
	if e.inst.Status == instance.StatusStopped {
		m.mu.Unlock()
		return
	}
	from := e.inst.Status
	name := e.inst.Name
	e.inst.Status = instance.StatusStopping
	if e.stopTimer != nil {
		e.stopTimer.Stop()
		e.stopTimer = nil
	}
	m.mu.Unlock()

	m.publishStatus(id, instance.StatusStopping, nil)
	metrics.RecordStateTransition(name, from.String(), instance.StatusStopping.String())

	if !m.sup.WriteStdin(id, m.stopCommand) {
		m.sup.Kill(id)
	}
	if m.waitStopped(e, deleteWait) {
		return
	}
	m.log.Warn("instance ignored stop during delete, force killing", "id", id)
	m.sup.ForceKill(id)
	if m.waitStopped(e, 2*time.Second) {
		return
	}
	// Exit event never arrived; normalize so deletion can proceed.
	m.mu.Lock()
	e.inst.Status = instance.StatusStopped
	e.readySeen = false
	m.mu.Unlock()
	m.publishStatus(id, instance.StatusStopped, nil)
}

func (m *Manager) waitStopped(e *entry, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		st := e.inst.Status
		m.mu.Unlock()
		if st == instance.StatusStopped {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

func (m *Manager) publishStatus(id string, st instance.Status, exitCode *int) {
	m.bus.PublishStatus(events.StatusChange{ID: id, Status: st.String(), ExitCode: exitCode})
}
