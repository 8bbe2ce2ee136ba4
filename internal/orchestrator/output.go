package orchestrator

import (
	"time"

	"github.com/craftd/craftd/internal/events"
	"github.com/craftd/craftd/internal/history"
	"github.com/craftd/craftd/internal/instance"
	"github.com/craftd/craftd/internal/logline"
	"github.com/craftd/craftd/internal/metrics"
)

// handleOutput turns one raw stdio chunk into classified domain log events
// and watches for the one-shot ready signal. def is the channel default
// level applied when a line carries no recognizable marker.
func (m *Manager) handleOutput(id, chunk string, def logline.Level) {
	lines := logline.SplitLines(chunk)
	if len(lines) == 0 {
		return
	}
	m.mu.Lock()
	e, ok := m.entries[id]
	m.mu.Unlock()
	if !ok {
		// Late read from a deleted instance's grace window.
		return
	}
	for _, line := range lines {
		lvl, strong := m.classifier.Level(line)
		if !strong {
			lvl = def
		}
		m.bus.PublishLog(events.LogEntry{
			ID:        id,
			Level:     lvl,
			Message:   line,
			Timestamp: time.Now().UTC(),
		})
		if m.classifier.Ready(line) {
			m.mu.Lock()
			first := !e.readySeen
			e.readySeen = true
			m.mu.Unlock()
			if first {
				m.bus.PublishReady(events.Ready{ID: id})
				m.log.Info("server ready", "id", id)
			}
		}
	}
}

// handleExit is the supervisor's exit notification: cancel any pending-stop
// timer, re-arm the ready flag for the next run, and settle on stopped with
// the observed exit code (nil when killed by signal).
func (m *Manager) handleExit(id string, code *int) {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	if e.stopTimer != nil {
		e.stopTimer.Stop()
		e.stopTimer = nil
	}
	from := e.inst.Status
	e.inst.Status = instance.StatusStopped
	e.readySeen = false
	snapshot := e.inst.Clone()
	m.mu.Unlock()

	if from == instance.StatusStopped {
		// Already normalized (delete path forced the state).
		return
	}
	m.publishStatus(id, instance.StatusStopped, code)
	metrics.RecordStateTransition(snapshot.Name, from.String(), instance.StatusStopped.String())
	metrics.IncStop(snapshot.Name)
	if from == instance.StatusRunning {
		// Exit without a stop in flight is a crash.
		metrics.IncCrash(snapshot.Name)
	}
	m.recordHistory(history.EventStopped, snapshot, code)
	m.log.Info("server exited", "id", id, "name", snapshot.Name, "exit_code", exitCodeValue(code))
}

// handleError is the supervisor's failure channel for spawn and runtime
// errors not tied to a specific caller. The instance is unconditionally
// driven back to stopped and the failure surfaces as an error log line.
func (m *Manager) handleError(id string, err error) {
	m.mu.Lock()
	e, ok := m.entries[id]
	var from instance.Status
	var name string
	changed := false
	if ok {
		from = e.inst.Status
		name = e.inst.Name
		if e.stopTimer != nil {
			e.stopTimer.Stop()
			e.stopTimer = nil
		}
		if from != instance.StatusStopped {
			e.inst.Status = instance.StatusStopped
			e.readySeen = false
			changed = true
		}
	}
	m.mu.Unlock()

	m.bus.PublishLog(events.LogEntry{
		ID:        id,
		Level:     logline.LevelError,
		Message:   "process error: " + err.Error(),
		Timestamp: time.Now().UTC(),
	})
	if changed {
		m.publishStatus(id, instance.StatusStopped, nil)
		metrics.RecordStateTransition(name, from.String(), instance.StatusStopped.String())
	}
	m.log.Error("supervisor error", "id", id, "err", err)
}

func exitCodeValue(code *int) any {
	if code == nil {
		return "signal"
	}
	return *code
}
