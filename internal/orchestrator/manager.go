// Package orchestrator owns the instance registry, the per-instance
// lifecycle state machine and all validation rules. It is the only component
// that mutates instance status; everyone else observes through events and
// query methods.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/craftd/craftd/internal/events"
	"github.com/craftd/craftd/internal/history"
	"github.com/craftd/craftd/internal/instance"
	"github.com/craftd/craftd/internal/logline"
	"github.com/craftd/craftd/internal/metrics"
	"github.com/craftd/craftd/internal/store"
	"github.com/craftd/craftd/internal/supervisor"
)

// ProcessSupervisor is the supervisor surface the orchestrator depends on.
// Satisfied by *supervisor.Supervisor; faked in tests.
type ProcessSupervisor interface {
	Spawn(spec supervisor.LaunchSpec)
	Kill(id string) bool
	ForceKill(id string) bool
	WriteStdin(id, data string) bool
	IsRunning(id string) bool
	Shutdown()
}

// Defaults for tunable knobs.
const (
	DefaultStopCommand = "stop"
	DefaultGracePeriod = 30 * time.Second
	DefaultRAMMinMB    = 1024
	DefaultRAMMaxMB    = 2048

	// deleteWait bounds the stop-and-wait performed by Delete on a
	// non-stopped instance before escalating to a forced kill.
	deleteWait = 10 * time.Second
)

// Options configures a Manager. Store and Bus are required; the supervisor
// factory defaults to the real process supervisor.
type Options struct {
	Store            store.Store
	Bus              *events.Bus
	Classifier       *logline.Classifier
	Logger           *slog.Logger
	DefaultJavaPath  string
	StopCommand      string
	GracePeriod      time.Duration
	JavaProbeTimeout time.Duration
	HistorySinks     []history.Sink

	// NewSupervisor builds the process supervisor wired to the manager's
	// callbacks. Tests substitute a fake here.
	NewSupervisor func(cb supervisor.Callbacks) ProcessSupervisor

	// ValidateJava probes a java executable; defaults to java.Resolve.
	// Tests substitute a stub to avoid spawning real JVMs.
	ValidateJava func(ctx context.Context, configured, fallback string, timeout time.Duration) (string, error)
}

type entry struct {
	// opMu serializes lifecycle operations per instance; a competing
	// operation is rejected instead of queued.
	opMu      sync.Mutex
	inst      *instance.Instance
	stopTimer *time.Timer
	readySeen bool
}

// Manager is the instance registry and lifecycle orchestrator.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry

	st         store.Store
	sup        ProcessSupervisor
	bus        *events.Bus
	classifier *logline.Classifier
	log        *slog.Logger
	sinks      []history.Sink

	defaultJava  string
	stopCommand  string
	gracePeriod  time.Duration
	probeTimeout time.Duration
	resolveJava  func(ctx context.Context, configured, fallback string, timeout time.Duration) (string, error)
}

func New(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("orchestrator: store is required")
	}
	if opts.Bus == nil {
		opts.Bus = events.NewBus()
	}
	if opts.Classifier == nil {
		opts.Classifier = logline.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.StopCommand == "" {
		opts.StopCommand = DefaultStopCommand
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	if opts.DefaultJavaPath == "" {
		opts.DefaultJavaPath = "java"
	}
	m := &Manager{
		entries:      make(map[string]*entry),
		st:           opts.Store,
		bus:          opts.Bus,
		classifier:   opts.Classifier,
		log:          opts.Logger,
		sinks:        append([]history.Sink(nil), opts.HistorySinks...),
		defaultJava:  opts.DefaultJavaPath,
		stopCommand:  opts.StopCommand,
		gracePeriod:  opts.GracePeriod,
		probeTimeout: opts.JavaProbeTimeout,
		resolveJava:  opts.ValidateJava,
	}
	if m.resolveJava == nil {
		m.resolveJava = defaultResolveJava
	}
	cb := supervisor.Callbacks{
		OnStdout: func(id, chunk string) { m.handleOutput(id, chunk, logline.LevelInfo) },
		OnStderr: func(id, chunk string) { m.handleOutput(id, chunk, logline.LevelError) },
		OnExit:   m.handleExit,
		OnError:  m.handleError,
	}
	if opts.NewSupervisor != nil {
		m.sup = opts.NewSupervisor(cb)
	} else {
		m.sup = supervisor.New(cb)
	}
	return m, nil
}

// Bus exposes the event bus for observers.
func (m *Manager) Bus() *events.Bus { return m.bus }

// SetHistorySinks replaces the configured history sinks.
func (m *Manager) SetHistorySinks(sinks ...history.Sink) {
	m.mu.Lock()
	m.sinks = append([]history.Sink(nil), sinks...)
	m.mu.Unlock()
}

// LoadAll loads every persisted instance into the registry. Status is
// normalized to stopped regardless of what was persisted: an instance that
// crashed while running must never come back as running after a restart.
func (m *Manager) LoadAll() error {
	insts, err := m.st.LoadAll()
	if err != nil {
		return fmt.Errorf("load instances: %w", err)
	}
	m.mu.Lock()
	for _, inst := range insts {
		inst.Status = instance.StatusStopped
		m.entries[inst.ID] = &entry{inst: inst}
	}
	n := len(m.entries)
	m.mu.Unlock()
	metrics.SetInstances(n)
	m.log.Info("instances loaded", "count", len(insts))
	return nil
}

// Create validates the request, provisions the instance directory and
// bootstrap files through the store, and registers the instance as stopped.
// A failed bootstrap rolls the directory back best-effort.
func (m *Manager) Create(req instance.CreateRequest) (*instance.Instance, error) {
	name := strings.TrimSpace(req.Name)
	if !safeDirName(name) {
		return nil, instance.ErrInvalidName(req.Name)
	}
	m.mu.Lock()
	if m.nameTakenLocked(name, "") {
		m.mu.Unlock()
		return nil, instance.ErrDuplicateName(name)
	}
	m.mu.Unlock()
	// Defensive: a directory can exist on disk without a registry entry
	// (half-deleted instance, foreign files).
	if m.st.DirExists(name) {
		return nil, instance.ErrDuplicateName(name)
	}

	dir, err := m.st.CreateInstanceDir(name)
	if err != nil {
		return nil, fmt.Errorf("create instance directory: %w", err)
	}

	inst := &instance.Instance{
		ID:        uuid.NewString(),
		Name:      name,
		CoreType:  req.CoreType,
		MCVersion: req.MCVersion,
		JavaPath:  req.JavaPath,
		RAMMinMB:  req.RAMMinMB,
		RAMMaxMB:  req.RAMMaxMB,
		JVMArgs:   append([]string(nil), req.JVMArgs...),
		Dir:       dir,
		Status:    instance.StatusStopped,
		CreatedAt: time.Now().UTC(),
	}
	if inst.RAMMinMB <= 0 {
		inst.RAMMinMB = DefaultRAMMinMB
	}
	if inst.RAMMaxMB <= 0 {
		inst.RAMMaxMB = DefaultRAMMaxMB
	}

	if err := m.st.WriteBootstrap(inst); err != nil {
		_ = m.st.DeleteInstanceDir(dir)
		return nil, fmt.Errorf("write bootstrap files: %w", err)
	}

	m.mu.Lock()
	// Re-check: another create may have raced while we touched the disk.
	if m.nameTakenLocked(name, "") {
		m.mu.Unlock()
		_ = m.st.DeleteInstanceDir(dir)
		return nil, instance.ErrDuplicateName(name)
	}
	m.entries[inst.ID] = &entry{inst: inst}
	n := len(m.entries)
	m.mu.Unlock()

	metrics.SetInstances(n)
	m.recordHistory(history.EventCreated, inst, nil)
	m.log.Info("instance created", "id", inst.ID, "name", inst.Name)
	return inst.Clone(), nil
}

// Update merges the supplied fields into an existing instance, persists the
// metadata and regenerates the launch script before committing in memory.
func (m *Manager) Update(req instance.UpdateRequest) (*instance.Instance, error) {
	m.mu.Lock()
	e, ok := m.entries[req.ID]
	if !ok {
		m.mu.Unlock()
		return nil, instance.ErrNotFound(req.ID)
	}
	merged := e.inst.Clone()
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if !safeDirName(name) {
			m.mu.Unlock()
			return nil, instance.ErrInvalidName(*req.Name)
		}
		if name != merged.Name {
			// Renames are validated like creation: the registry and the
			// disk both have to be free of the name. The instance's own
			// directory keeps its original name and does not collide.
			ownDir := name == filepath.Base(merged.Dir)
			if m.nameTakenLocked(name, req.ID) || (!ownDir && m.st.DirExists(name)) {
				m.mu.Unlock()
				return nil, instance.ErrDuplicateName(name)
			}
		}
		merged.Name = name
	}
	if req.JavaPath != nil {
		merged.JavaPath = *req.JavaPath
	}
	if req.RAMMinMB != nil {
		merged.RAMMinMB = *req.RAMMinMB
	}
	if req.RAMMaxMB != nil {
		merged.RAMMaxMB = *req.RAMMaxMB
	}
	if req.JVMArgs != nil {
		merged.JVMArgs = append([]string(nil), (*req.JVMArgs)...)
	}
	if req.CoreType != nil {
		merged.CoreType = *req.CoreType
	}
	if req.MCVersion != nil {
		merged.MCVersion = *req.MCVersion
	}
	m.mu.Unlock()

	if err := m.st.SaveMetadata(merged); err != nil {
		return nil, fmt.Errorf("persist metadata: %w", err)
	}
	if err := m.st.WriteLaunchScript(merged); err != nil {
		return nil, fmt.Errorf("regenerate launch script: %w", err)
	}

	m.mu.Lock()
	// Status may have moved while we were writing; keep the live value.
	merged.Status = e.inst.Status
	merged.LastStartedAt = e.inst.LastStartedAt
	e.inst = merged
	m.mu.Unlock()
	m.log.Info("instance updated", "id", merged.ID, "name", merged.Name)
	return merged.Clone(), nil
}

// Delete stops the instance if needed (bounded wait, then forced kill),
// removes the backing directory and drops the registry entry.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	m.mu.Unlock()
	if !ok {
		return instance.ErrNotFound(id)
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()

	m.mu.Lock()
	st := e.inst.Status
	dir := e.inst.Dir
	m.mu.Unlock()

	if st != instance.StatusStopped {
		m.stopAndWait(id, e)
	}

	if err := m.st.DeleteInstanceDir(dir); err != nil {
		return fmt.Errorf("delete instance directory: %w", err)
	}

	m.mu.Lock()
	inst := e.inst
	delete(m.entries, id)
	n := len(m.entries)
	m.mu.Unlock()

	metrics.SetInstances(n)
	m.recordHistory(history.EventDeleted, inst, nil)
	m.log.Info("instance deleted", "id", id, "name", inst.Name)
	return nil
}

// Get returns a snapshot of one instance.
func (m *Manager) Get(id string) (*instance.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, instance.ErrNotFound(id)
	}
	return e.inst.Clone(), nil
}

// All returns snapshots of every instance, ordered by creation time.
func (m *Manager) All() []*instance.Instance {
	m.mu.Lock()
	out := make([]*instance.Instance, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.inst.Clone())
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Shutdown cancels every pending-stop timer and terminates all tracked
// processes. No child process survives launcher teardown.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	for _, e := range m.entries {
		if e.stopTimer != nil {
			e.stopTimer.Stop()
			e.stopTimer = nil
		}
	}
	m.mu.Unlock()
	m.sup.Shutdown()
	m.mu.Lock()
	for _, e := range m.entries {
		e.inst.Status = instance.StatusStopped
		e.readySeen = false
	}
	m.mu.Unlock()
	m.log.Info("orchestrator shut down")
}

// safeDirName accepts only names that stay inside the data directory when
// used as a directory name. The HTTP layer rejects these earlier with a
// friendlier message; embedders reach the registry directly.
func safeDirName(name string) bool {
	return name != "" && !strings.Contains(name, "..") && !strings.ContainsAny(name, `/\`)
}

// nameTakenLocked scans the registry for a name collision. Case-sensitive
// after trimming; callers hold m.mu.
func (m *Manager) nameTakenLocked(name, excludeID string) bool {
	for id, e := range m.entries {
		if id == excludeID {
			continue
		}
		if e.inst.Name == name {
			return true
		}
	}
	return false
}

func (m *Manager) recordHistory(t history.EventType, inst *instance.Instance, exitCode *int) {
	m.mu.Lock()
	sinks := append([]history.Sink(nil), m.sinks...)
	m.mu.Unlock()
	if len(sinks) == 0 {
		return
	}
	evt := history.Event{
		Type:       t,
		OccurredAt: time.Now().UTC(),
		ID:         inst.ID,
		Name:       inst.Name,
		Status:     inst.Status.String(),
		ExitCode:   exitCode,
	}
	for _, s := range sinks {
		if err := s.Send(context.Background(), evt); err != nil {
			m.log.Warn("history sink send failed", "err", err)
		}
	}
}
