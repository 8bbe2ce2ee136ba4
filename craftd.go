// Package craftd manages the lifecycle of local Minecraft server processes:
// provisioning instance directories, supervising java child processes,
// classifying console output and exposing it all over a small REST/websocket
// API. This file is the stable facade for embedding; the CLI in cmd/craftd is
// built on the same surface.
package craftd

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/craftd/craftd/internal/config"
	"github.com/craftd/craftd/internal/events"
	"github.com/craftd/craftd/internal/history"
	"github.com/craftd/craftd/internal/history/factory"
	"github.com/craftd/craftd/internal/instance"
	"github.com/craftd/craftd/internal/logline"
	"github.com/craftd/craftd/internal/metrics"
	"github.com/craftd/craftd/internal/orchestrator"
	iapi "github.com/craftd/craftd/internal/server"
	"github.com/craftd/craftd/internal/store"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Instance = instance.Instance

type Status = instance.Status

type CreateRequest = instance.CreateRequest

type UpdateRequest = instance.UpdateRequest

type Config = config.Config

type HistorySink = history.Sink

type EventBus = events.Bus

type StatusChangeEvent = events.StatusChange

type LogEvent = events.LogEntry

type ReadyEvent = events.Ready

// Manager is a thin facade over internal/orchestrator.Manager.
// It provides a stable public API for embedding.

type Manager struct{ inner *orchestrator.Manager }

// ManagerOptions configures a Manager built through New. DataDir is the only
// required field.
type ManagerOptions struct {
	DataDir          string
	DefaultJavaPath  string
	StopCommand      string
	GracePeriod      time.Duration
	JavaProbeTimeout time.Duration
	ReadyPhrases     []string
	Logger           *slog.Logger
	HistorySinks     []HistorySink
}

func New(opts ManagerOptions) (*Manager, error) {
	st, err := store.NewDirStore(opts.DataDir)
	if err != nil {
		return nil, err
	}
	classifier := logline.New()
	if len(opts.ReadyPhrases) > 0 {
		classifier = classifier.WithReadyPhrases(opts.ReadyPhrases)
	}
	inner, err := orchestrator.New(orchestrator.Options{
		Store:            st,
		Bus:              events.NewBus(),
		Classifier:       classifier,
		Logger:           opts.Logger,
		DefaultJavaPath:  opts.DefaultJavaPath,
		StopCommand:      opts.StopCommand,
		GracePeriod:      opts.GracePeriod,
		JavaProbeTimeout: opts.JavaProbeTimeout,
		HistorySinks:     opts.HistorySinks,
	})
	if err != nil {
		return nil, err
	}
	return &Manager{inner: inner}, nil
}

func (m *Manager) LoadAll() error { return m.inner.LoadAll() }
func (m *Manager) Create(req CreateRequest) (*Instance, error) {
	return m.inner.Create(req)
}
func (m *Manager) Update(req UpdateRequest) (*Instance, error) {
	return m.inner.Update(req)
}
func (m *Manager) Delete(id string) error { return m.inner.Delete(id) }
func (m *Manager) Get(id string) (*Instance, error) {
	return m.inner.Get(id)
}
func (m *Manager) All() []*Instance { return m.inner.All() }
func (m *Manager) Start(ctx context.Context, id string) error {
	return m.inner.Start(ctx, id)
}
func (m *Manager) Stop(id string) error { return m.inner.Stop(id) }
func (m *Manager) SendCommand(id, command string) error {
	return m.inner.SendCommand(id, command)
}
func (m *Manager) Shutdown()      { m.inner.Shutdown() }
func (m *Manager) Bus() *EventBus { return m.inner.Bus() }

func (m *Manager) SetHistorySinks(sinks ...HistorySink) { m.inner.SetHistorySinks(sinks...) }

func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

// NewHTTPServer starts an HTTP server exposing the REST API and websocket
// event stream for the given manager.
func NewHTTPServer(addr, basePath string, m *Manager) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, m.inner)
}

// NewHistorySink builds a lifecycle history sink from a DSN
// (sqlite/postgres/clickhouse). The returned sink may implement io.Closer.
func NewHistorySink(dsn string) (HistorySink, error) {
	return factory.NewSinkFromDSN(dsn)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }

func MetricsHandler() http.Handler { return metrics.Handler() }
