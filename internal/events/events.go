// Package events carries domain events from the orchestrator to external
// observers (HTTP stream, CLI, embedders). Multiple independent listeners may
// subscribe per event type; delivery is synchronous and in publish order per
// bus instance.
package events

import (
	"sync"
	"time"

	"github.com/craftd/craftd/internal/logline"
)

// StatusChange is published on every lifecycle transition. ExitCode is set
// only on the running->stopped edge when the process reported an exit code
// (nil when terminated by signal).
type StatusChange struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	ExitCode *int   `json:"exit_code,omitempty"`
}

// LogEntry is one classified console line, or a locally synthesized entry
// (command echoes, spawn failures).
type LogEntry struct {
	ID        string        `json:"id"`
	Level     logline.Level `json:"level"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
}

// Ready is the one-shot boot-complete signal per running lifetime.
type Ready struct {
	ID string `json:"id"`
}

// Bus is a minimal typed pub/sub hub. Subscriptions are append-only; a Bus
// lives as long as the manager that owns it.
type Bus struct {
	mu       sync.Mutex
	onStatus []func(StatusChange)
	onLog    []func(LogEntry)
	onReady  []func(Ready)
}

func NewBus() *Bus { return &Bus{} }

func (b *Bus) SubscribeStatus(fn func(StatusChange)) {
	b.mu.Lock()
	b.onStatus = append(b.onStatus, fn)
	b.mu.Unlock()
}

func (b *Bus) SubscribeLog(fn func(LogEntry)) {
	b.mu.Lock()
	b.onLog = append(b.onLog, fn)
	b.mu.Unlock()
}

func (b *Bus) SubscribeReady(fn func(Ready)) {
	b.mu.Lock()
	b.onReady = append(b.onReady, fn)
	b.mu.Unlock()
}

// PublishStatus delivers to all status listeners. The mutex is held across
// delivery so listeners observe transitions in publish order.
func (b *Bus) PublishStatus(e StatusChange) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, fn := range b.onStatus {
		fn(e)
	}
}

func (b *Bus) PublishLog(e LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, fn := range b.onLog {
		fn(e)
	}
}

func (b *Bus) PublishReady(e Ready) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, fn := range b.onReady {
		fn(e)
	}
}
