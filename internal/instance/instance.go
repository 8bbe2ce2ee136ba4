package instance

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle state of a server instance. It is the single
// source of truth for what operations are legal; only the orchestrator
// mutates it.
type Status int

const (
	StatusStopped Status = iota
	StatusStarting
	StatusRunning
	StatusStopping
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// ParseStatus maps the serialized word back to a Status. Unknown or empty
// values map to StatusStopped: persisted records are always normalized to
// stopped on load, so a stale or garbage status must never round-trip.
func ParseStatus(s string) Status {
	switch s {
	case "starting":
		return StatusStarting
	case "running":
		return StatusRunning
	case "stopping":
		return StatusStopping
	default:
		return StatusStopped
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = ParseStatus(raw)
	return nil
}

// Instance is a configured, named Minecraft server, independent of whether
// its process is currently running. Persisted as JSON inside the instance
// directory; Status is never trusted from disk.
type Instance struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CoreType      string    `json:"core_type"`
	MCVersion     string    `json:"mc_version"`
	JavaPath      string    `json:"java_path"`
	RAMMinMB      int       `json:"ram_min_mb"`
	RAMMaxMB      int       `json:"ram_max_mb"`
	JVMArgs       []string  `json:"jvm_args"`
	Dir           string    `json:"dir"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	LastStartedAt time.Time `json:"last_started_at"`
}

// Clone returns a deep copy so callers can hand snapshots to observers
// without exposing the registry's authoritative record.
func (in *Instance) Clone() *Instance {
	cp := *in
	if in.JVMArgs != nil {
		cp.JVMArgs = append([]string(nil), in.JVMArgs...)
	}
	return &cp
}

// CreateRequest carries the caller-supplied fields for a new instance.
type CreateRequest struct {
	Name      string   `json:"name"`
	CoreType  string   `json:"core_type"`
	MCVersion string   `json:"mc_version"`
	JavaPath  string   `json:"java_path"`
	RAMMinMB  int      `json:"ram_min_mb"`
	RAMMaxMB  int      `json:"ram_max_mb"`
	JVMArgs   []string `json:"jvm_args"`
}

// UpdateRequest merges only the supplied (non-nil) fields into an existing
// instance.
type UpdateRequest struct {
	ID        string    `json:"id"`
	Name      *string   `json:"name,omitempty"`
	JavaPath  *string   `json:"java_path,omitempty"`
	RAMMinMB  *int      `json:"ram_min_mb,omitempty"`
	RAMMaxMB  *int      `json:"ram_max_mb,omitempty"`
	JVMArgs   *[]string `json:"jvm_args,omitempty"`
	CoreType  *string   `json:"core_type,omitempty"`
	MCVersion *string   `json:"mc_version,omitempty"`
}

func (in *Instance) String() string {
	return fmt.Sprintf("%s (%s, %s %s)", in.Name, in.ID, in.CoreType, in.MCVersion)
}
