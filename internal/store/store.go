// Package store is the backing file store for instance metadata and
// bootstrap files. The orchestrator treats it as a write-through cache: every
// mutation is persisted here before the in-memory registry is considered
// authoritative.
package store

import (
	"github.com/craftd/craftd/internal/instance"
)

// Conventional filenames inside an instance directory.
const (
	MetadataFile = "craftd.json"
	EulaFile     = "eula.txt"
	ScriptFile   = "start.sh"
	JarFile      = "server.jar"
	// ArgsFileName marks the alternate args-file launch mode used by modern
	// Forge-style installers. Written by the installer step, only consumed
	// here.
	ArgsFileName = "launch_args.txt"
)

// Store abstracts the persistent side of instance management.
type Store interface {
	// CreateInstanceDir creates the directory for a new instance and
	// returns its absolute path.
	CreateInstanceDir(name string) (string, error)
	// DeleteInstanceDir removes an instance directory recursively.
	DeleteInstanceDir(path string) error
	// WriteBootstrap writes the EULA acceptance marker, the launch script
	// and the metadata record for a freshly created instance.
	WriteBootstrap(inst *instance.Instance) error
	// SaveMetadata persists the metadata record.
	SaveMetadata(inst *instance.Instance) error
	// WriteLaunchScript regenerates the convenience launch script from the
	// current instance configuration.
	WriteLaunchScript(inst *instance.Instance) error
	// LoadAll reads every persisted instance record.
	LoadAll() ([]*instance.Instance, error)
	// DirExists reports whether a directory for the given name already
	// exists on disk, regardless of registry state.
	DirExists(name string) bool
	// UsesArgsFile reports whether the instance directory carries the
	// args-file launch marker.
	UsesArgsFile(dir string) bool
	// ArgsFile returns the path of the args file inside dir.
	ArgsFile(dir string) string
	// JarPath returns the conventional server jar path inside dir.
	JarPath(dir string) string
	// JarExists reports whether the launchable jar is present.
	JarExists(dir string) bool
}
