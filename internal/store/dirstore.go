package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/craftd/craftd/internal/instance"
)

// DirStore keeps one directory per instance under a base data directory.
type DirStore struct {
	base string
}

func NewDirStore(base string) (*DirStore, error) {
	if base == "" {
		return nil, fmt.Errorf("empty data directory")
	}
	if err := os.MkdirAll(base, 0o750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &DirStore{base: base}, nil
}

func (d *DirStore) Base() string { return d.base }

func (d *DirStore) CreateInstanceDir(name string) (string, error) {
	// Mirror the delete guard: a name must never resolve outside the data
	// directory.
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid instance directory name: %q", name)
	}
	dir := filepath.Join(d.base, name)
	if _, err := os.Stat(dir); err == nil {
		return "", fmt.Errorf("instance directory already exists: %s", dir)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	return dir, nil
}

func (d *DirStore) DeleteInstanceDir(path string) error {
	// Refuse anything outside the data directory.
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	base, err := filepath.Abs(d.base)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(abs, base+string(filepath.Separator)) {
		return fmt.Errorf("refusing to delete %s: outside data directory", path)
	}
	return os.RemoveAll(abs)
}

func (d *DirStore) WriteBootstrap(inst *instance.Instance) error {
	eula := filepath.Join(inst.Dir, EulaFile)
	if err := os.WriteFile(eula, []byte("eula=true\n"), 0o600); err != nil {
		return fmt.Errorf("write eula: %w", err)
	}
	if err := d.WriteLaunchScript(inst); err != nil {
		return err
	}
	return d.SaveMetadata(inst)
}

func (d *DirStore) SaveMetadata(inst *instance.Instance) error {
	b, err := json.MarshalIndent(inst, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(inst.Dir, MetadataFile)
	// Write-then-rename so a crash mid-write never corrupts the record.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return os.Rename(tmp, path)
}

// WriteLaunchScript emits a standalone start.sh mirroring the arguments the
// daemon itself would use, for users who want to run the server by hand.
func (d *DirStore) WriteLaunchScript(inst *instance.Instance) error {
	var sb strings.Builder
	sb.WriteString("#!/bin/sh\n")
	sb.WriteString(fmt.Sprintf("cd %q\n", inst.Dir))
	java := inst.JavaPath
	if java == "" {
		java = "java"
	}
	sb.WriteString(fmt.Sprintf("exec %q -Xms%dM -Xmx%dM", java, inst.RAMMinMB, inst.RAMMaxMB))
	for _, a := range inst.JVMArgs {
		sb.WriteString(" " + a)
	}
	if d.UsesArgsFile(inst.Dir) {
		sb.WriteString(" @" + ArgsFileName)
	} else {
		sb.WriteString(" -jar " + JarFile)
	}
	sb.WriteString(" nogui\n")
	path := filepath.Join(inst.Dir, ScriptFile)
	// #nosec G306 -- the script must be executable
	return os.WriteFile(path, []byte(sb.String()), 0o750)
}

func (d *DirStore) LoadAll() ([]*instance.Instance, error) {
	entries, err := os.ReadDir(d.base)
	if err != nil {
		return nil, err
	}
	var out []*instance.Instance
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(d.base, e.Name(), MetadataFile)
		b, err := os.ReadFile(path) // #nosec G304 -- path rooted at data dir
		if err != nil {
			// Directories without a record are not instances.
			continue
		}
		var inst instance.Instance
		if err := json.Unmarshal(b, &inst); err != nil {
			return nil, fmt.Errorf("corrupt metadata %s: %w", path, err)
		}
		out = append(out, &inst)
	}
	return out, nil
}

func (d *DirStore) DirExists(name string) bool {
	fi, err := os.Stat(filepath.Join(d.base, name))
	return err == nil && fi.IsDir()
}

func (d *DirStore) UsesArgsFile(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ArgsFileName))
	return err == nil
}

func (d *DirStore) ArgsFile(dir string) string {
	return filepath.Join(dir, ArgsFileName)
}

func (d *DirStore) JarPath(dir string) string {
	return filepath.Join(dir, JarFile)
}

func (d *DirStore) JarExists(dir string) bool {
	fi, err := os.Stat(d.JarPath(dir))
	return err == nil && !fi.IsDir()
}
