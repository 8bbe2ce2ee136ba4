package supervisor

import (
	"fmt"
	"os/exec"
)

// LaunchSpec describes one Java server process to spawn. The supervisor has
// no notion of "servers"; the spec is an opaque process configuration keyed
// by ID.
type LaunchSpec struct {
	ID       string
	JavaPath string
	Dir      string
	RAMMinMB int
	RAMMaxMB int
	JVMArgs  []string
	// Exactly one of JarPath / ArgsFile is set. JarPath is the classic
	// "-jar server.jar" launch; ArgsFile is the Forge-style "@args.txt"
	// launch used by modern multi-file installers.
	JarPath  string
	ArgsFile string
}

// Args builds the JVM argument vector: heap flags, extra flags, then the
// launch target and "nogui".
func (s LaunchSpec) Args() []string {
	args := make([]string, 0, len(s.JVMArgs)+5)
	if s.RAMMinMB > 0 {
		args = append(args, fmt.Sprintf("-Xms%dM", s.RAMMinMB))
	}
	if s.RAMMaxMB > 0 {
		args = append(args, fmt.Sprintf("-Xmx%dM", s.RAMMaxMB))
	}
	args = append(args, s.JVMArgs...)
	if s.ArgsFile != "" {
		args = append(args, "@"+s.ArgsFile)
	} else {
		args = append(args, "-jar", s.JarPath)
	}
	return append(args, "nogui")
}

// BuildCommand constructs the exec.Cmd for this spec. The command runs in its
// own process group so signals reach the whole JVM tree.
func (s LaunchSpec) BuildCommand() *exec.Cmd {
	// ok: executable path and arguments come from validated instance config
	// #nosec G204
	cmd := exec.Command(s.JavaPath, s.Args()...)
	cmd.Dir = s.Dir
	setProcAttrs(cmd)
	return cmd
}
