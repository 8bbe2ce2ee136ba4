package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgsJarLaunch(t *testing.T) {
	spec := LaunchSpec{
		RAMMinMB: 1024,
		RAMMaxMB: 2048,
		JVMArgs:  []string{"-XX:+UseG1GC"},
		JarPath:  "/srv/alpha/server.jar",
	}
	assert.Equal(t, []string{
		"-Xms1024M", "-Xmx2048M", "-XX:+UseG1GC",
		"-jar", "/srv/alpha/server.jar", "nogui",
	}, spec.Args())
}

func TestArgsFileLaunchWinsOverJar(t *testing.T) {
	spec := LaunchSpec{
		RAMMinMB: 512,
		RAMMaxMB: 512,
		JarPath:  "/srv/alpha/server.jar",
		ArgsFile: "/srv/alpha/launch_args.txt",
	}
	assert.Equal(t, []string{
		"-Xms512M", "-Xmx512M",
		"@/srv/alpha/launch_args.txt", "nogui",
	}, spec.Args())
}

func TestArgsSkipsZeroHeap(t *testing.T) {
	spec := LaunchSpec{JarPath: "server.jar"}
	assert.Equal(t, []string{"-jar", "server.jar", "nogui"}, spec.Args())
}

func TestBuildCommandWorkingDir(t *testing.T) {
	spec := LaunchSpec{JavaPath: "java", Dir: "/srv/alpha", JarPath: "server.jar"}
	cmd := spec.BuildCommand()
	assert.Equal(t, "/srv/alpha", cmd.Dir)
	assert.Contains(t, cmd.Args[0], "java")
}
