package supervisor

import (
	"io"
	"os/exec"
)

// execCommand is the production commandHandle backed by os/exec.
type execCommand struct {
	cmd *exec.Cmd
}

func newExecCommand(spec LaunchSpec) commandHandle {
	return &execCommand{cmd: spec.BuildCommand()}
}

func (c *execCommand) Start() error { return c.cmd.Start() }
func (c *execCommand) Wait() error  { return c.cmd.Wait() }

func (c *execCommand) PID() int {
	if c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// ExitCode returns the exit code after Wait, or nil when the process was
// terminated by a signal (ProcessState reports -1) or never started.
func (c *execCommand) ExitCode() *int {
	ps := c.cmd.ProcessState
	if ps == nil {
		return nil
	}
	code := ps.ExitCode()
	if code < 0 {
		return nil
	}
	return &code
}

func (c *execCommand) StdoutPipe() (io.ReadCloser, error) { return c.cmd.StdoutPipe() }
func (c *execCommand) StderrPipe() (io.ReadCloser, error) { return c.cmd.StderrPipe() }
func (c *execCommand) StdinPipe() (io.WriteCloser, error) { return c.cmd.StdinPipe() }
