// Package java validates Java executables before a server start. Validity is
// judged solely by a successful "-version" invocation under a bounded
// timeout; version selection is out of scope here.
package java

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/craftd/craftd/internal/instance"
)

const DefaultProbeTimeout = 10 * time.Second

// Validate runs "<path> -version" and requires a zero exit code plus any
// stdout or stderr output within the timeout. The probe is hard-killed when
// the deadline passes.
func Validate(ctx context.Context, path string, timeout time.Duration) error {
	if path == "" {
		return fmt.Errorf("empty java path")
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// ok: path comes from instance config, invoked with a fixed flag
	// #nosec G204
	cmd := exec.CommandContext(ctx, path, "-version")
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("java probe %q: %w", path, err)
	}
	// JDKs print the banner on stderr; some wrappers use stdout.
	if out.Len() == 0 && errOut.Len() == 0 {
		return fmt.Errorf("java probe %q produced no output", path)
	}
	return nil
}

// Resolve validates the configured path, falling back to the process-wide
// default when the configured one fails and differs. Returns the usable path
// or a JAVA_NOT_FOUND error.
func Resolve(ctx context.Context, configured, fallback string, timeout time.Duration) (string, error) {
	err := Validate(ctx, configured, timeout)
	if err == nil {
		return configured, nil
	}
	if fallback != "" && fallback != configured {
		if ferr := Validate(ctx, fallback, timeout); ferr == nil {
			return fallback, nil
		}
	}
	return "", instance.ErrJavaNotFound(configured, err)
}
