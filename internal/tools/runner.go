// Package tools wraps the external programs the scan depends on: lsof, ps,
// pgrep and the systemd service manager.
package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/text/encoding"

	"github.com/w31r4/longoverdue/internal/config"
	"github.com/w31r4/longoverdue/internal/logutil"
)

// Runner runs an external program to completion and returns its stdout.
// When the program exits with a non-zero status the error is a *ToolError and
// the returned output is whatever the program printed before exiting.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ToolError reports an external program that could not be run or failed.
type ToolError struct {
	Tool string
	Args []string
	Code int // exit status, -1 if the program never ran
	Err  error
}

func (e *ToolError) Error() string {
	if e.Code < 0 {
		return fmt.Sprintf("run %s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s exited with status %d", e.Tool, e.Code)
}

func (e *ToolError) Unwrap() error { return e.Err }

// ExitCode returns the exit status carried by err, or -1.
func ExitCode(err error) int {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Code
	}
	return -1
}

// ExecRunner runs programs with os/exec. Stdout is always fully read and the
// process waited for. Stderr goes to Stderr, or is dropped when nil.
type ExecRunner struct {
	Stderr io.Writer
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = r.Stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) && ee.ExitCode() >= 0 {
		return stdout.Bytes(), &ToolError{Tool: name, Args: args, Code: ee.ExitCode(), Err: err}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %v", ctxErr, err)
	}
	return nil, &ToolError{Tool: name, Args: args, Code: -1, Err: err}
}

// Kit runs the listing tools with the run's encoding and timeout.
type Kit struct {
	Runner   Runner
	Encoding encoding.Encoding
	Timeout  time.Duration
	Log      *slog.Logger
}

// NewKit returns a Kit configured from cfg that runs real programs.
func NewKit(cfg *config.Config, log *slog.Logger) *Kit {
	return &Kit{
		Runner:   ExecRunner{},
		Encoding: cfg.Encoding,
		Timeout:  cfg.ToolTimeout,
		Log:      logutil.Component(log, "tools"),
	}
}

// output runs a listing tool and decodes its stdout. On failure the partial
// output is returned for callers that give meaning to specific exit codes.
func (k *Kit) output(ctx context.Context, name string, args ...string) (string, error) {
	if k.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.Timeout)
		defer cancel()
	}

	log := k.Log
	if log == nil {
		log = logutil.Discard()
	}
	start := time.Now()
	out, runErr := k.Runner.Run(ctx, name, args...)
	log.Debug("ran tool", "tool", name, "args", len(args), "bytes", len(out), "elapsed", time.Since(start), "exit", ExitCode(runErr))

	text, err := config.DecodeOutput(k.Encoding, out)
	if err != nil {
		return "", fmt.Errorf("decode %s output: %w", name, err)
	}
	return text, runErr
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
