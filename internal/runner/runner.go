// Package runner executes external tools; tests swap in a stub Runner.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Runner runs a command and returns its output streams.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// Exec runs commands with os/exec.
type Exec struct {
	Logger *zap.Logger
	// Dir is the working directory of the commands.
	Dir string
}

// Run implements Runner.
func (e Exec) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = e.Dir
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)
	if err != nil {
		logger.Error("exec failed",
			zap.String("cmd", name),
			zap.String("args", Truncate(strings.Join(args, " "), 512)),
			zap.Int64("duration_ms", dur.Milliseconds()),
			zap.String("stderr", Truncate(errb.String(), 8<<10)),
			zap.Error(err),
		)
		return out.Bytes(), errb.Bytes(), fmt.Errorf("%s: %w", name, err)
	}
	logger.Debug("exec ok",
		zap.String("cmd", name),
		zap.Int64("duration_ms", dur.Milliseconds()),
		zap.Int("stdout_bytes", out.Len()),
		zap.Int("stderr_bytes", errb.Len()),
	)
	return out.Bytes(), errb.Bytes(), nil
}

// Truncate cuts s to max bytes.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

// Command is a program with its leading arguments, e.g.
// "java -cp flickrdownloader.jar net.semanticmetadata.lire.solr.tools.DataConversion".
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a command line on whitespace. Quoting is not
// supported.
func ParseCommand(line string) (Command, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}
	return Command{Name: parts[0], Args: parts[1:]}, nil
}

// With returns the full argument list with extra appended.
func (c Command) With(extra ...string) []string {
	out := make([]string, 0, len(c.Args)+len(extra))
	out = append(out, c.Args...)
	return append(out, extra...)
}
