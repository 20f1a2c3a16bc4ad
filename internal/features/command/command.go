// Package command encodes feature vectors with an external conversion tool
// that prints "<base64 histogram>|<hashes>".
package command

import (
	"context"
	"fmt"
	"strings"

	"annotator/internal/features"
	"annotator/internal/runner"
)

// Encoder shells out once per vector.
type Encoder struct {
	cmd    runner.Command
	typ    string
	runner runner.Runner
}

// Config configures the external tool.
type Config struct {
	// Command is the program and its leading arguments.
	Command string
	// Type is passed as -t; "short" when empty.
	Type string
}

// New creates an encoder running r. A nil r executes commands directly.
func New(cfg Config, r runner.Runner) (*Encoder, error) {
	cmd, err := runner.ParseCommand(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("feature command: %w", err)
	}
	if r == nil {
		r = runner.Exec{}
	}
	typ := cfg.Type
	if typ == "" {
		typ = "short"
	}
	return &Encoder{cmd: cmd, typ: typ, runner: r}, nil
}

func (e *Encoder) Name() string { return "command" }

// Encode runs "<command> -t <type> -d x<v1;v2;...>" and splits its output
// on the first '|'.
func (e *Encoder) Encode(ctx context.Context, q []int16) (string, string, error) {
	if len(q) == 0 {
		return "", "", features.ErrDegenerateVector
	}
	args := e.cmd.With("-t", e.typ, "-d", "x"+features.JoinShorts(q))
	stdout, stderr, err := e.runner.Run(ctx, e.cmd.Name, args...)
	if err != nil {
		return "", "", fmt.Errorf("feature conversion failed: %w (%s)", err, runner.Truncate(strings.TrimSpace(string(stderr)), 256))
	}
	out := strings.TrimSpace(string(stdout))
	if out == "" {
		return "", "", fmt.Errorf("feature conversion returned no output")
	}
	hist, hashes, _ := strings.Cut(out, "|")
	return hist, hashes, nil
}
