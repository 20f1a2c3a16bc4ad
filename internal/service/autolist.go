package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"annotator/internal/runner"
)

// NextListPath returns the first dir/NNNN.xml that does not exist yet.
func NextListPath(dir string) (string, error) {
	for i := 0; i < 10000; i++ {
		p := filepath.Join(dir, fmt.Sprintf("%04d.xml", i))
		if _, err := os.Stat(p); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		return p, nil
	}
	return "", fmt.Errorf("no free list name in %s", dir)
}

// DownloadList runs the downloader command with path as its last argument
// and checks that it produced the list.
func DownloadList(ctx context.Context, r runner.Runner, command, path string) error {
	cmd, err := runner.ParseCommand(command)
	if err != nil {
		return fmt.Errorf("downloader command: %w", err)
	}
	if _, stderr, err := r.Run(ctx, cmd.Name, cmd.With(path)...); err != nil {
		return fmt.Errorf("download list: %w (%s)", err, runner.Truncate(string(stderr), 256))
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("downloader did not create %s: %w", path, err)
	}
	return nil
}
