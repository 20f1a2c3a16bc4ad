package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type writingRunner struct {
	calls [][]string
	write bool
	err   error
}

func (r *writingRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	if r.err != nil {
		return nil, []byte("no network"), r.err
	}
	if r.write {
		if err := os.WriteFile(args[len(args)-1], []byte("<add/>"), 0o644); err != nil {
			return nil, nil, err
		}
	}
	return nil, nil, nil
}

func TestNextListPath(t *testing.T) {
	dir := t.TempDir()
	p, err := NextListPath(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "0000.xml"), p)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "0000.xml"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0001.xml"), nil, 0o644))
	p, err = NextListPath(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "0002.xml"), p)
}

func TestDownloadList(t *testing.T) {
	target := filepath.Join(t.TempDir(), "0000.xml")
	r := &writingRunner{write: true}
	require.NoError(t, DownloadList(context.Background(), r, "java -jar flickrdownloader.jar", target))
	assert.Equal(t, [][]string{{"java", "-jar", "flickrdownloader.jar", target}}, r.calls)

	missing := filepath.Join(t.TempDir(), "0000.xml")
	assert.Error(t, DownloadList(context.Background(), &writingRunner{}, "dl", missing))

	err := DownloadList(context.Background(), &writingRunner{err: errors.New("exit 1")}, "dl", missing)
	assert.ErrorContains(t, err, "no network")

	assert.Error(t, DownloadList(context.Background(), r, "  ", missing))
}
