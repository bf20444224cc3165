package command

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traffisense/core/config"
	"github.com/traffisense/core/errors"
)

func TestPlayerExpand(t *testing.T) {
	p := NewPlayerCommand(config.PlayerConfig{}, nil)
	assert.Equal(t, "mpv", p.Name)
	assert.Equal(t, []string{"--start=3.00", "http://h/processed/a.mp4"}, p.Expand("http://h/processed/a.mp4", 3))

	vlc := NewPlayerCommand(config.PlayerConfig{Command: "vlc", Args: []string{"--start-time={seek}"}}, nil)
	assert.Equal(t, []string{"--start-time=12.50", "/tmp/a.mp4"}, vlc.Expand("/tmp/a.mp4", 12.5))
}

func TestPlayerPlayRunsCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "args")
	script := filepath.Join(t.TempDir(), "fake-player")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"$@\" > "+out+"\n"), 0o755))

	p := NewPlayerCommand(config.PlayerConfig{Command: script, Args: []string{"--start={seek}", "{url}"}}, nil)
	require.NoError(t, p.Play(context.Background(), "http://h/processed/a.mp4", 1.25))

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(out)
		return err == nil && string(data) == "--start=1.25 http://h/processed/a.mp4\n"
	}, 3*time.Second, 10*time.Millisecond)
}

func TestPlayerPlayRejectsBadInput(t *testing.T) {
	p := NewPlayerCommand(config.PlayerConfig{Command: "mpv"}, nil)
	err := p.Play(context.Background(), "--no-video", 0)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	missing := NewPlayerCommand(config.PlayerConfig{Command: "traffisense-no-such-player"}, nil)
	err = missing.Play(context.Background(), "http://h/a.mp4", 0)
	assert.True(t, errors.Is(err, errors.ErrCodeCommandNotFound))
}

type missingExecutor struct{ RealExecutor }

func (missingExecutor) LookPath(name string) (string, error) {
	return "", exec.ErrNotFound
}

func TestPlayerUsesExecutorLookup(t *testing.T) {
	p := NewPlayerCommand(config.PlayerConfig{Command: "sh"}, NewSafeBuilderWithExecutor(missingExecutor{}))
	err := p.Play(context.Background(), "http://h/a.mp4", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeCommandNotFound))
	assert.Contains(t, err.Error(), "sh")
}
