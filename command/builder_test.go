package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traffisense/core/errors"
)

func TestValidators(t *testing.T) {
	sb := NewSafeBuilder()
	cases := map[string]map[string]bool{
		"executable": {
			"mpv":           true,
			"/usr/bin/vlc":  true,
			"g++":           true,
			"":              false,
			"mpv; rm -rf /": false,
			"my player":     false,
			"$(whoami)":     false,
		},
		"fileName": {
			"/videos/cam1.mp4":   true,
			"cam1/evening.mp4":   true,
			"../etc/passwd":      false,
			"clip.mp4; rm -rf /": false,
			"clip.mp4 | cat":     false,
			"clip.mp4 & echo":    false,
			"`whoami`":           false,
			"":                   false,
		},
		"mediaURL": {
			"http://127.0.0.1:8000/processed/full.mp4":           true,
			"https://res.cloudinary.com/x/video/upload/v1/a.mp4": true,
			"file:///tmp/a.mp4":                                  true,
			"/tmp/a.mp4":                                         true,
			"--script=evil.lua":                                  false,
			"javascript:alert(1)":                                false,
			"":                                                   false,
		},
		"jobID": {
			"clip.mp4":  true,
			"cam 1.mp4": true,
			"":          false,
			"..":        false,
			"a/b.mp4":   false,
		},
	}
	for kind, inputs := range cases {
		for input, ok := range inputs {
			err := sb.Validate(kind, input)
			if ok {
				assert.NoError(t, err, "%s %q", kind, input)
			} else {
				assert.Error(t, err, "%s %q", kind, input)
			}
		}
	}

	assert.Error(t, sb.Validate("codec", "h264"))
}

func TestBuild(t *testing.T) {
	sb := NewSafeBuilder()

	cmd, err := sb.Build(context.Background(), "mpv", "--start=3.00", "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "mpv --start=3.00 clip.mp4", cmd.String())
	assert.Equal(t, DefaultTimeout, cmd.timeout)

	_, err = sb.Build(context.Background(), "mpv && rm")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestTimeouts(t *testing.T) {
	cmd, err := NewSafeBuilder().Build(context.Background(), "sleep", "1")
	require.NoError(t, err)

	assert.Equal(t, time.Second, cmd.WithTimeout(time.Second).timeout)
	assert.Equal(t, MaxTimeout, cmd.WithTimeout(20*time.Minute).timeout)

	cmd = cmd.Detached()
	_, hasDeadline := cmd.ctx.Deadline()
	assert.False(t, hasDeadline)
	assert.Zero(t, cmd.timeout)
}

func TestRunStopsAtTimeout(t *testing.T) {
	cmd, err := NewSafeBuilder().Build(context.Background(), "sleep", "10")
	require.NoError(t, err)

	start := time.Now()
	err = cmd.WithTimeout(100 * time.Millisecond).Run()
	assert.True(t, errors.Is(err, errors.ErrCodeCommandFailed))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestStartReportsExit(t *testing.T) {
	cmd, err := NewSafeBuilder().Build(context.Background(), "true")
	require.NoError(t, err)

	exited := make(chan error, 1)
	require.NoError(t, cmd.Start(func(err error) { exited <- err }))
	select {
	case err := <-exited:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("exit callback not called")
	}
}

func TestResolve(t *testing.T) {
	sb := NewSafeBuilder()

	_, err := sb.Resolve("traffisense-no-such-player")
	assert.True(t, errors.Is(err, errors.ErrCodeCommandNotFound))

	_, err = sb.Resolve("bad name")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}
