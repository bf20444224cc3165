package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Setenv("TRAFFISENSE_HOME", t.TempDir())
	Reset()
	t.Cleanup(Reset)

	logger := NewLogger("test-component")
	require.NotNil(t, logger)
	assert.Equal(t, "test-component", logger.Data["component"])

	// Same component returns the cached entry
	assert.Same(t, logger, NewLogger("test-component"))
}

func TestLoggerOutput(t *testing.T) {
	var buf bytes.Buffer

	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&TextFormatter{Config: FormatConfig{}})

	logger.WithField("component", "session").Info("Channel opened")

	output := buf.String()
	assert.Contains(t, output, "[INFO]")
	assert.Contains(t, output, "session")
	assert.Contains(t, output, "Channel opened")
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name    string
		config  FormatConfig
		entry   *logrus.Entry
		want    []string
		notWant []string
	}{
		{
			name:   "default format",
			config: FormatConfig{},
			entry: &logrus.Entry{
				Time:    time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
				Level:   logrus.InfoLevel,
				Message: "reconnect scheduled",
				Data: logrus.Fields{
					"component": "session",
					"delay":     "2s",
					"attempt":   1,
				},
			},
			want: []string{"2024-05-01 10:30:00", "[INFO]", "session", "reconnect scheduled", "attempt=1 delay=2s"},
		},
		{
			name: "simple format",
			config: FormatConfig{
				DisableTimestamp: true,
				DisableComponent: true,
			},
			entry: &logrus.Entry{
				Time:    time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
				Level:   logrus.WarnLevel,
				Message: "player failed",
				Data:    logrus.Fields{"component": "session"},
			},
			want:    []string{"[WARN]", "player failed"},
			notWant: []string{"2024-05-01", "session"},
		},
		{
			name:   "session tag and trailing error",
			config: FormatConfig{DisableTimestamp: true},
			entry: &logrus.Entry{
				Level:   logrus.ErrorLevel,
				Message: "stream closed",
				Data: logrus.Fields{
					"component":  "session",
					"job":        "clip.mp4",
					"generation": 3,
					"error":      "EOF",
					"attempt":    2,
				},
			},
			want:    []string{"[ERROR]", "clip.mp4@3 stream closed attempt=2 error=EOF"},
			notWant: []string{"job=", "generation="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &TextFormatter{Config: tt.config}
			out, err := f.Format(tt.entry)
			require.NoError(t, err)
			s := string(out)
			for _, w := range tt.want {
				assert.Contains(t, s, w)
			}
			for _, nw := range tt.notWant {
				assert.NotContains(t, s, nw)
			}
			assert.True(t, strings.HasSuffix(s, "\n"))
		})
	}
}

func TestLogLevelFromEnv(t *testing.T) {
	t.Setenv("TRAFFISENSE_LOG_LEVEL", "debug")

	logger := newLogger("level-test", Config{Level: "error", File: FileSinkConfig{Disabled: true}}, true)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestLogLevelFromConfig(t *testing.T) {
	t.Setenv("TRAFFISENSE_LOG_LEVEL", "")

	logger := newLogger("level-test", Config{Level: "warn", File: FileSinkConfig{Disabled: true}}, true)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())

	logger = newLogger("level-test", Config{Level: "nonsense", File: FileSinkConfig{Disabled: true}}, true)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestJSONPreset(t *testing.T) {
	logger := newLogger("json-test", Config{
		File:   FileSinkConfig{Disabled: true},
		Format: FormatConfig{Preset: "json"},
	}, true)
	_, ok := logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

func TestFileSink(t *testing.T) {
	t.Setenv("TRAFFISENSE_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "logs", "session.log")

	logger := newLogger("file-test", Config{
		File:   FileSinkConfig{Path: path},
		Format: FormatConfig{StructuredToStderr: "never"},
	}, true)
	logger.WithField("component", "file-test").Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestDefaultFileSinkUsesStateDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("TRAFFISENSE_HOME", home)

	path := logFilePath("session", FileSinkConfig{})
	assert.True(t, strings.HasPrefix(path, filepath.Join(home, "state", "logs")))
	assert.Contains(t, filepath.Base(path), "session-")

	assert.Empty(t, logFilePath("session", FileSinkConfig{Disabled: true}))
}

func TestShouldLogToStderr(t *testing.T) {
	t.Setenv("TRAFFISENSE_DEBUG", "")

	assert.True(t, shouldLogToStderr("always", logrus.InfoLevel, true))
	assert.False(t, shouldLogToStderr("never", logrus.DebugLevel, false))
	assert.False(t, shouldLogToStderr("auto", logrus.InfoLevel, true))
	assert.True(t, shouldLogToStderr("auto", logrus.InfoLevel, false))
	assert.True(t, shouldLogToStderr("", logrus.DebugLevel, true))
}

func TestGlobalOutputRedirect(t *testing.T) {
	var buf bytes.Buffer
	SetGlobalOutput(&buf)
	t.Cleanup(func() { SetGlobalOutput(os.Stderr) })

	logger := newLogger("redirect-test", Config{
		File:   FileSinkConfig{Disabled: true},
		Format: FormatConfig{StructuredToStderr: "always"},
	}, true)
	logger.Info("redirected")

	assert.Contains(t, buf.String(), "redirected")

	unmute := Mute()
	inner := Mute()
	logger.Info("while muted")
	inner()
	logger.Info("still muted")
	unmute()
	unmute()
	logger.Info("audible")

	out := buf.String()
	assert.NotContains(t, out, "muted")
	assert.Contains(t, out, "audible")
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Success("Uploaded clip.mp4")
	c.Fields("job", "clip.mp4", "direction", "90", "dangling")
	c.Error("Upload failed", errors.New("connection refused"))
	c.Saved("Report saved to", "/tmp/report.csv")

	out := buf.String()
	assert.Contains(t, out, "Uploaded clip.mp4")
	assert.Contains(t, out, "job:        clip.mp4")
	assert.Contains(t, out, "direction:  90")
	assert.NotContains(t, out, "dangling")
	assert.Contains(t, out, "Upload failed: connection refused")
	assert.Contains(t, out, "/tmp/report.csv")
}
