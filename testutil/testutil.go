// Package testutil holds fakes and fixtures shared by package tests.
package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/traffisense/core/pkg/models"
)

// RandomString generates a random string of the specified length
func RandomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return hex.EncodeToString(bytes)[:length]
}

// WriteVideo creates a small placeholder video file and returns its path.
func WriteVideo(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("\x00\x00\x00\x18ftypmp42"+RandomString(32)), 0o644))
	return path
}

// Payload marshals an envelope the way the backend sends it.
func Payload(t *testing.T, env models.Envelope) []byte {
	t.Helper()

	data, err := json.Marshal(env)
	require.NoError(t, err)
	return data
}

// WriteRecording writes envelopes as a JSONL stream recording.
func WriteRecording(t *testing.T, path string, envs ...models.Envelope) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	for _, env := range envs {
		_, err := f.Write(append(Payload(t, env), '\n'))
		require.NoError(t, err)
	}
}

// SampleReport is a finished report with two violations.
func SampleReport() *models.Report {
	start1, end1 := 5.0, 7.25
	sf1, ef1 := 150, 217
	ts2 := 12.5
	return &models.Report{
		Total:      12,
		Forward:    9,
		Backward:   2,
		Stationary: 1,
		Violations: 2,
		ViolationList: []models.Violation{
			{ID: 7, Type: "car", StartTime: &start1, EndTime: &end1, StartFrame: &sf1, EndFrame: &ef1},
			{ID: 11, Type: "truck", Timestamp: &ts2},
		},
		AverageSpeed:   31.44,
		ClassBreakdown: map[string]int{"truck": 2, "car": 9, "motorcycle": 1},
		FullVideo:      "full_clip.mp4",
	}
}
