package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/pkg/models"
)

func TestEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		target Target
		want   string
	}{
		{
			name:   "ws base",
			base:   "ws://127.0.0.1:8000",
			target: Target{JobID: "clip.mp4", Direction: models.DirectionAuto},
			want:   "ws://127.0.0.1:8000/ws/clip.mp4?direction=auto",
		},
		{
			name:   "http maps to ws",
			base:   "http://localhost:8000/",
			target: Target{JobID: "a", Direction: models.Direction90},
			want:   "ws://localhost:8000/ws/a?direction=90",
		},
		{
			name:   "https maps to wss",
			base:   "https://api.example.com/v1",
			target: Target{JobID: "job", Direction: models.Direction270},
			want:   "wss://api.example.com/v1/ws/job?direction=270",
		},
		{
			name:   "empty direction defaults to auto",
			base:   "ws://h",
			target: Target{JobID: "x"},
			want:   "ws://h/ws/x?direction=auto",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Endpoint(tt.base, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEndpointRejectsBadInput(t *testing.T) {
	_, err := Endpoint("ftp://h", Target{JobID: "x"})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = Endpoint("ws://h", Target{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = Endpoint("://bad", Target{JobID: "x"})
	assert.Error(t, err)
}
