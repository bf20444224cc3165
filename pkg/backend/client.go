// Package backend talks to the video processing backend over HTTP: it
// submits footage for analysis and probes liveness. The result stream
// itself lives in package stream.
package backend

import (
	"context"
)

// Client is the request/response side of the backend.
type Client interface {
	// Upload submits a video file and returns the job id the backend
	// assigned to it.
	Upload(ctx context.Context, path string) (*UploadResult, error)

	// Health probes the backend's liveness endpoint.
	Health(ctx context.Context) (*HealthStatus, error)

	// IsRunning returns true if the backend is available and responding.
	IsRunning() bool

	// BaseURL is the HTTP base the client talks to.
	BaseURL() string

	// Close cleans up any resources used by the client.
	Close() error
}

// UploadResult is the backend's answer to a successful upload.
type UploadResult struct {
	// JobID names the job on the stream endpoint. The backend uses the
	// stored file name.
	JobID string `json:"filename"`
	Path  string `json:"path,omitempty"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status string `json:"status"`
}

// OK reports whether the backend declared itself healthy.
func (h *HealthStatus) OK() bool {
	return h != nil && h.Status == "ok"
}
