package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/logging"
	"github.com/traffisense/core/version"
)

// maxErrorBody bounds how much of a failed response is read for the reason.
const maxErrorBody = 4 << 10

// HTTPClient implements Client against the backend's HTTP API.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	log        *logrus.Entry
}

// NewHTTPClient creates a client for baseURL. A zero timeout applies to
// health probes only; uploads run until ctx ends because video files can be
// large.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	transport := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		DisableKeepAlives: false,
		MaxIdleConns:      10,
		IdleConnTimeout:   90 * time.Second,
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPClient{
		httpClient: &http.Client{Transport: transport, Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		log:        logging.NewLogger("backend"),
	}
}

// BaseURL implements Client.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

// Upload posts path as the multipart field "file". The body is streamed
// from disk through a pipe rather than buffered.
func (c *HTTPClient) Upload(ctx context.Context, path string) (*UploadResult, error) {
	endpoint := c.baseURL + "/upload"

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("cannot open %s: %v", path, err))
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		pr.Close()
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("User-Agent", version.UserAgent())

	log := c.log.WithField("file", filepath.Base(path))
	log.Info("Uploading video")

	// Uploads are not bound by the probe timeout.
	uploader := &http.Client{Transport: c.httpClient.Transport}
	resp, err := uploader.Do(req)
	if err != nil {
		pr.Close()
		return nil, errors.UploadUnreachable(endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.UploadUnreachable(endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.UploadRejected(resp.StatusCode, rejectionReason(resp.Status, body))
	}

	var payload struct {
		UploadResult
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.UploadRejected(resp.StatusCode, "unreadable response: "+err.Error())
	}
	if payload.Error != nil {
		return nil, errors.UploadRejected(resp.StatusCode, *payload.Error)
	}
	if payload.JobID == "" {
		return nil, errors.UploadRejected(resp.StatusCode, "response carries no job id")
	}

	log.WithField("job", payload.JobID).Info("Upload accepted")
	result := payload.UploadResult
	return &result, nil
}

// Health implements Client.
func (c *HTTPClient) Health(ctx context.Context) (*HealthStatus, error) {
	endpoint := c.baseURL + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create request")
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.BackendUnavailable(c.baseURL).WithDetail("cause", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.BackendUnavailable(c.baseURL).WithDetail("status", resp.StatusCode)
	}

	var status HealthStatus
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&status); err != nil {
		// A 200 with an odd body still means the backend is up.
		status.Status = "ok"
	}
	return &status, nil
}

// IsRunning returns true if the backend is available and responding.
func (c *HTTPClient) IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := c.Health(ctx)
	return err == nil
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func rejectionReason(status string, body []byte) string {
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	if text == "" {
		return status
	}
	return status + ": " + text
}
