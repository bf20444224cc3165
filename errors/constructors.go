package errors

import (
	"fmt"
	"os/exec"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *Error {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *Error {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// Transport creates a stream transport error for a failed open or an
// unexpected close.
func Transport(endpoint string, err error) *Error {
	return Wrap(err, ErrCodeTransport, fmt.Sprintf("stream transport failed: %s", endpoint)).
		WithDetail("endpoint", endpoint)
}

// ConnectionExhausted is raised once every reconnect attempt has failed.
func ConnectionExhausted(jobID string, attempts int) *Error {
	return New(ErrCodeConnectionExhausted,
		"Connection to server failed. Please ensure the backend is running.").
		WithDetail("job", jobID).
		WithDetail("attempts", attempts)
}

// Protocol wraps an error message sent by the backend itself.
func Protocol(message string) *Error {
	return New(ErrCodeProtocol, message)
}

// MalformedMessage creates an error for a stream payload that cannot be decoded
func MalformedMessage(err error) *Error {
	return Wrap(err, ErrCodeMalformedMessage, "malformed stream message")
}

// UploadUnreachable signals that the backend could not be reached at all.
func UploadUnreachable(url string, err error) *Error {
	return Wrap(err, ErrCodeUploadUnreachable,
		"Cannot connect to the backend server. Please ensure the API is running.").
		WithDetail("url", url)
}

// UploadRejected signals that the backend answered but refused the file.
func UploadRejected(status int, reason string) *Error {
	return New(ErrCodeUploadRejected, fmt.Sprintf("Upload failed: %s", reason)).
		WithDetail("status", status)
}

// BackendUnavailable creates an error for a failed health probe
func BackendUnavailable(url string) *Error {
	return New(ErrCodeBackendUnavailable, fmt.Sprintf("backend is not responding at %s", url)).
		WithDetail("url", url)
}

// ReportNotFound creates an error for a job with no archived report
func ReportNotFound(jobID string) *Error {
	return New(ErrCodeReportNotFound, fmt.Sprintf("no report archived for job '%s'", jobID)).
		WithDetail("job", jobID)
}

// CommandFailed creates a command execution failure error
func CommandFailed(cmd string, err error) *Error {
	tsErr := Wrap(err, ErrCodeCommandFailed, fmt.Sprintf("command failed: %s", cmd)).
		WithDetail("command", cmd)

	// Extract exit code if available
	if exitErr, ok := err.(*exec.ExitError); ok {
		tsErr = tsErr.WithDetail("exitCode", exitErr.ExitCode())
	}

	return tsErr
}

// InvalidInput creates an input validation error
func InvalidInput(reason string) *Error {
	return New(ErrCodeInvalidInput, reason)
}
