package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/traffisense/core/errors"
)

// ErrorHandler prints user-facing messages for coded errors.
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a handler writing to stderr.
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle prints a hint for err and returns it unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	out := h.Out
	if out == nil {
		out = os.Stderr
	}
	tsErr, _ := errors.As(err)
	detail := func(key string) interface{} {
		if tsErr == nil {
			return ""
		}
		return tsErr.Details[key]
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(out, "❌ Configuration not found. Create traffisense.yml or run 'traffisense config init'.\n")

	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintf(out, "❌ Invalid configuration: %v\n", err)

	case errors.ErrCodeUploadUnreachable:
		fmt.Fprintf(out, "❌ Upload failed: cannot reach backend at %v\n", detail("url"))
		fmt.Fprintf(out, "Check that the backend is running with 'traffisense health'.\n")

	case errors.ErrCodeUploadRejected:
		fmt.Fprintf(out, "❌ %v (HTTP %v)\n", err, detail("status"))

	case errors.ErrCodeBackendUnavailable:
		fmt.Fprintf(out, "❌ Backend at %v is not responding\n", detail("url"))

	case errors.ErrCodeConnectionExhausted:
		fmt.Fprintf(out, "❌ Connection lost for job '%v' after %v reconnect attempts\n", detail("job"), detail("attempts"))

	case errors.ErrCodeTransport:
		fmt.Fprintf(out, "❌ Stream connection failed: %v\n", err)

	case errors.ErrCodeProtocol:
		fmt.Fprintf(out, "❌ Backend reported an error: %v\n", err)

	case errors.ErrCodeReportNotFound:
		fmt.Fprintf(out, "❌ No report stored for job '%v'. Watch the job to completion first.\n", detail("job"))

	case errors.ErrCodeCommandNotFound:
		fmt.Fprintf(out, "❌ Video player not found. Set player.command in traffisense.yml.\n")

	default:
		fmt.Fprintf(out, "❌ Error: %v\n", err)
	}

	if h.Verbose && tsErr != nil {
		fmt.Fprintf(out, "\nError details:\n%s\n", tsErr.ToJSON())
	}
	return err
}
