package cmd

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/traffisense/core/logging"
	"github.com/traffisense/core/internal/stubbackend"
)

type stubOptions struct {
	Addr      string
	UploadDir string
	Frames    int
	Interval  time.Duration
	DropFirst int
	Recording string
	AnyJob    bool
}

// NewStubCmd creates the `stub` command.
func NewStubCmd() *cobra.Command {
	var opts stubOptions
	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Run a local stand-in for the analysis backend",
		Long: `Serves /health, /upload and /ws/<job> with generated or recorded
frames, for demos and for testing reconnect handling.

Examples:
  # Generated 60 frame run, first two connections dropped
  traffisense stub --frames 60 --drop-first 2

  # Serve a recording for any job id
  traffisense stub --recording clip.jsonl --any-job
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStub(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "127.0.0.1:8000", "Listen address")
	cmd.Flags().StringVar(&opts.UploadDir, "upload-dir", "", "Directory for uploads (defaults to a temporary directory)")
	cmd.Flags().IntVar(&opts.Frames, "frames", 30, "Frames in a generated run")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 100*time.Millisecond, "Delay between frames")
	cmd.Flags().IntVar(&opts.DropFirst, "drop-first", 0, "Drop this many stream connections before serving one")
	cmd.Flags().StringVar(&opts.Recording, "recording", "", "Serve this JSONL recording instead of generated frames")
	cmd.Flags().BoolVar(&opts.AnyJob, "any-job", false, "Stream for job ids that were never uploaded")
	return cmd
}

func runStub(parent context.Context, opts stubOptions) error {
	logger := logging.NewLogger("stub")

	uploadDir := opts.UploadDir
	if uploadDir == "" {
		tmp, err := os.MkdirTemp("", "traffisense-stub-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tmp)
		uploadDir = tmp
	}
	processed := filepath.Join(uploadDir, "processed")
	if err := os.MkdirAll(processed, 0o755); err != nil {
		return err
	}

	script := stubbackend.GeneratedScript(opts.Frames)
	if opts.Recording != "" {
		script = stubbackend.RecordingScript(opts.Recording)
	}
	srv := stubbackend.New(logger, stubbackend.Options{
		UploadDir:     uploadDir,
		ProcessedDir:  processed,
		Script:        script,
		FrameInterval: opts.Interval,
		DropFirst:     opts.DropFirst,
		AnyJob:        opts.AnyJob,
	})

	ctx, cancel := signalContext(parent)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(opts.Addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	return srv.Shutdown(shutdownCtx)
}
