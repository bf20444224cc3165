package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/traffisense/core/cli"
	"github.com/traffisense/core/config"
	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/pkg/backend"
	"github.com/traffisense/core/pkg/ingest"
	"github.com/traffisense/core/pkg/models"
	"github.com/traffisense/core/pkg/profiling"
	"github.com/traffisense/core/pkg/session"
	"github.com/traffisense/core/state"
)

// NewIngestCmd creates the `ingest` command.
func NewIngestCmd() *cobra.Command {
	var (
		existing  bool
		follow    bool
		direction string
	)
	cmd := &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Upload every video dropped into a folder",
		Long: `Watches a directory and uploads each video once it has stopped growing.
With --follow every upload is also analysed to completion and its report
archived before the next file is handled.

Examples:
  traffisense ingest ~/dashcam --existing --follow
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			raw := direction
			if raw == "" {
				raw = cfg.Session.Direction
			}
			dir, err := models.ParseDirection(raw)
			if err != nil {
				return errors.InvalidInput(err.Error())
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			client := backend.New(cfg)
			defer client.Close()

			progress := cli.NewProgressReporter(cmd.OutOrStdout())
			defer progress.Done()

			log := cli.NewLogger(cli.FromOptions(cli.GetOptions(cmd))...)
			handler := ingestHandler(cfg, client, progress, log, dir, follow)
			opts := ingest.OptionsFrom(cfg)
			opts.Existing = existing
			w, err := ingest.NewWatcher(args[0], opts, handler)
			if err != nil {
				return err
			}
			return w.Start(ctx)
		},
	}

	cmd.Flags().BoolVar(&existing, "existing", false, "Also upload videos already in the folder")
	cmd.Flags().BoolVar(&follow, "follow", false, "Analyse each upload to completion and archive its report")
	cmd.Flags().StringVarP(&direction, "direction", "d", "", "Direction hint for every upload: auto, 0, 90, 180 or 270")
	return cmd
}

func ingestHandler(cfg *config.Config, client backend.Client, progress *cli.ProgressReporter, log *logrus.Logger, dir models.Direction, follow bool) ingest.Handler {
	return func(ctx context.Context, path string) error {
		name := filepath.Base(path)
		progress.Update(name, cli.StatusUploading)
		span := profiling.Start("upload")
		res, err := client.Upload(ctx, path)
		span.Stop()
		if err != nil {
			progress.Update(name, cli.StatusFailed)
			return err
		}
		if err := state.RememberJob(res.JobID, dir); err != nil {
			log.WithError(err).Debug("Could not remember job")
		}
		if !follow {
			progress.Update(name, cli.StatusDone)
			return nil
		}

		progress.Update(name, cli.StatusStreaming)
		final, err := followJob(ctx, cfg, res.JobID, dir)
		if err != nil || final.Phase != session.PhaseFinished {
			progress.Update(name, cli.StatusFailed)
			if err == nil {
				err = fmt.Errorf("session for %s ended %s", res.JobID, final.Phase)
			}
			return err
		}
		progress.Update(name, cli.StatusDone)
		return nil
	}
}

// followJob runs one headless session to a terminal phase and archives it.
func followJob(ctx context.Context, cfg *config.Config, jobID string, dir models.Direction) (session.State, error) {
	dialer, closer, err := buildDialer(cfg, streamOptions{})
	if err != nil {
		return session.State{}, err
	}
	defer closer.Close()

	run, err := newSessionRun(cfg, dialer, true)
	if err != nil {
		return session.State{}, err
	}
	defer run.Close()

	defer profiling.Start("session").Stop()
	if err := run.ctrl.Start(ctx, jobID, dir); err != nil {
		return session.State{}, err
	}
	final := run.Wait(ctx)
	return final, sessionError(final)
}
