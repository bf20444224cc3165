package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/traffisense/core/cli"
	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/logging"
	"github.com/traffisense/core/pkg/backend"
	"github.com/traffisense/core/pkg/models"
	"github.com/traffisense/core/pkg/profiling"
	"github.com/traffisense/core/state"
)

// NewUploadCmd creates the `upload` command.
func NewUploadCmd() *cobra.Command {
	var (
		opts  watchOptions
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a video for wrong-way analysis",
		Long: `Sends a video file to the backend. The job id the backend assigns is
remembered, so a later 'traffisense watch' follows it.

Examples:
  # Upload and follow the analysis in the dashboard
  traffisense upload clip.mp4 --watch

  # Upload only
  traffisense upload clip.mp4 --direction 180
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			raw := opts.Direction
			if raw == "" {
				raw = cfg.Session.Direction
			}
			dir, err := models.ParseDirection(raw)
			if err != nil {
				return errors.InvalidInput(err.Error())
			}

			ctx, cancel := signalContext(cmd.Context())
			client := backend.New(cfg)
			span := profiling.Start("upload")
			res, err := client.Upload(ctx, args[0])
			span.Stop()
			client.Close()
			cancel()
			if err != nil {
				return err
			}

			if err := state.RememberJob(res.JobID, dir); err != nil {
				logging.NewLogger("cli").WithError(err).Debug("Could not remember job")
			}
			if cli.GetOptions(cmd).JSONOutput {
				data, _ := json.MarshalIndent(res, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			} else {
				console := logging.NewConsole(cmd.OutOrStdout())
				console.Success("Uploaded " + args[0])
				console.Fields("job", res.JobID, "direction", dir)
			}

			if !watch {
				return nil
			}
			return runWatch(cmd, cfg, res.JobID, dir, opts)
		},
	}

	addWatchFlags(cmd, &opts)
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow the analysis after the upload")
	return cmd
}
