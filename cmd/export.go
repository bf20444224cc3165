package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/traffisense/core/cli"
	"github.com/traffisense/core/config"
	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/internal/archive"
	"github.com/traffisense/core/logging"
	"github.com/traffisense/core/pkg/report"
	"github.com/traffisense/core/state"
)

// NewExportCmd creates the `export` command.
func NewExportCmd() *cobra.Command {
	var (
		dir    string
		stdout bool
	)
	cmd := &cobra.Command{
		Use:   "export [job]",
		Short: "Write the archived report of a job as CSV",
		Long: `Exports the latest archived report of a job. Without a job id the last
uploaded job is used.

Examples:
  traffisense export clip.mp4 -o ~/reports
  traffisense export clip.mp4 --stdout > report.csv
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			jobID := ""
			if len(args) > 0 {
				jobID = args[0]
			} else if jobID, _, err = state.LastJob(); err != nil {
				return err
			}
			if jobID == "" {
				return errors.InvalidInput("no job given and no previous upload")
			}

			entry, err := latestReport(cmd, cfg, jobID)
			if err != nil {
				return err
			}
			r := entry.Report.Data
			meta := reportMeta(entry)

			if stdout {
				return report.WriteCSV(cmd.OutOrStdout(), meta, &r)
			}
			if dir == "" {
				dir = defaultExportDir()
			}
			path, err := report.WriteFile(dir, meta, &r)
			if err != nil {
				return err
			}
			if err := state.RememberExportDir(dir); err != nil {
				cli.GetLogger(cmd).WithError(err).Debug("Could not remember export directory")
			}
			logging.NewConsole(cmd.OutOrStdout()).Saved("Report saved to", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "output", "o", "", "Directory to write the CSV into")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "Write the CSV to standard output")
	return cmd
}

func openArchive(cfg *config.Config) (*archive.Store, error) {
	store, err := archive.OpenFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.InvalidInput("the report archive is disabled (archive.disabled in traffisense.yml)")
	}
	return store, nil
}

func latestReport(cmd *cobra.Command, cfg *config.Config, jobID string) (*archive.Entry, error) {
	store, err := openArchive(cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Latest(cmd.Context(), jobID)
}

func reportMeta(e *archive.Entry) report.Meta {
	date := e.CreatedAt
	if date.IsZero() {
		date = time.Now()
	}
	return report.Meta{Filename: e.JobID, Date: date, VideoURL: e.VideoURL}
}
