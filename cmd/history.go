package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/traffisense/core/cli"
	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/internal/archive"
	"github.com/traffisense/core/pkg/models"
	"github.com/traffisense/core/tui/components/table"
	"github.com/traffisense/core/tui/theme"
)

type historyOptions struct {
	JobID     string
	Direction string
	Violating bool
	Since     time.Duration
	Limit     int
	Offset    int
}

// filter builds the archive query. now anchors --since.
func (o historyOptions) filter(now time.Time) (models.Filter, error) {
	f := models.Filter{
		JobID:         o.JobID,
		OnlyViolating: o.Violating,
		Limit:         o.Limit,
		Offset:        o.Offset,
	}
	if o.Direction != "" {
		dir, err := models.ParseDirection(o.Direction)
		if err != nil {
			return f, errors.InvalidInput(err.Error())
		}
		f.Direction = dir
	}
	if o.Since > 0 {
		start := now.Add(-o.Since)
		f.StartTime = &start
	}
	return f, nil
}

// NewHistoryCmd creates the `history` command.
func NewHistoryCmd() *cobra.Command {
	var opts historyOptions
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived reports",
		Long: `Lists the reports of finished sessions, newest first.

Examples:
  # Reports with at least one wrong-way vehicle from the last day
  traffisense history --violating --since 24h

  # Every run of one job as JSON
  traffisense history --job clip.mp4 --json
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			f, err := opts.filter(time.Now())
			if err != nil {
				return err
			}
			store, err := openArchive(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			page, err := store.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				data, err := json.MarshalIndent(page, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			printHistory(cmd, page)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.JobID, "job", "", "Only reports of this job")
	cmd.Flags().StringVarP(&opts.Direction, "direction", "d", "", "Only reports with this direction hint: auto, 0, 90, 180 or 270")
	cmd.Flags().BoolVar(&opts.Violating, "violating", false, "Only reports with wrong-way vehicles")
	cmd.Flags().DurationVar(&opts.Since, "since", 0, "Only reports newer than this, e.g. 24h")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", archive.DefaultPageSize, "Page size")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Skip this many reports")
	return cmd
}

func printHistory(cmd *cobra.Command, page *models.Page[archive.Entry]) {
	w := cmd.OutOrStdout()
	t := theme.DefaultTheme
	if len(page.Items) == 0 {
		fmt.Fprintln(w, t.Muted.Render("No archived reports."))
		return
	}

	rows := make([][]string, 0, len(page.Items))
	for _, e := range page.Items {
		rows = append(rows, historyRow(e))
	}
	fmt.Fprintln(w, table.Render([]string{"Date", "Job", "Direction", "Total", "Violations", "Avg speed"}, rows))
	footer := fmt.Sprintf("Page %d, %d of %d report(s)", page.Page, len(page.Items), page.Total)
	if page.HasNext {
		footer += fmt.Sprintf("; next: --offset %d", (page.Page)*page.PageSize)
	}
	fmt.Fprintln(w, t.Muted.Render(footer))
}

func historyRow(e archive.Entry) []string {
	violations := strconv.Itoa(e.Violations)
	if e.Violations > 0 {
		violations = theme.DefaultTheme.Error.Render(theme.IconViolation + " " + violations)
	}
	return []string{
		e.CreatedAt.Local().Format("2006-01-02 15:04"),
		e.JobID,
		e.Direction.Label(),
		strconv.Itoa(e.Total),
		violations,
		strconv.FormatFloat(e.AverageSpeed, 'f', 2, 64),
	}
}
