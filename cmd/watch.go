package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/traffisense/core/cli"
	"github.com/traffisense/core/command"
	"github.com/traffisense/core/config"
	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/logging"
	"github.com/traffisense/core/pkg/models"
	"github.com/traffisense/core/pkg/profiling"
	"github.com/traffisense/core/pkg/session"
	"github.com/traffisense/core/state"
	"github.com/traffisense/core/tui"
	"github.com/traffisense/core/tui/dashboard"
	"github.com/traffisense/core/tui/keymap"
	"github.com/traffisense/core/tui/theme"
)

type watchOptions struct {
	streamOptions
	Direction string
	Plain     bool
	NoArchive bool
	ExportDir string
	Theme     string
}

// NewWatchCmd creates the `watch` command.
func NewWatchCmd() *cobra.Command {
	var opts watchOptions
	cmd := &cobra.Command{
		Use:   "watch [job]",
		Short: "Follow the live analysis of an uploaded video",
		Long: `Connects to the analysis stream of a job and shows progress, live
object counts, wrong-way alerts and the final report. Without a job id the
last uploaded job is used.

Examples:
  # Follow the last upload in the dashboard
  traffisense watch

  # Line output with a direction hint, recording the stream
  traffisense watch clip.mp4 --plain --direction 90 --record clip.jsonl

  # Replay a recording without a backend
  traffisense watch clip.mp4 --replay clip.jsonl --plain

  # Watch a recording another session is still writing
  traffisense watch clip.mp4 --replay clip.jsonl --follow
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			jobID, dir, err := resolveJob(cfg, args, opts.Direction)
			if err != nil {
				return err
			}
			return runWatch(cmd, cfg, jobID, dir, opts)
		},
	}

	addWatchFlags(cmd, &opts)
	return cmd
}

func addWatchFlags(cmd *cobra.Command, opts *watchOptions) {
	cmd.Flags().StringVarP(&opts.Direction, "direction", "d", "", "Direction hint: auto, 0, 90, 180 or 270")
	cmd.Flags().BoolVar(&opts.Plain, "plain", false, "Print state changes as lines instead of the dashboard (implied when stdout is not a terminal)")
	cmd.Flags().BoolVar(&opts.NoArchive, "no-archive", false, "Do not store the final report")
	cmd.Flags().StringVarP(&opts.ExportDir, "output", "o", "", "Directory for exported CSV reports")
	cmd.Flags().StringVar(&opts.Theme, "theme", "", "Dashboard colors: "+strings.Join(theme.Names(), ", "))
	cmd.Flags().StringVar(&opts.Record, "record", "", "Append every stream message to this JSONL file")
	cmd.Flags().StringVar(&opts.Replay, "replay", "", "Read messages from a JSONL recording instead of the backend")
	cmd.Flags().DurationVar(&opts.ReplayInterval, "replay-interval", 100*time.Millisecond, "Delay between replayed messages")
	cmd.Flags().BoolVar(&opts.ReplayFollow, "follow", false, "Keep reading the replay file as it grows, e.g. while another watch --record writes it")
}

// resolveJob picks the job from args or the last upload, and the direction
// from the flag, the remembered direction or the config.
func resolveJob(cfg *config.Config, args []string, flagDir string) (string, models.Direction, error) {
	jobID := ""
	var remembered models.Direction
	if len(args) > 0 {
		jobID = args[0]
	} else {
		job, dir, err := state.LastJob()
		if err != nil {
			return "", "", err
		}
		if job == "" {
			return "", "", errors.InvalidInput("no job given and no previous upload; run 'traffisense upload <file>' first")
		}
		jobID, remembered = job, dir
	}
	if err := command.NewSafeBuilder().Validate("jobID", jobID); err != nil {
		return "", "", errors.InvalidInput(err.Error())
	}

	raw := flagDir
	if raw == "" && remembered != "" {
		return jobID, remembered, nil
	}
	if raw == "" {
		raw = cfg.Session.Direction
	}
	dir, err := models.ParseDirection(raw)
	if err != nil {
		return "", "", errors.InvalidInput(err.Error())
	}
	return jobID, dir, nil
}

func runWatch(cmd *cobra.Command, cfg *config.Config, jobID string, dir models.Direction, opts watchOptions) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	dialer, recording, err := buildDialer(cfg, opts.streamOptions)
	if err != nil {
		return err
	}
	defer recording.Close()

	run, err := newSessionRun(cfg, dialer, !opts.NoArchive)
	if err != nil {
		return err
	}
	defer run.Close()

	if err := state.RememberJob(jobID, dir); err != nil {
		logging.NewLogger("cli").WithError(err).Debug("Could not remember job")
	}
	if err := run.ctrl.Start(ctx, jobID, dir); err != nil {
		return err
	}

	defer profiling.Start("session").Stop()

	var final session.State
	if opts.Plain || !tui.Interactive() {
		final = followPlain(ctx, run.ctrl, cmd.OutOrStdout())
		if final.Report != nil && opts.ExportDir != "" {
			path, err := exportReport(cfg, opts.ExportDir, final)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report saved to %s\n", path)
		}
	} else {
		final, err = runDashboard(ctx, cfg, run.ctrl, jobID, opts)
		if err != nil {
			return err
		}
	}
	return sessionError(final)
}

func runDashboard(ctx context.Context, cfg *config.Config, ctrl *session.Controller, jobID string, opts watchOptions) (session.State, error) {
	defer logging.Mute()()

	tui.InitializeTUI()
	var th *theme.Theme
	if opts.Theme != "" {
		th = theme.NewThemeWithName(opts.Theme)
	}
	scfg := session.ConfigFrom(cfg)
	return dashboard.Run(ctx, ctrl, dashboard.Options{
		JobID:     jobID,
		VideoBase: cfg.Backend.URL,
		Player:    command.NewPlayerCommand(cfg.Player, command.NewSafeBuilder()),
		PreRoll:   scfg.PreRoll,
		Keys:      keymap.Load(cfg),
		Theme:     th,
		Export: func(s session.State) (string, error) {
			return exportReport(cfg, opts.ExportDir, s)
		},
	})
}

// followPlain prints one line per phase change, notice and 10% of progress
// until the session is terminal or ctx ends.
func followPlain(ctx context.Context, ctrl *session.Controller, w io.Writer) session.State {
	sub := ctrl.Subscribe()
	defer ctrl.Unsubscribe(sub)

	var (
		last       = ctrl.Snapshot()
		lastPhase  = session.Phase(-1)
		lastNotice uint64
		lastStep   = -1
	)
	print := func(s session.State) {
		if s.Phase != lastPhase {
			lastPhase = s.Phase
			line := fmt.Sprintf("%s %s %s", dashboard.PhaseIcon(s.Phase), s.JobID, s.Phase)
			if s.Phase == session.PhaseReconnecting {
				line += fmt.Sprintf(" (attempt %d of %d)", s.RetryCount, s.Policy.MaxRetries)
			}
			fmt.Fprintln(w, line)
		}
		if s.Notice != nil && s.Notice.Seq != lastNotice {
			lastNotice = s.Notice.Seq
			fmt.Fprintf(w, "  [%s] %s\n", s.Notice.Kind, s.Notice.Text)
		}
		if step := int(s.ProgressRatio * 10); s.TotalFrames > 0 && step != lastStep {
			lastStep = step
			fmt.Fprintf(w, "  %5.1f%%  frame %d/%d  objects %d  wrong-way %d\n",
				s.Progress(), s.CurrentFrame, s.TotalFrames, s.LiveStats.TotalObjects, s.LiveStats.WrongWayObjects)
		}
		if s.Phase == session.PhaseFinished && s.Report != nil {
			r := s.Report
			fmt.Fprintf(w, "  total %d  violations %d  average speed %.2f\n", r.Total, r.Violations, r.AverageSpeed)
		}
	}

	print(last)
	for !last.Phase.Terminal() {
		select {
		case <-ctx.Done():
			return ctrl.Snapshot()
		case s, ok := <-sub:
			if !ok {
				return ctrl.Snapshot()
			}
			last = s
			print(s)
		}
	}
	return last
}
