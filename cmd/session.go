package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/traffisense/core/config"
	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/internal/archive"
	"github.com/traffisense/core/logging"
	"github.com/traffisense/core/pkg/profiling"
	"github.com/traffisense/core/pkg/report"
	"github.com/traffisense/core/pkg/session"
	"github.com/traffisense/core/pkg/stream"
	"github.com/traffisense/core/state"
)

// streamOptions selects where session payloads come from.
type streamOptions struct {
	Record         string
	Replay         string
	ReplayInterval time.Duration
	ReplayFollow   bool
}

// buildDialer returns the websocket dialer, or a replay of a recording,
// optionally wrapped in a recorder. The closer flushes the recording.
func buildDialer(cfg *config.Config, opts streamOptions) (stream.Dialer, io.Closer, error) {
	var d stream.Dialer
	if opts.Replay != "" {
		rd := stream.NewReplayDialer(opts.Replay, opts.ReplayInterval)
		rd.Follow = opts.ReplayFollow
		d = rd
	} else {
		d = stream.NewWebSocketDialer(cfg.Backend.StreamBase(), cfg.Backend.HandshakeTimeout.D())
	}
	if opts.Record == "" {
		return d, io.NopCloser(nil), nil
	}
	rec, closer, err := stream.RecordToFile(d, opts.Record)
	if err != nil {
		return nil, nil, err
	}
	return rec, closer, nil
}

// sessionRun owns a controller and archives every finished report it
// produces, once per session instance.
type sessionRun struct {
	cfg   *config.Config
	ctrl  *session.Controller
	store *archive.Store
	log   *logrus.Entry

	archived chan struct{}
	mu       sync.Mutex
	saved    []*archive.Entry
}

func newSessionRun(cfg *config.Config, dialer stream.Dialer, archiveReports bool) (*sessionRun, error) {
	r := &sessionRun{
		cfg:      cfg,
		log:      logging.NewLogger("session"),
		archived: make(chan struct{}),
	}
	r.ctrl = session.NewController(dialer, session.ConfigFrom(cfg), session.WithLogger(r.log))

	if archiveReports {
		store, err := archive.OpenFromConfig(cfg)
		if err != nil {
			r.log.WithError(err).Warn("Report archive unavailable")
		}
		r.store = store
	}

	sub := r.ctrl.Subscribe()
	go r.archiveFinished(sub)
	return r, nil
}

func (r *sessionRun) archiveFinished(sub chan session.State) {
	defer close(r.archived)
	var last string
	for s := range sub {
		if s.Phase != session.PhaseFinished || s.Report == nil || s.InstanceID == last {
			continue
		}
		last = s.InstanceID
		if r.store == nil {
			continue
		}
		span := profiling.Start("archive.save")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		entry, err := r.store.Save(ctx, s.JobID, s.InstanceID, s.Direction, s.Report.VideoURL(r.cfg.Backend.URL), s.Report)
		cancel()
		span.Stop()
		if err != nil {
			r.log.WithError(err).Warn("Failed to archive report")
			continue
		}
		r.mu.Lock()
		r.saved = append(r.saved, entry)
		r.mu.Unlock()
	}
}

// Saved returns the archive entries written so far.
func (r *sessionRun) Saved() []*archive.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*archive.Entry(nil), r.saved...)
}

// Close stops the controller and waits for pending archive writes.
func (r *sessionRun) Close() {
	r.ctrl.Close()
	<-r.archived
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.log.WithError(err).Debug("Closing archive")
		}
	}
}

// Wait blocks until the current session is terminal or ctx ends.
func (r *sessionRun) Wait(ctx context.Context) session.State {
	select {
	case <-r.ctrl.Done():
	case <-ctx.Done():
	}
	return r.ctrl.Snapshot()
}

// sessionError turns a failed terminal state into an error.
func sessionError(s session.State) error {
	if s.Phase != session.PhaseFailed {
		return nil
	}
	if s.Notice != nil {
		code := s.Notice.Code
		if code == "" {
			code = errors.ErrCodeInternal
		}
		return errors.New(code, s.Notice.Text).WithDetail("job", s.JobID)
	}
	return errors.New(errors.ErrCodeInternal, fmt.Sprintf("session for %s failed", s.JobID))
}

// exportReport writes the CSV of s into dir and remembers dir.
func exportReport(cfg *config.Config, dir string, s session.State) (string, error) {
	if dir == "" {
		dir = defaultExportDir()
	}
	defer profiling.Start("report.export").Stop()
	path, err := report.WriteFile(dir, report.Meta{
		Filename: s.JobID,
		Date:     time.Now(),
		VideoURL: s.Report.VideoURL(cfg.Backend.URL),
	}, s.Report)
	if err != nil {
		return "", err
	}
	if err := state.RememberExportDir(dir); err != nil {
		logging.NewLogger("cli").WithError(err).Debug("Could not remember export directory")
	}
	return path, nil
}

func defaultExportDir() string {
	if dir := state.ExportDir(); dir != "" {
		return dir
	}
	return "."
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
