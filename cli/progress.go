package cli

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/traffisense/core/tui/theme"
)

// Progress states understood by ProgressReporter.
const (
	StatusQueued    = "queued"
	StatusUploading = "uploading"
	StatusStreaming = "streaming"
	StatusDone      = "done"
	StatusFailed    = "failed"
)

// ProgressReporter prints one line per status change of a batch of files.
// It is safe for concurrent use.
type ProgressReporter struct {
	mu       sync.Mutex
	w        io.Writer
	statuses map[string]string
	start    time.Time
}

// NewProgressReporter creates a reporter writing to w.
func NewProgressReporter(w io.Writer) *ProgressReporter {
	return &ProgressReporter{
		w:        w,
		statuses: make(map[string]string),
		start:    time.Now(),
	}
}

// Update records and prints the new status of name.
func (p *ProgressReporter) Update(name, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.statuses[name] == status {
		return
	}
	p.statuses[name] = status
	elapsed := time.Since(p.start).Round(time.Second)
	fmt.Fprintf(p.w, "%s [%s] %s: %s\n", symbol(status), elapsed, name, status)
}

// Counts returns how many entries are in each status.
func (p *ProgressReporter) Counts() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()

	counts := make(map[string]int)
	for _, s := range p.statuses {
		counts[s]++
	}
	return counts
}

// Done prints a summary line.
func (p *ProgressReporter) Done() {
	counts := p.Counts()

	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(counts))
	for s := range counts {
		names = append(names, s)
	}
	sort.Strings(names)
	fmt.Fprintf(p.w, "\n%d file(s) in %s:", len(p.statuses), time.Since(p.start).Round(time.Millisecond))
	for _, s := range names {
		fmt.Fprintf(p.w, " %s=%d", s, counts[s])
	}
	fmt.Fprintln(p.w)
}

func symbol(status string) string {
	switch status {
	case StatusDone:
		return theme.IconSuccess
	case StatusFailed:
		return theme.IconError
	case StatusUploading, StatusStreaming:
		return theme.IconStreaming
	default:
		return theme.IconBullet
	}
}
