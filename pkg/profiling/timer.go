package profiling

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// Stopper ends a timed span.
type Stopper interface {
	Stop()
}

// Stat aggregates every span recorded under one name.
type Stat struct {
	Name  string
	Count int
	Total time.Duration
	Max   time.Duration
}

// Mean is the average span duration.
func (s Stat) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Profiler collects named spans from any goroutine. Spans with the same
// name are folded into one Stat.
type Profiler struct {
	mu      sync.Mutex
	enabled bool
	started time.Time
	stats   map[string]*Stat
	now     func() time.Time
}

// NewProfiler returns a disabled profiler.
func NewProfiler() *Profiler {
	return &Profiler{stats: make(map[string]*Stat), now: time.Now}
}

var defaultProfiler = NewProfiler()

// Enable turns the profiler on. Spans started before are not recorded.
func (p *Profiler) Enable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		p.enabled = true
		p.started = p.now()
	}
}

// Start begins a span. The returned Stopper is safe to call once from any
// goroutine.
func (p *Profiler) Start(name string) Stopper {
	p.mu.Lock()
	enabled := p.enabled
	p.mu.Unlock()
	if !enabled {
		return noopStopper{}
	}
	return &span{profiler: p, name: name, start: p.now()}
}

func (p *Profiler) record(name string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.stats[name]
	if !ok {
		st = &Stat{Name: name}
		p.stats[name] = st
	}
	st.Count++
	st.Total += d
	if d > st.Max {
		st.Max = d
	}
}

// Stats returns the aggregates, largest total first.
func (p *Profiler) Stats() []Stat {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Stat, 0, len(p.stats))
	for _, st := range p.stats {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Summarize writes one line per span name with its share of the wall time
// since Enable. Nothing is written while disabled.
func (p *Profiler) Summarize(w io.Writer) {
	p.mu.Lock()
	enabled, wall := p.enabled, p.now().Sub(p.started)
	p.mu.Unlock()
	if !enabled {
		return
	}

	fmt.Fprintf(w, "\n--- Timing (%v wall) ---\n", wall.Round(time.Millisecond))
	for _, st := range p.Stats() {
		share := 0.0
		if wall > 0 {
			share = float64(st.Total) / float64(wall) * 100
		}
		fmt.Fprintf(w, "%-24s %4dx  total %-10v mean %-10v max %-10v %5.1f%%\n",
			st.Name, st.Count,
			st.Total.Round(100*time.Microsecond), st.Mean().Round(100*time.Microsecond),
			st.Max.Round(100*time.Microsecond), share)
	}
}

// Enable turns on the process-wide profiler.
func Enable() { defaultProfiler.Enable() }

// Start begins a span on the process-wide profiler.
func Start(name string) Stopper { return defaultProfiler.Start(name) }

// Summarize prints the process-wide profiler.
func Summarize(w io.Writer) { defaultProfiler.Summarize(w) }

type span struct {
	profiler *Profiler
	name     string
	start    time.Time
	once     sync.Once
}

func (s *span) Stop() {
	s.once.Do(func() {
		s.profiler.record(s.name, s.profiler.now().Sub(s.start))
	})
}

type noopStopper struct{}

func (noopStopper) Stop() {}
