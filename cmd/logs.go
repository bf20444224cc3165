package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"

	"github.com/traffisense/core/cli"
	"github.com/traffisense/core/pkg/paths"
	"github.com/traffisense/core/tui/theme"
)

// LogFile is one component log file under the state directory.
type LogFile struct {
	Component string
	Path      string
	ModTime   time.Time
}

// taggedLine is a log line with the component it came from.
type taggedLine struct {
	Component string
	Line      string
}

// NewLogsCmd creates the `logs` command.
func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the component log files",
		Long: `Prints the newest log file of every component (session, stream,
backend, ingest, archive, stub). Log files live under the state directory.

Examples:
  # Follow the session log
  traffisense logs -f --component session

  # Last 50 lines of every component
  traffisense logs -n 50
`,
		RunE: runLogsE,
	}

	cmd.Flags().StringSlice("component", nil, "Only show these components")
	cmd.Flags().BoolP("follow", "f", false, "Follow log output")
	cmd.Flags().IntP("lines", "n", 20, "Lines to show from the end of each file (0 for all)")
	cmd.Flags().String("dir", "", "Log directory (defaults to the state directory)")
	return cmd
}

func runLogsE(cmd *cobra.Command, args []string) error {
	logger := cli.GetLogger(cmd)
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = filepath.Join(paths.StateDir(), "logs")
	}
	components, _ := cmd.Flags().GetStringSlice("component")
	follow, _ := cmd.Flags().GetBool("follow")
	lines, _ := cmd.Flags().GetInt("lines")

	files, err := LatestLogFiles(dir, components)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Infof("No log files in %s", dir)
		return nil
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	out := make(chan taggedLine, 100)
	var wg sync.WaitGroup
	for _, f := range files {
		wg.Add(1)
		go func(f LogFile) {
			defer wg.Done()
			if err := tailLogFile(ctx, f, lines, follow, out); err != nil {
				logger.WithError(err).WithField("file", f.Path).Warn("Cannot read log file")
			}
		}(f)
	}
	go func() {
		wg.Wait()
		close(out)
	}()

	jsonOutput := cli.GetOptions(cmd).JSONOutput
	w := cmd.OutOrStdout()
	for l := range out {
		if jsonOutput {
			printLogJSON(w, l)
		} else {
			printLogText(w, l)
		}
	}
	return nil
}

// LatestLogFiles returns the newest <component>-<date>.log per component,
// sorted by component.
func LatestLogFiles(dir string, only []string) ([]LogFile, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read log directory %s: %w", dir, err)
	}

	wanted := make(map[string]bool, len(only))
	for _, c := range only {
		wanted[c] = true
	}

	latest := make(map[string]LogFile)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".log") {
			continue
		}
		component := logComponent(name)
		if len(wanted) > 0 && !wanted[component] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if cur, ok := latest[component]; !ok || info.ModTime().After(cur.ModTime) {
			latest[component] = LogFile{Component: component, Path: filepath.Join(dir, name), ModTime: info.ModTime()}
		}
	}

	files := make([]LogFile, 0, len(latest))
	for _, f := range latest {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Component < files[j].Component })
	return files, nil
}

// logComponent strips the "-2006-01-02.log" suffix of a log file name.
func logComponent(name string) string {
	base := strings.TrimSuffix(name, ".log")
	const dated = len("-2006-01-02")
	if len(base) > dated && base[len(base)-dated] == '-' {
		if _, err := time.Parse("2006-01-02", base[len(base)-dated+1:]); err == nil {
			return base[:len(base)-dated]
		}
	}
	return base
}

// tailLogFile sends the last n lines of f, then new lines while following.
func tailLogFile(ctx context.Context, f LogFile, n int, follow bool, out chan<- taggedLine) error {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return err
	}
	all := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	for _, line := range all {
		if line == "" {
			continue
		}
		select {
		case out <- taggedLine{Component: f.Component, Line: line}:
		case <-ctx.Done():
			return nil
		}
	}
	if !follow {
		return nil
	}

	t, err := tail.TailFile(f.Path, tail.Config{
		Follow:   true,
		ReOpen:   true,
		Location: &tail.SeekInfo{Offset: int64(len(data)), Whence: io.SeekStart},
		Logger:   tail.DiscardingLogger,
	})
	if err != nil {
		return err
	}
	defer t.Cleanup()
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil || line.Text == "" {
				continue
			}
			out <- taggedLine{Component: f.Component, Line: line.Text}
		}
	}
}

// printLogJSON prints a JSON line tagged with its component. Text lines are
// wrapped as {"component", "raw_line"}.
func printLogJSON(w io.Writer, l taggedLine) {
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(l.Line), &entry); err != nil {
		entry = map[string]interface{}{"raw_line": l.Line}
	}
	if _, ok := entry["component"]; !ok {
		entry["component"] = l.Component
	}
	data, _ := json.Marshal(entry)
	fmt.Fprintln(w, string(data))
}

// printLogText prints text lines as they are and JSON lines in the text
// layout: time, level, message, fields.
func printLogText(w io.Writer, l taggedLine) {
	t := theme.DefaultTheme
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(l.Line), &entry); err != nil {
		fmt.Fprintf(w, "[%s] %s\n", t.Accent.Render(l.Component), l.Line)
		return
	}

	ts, _ := entry["time"].(string)
	level, _ := entry["level"].(string)
	msg, _ := entry["msg"].(string)
	stamp := ts
	if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		stamp = parsed.Format("15:04:05")
	}

	var levelStyle lipgloss.Style
	switch strings.ToLower(level) {
	case "error", "fatal", "panic":
		levelStyle = t.Error
	case "warning":
		levelStyle = t.Warning
	case "info":
		levelStyle = t.Info
	default:
		levelStyle = t.Muted
	}

	keys := make([]string, 0, len(entry))
	for k := range entry {
		switch k {
		case "time", "level", "msg", "component":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, fmt.Sprintf("%s=%v", t.Muted.Render(k), entry[k]))
	}

	fmt.Fprintf(w, "%s [%s] %s %s %s\n", stamp, t.Accent.Render(l.Component),
		levelStyle.Render(strings.ToUpper(level)), msg, strings.Join(fields, " "))
}
