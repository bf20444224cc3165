package logging

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/traffisense/core/tui/theme"
)

// sessionKeys are rendered as a "job@generation" tag instead of as fields.
var sessionKeys = map[string]bool{"component": true, "job": true, "generation": true}

// TextFormatter renders entries as
//
//	2026-10-19 10:30:00 [INFO] [session] clip.mp4@2 message key=value error=...
//
// The job tag follows the component when the entry carries one; "error"
// always comes last.
type TextFormatter struct {
	Config FormatConfig
}

// Format renders a single log entry.
func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder

	if !f.Config.DisableTimestamp {
		b.WriteString(entry.Time.Format("2006-01-02 15:04:05 "))
	}
	fmt.Fprintf(&b, "[%s]", levelName(entry.Level))

	if c, ok := entry.Data["component"]; ok && !f.Config.DisableComponent {
		fmt.Fprintf(&b, " [%s]", theme.DefaultTheme.Accent.Render(fmt.Sprint(c)))
	}
	if tag := jobTag(entry.Data); tag != "" {
		b.WriteString(" ")
		b.WriteString(tag)
	}
	if entry.HasCaller() {
		fmt.Fprintf(&b, " [%s:%d %s]", filepath.Base(entry.Caller.File), entry.Caller.Line,
			filepath.Base(entry.Caller.Function))
	}

	b.WriteString(" ")
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if !sessionKeys[k] && k != logrus.ErrorKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	if err, ok := entry.Data[logrus.ErrorKey]; ok {
		fmt.Fprintf(&b, " %s=%v", logrus.ErrorKey, err)
	}

	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func levelName(l logrus.Level) string {
	if l == logrus.WarnLevel {
		return "WARN"
	}
	return strings.ToUpper(l.String())
}

// jobTag returns "job@generation", "job" or "".
func jobTag(data logrus.Fields) string {
	job, ok := data["job"]
	if !ok || fmt.Sprint(job) == "" {
		return ""
	}
	if gen, ok := data["generation"]; ok {
		return fmt.Sprintf("%v@%v", job, gen)
	}
	return fmt.Sprint(job)
}
