// Package report renders a finished analysis as a CSV document.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/pkg/models"
)

// DateLayout is how Meta.Date is printed.
const DateLayout = "2006-01-02 15:04:05"

// Meta describes where a report came from.
type Meta struct {
	// Filename is the job id, i.e. the uploaded file name.
	Filename string
	Date     time.Time
	// VideoURL is the playable recording; empty means the video only
	// exists on the backend's disk.
	VideoURL string
}

// Filename is the default export file name for a job.
func Filename(jobID string, t time.Time) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, jobID)
	return fmt.Sprintf("traffic_report_%s_%d.csv", safe, t.UnixMilli())
}

// WriteCSV writes r in four sections separated by blank rows: header,
// summary statistics, traffic composition and violation details.
func WriteCSV(w io.Writer, meta Meta, r *models.Report) error {
	if r == nil {
		return errors.ReportNotFound(meta.Filename)
	}

	video := meta.VideoURL
	if video == "" {
		video = "Local File Only"
	}

	rows := [][]string{
		{"Traffic Analysis Report"},
		{"Filename: " + meta.Filename},
		{"Date: " + meta.Date.Format(DateLayout)},
		{"Video URL: " + video},
		{},
		{"Summary Statistics"},
		{"Total Vehicles", strconv.Itoa(r.Total)},
		{"Average Speed (km/h)", decimal(r.AverageSpeed)},
		{"Violations", strconv.Itoa(r.Violations)},
		{},
		{"Traffic Composition"},
	}
	for _, class := range r.Categories() {
		rows = append(rows, []string{class, strconv.Itoa(r.ClassBreakdown[class])})
	}
	rows = append(rows,
		[]string{},
		[]string{"Violation Details"},
		[]string{"Vehicle ID", "Start Time (s)", "End Time (s)", "Start Frame", "End Frame"},
	)
	for _, v := range r.ViolationList {
		start := ""
		if s, ok := v.Start(); ok {
			start = decimal(s)
		}
		rows = append(rows, []string{
			strconv.Itoa(v.ID),
			start,
			optionalDecimal(v.EndTime),
			optionalInt(v.StartFrame),
			optionalInt(v.EndFrame),
		})
	}

	cw := csv.NewWriter(w)
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to write report")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to write report")
	}
	return nil
}

// WriteFile exports r into dir under Filename and returns the path.
func WriteFile(dir string, meta Meta, r *models.Report) (string, error) {
	if meta.Date.IsZero() {
		meta.Date = time.Now()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to create export directory")
	}
	path := filepath.Join(dir, Filename(meta.Filename, meta.Date))
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to create report file").
			WithDetail("path", path)
	}
	if err := WriteCSV(f, meta, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to close report file")
	}
	return path, nil
}

func decimal(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func optionalDecimal(f *float64) string {
	if f == nil {
		return ""
	}
	return decimal(*f)
}

func optionalInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}
