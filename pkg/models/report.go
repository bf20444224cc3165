package models

import (
	"net/url"
	"sort"
	"strings"
)

// Report is the summary the backend sends once a job is fully processed.
type Report struct {
	Total          int            `json:"total"`
	Forward        int            `json:"forward"`
	Backward       int            `json:"backward"`
	Stationary     int            `json:"stationary"`
	Violations     int            `json:"violations"`
	ViolationList  []Violation    `json:"violation_list"`
	AverageSpeed   float64        `json:"average_speed"`
	ClassBreakdown map[string]int `json:"class_breakdown"`
	FullVideo      string         `json:"full_video,omitempty"`
	CloudVideoURL  string         `json:"cloud_video_url,omitempty"`
}

// Violation is one wrong-way event in the report. Times are seconds into the
// processed video.
type Violation struct {
	ID         int      `json:"id"`
	Type       string   `json:"type,omitempty"`
	StartTime  *float64 `json:"start_time,omitempty"`
	EndTime    *float64 `json:"end_time,omitempty"`
	StartFrame *int     `json:"start_frame,omitempty"`
	EndFrame   *int     `json:"end_frame,omitempty"`
	Timestamp  *float64 `json:"timestamp,omitempty"`
}

// Start returns start_time, falling back to timestamp.
func (v Violation) Start() (float64, bool) {
	if v.StartTime != nil {
		return *v.StartTime, true
	}
	if v.Timestamp != nil {
		return *v.Timestamp, true
	}
	return 0, false
}

// VideoURL resolves where the full processed recording can be played from.
// The cloud copy wins; otherwise the file is served by the backend. Returns
// "" when the report names no recording.
func (r *Report) VideoURL(base string) string {
	if r == nil {
		return ""
	}
	if r.CloudVideoURL != "" {
		return r.CloudVideoURL
	}
	if r.FullVideo == "" {
		return ""
	}
	return ProcessedVideoURL(base, r.FullVideo)
}

// FindViolation looks a violation up by vehicle id.
func (r *Report) FindViolation(id int) (Violation, bool) {
	if r == nil {
		return Violation{}, false
	}
	for _, v := range r.ViolationList {
		if v.ID == id {
			return v, true
		}
	}
	return Violation{}, false
}

// Categories returns the class breakdown keys in sorted order.
func (r *Report) Categories() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, len(r.ClassBreakdown))
	for k := range r.ClassBreakdown {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ProcessedVideoURL is the backend location of a processed video.
func ProcessedVideoURL(base, file string) string {
	return joinURL(base, "processed", file)
}

func joinURL(base, dir, file string) string {
	return strings.TrimRight(base, "/") + "/" + dir + "/" + url.PathEscape(file)
}
