package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/traffisense/core/errors"
)

// MaxFilterLimit caps the page size of a history query.
const MaxFilterLimit = 1000

// JSONColumn stores a value as JSON text in a single database column.
type JSONColumn[T any] struct {
	Data T
}

// Value implements driver.Valuer.
func (c JSONColumn[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(c.Data)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner. NULL leaves the zero value.
func (c *JSONColumn[T]) Scan(src interface{}) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("json column: unsupported source %T", src)
	}
	if err := json.Unmarshal(b, &c.Data); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}

// Page is one window of a history listing.
type Page[T any] struct {
	Items    []T  `json:"items"`
	Total    int  `json:"total"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	HasPrev  bool `json:"has_prev"`
}

// NewPage describes items found at offset within total matches.
func NewPage[T any](items []T, total, offset, size int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	p := &Page[T]{Items: items, Total: total, PageSize: size, HasPrev: offset > 0}
	if size > 0 {
		p.Page = offset/size + 1
	}
	p.HasNext = offset+len(items) < total
	return p
}

// Filter narrows report history queries. Zero fields match everything.
type Filter struct {
	StartTime     *time.Time `json:"start_time,omitempty"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	JobID         string     `json:"job_id,omitempty"`
	Direction     Direction  `json:"direction,omitempty"`
	OnlyViolating bool       `json:"only_violating,omitempty"`
	Limit         int        `json:"limit,omitempty"`
	Offset        int        `json:"offset,omitempty"`
}

// PageSize returns Limit, or def when no limit is set.
func (f Filter) PageSize(def int) int {
	if f.Limit == 0 {
		return def
	}
	return f.Limit
}

// Validate reports every inconsistent field at once as an INVALID_INPUT error.
func (f Filter) Validate() error {
	var problems []string
	switch {
	case f.Limit < 0:
		problems = append(problems, "limit cannot be negative")
	case f.Limit > MaxFilterLimit:
		problems = append(problems, fmt.Sprintf("limit too large: %d, maximum allowed: %d", f.Limit, MaxFilterLimit))
	}
	if f.Offset < 0 {
		problems = append(problems, "offset cannot be negative")
	}
	if f.StartTime != nil && f.EndTime != nil && f.StartTime.After(*f.EndTime) {
		problems = append(problems, "start time cannot be after end time")
	}
	if f.Direction != "" {
		if _, err := ParseDirection(string(f.Direction)); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.InvalidInput(strings.Join(problems, "; ")).WithDetail("filter", f)
}
