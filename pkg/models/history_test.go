package models

import (
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traffisense/core/errors"
)

var (
	_ driver.Valuer = JSONColumn[Report]{}
	_ sql.Scanner   = (*JSONColumn[Report])(nil)
)

func TestJSONColumnValue(t *testing.T) {
	v, err := JSONColumn[Report]{Data: Report{Total: 3, Violations: 1}}.Value()
	require.NoError(t, err)
	s, ok := v.(string)
	require.True(t, ok)
	assert.Contains(t, s, `"total":3`)

	_, err = JSONColumn[func()]{Data: func() {}}.Value()
	assert.Error(t, err)
}

func TestJSONColumnScan(t *testing.T) {
	tests := []struct {
		name    string
		src     interface{}
		total   int
		wantErr bool
	}{
		{name: "bytes", src: []byte(`{"total":7}`), total: 7},
		{name: "text", src: `{"total":2}`, total: 2},
		{name: "null", src: nil},
		{name: "integer", src: 42, wantErr: true},
		{name: "truncated", src: []byte(`{`), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c JSONColumn[Report]
			err := c.Scan(tt.src)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.total, c.Data.Total)
		})
	}
}

func TestNewPage(t *testing.T) {
	p := NewPage([]int{1, 2}, 5, 2, 2)
	assert.Equal(t, 2, p.Page)
	assert.True(t, p.HasPrev)
	assert.True(t, p.HasNext)

	p = NewPage([]int{5}, 5, 4, 2)
	assert.Equal(t, 3, p.Page)
	assert.False(t, p.HasNext)

	p = NewPage[int](nil, 0, 0, 50)
	assert.NotNil(t, p.Items)
	assert.Equal(t, 1, p.Page)
	assert.False(t, p.HasPrev)
}

func TestFilterPageSize(t *testing.T) {
	assert.Equal(t, 50, Filter{}.PageSize(50))
	assert.Equal(t, 7, Filter{Limit: 7}.PageSize(50))
}

func TestFilterValidate(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name   string
		filter Filter
		errMsg []string
	}{
		{name: "empty", filter: Filter{}},
		{name: "full", filter: Filter{StartTime: &earlier, EndTime: &now, Direction: Direction90, Limit: 10}},
		{name: "limit too large", filter: Filter{Limit: MaxFilterLimit + 1}, errMsg: []string{"limit too large"}},
		{name: "negative limit", filter: Filter{Limit: -1}, errMsg: []string{"limit cannot be negative"}},
		{name: "inverted range", filter: Filter{StartTime: &now, EndTime: &earlier}, errMsg: []string{"start time cannot be after end time"}},
		{name: "bad direction", filter: Filter{Direction: "45"}, errMsg: []string{"invalid direction"}},
		{
			name:   "several problems",
			filter: Filter{Offset: -5, Direction: "diagonal"},
			errMsg: []string{"offset cannot be negative", "invalid direction"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if len(tt.errMsg) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
			for _, m := range tt.errMsg {
				assert.Contains(t, err.Error(), m)
			}
		})
	}
}
