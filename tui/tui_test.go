package tui

import (
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestColorProfile(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		want   termenv.Profile
		wantOK bool
	}{
		{"unset", nil, termenv.Ascii, false},
		{"forced", map[string]string{"CLICOLOR_FORCE": "1"}, termenv.TrueColor, true},
		{"truecolor", map[string]string{"COLORTERM": "truecolor"}, termenv.TrueColor, true},
		{"no color wins", map[string]string{"NO_COLOR": "1", "CLICOLOR_FORCE": "1"}, termenv.Ascii, true},
		{"other colorterm", map[string]string{"COLORTERM": "24bit"}, termenv.Ascii, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ColorProfile(func(k string) string { return tt.env[k] })
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
