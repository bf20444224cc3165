package version

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	info := GetInfo()
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
	assert.True(t, info.Dev())
	assert.False(t, Info{Version: "v1.0.0"}.Dev())

	out := Info{Version: "v1.0.0", Commit: "abc123"}.String()
	assert.Contains(t, out, "Version:  v1.0.0")
	assert.Contains(t, out, "Commit:   abc123")
	assert.Len(t, strings.Split(out, "\n"), 5)
}

func TestUserAgent(t *testing.T) {
	assert.True(t, strings.HasPrefix(UserAgent(), "traffisense/dev ("))
}

func TestShortRevision(t *testing.T) {
	assert.Equal(t, "0123456789ab", shortRevision("0123456789abcdef0123"))
	assert.Equal(t, "abc", shortRevision("abc"))
}
