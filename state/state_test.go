package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traffisense/core/pkg/models"
)

func TestLoadWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	f, err := Load()
	require.NoError(t, err)
	assert.Equal(t, &File{}, f)

	job, dir, err := LastJob()
	require.NoError(t, err)
	assert.Empty(t, job)
	assert.Equal(t, models.DirectionAuto, dir)
	assert.Empty(t, ExportDir())
}

func TestRememberJob(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, RememberJob("road.mp4", models.Direction270))
	require.NoError(t, RememberExportDir("/tmp/exports"))

	job, d, err := LastJob()
	require.NoError(t, err)
	assert.Equal(t, "road.mp4", job)
	assert.Equal(t, models.Direction270, d)
	assert.Equal(t, "/tmp/exports", ExportDir())

	f, err := Load()
	require.NoError(t, err)
	assert.False(t, f.UpdatedAt.IsZero())

	_, err = os.Stat(filepath.Join(dir, ".traffisense", "state.yml"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, ".traffisense", "state.yml.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestUnreadableDirectionFallsBackToAuto(t *testing.T) {
	t.Chdir(t.TempDir())

	require.NoError(t, Update(func(f *File) {
		f.LastJob = "clip.mp4"
		f.LastDirection = "sideways"
	}))
	job, dir, err := LastJob()
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", job)
	assert.Equal(t, models.DirectionAuto, dir)
}

func TestCorruptStateFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".traffisense"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".traffisense", "state.yml"), []byte("last_job: [\n"), 0o644))

	_, err := Load()
	assert.Error(t, err)
	assert.Error(t, RememberJob("clip.mp4", models.DirectionAuto))
}
