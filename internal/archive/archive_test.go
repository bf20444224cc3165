package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traffisense/core/config"
	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/pkg/models"
	"github.com/traffisense/core/testutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndLatest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "clip.mp4", "inst-1", models.DirectionAuto, "", &models.Report{Total: 1})
	require.NoError(t, err)
	saved, err := s.Save(ctx, "clip.mp4", "inst-2", models.Direction90, "http://b/processed/full.mp4", testutil.SampleReport())
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	latest, err := s.Latest(ctx, "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "inst-2", latest.InstanceID)
	assert.Equal(t, models.Direction90, latest.Direction)
	assert.Equal(t, 2, latest.Violations)
	assert.Equal(t, "http://b/processed/full.mp4", latest.VideoURL)

	report := latest.Report.Data
	require.Len(t, report.ViolationList, 2)
	assert.Equal(t, 7, report.ViolationList[0].ID)
	require.NotNil(t, report.ViolationList[0].StartTime)
	assert.Equal(t, 5.0, *report.ViolationList[0].StartTime)
	assert.Equal(t, 9, report.ClassBreakdown["car"])
}

func TestSaveSameInstanceReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "clip.mp4", "inst-1", models.DirectionAuto, "", &models.Report{Total: 1})
	require.NoError(t, err)
	_, err = s.Save(ctx, "clip.mp4", "inst-1", models.DirectionAuto, "", &models.Report{Total: 5})
	require.NoError(t, err)

	page, err := s.List(ctx, models.Filter{JobID: "clip.mp4"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, 5, page.Items[0].Total)
}

func TestSaveRejectsBadInput(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Save(context.Background(), "clip.mp4", "x", models.DirectionAuto, "", nil)
	assert.True(t, errors.Is(err, errors.ErrCodeReportNotFound))
	_, err = s.Save(context.Background(), "", "x", models.DirectionAuto, "", &models.Report{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestLatestMissing(t *testing.T) {
	_, err := openTestStore(t).Latest(context.Background(), "nope.mp4")
	assert.True(t, errors.Is(err, errors.ErrCodeReportNotFound))
}

func TestListFiltersAndPages(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, job := range []string{"a.mp4", "b.mp4", "c.mp4", "d.mp4", "e.mp4"} {
		r := &models.Report{Total: i, Violations: i % 2}
		dir := models.DirectionAuto
		if i == 4 {
			dir = models.Direction180
		}
		_, err := s.Save(ctx, job, "", dir, "", r)
		require.NoError(t, err)
	}

	page, err := s.List(ctx, models.Filter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "e.mp4", page.Items[0].JobID)
	assert.True(t, page.HasNext)
	assert.False(t, page.HasPrev)
	assert.Equal(t, 1, page.Page)

	page, err = s.List(ctx, models.Filter{Limit: 2, Offset: 4})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "a.mp4", page.Items[0].JobID)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrev)
	assert.Equal(t, 3, page.Page)

	page, err = s.List(ctx, models.Filter{OnlyViolating: true})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = s.List(ctx, models.Filter{Direction: models.Direction180})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "e.mp4", page.Items[0].JobID)

	future := time.Now().Add(time.Hour)
	page, err = s.List(ctx, models.Filter{StartTime: &future})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	_, err = s.List(ctx, models.Filter{Limit: models.MaxFilterLimit + 1})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestOpenFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Archive.Disabled = true
	s, err := OpenFromConfig(cfg)
	require.NoError(t, err)
	assert.Nil(t, s)

	cfg.Archive.Disabled = false
	cfg.Archive.Path = filepath.Join(t.TempDir(), "nested", "a.db")
	s, err = OpenFromConfig(cfg)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.NoError(t, s.Close())
	assert.FileExists(t, cfg.Archive.Path)
}

func TestOpenInMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Save(context.Background(), "m.mp4", "i", models.DirectionAuto, "", &models.Report{})
	require.NoError(t, err)
	_, err = s.Latest(context.Background(), "m.mp4")
	assert.NoError(t, err)
}
