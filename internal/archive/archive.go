// Package archive keeps finished reports in a local SQLite database so they
// can be listed and exported after the session that produced them is gone.
package archive

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/traffisense/core/config"
	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/logging"
	"github.com/traffisense/core/pkg/models"
	"github.com/traffisense/core/pkg/paths"
)

// DefaultPageSize applies when a filter sets no limit.
const DefaultPageSize = 50

// Entry is one archived report.
type Entry struct {
	ID           uint   `gorm:"primaryKey"`
	JobID        string `gorm:"index;not null"`
	InstanceID   string `gorm:"index"`
	Direction    models.Direction
	Total        int
	Violations   int `gorm:"index"`
	AverageSpeed float64
	VideoURL     string
	Report       models.JSONColumn[models.Report] `gorm:"type:text"`
	CreatedAt    time.Time                        `gorm:"index"`
}

// TableName keeps the table name stable across renames of Entry.
func (Entry) TableName() string { return "reports" }

// Store is the archive database.
type Store struct {
	db  *gorm.DB
	log *logrus.Entry
}

// DefaultPath is the archive location when the config names none.
func DefaultPath() string {
	return paths.ArchivePath()
}

// OpenFromConfig opens the archive configured in cfg. It returns nil and no
// error when archiving is disabled.
func OpenFromConfig(cfg *config.Config) (*Store, error) {
	if cfg != nil && cfg.Archive.Disabled {
		return nil, nil
	}
	path := ""
	if cfg != nil {
		path = cfg.Archive.Path
	}
	if path == "" {
		path = DefaultPath()
	}
	return Open(path)
}

// Open opens (and migrates) the database at path. ":memory:" gives a
// private in-memory store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create archive directory").
				WithDetail("path", path)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to open archive").
			WithDetail("path", path)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to migrate archive").
			WithDetail("path", path)
	}

	log := logging.NewLogger("archive")
	log.WithField("path", path).Debug("Archive opened")
	return &Store{db: db, log: log}, nil
}

// Save archives a finished report. Saving the same session instance twice
// replaces the earlier row.
func (s *Store) Save(ctx context.Context, jobID, instanceID string, dir models.Direction, videoURL string, r *models.Report) (*Entry, error) {
	if r == nil {
		return nil, errors.ReportNotFound(jobID)
	}
	if jobID == "" {
		return nil, errors.InvalidInput("job id is required")
	}

	entry := &Entry{
		JobID:        jobID,
		InstanceID:   instanceID,
		Direction:    dir,
		Total:        r.Total,
		Violations:   r.Violations,
		AverageSpeed: r.AverageSpeed,
		VideoURL:     videoURL,
		Report:       models.JSONColumn[models.Report]{Data: *r},
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if instanceID != "" {
			if err := tx.Where("instance_id = ?", instanceID).Delete(&Entry{}).Error; err != nil {
				return err
			}
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to archive report").
			WithDetail("job", jobID)
	}

	s.log.WithFields(logrus.Fields{
		"job":        jobID,
		"violations": r.Violations,
	}).Info("Report archived")
	return entry, nil
}

// Latest returns the most recent report for jobID.
func (s *Store) Latest(ctx context.Context, jobID string) (*Entry, error) {
	var entry Entry
	err := s.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at DESC").Order("id DESC").
		First(&entry).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ReportNotFound(jobID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read archive")
	}
	return &entry, nil
}

// List returns archived reports matching f, newest first.
func (s *Store) List(ctx context.Context, f models.Filter) (*models.Page[Entry], error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	limit := f.PageSize(DefaultPageSize)

	var total int64
	if err := s.db.WithContext(ctx).Model(&Entry{}).Scopes(matching(f)).Count(&total).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to count archive")
	}

	var items []Entry
	err := s.db.WithContext(ctx).Scopes(matching(f)).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(f.Offset).
		Find(&items).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list archive")
	}

	return models.NewPage(items, int(total), f.Offset, limit), nil
}

// matching applies the filter conditions of f.
func matching(f models.Filter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.JobID != "" {
			q = q.Where("job_id = ?", f.JobID)
		}
		if f.Direction != "" {
			q = q.Where("direction = ?", f.Direction)
		}
		if f.OnlyViolating {
			q = q.Where("violations > 0")
		}
		// Timestamps are stored in local time and compared as text.
		if f.StartTime != nil {
			q = q.Where("created_at >= ?", f.StartTime.Local())
		}
		if f.EndTime != nil {
			q = q.Where("created_at <= ?", f.EndTime.Local())
		}
		return q
	}
}

// Close releases the database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
