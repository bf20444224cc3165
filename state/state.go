// Package state remembers what the client last did in a directory, such as
// the job it watched, in .traffisense/state.yml.
package state

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/pkg/models"
)

// File is the content of the state file.
type File struct {
	LastJob       string    `yaml:"last_job,omitempty"`
	LastDirection string    `yaml:"last_direction,omitempty"`
	ExportDir     string    `yaml:"export_dir,omitempty"`
	UpdatedAt     time.Time `yaml:"updated_at,omitempty"`
}

// Path returns the state file of the working directory.
func Path() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "cannot resolve working directory")
	}
	return filepath.Join(cwd, ".traffisense", "state.yml"), nil
}

// Load reads the state file. A missing file is an empty state.
func Load() (*File, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &File{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "cannot read state").WithDetail("path", path)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "corrupt state file").WithDetail("path", path)
	}
	return &f, nil
}

// Update loads the state, applies fn and writes the result back through a
// temporary file, so readers never see a partial file.
func Update(fn func(*File)) error {
	f, err := Load()
	if err != nil {
		return err
	}
	fn(f)
	f.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "cannot create state directory").WithDetail("path", path)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "cannot encode state")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "cannot write state").WithDetail("path", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, errors.ErrCodeInternal, "cannot write state").WithDetail("path", path)
	}
	return nil
}

// RememberJob records the job and direction of the latest session.
func RememberJob(jobID string, dir models.Direction) error {
	return Update(func(f *File) {
		f.LastJob = jobID
		f.LastDirection = dir.String()
	})
}

// LastJob returns what RememberJob recorded. The job is empty when nothing
// was recorded; an unreadable direction falls back to auto.
func LastJob() (string, models.Direction, error) {
	f, err := Load()
	if err != nil {
		return "", models.DirectionAuto, err
	}
	dir, err := models.ParseDirection(f.LastDirection)
	if err != nil {
		dir = models.DirectionAuto
	}
	return f.LastJob, dir, nil
}

// RememberExportDir records where the last report was exported.
func RememberExportDir(dir string) error {
	return Update(func(f *File) { f.ExportDir = dir })
}

// ExportDir returns the remembered export directory, or "".
func ExportDir() string {
	f, err := Load()
	if err != nil {
		return ""
	}
	return f.ExportDir
}
