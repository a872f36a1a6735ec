// Package local writes downloaded media into the run's output directory.
package local

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config captures the output directory for one run.
type Config struct {
	// BaseDir is where files land. It is created when missing.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// FileStore writes whole files atomically beneath BaseDir.
type FileStore struct {
	baseDir string
}

// New prepares BaseDir and checks that it is writable.
func New(cfg Config) (*FileStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	probe, err := os.CreateTemp(cfg.BaseDir, ".writable-*")
	if err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	_ = probe.Close()
	if err := os.Remove(probe.Name()); err != nil {
		return nil, fmt.Errorf("failed to clean up probe file: %w", err)
	}

	return &FileStore{baseDir: cfg.BaseDir}, nil
}

// Dir returns the base directory.
func (s *FileStore) Dir() string {
	return s.baseDir
}

// Path returns the absolute location name would be written to.
func (s *FileStore) Path(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("file name is required")
	}
	full := filepath.Clean(filepath.Join(s.baseDir, name))
	if !strings.HasPrefix(full, filepath.Clean(s.baseDir)+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %s", name)
	}
	return full, nil
}

// Exists reports whether name is already present. Stat errors other than
// not-exist count as present so the file is never clobbered.
func (s *FileStore) Exists(name string) bool {
	full, err := s.Path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return !errors.Is(err, os.ErrNotExist)
}

// Write stores data under name via a temp file and rename, so readers never
// observe a partial file. It returns the final path and the size on disk.
func (s *FileStore) Write(name string, data []byte) (string, int64, error) {
	full, err := s.Path(name)
	if err != nil {
		return "", 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), "."+filepath.Base(full)+".*.part")
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", 0, fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", 0, fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", 0, fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		cleanup()
		return "", 0, fmt.Errorf("rename %s: %w", name, err)
	}
	info, err := os.Stat(full)
	if err != nil {
		return "", 0, fmt.Errorf("stat %s: %w", name, err)
	}
	return full, info.Size(), nil
}
