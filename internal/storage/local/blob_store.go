// Package local implements a filesystem blob store and the output directory
// preparation used before a crawl.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrBaseDirRequired = errors.New("base directory is required")
	ErrPathRequired    = errors.New("object path is required")
	ErrPathTraversal   = errors.New("object path escapes the base directory")
	ErrUnsafeClean     = errors.New("refusing to clean directory")
)

// Config captures the parameters for the local filesystem blob store.
type Config struct {
	// BaseDir is the root directory objects are written under.
	BaseDir string `mapstructure:"dir"`
}

// BlobStore writes artifacts to the local filesystem.
type BlobStore struct {
	baseDir string
}

// New creates the base directory if needed and checks that it is writable.
func New(cfg Config) (*BlobStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, ErrBaseDirRequired
	}
	if err := ensureDir(cfg.BaseDir); err != nil {
		return nil, err
	}

	probe := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return nil, fmt.Errorf("remove write probe: %w", err)
	}
	return &BlobStore{baseDir: cfg.BaseDir}, nil
}

// PrepareDir makes dir exist. With clean set, any previous content is removed
// first, so every run starts from an empty output directory. Cleaning the
// filesystem root, the home directory, the working directory or any of their
// ancestors fails with ErrUnsafeClean.
func PrepareDir(dir string, clean bool) error {
	if strings.TrimSpace(dir) == "" {
		return ErrBaseDirRequired
	}
	if clean {
		if err := checkCleanable(dir); err != nil {
			return err
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("clean output directory %s: %w", dir, err)
		}
	}
	return ensureDir(dir)
}

func checkCleanable(dir string) error {
	target, err := resolve(dir)
	if err != nil {
		return fmt.Errorf("resolve output directory %s: %w", dir, err)
	}
	if target == filepath.Dir(target) {
		return fmt.Errorf("%w %s: filesystem root", ErrUnsafeClean, dir)
	}
	var protected []string
	if wd, err := os.Getwd(); err == nil {
		protected = append(protected, wd)
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		protected = append(protected, home)
	}
	for _, p := range protected {
		p, err := resolve(p)
		if err != nil {
			continue
		}
		if within(target, p) {
			return fmt.Errorf("%w %s: contains %s", ErrUnsafeClean, dir, p)
		}
	}
	return nil
}

// resolve returns the absolute path with symlinks evaluated when it exists.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// within reports whether path equals parent or lies below it.
func within(parent, path string) bool {
	rel, err := filepath.Rel(parent, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// PutObject streams r into baseDir/path and returns a file:// URI.
func (s *BlobStore) PutObject(_ context.Context, path string, _ string, r io.Reader) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrPathRequired
	}
	fullPath := filepath.Clean(filepath.Join(s.baseDir, path))
	if !strings.HasPrefix(fullPath, filepath.Clean(s.baseDir)+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, path)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("create parent directories: %w", err)
	}

	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) // #nosec G304 -- path checked against baseDir above
	if err != nil {
		return "", fmt.Errorf("open %s: %w", fullPath, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", fullPath, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", fullPath, err)
	}
	return "file://" + fullPath, nil
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if mkErr := os.MkdirAll(dir, 0o750); mkErr != nil {
			return fmt.Errorf("create directory %s: %w", dir, mkErr)
		}
		return nil
	case err != nil:
		return fmt.Errorf("stat directory %s: %w", dir, err)
	case !info.IsDir():
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
