package securefs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xailab/xai-review/internal/errors"
	"github.com/xailab/xai-review/internal/logger"
)

// GetLogger returns the securefs package logger scoped to the securefs module.
// The logger is fetched from the global logger each time so it follows
// whatever central logger is installed after package init.
func GetLogger() logger.Logger {
	return logger.Global().Module("securefs")
}

// SecureFS provides read access to files under a data root.
//
// Resolve is the single containment check. Reads additionally go through an
// os.Root opened on the canonical root, so a symlink swapped in between
// Resolve and open still cannot leave the sandbox.
type SecureFS struct {
	baseDir         string   // canonical (absolute, symlink-free) root
	root            *os.Root // sandboxed filesystem root
	maxReadFileSize int64    // 0 = unlimited
}

// New opens baseDir as a data root. The directory must already exist.
func New(baseDir string) (*SecureFS, error) {
	canonical, err := canonicalize(baseDir)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return nil, classifyPathError(err, baseDir)
	}
	if !info.IsDir() {
		return nil, errors.New(fmt.Errorf("%w: data root %s is not a directory", ErrInvalidPath, baseDir)).
			Category(errors.CategoryValidation).
			Context("operation", "open-root").
			Build()
	}

	root, err := os.OpenRoot(canonical)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to create filesystem sandbox: %w", err)).
			Category(errors.CategoryFileIO).
			Context("operation", "open-root").
			Build()
	}

	return &SecureFS{
		baseDir: canonical,
		root:    root,
	}, nil
}

// canonicalize returns the absolute, symlink-free form of path.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.New(fmt.Errorf("%w: %w", ErrInvalidPath, err)).
			Category(errors.CategoryValidation).
			Build()
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", classifyPathError(err, path)
	}
	return filepath.Clean(resolved), nil
}

// classifyPathError maps filesystem errors to ErrNotFound for missing paths
// and ErrInvalidPath for everything else canonicalization can hit.
func classifyPathError(err error, path string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return errors.New(fmt.Errorf("%w: %s", ErrNotFound, path)).
			Category(errors.CategoryNotFound).
			FileContext(path).
			Build()
	}
	return errors.New(fmt.Errorf("%w: %w", ErrInvalidPath, err)).
		Category(errors.CategoryValidation).
		FileContext(path).
		Build()
}

// isPathPrefix checks if target is within or equal to base
func isPathPrefix(base, target string) bool {
	return target == base || strings.HasPrefix(target, base+string(filepath.Separator))
}

// Resolve joins segments onto the root and returns the canonical path of the
// result. It fails with ErrNotFound when the target does not exist and with
// ErrInvalidPath when the canonical target is not underneath the root.
func (sfs *SecureFS) Resolve(segments ...string) (string, error) {
	candidate := filepath.Join(append([]string{sfs.baseDir}, segments...)...)

	resolved, err := canonicalize(candidate)
	if err != nil {
		return "", err
	}

	if !isPathPrefix(sfs.baseDir, resolved) {
		GetLogger().Warn("Rejected path outside data root",
			logger.String("root", sfs.baseDir),
			logger.String("resolved", resolved))
		return "", errors.New(fmt.Errorf("%w: %s", ErrPathTraversal, filepath.Join(segments...))).
			Category(errors.CategoryValidation).
			Context("operation", "resolve").
			Build()
	}

	return resolved, nil
}

// relative converts a resolved path to one relative to the root for os.Root calls.
func (sfs *SecureFS) relative(resolved string) (string, error) {
	rel, err := filepath.Rel(sfs.baseDir, resolved)
	if err != nil || !filepath.IsLocal(rel) {
		return "", errors.New(fmt.Errorf("%w: %s", ErrPathTraversal, resolved)).
			Category(errors.CategoryValidation).
			Build()
	}
	return rel, nil
}

// ReadDir resolves segments and lists the directory's immediate entries in
// the order the filesystem returns them.
func (sfs *SecureFS) ReadDir(segments ...string) ([]os.DirEntry, error) {
	resolved, err := sfs.Resolve(segments...)
	if err != nil {
		return nil, err
	}
	rel, err := sfs.relative(resolved)
	if err != nil {
		return nil, err
	}

	dirFile, err := sfs.root.Open(rel)
	if err != nil {
		return nil, classifyPathError(err, resolved)
	}
	defer func() {
		if err := dirFile.Close(); err != nil {
			GetLogger().Warn("Failed to close directory", logger.Error(err))
		}
	}()

	entries, err := dirFile.ReadDir(0) // 0 means read all entries
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to read directory entries: %w", err)).
			Category(errors.CategoryFileIO).
			FileContext(resolved).
			Build()
	}
	return entries, nil
}

// SetMaxReadFileSize sets the maximum file size that ReadFile will read.
// A value of 0 means unlimited.
func (sfs *SecureFS) SetMaxReadFileSize(maxSize int64) {
	sfs.maxReadFileSize = maxSize
}

// GetMaxReadFileSize returns the current maximum file size for ReadFile.
func (sfs *SecureFS) GetMaxReadFileSize() int64 {
	return sfs.maxReadFileSize
}

// ReadFile reads a file that Resolve has already returned. The whole file is
// buffered in memory.
func (sfs *SecureFS) ReadFile(resolved string) ([]byte, error) {
	rel, err := sfs.relative(resolved)
	if err != nil {
		return nil, err
	}

	file, err := sfs.root.Open(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, errors.New(fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(resolved))).
				Category(errors.CategoryNotFound).
				FileContext(resolved).
				Build()
		}
		return nil, classifyPathError(err, resolved)
	}
	defer func() {
		if err := file.Close(); err != nil {
			GetLogger().Warn("Failed to close file", logger.Error(err))
		}
	}()

	stat, err := file.Stat()
	if err != nil {
		return nil, errors.New(fmt.Errorf("%w: failed to stat file: %w", ErrNotFound, err)).
			Category(errors.CategoryFileIO).
			FileContext(resolved).
			Build()
	}
	if !stat.Mode().IsRegular() {
		return nil, errors.New(fmt.Errorf("%w: %w: %s", ErrNotFound, ErrNotRegularFile, filepath.Base(resolved))).
			Category(errors.CategoryNotFound).
			FileContext(resolved).
			Build()
	}
	if sfs.maxReadFileSize > 0 && stat.Size() > sfs.maxReadFileSize {
		return nil, errors.New(fmt.Errorf("%w: file is %d bytes, limit is %d bytes",
			ErrFileTooLarge, stat.Size(), sfs.maxReadFileSize)).
			Category(errors.CategoryValidation).
			FileContext(resolved).
			Build()
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New(fmt.Errorf("%w: read failed: %w", ErrNotFound, err)).
			Category(errors.CategoryFileIO).
			FileContext(resolved).
			Build()
	}
	return data, nil
}

// BaseDir returns the canonical root directory.
func (sfs *SecureFS) BaseDir() string {
	return sfs.baseDir
}

// Close closes the underlying Root
func (sfs *SecureFS) Close() error {
	if sfs.root != nil {
		return sfs.root.Close()
	}
	return nil
}
