package ingest

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xailab/xai-review/internal/logger"
	"github.com/xailab/xai-review/internal/securefs"
)

// DirectoryCandidate is one patient directory selected for processing.
type DirectoryCandidate struct {
	Name string
	Path string
}

// DirectorySource decides which patient directories a run processes.
type DirectorySource interface {
	DirsToProcess(ctx context.Context) ([]DirectoryCandidate, error)
}

// HighWaterMarker reports the largest patient number already stored.
type HighWaterMarker interface {
	HighWaterMark(ctx context.Context, width int) (mark string, ok bool, err error)
}

// Scanner selects directories whose name sorts after the stored high-water
// mark. Names are compared as strings, which matches numeric order only
// while every patient folder uses the same zero-padded width.
type Scanner struct {
	fs     *securefs.SecureFS
	frames HighWaterMarker
	width  int
}

// NewScanner creates a Scanner over the root of sfs.
func NewScanner(sfs *securefs.SecureFS, frames HighWaterMarker, width int) *Scanner {
	return &Scanner{fs: sfs, frames: frames, width: width}
}

// DirsToProcess lists the immediate subdirectories of the root that are new.
// Results keep filesystem enumeration order.
func (s *Scanner) DirsToProcess(ctx context.Context) ([]DirectoryCandidate, error) {
	mark, hasMark, err := s.frames.HighWaterMark(ctx, s.width)
	if err != nil {
		return nil, storageError(err, "high-water-mark")
	}

	dirs, err := s.listDirectories()
	if err != nil {
		return nil, err
	}

	if !hasMark {
		GetLogger().Info("No frames stored, processing every directory",
			logger.Int("directories", len(dirs)))
		return dirs, nil
	}

	selected := dirs[:0]
	for _, d := range dirs {
		if d.Name > mark {
			selected = append(selected, d)
		}
	}

	GetLogger().Info("Selected directories after high-water mark",
		logger.String("mark", mark),
		logger.Int("found", len(dirs)),
		logger.Int("selected", len(selected)))
	return selected, nil
}

// listDirectories returns the root's subdirectories, following symlinks
// that stay inside the root.
func (s *Scanner) listDirectories() ([]DirectoryCandidate, error) {
	entries, err := s.fs.ReadDir()
	if err != nil {
		return nil, filesystemError(err, s.fs.BaseDir())
	}

	dirs := make([]DirectoryCandidate, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case entry.IsDir():
			dirs = append(dirs, DirectoryCandidate{Name: name, Path: filepath.Join(s.fs.BaseDir(), name)})
		case entry.Type()&fs.ModeSymlink != 0:
			resolved, err := s.fs.Resolve(name)
			if err != nil {
				GetLogger().Debug("Skipping unresolvable symlink",
					logger.String("name", name),
					logger.Error(err))
				continue
			}
			if info, err := os.Stat(resolved); err == nil && info.IsDir() {
				dirs = append(dirs, DirectoryCandidate{Name: name, Path: resolved})
			}
		}
	}
	return dirs, nil
}

// ValidPatientName reports whether name is a single plain path element, the
// form a patient directory has when listed from the data root. Names such as
// "./004" or "004/" open the same folder as "004" but would be stored as
// different patients.
func ValidPatientName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return filepath.Base(name) == name && filepath.IsLocal(name)
}

// FixedDirectories re-processes named patient directories regardless of the
// high-water mark. Missing or unsafe names surface as directory errors when
// the pipeline lists them.
type FixedDirectories struct {
	root  string
	names []string
}

// NewFixedDirectories returns a source for the given patient names.
// Blank and repeated names are dropped.
func NewFixedDirectories(sfs *securefs.SecureFS, names []string) *FixedDirectories {
	seen := make(map[string]struct{}, len(names))
	unique := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		unique = append(unique, n)
	}
	return &FixedDirectories{root: sfs.BaseDir(), names: unique}
}

// DirsToProcess returns the configured names in the order given.
func (f *FixedDirectories) DirsToProcess(_ context.Context) ([]DirectoryCandidate, error) {
	dirs := make([]DirectoryCandidate, len(f.names))
	for i, n := range f.names {
		dirs[i] = DirectoryCandidate{Name: n, Path: filepath.Join(f.root, n)}
	}
	return dirs, nil
}
