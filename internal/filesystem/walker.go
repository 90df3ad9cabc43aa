package filesystem

import (
	"context"
	"os"
	"path/filepath"

	"github.com/IvanShishkin/sigscan/pkg/models"
	"go.uber.org/zap"
)

// WalkOptions controls enumeration
type WalkOptions struct {
	Exclude        []string // directory names, or absolute paths
	FollowSymlinks bool
}

// Walker walks the filesystem and finds files to scan
type Walker struct {
	logger       *zap.Logger
	exclude      map[string]bool
	excludePaths map[string]bool
	follow       bool
}

// NewWalker creates a new filesystem walker
func NewWalker(opts WalkOptions, logger *zap.Logger) *Walker {
	// Build exclude maps for fast lookup
	exclude := make(map[string]bool)
	excludePaths := make(map[string]bool)
	for _, entry := range opts.Exclude {
		if entry == "" {
			continue
		}
		if filepath.IsAbs(entry) {
			excludePaths[filepath.Clean(entry)] = true
			continue
		}
		exclude[entry] = true
	}

	return &Walker{
		logger:       logger,
		exclude:      exclude,
		excludePaths: excludePaths,
		follow:       opts.FollowSymlinks,
	}
}

// Collect returns every regular file under root in discovery order together
// with the directories that could not be enumerated. The returned error is
// non-nil only when ctx is done.
func (w *Walker) Collect(ctx context.Context, root string) ([]string, []models.EnumerationError, error) {
	var files []string
	var errs []models.EnumerationError

	visited := make(map[string]bool)
	if w.follow {
		if real, err := filepath.EvalSymlinks(root); err == nil {
			visited[real] = true
		}
	}

	err := w.walkDir(ctx, root, visited, &files, &errs)
	return files, errs, err
}

func (w *Walker) walkDir(ctx context.Context, dir string, visited map[string]bool, files *[]string, errs *[]models.EnumerationError) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.logger.Warn("Error reading directory", zap.String("path", dir), zap.Error(err))
		*errs = append(*errs, models.EnumerationError{Path: dir, Error: err.Error()})
		return nil
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		mode := entry.Type()

		if mode&os.ModeSymlink != 0 {
			if !w.follow {
				w.logger.Debug("Skipping symlink", zap.String("path", path))
				continue
			}
			info, err := os.Stat(path)
			if err != nil {
				*errs = append(*errs, models.EnumerationError{Path: path, Error: err.Error()})
				continue
			}
			if info.Mode().IsRegular() {
				*files = append(*files, path)
				continue
			}
			if !info.IsDir() {
				continue
			}
			mode = os.ModeDir
		}

		if mode.IsDir() {
			if w.shouldExclude(entry.Name(), path) {
				w.logger.Debug("Skipping excluded directory", zap.String("path", path))
				continue
			}
			if w.follow {
				real, err := filepath.EvalSymlinks(path)
				if err != nil {
					*errs = append(*errs, models.EnumerationError{Path: path, Error: err.Error()})
					continue
				}
				if visited[real] {
					w.logger.Warn("Directory already visited, not descending", zap.String("path", path), zap.String("target", real))
					*errs = append(*errs, models.EnumerationError{Path: path, Error: "symlink loop: " + real + " already visited"})
					continue
				}
				if w.excludePaths[real] {
					continue
				}
				visited[real] = true
			}
			if err := w.walkDir(ctx, path, visited, files, errs); err != nil {
				return err
			}
			continue
		}

		// Devices, FIFOs and sockets are never hashed
		if !mode.IsRegular() {
			w.logger.Debug("Skipping non-regular file", zap.String("path", path), zap.Stringer("mode", mode))
			continue
		}

		*files = append(*files, path)
	}

	return nil
}

// shouldExclude checks if a directory should be excluded
func (w *Walker) shouldExclude(name, path string) bool {
	return w.exclude[name] || w.excludePaths[path]
}
