package quarantine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/IvanShishkin/sigscan/internal/filesystem"
	"github.com/IvanShishkin/sigscan/pkg/models"
	"go.uber.org/zap"
)

// maxCandidates bounds the name_N search
const maxCandidates = 10000

// dirLocks holds one mutex per destination directory, shared by all
// managers in the process
var dirLocks sync.Map

func lockFor(dir string) *sync.Mutex {
	mu, _ := dirLocks.LoadOrStore(dir, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Entry is a file held in quarantine
type Entry struct {
	Name    string    `json:"name" yaml:"name"`
	Path    string    `json:"path" yaml:"path"`
	Size    int64     `json:"size" yaml:"size"`
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
}

// Manager moves files into and out of the quarantine directory
type Manager struct {
	dir    string
	logger *zap.Logger
	move   func(src, dst string) (filesystem.MoveMethod, error)
	now    func() time.Time
}

// NewManager creates a manager for dir. The directory is created on first use.
func NewManager(dir string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &Manager{
		dir:    dir,
		logger: logger,
		move:   filesystem.MoveFile,
		now:    time.Now,
	}
}

// Dir returns the quarantine directory
func (m *Manager) Dir() string {
	return m.dir
}

// Quarantine moves path into the quarantine directory without overwriting
// anything already there. On failure the original file is untouched.
func (m *Manager) Quarantine(path string) (*models.QuarantineRecord, error) {
	src, err := filepath.Abs(path)
	if err != nil {
		return nil, &QuarantineError{Op: "stat", Path: path, Err: err}
	}

	if err := checkRegular(src); err != nil {
		return nil, &QuarantineError{Op: "stat", Path: src, Err: err}
	}
	if within(m.dir, src) {
		return nil, &QuarantineError{Op: "stat", Path: src, Err: errors.New("file is already in quarantine")}
	}

	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return nil, &QuarantineError{Op: "mkdir", Path: m.dir, Err: err}
	}

	dst, method, err := m.relocate(src, m.dir)
	if err != nil {
		return nil, err
	}

	record := &models.QuarantineRecord{
		OriginalPath:   src,
		QuarantinePath: dst,
		QuarantinedAt:  m.now().UTC().Format(time.RFC3339),
		Method:         string(method),
	}

	m.logger.Info("File quarantined",
		zap.String("original", src),
		zap.String("quarantine", dst),
		zap.String("method", record.Method))

	return record, nil
}

// List returns the quarantined files sorted by name
func (m *Manager) List() ([]Entry, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed since ReadDir
			continue
		}
		// Zero-size files may be reservations in progress
		out = append(out, Entry{
			Name:    e.Name(),
			Path:    filepath.Join(m.dir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Restore moves a quarantined file into destDir, disambiguating the name
// if needed, and returns the restored path
func (m *Manager) Restore(name, destDir string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", &QuarantineError{Op: "stat", Path: name, Err: errors.New("invalid quarantine entry name")}
	}

	src := filepath.Join(m.dir, name)
	if err := checkRegular(src); err != nil {
		return "", &QuarantineError{Op: "stat", Path: src, Err: err}
	}

	dest, err := filepath.Abs(destDir)
	if err != nil {
		return "", &QuarantineError{Op: "mkdir", Path: destDir, Err: err}
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", &QuarantineError{Op: "mkdir", Path: dest, Err: err}
	}

	dst, method, err := m.relocate(src, dest)
	if err != nil {
		return "", err
	}

	m.logger.Info("File restored",
		zap.String("quarantine", src),
		zap.String("restored", dst),
		zap.String("method", string(method)))

	return dst, nil
}

// relocate reserves a free name in dir and moves src onto it
func (m *Manager) relocate(src, dir string) (string, filesystem.MoveMethod, error) {
	mu := lockFor(dir)
	mu.Lock()
	dst, err := reserve(dir, filepath.Base(src))
	mu.Unlock()
	if err != nil {
		return "", "", &QuarantineError{Op: "reserve", Path: src, Err: err}
	}

	method, err := m.move(src, dst)
	if err != nil {
		if rmErr := os.Remove(dst); rmErr != nil && !os.IsNotExist(rmErr) {
			m.logger.Warn("Failed to remove reserved name", zap.String("path", dst), zap.Error(rmErr))
		}
		return "", "", &QuarantineError{Op: "move", Path: src, Err: err}
	}

	return dst, method, nil
}

// reserve claims the first free candidate name (name, base_1.ext, base_2.ext, ...)
// by creating it exclusively
func reserve(dir, name string) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		// Dotfile such as .bashrc
		base, ext = name, ""
	}

	for i := 0; i < maxCandidates; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		path := filepath.Join(dir, candidate)

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			return path, f.Close()
		}
		if !os.IsExist(err) {
			return "", err
		}
	}

	return "", fmt.Errorf("no free name for %s after %d attempts", name, maxCandidates)
}

func checkRegular(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file (%s)", info.Mode().Type())
	}
	return nil
}

// within reports whether path is inside dir
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "."
}
