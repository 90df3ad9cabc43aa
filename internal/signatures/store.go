package signatures

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode"

	"github.com/IvanShishkin/sigscan/internal/filesystem"
	"go.uber.org/zap"
)

// ErrCorrupt marks store content that is neither a JSON array of strings nor
// a newline-delimited fingerprint list
var ErrCorrupt = errors.New("corrupt signature data")

// marker identifies the on-disk version the cache was built from
type marker struct {
	exists  bool
	modTime time.Time
	size    int64
}

func (m marker) same(o marker) bool {
	return m.exists == o.exists && m.size == o.size && m.modTime.Equal(o.modTime)
}

// Store owns the durable signature set and its in-memory cache
type Store struct {
	path   string
	logger *zap.Logger
	lock   *fileLock

	mu       sync.Mutex
	cache    Set
	cacheErr error // decode failure of the cached version
	marker   marker
	cached   bool
	reads    int
}

// NewStore creates a store backed by the file at path. Nothing is read until
// the first Load.
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &Store{
		path:   path,
		logger: logger,
		lock:   newFileLock(path, logger),
	}
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Reads returns how many times the backing file has been read
func (s *Store) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Load returns the current signature set. It is served from cache while the
// backing file's modification time and size are unchanged. A missing or
// corrupt file yields an empty set.
func (s *Store) Load() Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Save persists set and refreshes the cache
func (s *Store) Save(set Set) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.acquire()
	if err != nil {
		return err
	}
	defer unlock()

	return s.saveLocked(set)
}

// Add merges fingerprints into the store and returns how many were new.
// The file is not rewritten when nothing is new, and an existing file that
// cannot be read or decoded is left untouched and reported.
func (s *Store) Add(fingerprints ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.acquire()
	if err != nil {
		return 0, err
	}
	defer unlock()

	current, err := s.readLocked()
	if err != nil {
		return 0, err
	}
	next, added := current.Union(NewSet(fingerprints...))
	if added == 0 {
		return 0, nil
	}
	if err := s.saveLocked(next); err != nil {
		return 0, err
	}

	s.logger.Info("Signatures added", zap.Int("added", added), zap.Int("total", next.Len()))
	return added, nil
}

// Remove deletes fingerprint from the store and reports whether it was
// present. Like Add it refuses to rewrite an unreadable store.
func (s *Store) Remove(fingerprint string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.acquire()
	if err != nil {
		return false, err
	}
	defer unlock()

	current, err := s.readLocked()
	if err != nil {
		return false, err
	}
	next, removed := current.Without(fingerprint)
	if !removed {
		return false, nil
	}
	if err := s.saveLocked(next); err != nil {
		return false, err
	}

	s.logger.Info("Signature removed", zap.String("fingerprint", Normalize(fingerprint)))
	return true, nil
}

func (s *Store) acquire() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, &StoreError{Op: "lock", Path: s.path, Err: err}
	}
	if err := s.lock.Lock(); err != nil {
		return nil, &StoreError{Op: "lock", Path: s.path, Err: err}
	}
	return func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("Failed to release signature store lock", zap.Error(err))
		}
	}, nil
}

func (s *Store) loadLocked() Set {
	set, err := s.readLocked()
	if err != nil {
		s.logger.Warn("Signature store unusable, using empty set", zap.Error(err))
		return Set{}
	}
	return set
}

// readLocked returns the stored set. A file that exists but cannot be read or
// decoded is a *StoreError so that writers never replace it.
func (s *Store) readLocked() (Set, error) {
	current, err := s.stat()
	if err != nil {
		return Set{}, &StoreError{Op: "load", Path: s.path, Err: err}
	}

	if s.cached && current.same(s.marker) {
		return s.cache, s.cacheErr
	}

	if !current.exists {
		s.logger.Debug("Signature store not found, using empty set", zap.String("path", s.path))
		s.cache, s.cacheErr, s.marker, s.cached = Set{}, nil, current, true
		return s.cache, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return Set{}, &StoreError{Op: "load", Path: s.path, Err: err}
	}
	s.reads++

	fps, err := decode(data)
	if err != nil {
		// Remember the failure for this version of the file
		storeErr := &StoreError{Op: "load", Path: s.path, Err: err}
		s.cache, s.cacheErr, s.marker, s.cached = Set{}, storeErr, current, true
		return Set{}, storeErr
	}

	s.cache, s.cacheErr, s.marker, s.cached = NewSet(fps...), nil, current, true
	s.logger.Debug("Signatures loaded", zap.String("path", s.path), zap.Int("count", s.cache.Len()))
	return s.cache, nil
}

func (s *Store) saveLocked(set Set) error {
	data, err := encode(set)
	if err != nil {
		return &StoreError{Op: "save", Path: s.path, Err: err}
	}

	if err := filesystem.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return &StoreError{Op: "save", Path: s.path, Err: err}
	}

	current, err := s.stat()
	if err != nil {
		// Saved but not observable; force the next Load to re-read
		s.cached = false
		return &StoreError{Op: "save", Path: s.path, Err: err}
	}

	s.cache, s.cacheErr, s.marker, s.cached = set, nil, current, true
	return nil
}

func (s *Store) stat() (marker, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return marker{}, nil
		}
		return marker{}, err
	}
	if info.IsDir() {
		return marker{}, fmt.Errorf("%s is a directory", s.path)
	}
	return marker{exists: true, modTime: info.ModTime(), size: info.Size()}, nil
}

// encode renders the canonical form: a sorted two-space indented JSON array
func encode(set Set) ([]byte, error) {
	data, err := json.MarshalIndent(set.Sorted(), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// decode accepts the canonical JSON array or a legacy list with one
// fingerprint per line. Blank lines and lines starting with # are ignored
// in the legacy form.
func decode(data []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' || trimmed[0] == '{' {
		var fps []string
		if err := json.Unmarshal(trimmed, &fps); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return fps, nil
	}

	var fps []string
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		for _, r := range string(line) {
			if unicode.IsSpace(r) || !unicode.IsPrint(r) {
				return nil, fmt.Errorf("%w: line %d is not a fingerprint", ErrCorrupt, lineNo)
			}
		}
		fps = append(fps, string(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return fps, nil
}
