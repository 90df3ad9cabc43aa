package quarantine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/IvanShishkin/sigscan/internal/filesystem"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	return string(data)
}

func TestManager_Quarantine(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "infected", "eicar.com")
	writeFile(t, src, "EICAR-TEST")

	m := NewManager(filepath.Join(root, "quarantine"), zap.NewNop())
	fixed := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	record, err := m.Quarantine(src)
	if err != nil {
		t.Fatalf("Quarantine() error = %v", err)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("original still exists after quarantine")
	}
	if record.OriginalPath != src {
		t.Errorf("OriginalPath = %s, want %s", record.OriginalPath, src)
	}
	if record.QuarantinePath != filepath.Join(m.Dir(), "eicar.com") {
		t.Errorf("QuarantinePath = %s", record.QuarantinePath)
	}
	if record.Method != string(filesystem.MoveRename) {
		t.Errorf("Method = %s, want rename", record.Method)
	}
	if record.QuarantinedAt != "2026-10-14T12:00:00Z" {
		t.Errorf("QuarantinedAt = %s", record.QuarantinedAt)
	}
	if got := readFile(t, record.QuarantinePath); got != "EICAR-TEST" {
		t.Errorf("quarantined content = %q", got)
	}

	info, err := os.Stat(m.Dir())
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o700 {
		t.Errorf("quarantine dir mode = %v, want 0700", perm)
	}
}

func TestManager_NoClobber(t *testing.T) {
	root := t.TempDir()
	m := NewManager(filepath.Join(root, "quarantine"), zap.NewNop())

	writeFile(t, filepath.Join(m.Dir(), "report.pdf"), "existing")
	writeFile(t, filepath.Join(m.Dir(), "report_1.pdf"), "existing 1")

	src := filepath.Join(root, "a", "report.pdf")
	writeFile(t, src, "new")

	record, err := m.Quarantine(src)
	if err != nil {
		t.Fatalf("Quarantine() error = %v", err)
	}

	if want := filepath.Join(m.Dir(), "report_2.pdf"); record.QuarantinePath != want {
		t.Errorf("QuarantinePath = %s, want %s", record.QuarantinePath, want)
	}
	if got := readFile(t, filepath.Join(m.Dir(), "report.pdf")); got != "existing" {
		t.Errorf("report.pdf overwritten: %q", got)
	}
	if got := readFile(t, filepath.Join(m.Dir(), "report_1.pdf")); got != "existing 1" {
		t.Errorf("report_1.pdf overwritten: %q", got)
	}
	if got := readFile(t, record.QuarantinePath); got != "new" {
		t.Errorf("quarantined content = %q", got)
	}
}

func TestReserve_Names(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		want     string
	}{
		{"Free", nil, "sample.exe"},
		{"Taken once", []string{"sample.exe"}, "sample_1.exe"},
		{"No extension", []string{"payload"}, "payload_1"},
		{"Dotfile", []string{".bashrc"}, ".bashrc_1"},
		{"Double extension", []string{"archive.tar.gz"}, "archive.tar_1.gz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, e := range tt.existing {
				writeFile(t, filepath.Join(dir, e), "x")
			}
			file := tt.want
			if len(tt.existing) > 0 {
				file = tt.existing[0]
			}

			got, err := reserve(dir, file)
			if err != nil {
				t.Fatalf("reserve() error = %v", err)
			}
			if filepath.Base(got) != tt.want {
				t.Errorf("reserve() = %s, want %s", filepath.Base(got), tt.want)
			}
			if _, err := os.Stat(got); err != nil {
				t.Errorf("reserved name was not created: %v", err)
			}
		})
	}
}

func TestManager_MissingSource(t *testing.T) {
	root := t.TempDir()
	m := NewManager(filepath.Join(root, "quarantine"), zap.NewNop())

	_, err := m.Quarantine(filepath.Join(root, "absent.bin"))
	var qErr *QuarantineError
	if !errors.As(err, &qErr) {
		t.Fatalf("Quarantine() error = %v, want *QuarantineError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error should wrap os.ErrNotExist: %v", err)
	}
}

func TestManager_DirectorySource(t *testing.T) {
	root := t.TempDir()
	m := NewManager(filepath.Join(root, "quarantine"), zap.NewNop())

	if _, err := m.Quarantine(root); err == nil {
		t.Fatal("Quarantine() of a directory should fail")
	}
}

func TestManager_MkdirFailure(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "quarantine")
	writeFile(t, blocker, "i am a file")

	src := filepath.Join(root, "victim.bin")
	writeFile(t, src, "EICAR-TEST")

	m := NewManager(blocker, zap.NewNop())
	_, err := m.Quarantine(src)

	var qErr *QuarantineError
	if !errors.As(err, &qErr) || qErr.Op != "mkdir" {
		t.Fatalf("Quarantine() error = %v, want mkdir QuarantineError", err)
	}
	if got := readFile(t, src); got != "EICAR-TEST" {
		t.Errorf("original changed after failure: %q", got)
	}
}

func TestManager_MoveFailureLeavesOriginal(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "victim.bin")
	writeFile(t, src, "EICAR-TEST")

	m := NewManager(filepath.Join(root, "quarantine"), zap.NewNop())
	m.move = func(string, string) (filesystem.MoveMethod, error) {
		return "", errors.New("disk on fire")
	}

	_, err := m.Quarantine(src)
	var qErr *QuarantineError
	if !errors.As(err, &qErr) || qErr.Op != "move" {
		t.Fatalf("Quarantine() error = %v, want move QuarantineError", err)
	}
	if got := readFile(t, src); got != "EICAR-TEST" {
		t.Errorf("original changed after failure: %q", got)
	}

	entries, err := m.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("reserved name left behind: %+v", entries)
	}
}

func TestManager_RefusesQuarantinedFile(t *testing.T) {
	root := t.TempDir()
	m := NewManager(filepath.Join(root, "quarantine"), zap.NewNop())
	inside := filepath.Join(m.Dir(), "held.bin")
	writeFile(t, inside, "x")

	if _, err := m.Quarantine(inside); err == nil {
		t.Fatal("Quarantine() of a file already in quarantine should fail")
	}
	if got := readFile(t, inside); got != "x" {
		t.Errorf("quarantined file changed: %q", got)
	}
}

func TestManager_ConcurrentSameName(t *testing.T) {
	root := t.TempDir()
	m := NewManager(filepath.Join(root, "quarantine"), zap.NewNop())

	const n = 12
	for i := 0; i < n; i++ {
		writeFile(t, filepath.Join(root, fmt.Sprintf("src%d", i), "sample.exe"), fmt.Sprintf("payload %d", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// A separate manager per goroutine shares the directory lock
			mgr := NewManager(m.Dir(), zap.NewNop())
			if _, err := mgr.Quarantine(filepath.Join(root, fmt.Sprintf("src%d", i), "sample.exe")); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Quarantine() error = %v", err)
	}

	entries, err := m.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != n {
		t.Fatalf("List() = %d entries, want %d", len(entries), n)
	}

	contents := make(map[string]bool)
	for _, e := range entries {
		contents[readFile(t, e.Path)] = true
	}
	for i := 0; i < n; i++ {
		if !contents[fmt.Sprintf("payload %d", i)] {
			t.Errorf("payload %d lost", i)
		}
	}
}

func TestManager_ListMissingDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "never-created"), zap.NewNop())
	entries, err := m.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("List() = %+v, want empty", entries)
	}
}

func TestManager_Restore(t *testing.T) {
	root := t.TempDir()
	m := NewManager(filepath.Join(root, "quarantine"), zap.NewNop())

	src := filepath.Join(root, "docs", "sample.exe")
	writeFile(t, src, "payload")
	record, err := m.Quarantine(src)
	if err != nil {
		t.Fatalf("Quarantine() error = %v", err)
	}

	// Something new now lives at the original path
	writeFile(t, src, "replacement")

	restored, err := m.Restore(filepath.Base(record.QuarantinePath), filepath.Dir(src))
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if want := filepath.Join(root, "docs", "sample_1.exe"); restored != want {
		t.Errorf("Restore() = %s, want %s", restored, want)
	}
	if got := readFile(t, restored); got != "payload" {
		t.Errorf("restored content = %q", got)
	}
	if got := readFile(t, src); got != "replacement" {
		t.Errorf("restore clobbered existing file: %q", got)
	}
	if _, err := os.Stat(record.QuarantinePath); !os.IsNotExist(err) {
		t.Error("quarantined copy still present after restore")
	}
}

func TestManager_RestoreInvalidName(t *testing.T) {
	root := t.TempDir()
	m := NewManager(filepath.Join(root, "quarantine"), zap.NewNop())

	for _, name := range []string{"", ".", "..", "../escape", "nested/file"} {
		if _, err := m.Restore(name, root); err == nil {
			t.Errorf("Restore(%q) expected error", name)
		}
	}
}
