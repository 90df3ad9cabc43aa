//go:build !windows

package filesystem

import (
	"context"
	"path/filepath"
	"syscall"
	"testing"

	"go.uber.org/zap"
)

func TestWalker_SkipsFIFO(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "plain.txt")
	if err := syscall.Mkfifo(filepath.Join(root, "pipe"), 0o644); err != nil {
		t.Skipf("mkfifo not supported: %v", err)
	}

	w := NewWalker(WalkOptions{}, zap.NewNop())
	files, _, err := w.Collect(context.Background(), root)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if got := relPaths(t, root, files); !equalStrings(got, []string{"plain.txt"}) {
		t.Errorf("Collect() = %v, want [plain.txt]", got)
	}
}
