package filesystem

import (
	"fmt"
	"io"
	"os"
)

// MoveMethod names how a file was moved
type MoveMethod string

const (
	MoveRename MoveMethod = "rename"
	MoveCopy   MoveMethod = "copy"
)

// rename is swapped in tests to force the copy fallback
var rename = os.Rename

// MoveFile moves src to dst. dst may already exist as an empty placeholder
// reserved by the caller; it is replaced. When rename fails because the
// paths are on different filesystems the content is copied into dst,
// fsynced and size-checked before src is removed. On failure src is left
// untouched.
func MoveFile(src, dst string) (MoveMethod, error) {
	renameErr := rename(src, dst)
	if renameErr == nil {
		return MoveRename, nil
	}
	if !isCrossDevice(renameErr) {
		return "", renameErr
	}

	if err := copyInto(src, dst); err != nil {
		return "", fmt.Errorf("copy fallback: %w (rename error: %v)", err, renameErr)
	}
	if err := os.Remove(src); err != nil {
		return "", fmt.Errorf("removing source after copy: %w", err)
	}
	return MoveCopy, nil
}

// copyInto copies src over dst, syncs, and checks the written size
func copyInto(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o600)
	if err != nil {
		return err
	}
	defer out.Close() //nolint:errcheck

	n, err := io.Copy(out, in)
	if err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}
	if n != info.Size() {
		return fmt.Errorf("short copy: wrote %d of %d bytes", n, info.Size())
	}

	return out.Close()
}
