package quarantine

import "fmt"

// QuarantineError reports a relocation that could not be completed. The
// original file is left in place.
type QuarantineError struct {
	Op   string // stat, mkdir, reserve, move
	Path string
	Err  error
}

func (e *QuarantineError) Error() string {
	return fmt.Sprintf("quarantine %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *QuarantineError) Unwrap() error {
	return e.Err
}
