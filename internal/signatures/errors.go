package signatures

import "fmt"

// StoreError reports a signature store that could not be read or written
type StoreError struct {
	Op   string // load, save, lock
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("signature store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
