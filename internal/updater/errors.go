package updater

import (
	"errors"
	"fmt"
)

// ErrNoURL is wrapped in a network SyncError when no feed URL is configured
var ErrNoURL = errors.New("no signature feed URL configured")

// Kind classifies a sync failure
type Kind string

const (
	KindNetwork Kind = "network" // transport failure or non-2xx response
	KindFormat  Kind = "format"  // payload is not a JSON array of fingerprints
)

// SyncError reports a failed remote update. Local state is unchanged.
type SyncError struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *SyncError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("signature sync (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("signature sync (%s) %s: %v", e.Kind, e.URL, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a SyncError of the given kind
func IsKind(err error, kind Kind) bool {
	var syncErr *SyncError
	return errors.As(err, &syncErr) && syncErr.Kind == kind
}
