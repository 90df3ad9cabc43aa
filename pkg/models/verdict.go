package models

// UnreadableMarker is reported in place of a fingerprint when a file could not be hashed
const UnreadableMarker = "unreadable"

// Verdict is the outcome of evaluating one file
type Verdict struct {
	Path        string `json:"path" yaml:"path"`
	Matched     bool   `json:"matched" yaml:"matched"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"` // hex digest or UnreadableMarker
	Unreadable  bool   `json:"unreadable,omitempty" yaml:"unreadable,omitempty"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
	Size        int64  `json:"size" yaml:"size"` // bytes hashed
}

// Status returns a short human-readable state
func (v Verdict) Status() string {
	switch {
	case v.Unreadable:
		return "unreadable"
	case v.Matched:
		return "infected"
	default:
		return "clean"
	}
}

// EnumerationError describes a subtree that could not be listed
type EnumerationError struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

// QuarantineRecord maps an original path to its isolated location
type QuarantineRecord struct {
	OriginalPath   string `json:"original_path" yaml:"original_path"`
	QuarantinePath string `json:"quarantine_path" yaml:"quarantine_path"`
	QuarantinedAt  string `json:"quarantined_at" yaml:"quarantined_at"` // RFC 3339
	Method         string `json:"method" yaml:"method"`                 // rename or copy
}
