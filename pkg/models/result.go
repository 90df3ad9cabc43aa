package models

import "time"

// ScanResults contains the complete scan results
type ScanResults struct {
	// Summary
	ScanID       string        `json:"scan_id" yaml:"scan_id"`
	Target       ScanTarget    `json:"target" yaml:"target"`
	StartTime    time.Time     `json:"start_time" yaml:"start_time"`
	EndTime      time.Time     `json:"end_time" yaml:"end_time"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
	TotalFiles   int           `json:"total_files" yaml:"total_files"`
	ScannedFiles int           `json:"scanned_files" yaml:"scanned_files"`
	ThreatsFound int           `json:"threats_found" yaml:"threats_found"`
	Unreadable   int           `json:"unreadable" yaml:"unreadable"`
	Cancelled    bool          `json:"cancelled" yaml:"cancelled"`
	Signatures   int           `json:"signatures" yaml:"signatures"` // size of the snapshot used
	Algorithm    string        `json:"algorithm" yaml:"algorithm"`

	Verdicts          []Verdict          `json:"verdicts" yaml:"verdicts"`
	EnumerationErrors []EnumerationError `json:"enumeration_errors,omitempty" yaml:"enumeration_errors,omitempty"`
	Quarantined       []QuarantineRecord `json:"quarantined,omitempty" yaml:"quarantined,omitempty"`

	Stats *ScanStatistics `json:"statistics" yaml:"statistics"`
}

// ScanStatistics contains detailed scan statistics
type ScanStatistics struct {
	BytesHashed    int64   `json:"bytes_hashed" yaml:"bytes_hashed"`
	FilesPerSecond float64 `json:"files_per_second" yaml:"files_per_second"`
	WorkersUsed    int     `json:"workers_used" yaml:"workers_used"` // 1 when sequential
	Concurrent     bool    `json:"concurrent" yaml:"concurrent"`
}

// AddVerdict records a verdict and updates counters
func (r *ScanResults) AddVerdict(v Verdict) {
	r.Verdicts = append(r.Verdicts, v)
	r.ScannedFiles++

	if r.Stats == nil {
		r.Stats = &ScanStatistics{}
	}
	r.Stats.BytesHashed += v.Size

	switch {
	case v.Unreadable:
		r.Unreadable++
	case v.Matched:
		r.ThreatsFound++
	}
}

// Infected returns the verdicts that matched a signature
func (r *ScanResults) Infected() []Verdict {
	var out []Verdict
	for _, v := range r.Verdicts {
		if v.Matched {
			out = append(out, v)
		}
	}
	return out
}
