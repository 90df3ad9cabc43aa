package updater

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/IvanShishkin/sigscan/internal/filesystem"
)

// syncState is the on-disk record of the last successful sync
type syncState struct {
	LastUpdate float64 `json:"last_update"` // unix seconds
	Date       string  `json:"date"`        // RFC 3339
}

// loadState returns the recorded sync time. A missing file is the zero time.
func loadState(path string) (time.Time, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}

	var st syncState
	if err := json.Unmarshal(data, &st); err != nil {
		return time.Time{}, fmt.Errorf("invalid sync state: %w", err)
	}
	if st.LastUpdate <= 0 || math.IsInf(st.LastUpdate, 0) || math.IsNaN(st.LastUpdate) {
		return time.Time{}, nil
	}

	sec, frac := math.Modf(st.LastUpdate)
	return time.Unix(int64(sec), int64(frac*1e9)), nil
}

// saveState records t as the last successful sync
func saveState(path string, t time.Time) error {
	st := syncState{
		LastUpdate: float64(t.Unix()) + float64(t.Nanosecond())/1e9,
		Date:       t.Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return filesystem.WriteFileAtomic(path, append(data, '\n'), 0o644)
}
