package updater

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestState_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	when := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

	if err := saveState(path, when); err != nil {
		t.Fatalf("saveState() error = %v", err)
	}

	got, err := loadState(path)
	if err != nil {
		t.Fatalf("loadState() error = %v", err)
	}
	if !got.Equal(when) {
		t.Errorf("loadState() = %v, want %v", got, when)
	}

	data, _ := os.ReadFile(path)
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("state is not JSON: %v", err)
	}
	if raw["date"] != "2026-10-14T09:30:00Z" {
		t.Errorf("date = %v", raw["date"])
	}
	if raw["last_update"] != float64(when.Unix()) {
		t.Errorf("last_update = %v, want %d", raw["last_update"], when.Unix())
	}
}

func TestState_Load(t *testing.T) {
	tests := []struct {
		name    string
		content string
		zero    bool
		wantErr bool
	}{
		{"Fractional seconds", `{"last_update": 1760434200.5, "date": "x"}`, false, false},
		{"Zero timestamp", `{"last_update": 0}`, true, false},
		{"Corrupt", `nope`, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			got, err := loadState(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("loadState() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got.IsZero() != tt.zero {
				t.Errorf("loadState() = %v, zero want %v", got, tt.zero)
			}
		})
	}
}

func TestState_Missing(t *testing.T) {
	got, err := loadState(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("loadState() error = %v", err)
	}
	if !got.IsZero() {
		t.Errorf("loadState() = %v, want zero", got)
	}
}
