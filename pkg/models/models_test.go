package models

import (
	"os"
	"path/filepath"
	"testing"
)

func TestVerdictStatus(t *testing.T) {
	tests := []struct {
		name    string
		verdict Verdict
		want    string
	}{
		{"Clean", Verdict{Fingerprint: "abc"}, "clean"},
		{"Infected", Verdict{Matched: true, Fingerprint: "abc"}, "infected"},
		{"Unreadable", Verdict{Unreadable: true, Fingerprint: UnreadableMarker}, "unreadable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.verdict.Status(); got != tt.want {
				t.Errorf("Status() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddVerdict(t *testing.T) {
	r := &ScanResults{}
	r.AddVerdict(Verdict{Path: "/a", Fingerprint: "aa", Size: 10})
	r.AddVerdict(Verdict{Path: "/b", Matched: true, Fingerprint: "bb", Size: 20})
	r.AddVerdict(Verdict{Path: "/c", Unreadable: true, Fingerprint: UnreadableMarker})

	if r.ScannedFiles != 3 {
		t.Errorf("ScannedFiles = %d, want 3", r.ScannedFiles)
	}
	if r.ThreatsFound != 1 {
		t.Errorf("ThreatsFound = %d, want 1", r.ThreatsFound)
	}
	if r.Unreadable != 1 {
		t.Errorf("Unreadable = %d, want 1", r.Unreadable)
	}
	if r.Stats == nil || r.Stats.BytesHashed != 30 {
		t.Errorf("Stats.BytesHashed = %+v, want 30", r.Stats)
	}

	infected := r.Infected()
	if len(infected) != 1 || infected[0].Path != "/b" {
		t.Errorf("Infected() = %+v, want only /b", infected)
	}
}

func TestResolveTarget(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		mode    ScanMode
		want    ScanMode
		wantErr bool
	}{
		{"Auto directory", dir, ModeAuto, ModeDirectory, false},
		{"Auto file", file, ModeAuto, ModeFile, false},
		{"Empty mode is auto", file, "", ModeFile, false},
		{"Explicit file", file, ModeFile, ModeFile, false},
		{"File mode on directory", dir, ModeFile, "", true},
		{"Directory mode on file", file, ModeDirectory, "", true},
		{"Missing", filepath.Join(dir, "absent"), ModeAuto, "", true},
		{"Empty path", "", ModeAuto, "", true},
		{"Unknown mode", dir, ScanMode("stream"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveTarget(tt.path, tt.mode)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveTarget() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Mode != tt.want {
				t.Errorf("Mode = %v, want %v", got.Mode, tt.want)
			}
			if !filepath.IsAbs(got.Path) {
				t.Errorf("Path %q is not absolute", got.Path)
			}
		})
	}
}
