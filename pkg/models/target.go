package models

import (
	"fmt"
	"os"
	"path/filepath"
)

// ScanMode declares how a scan target is walked
type ScanMode string

const (
	ModeAuto      ScanMode = "auto"      // resolve from the filesystem
	ModeFile      ScanMode = "file"      // a single regular file
	ModeDirectory ScanMode = "directory" // recursive directory walk
)

// ScanTarget is the resolved input of one scan
type ScanTarget struct {
	Path string   `json:"path" yaml:"path"` // absolute path
	Mode ScanMode `json:"mode" yaml:"mode"`
}

// ResolveTarget builds a ScanTarget from caller input.
// The target must exist; ModeAuto is replaced by the concrete mode.
func ResolveTarget(path string, mode ScanMode) (ScanTarget, error) {
	if path == "" {
		return ScanTarget{}, fmt.Errorf("empty scan path")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return ScanTarget{}, fmt.Errorf("resolve %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return ScanTarget{}, fmt.Errorf("scan target: %w", err)
	}

	if mode == "" {
		mode = ModeAuto
	}

	switch mode {
	case ModeAuto:
		if info.IsDir() {
			mode = ModeDirectory
		} else {
			mode = ModeFile
		}
	case ModeFile:
		if !info.Mode().IsRegular() {
			return ScanTarget{}, fmt.Errorf("scan target %s is not a regular file", abs)
		}
	case ModeDirectory:
		if !info.IsDir() {
			return ScanTarget{}, fmt.Errorf("scan target %s is not a directory", abs)
		}
	default:
		return ScanTarget{}, fmt.Errorf("unknown scan mode %q", mode)
	}

	return ScanTarget{Path: abs, Mode: mode}, nil
}
