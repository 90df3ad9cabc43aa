package report

import (
	"fmt"
	"strings"

	"github.com/IvanShishkin/sigscan/pkg/models"
	"github.com/dustin/go-humanize"
)

// renderText generates a text report
func renderText(results *models.ScanResults) []byte {
	var sb strings.Builder

	// Header
	sb.WriteString("=" + strings.Repeat("=", 78) + "\n")
	sb.WriteString("  SIGSCAN SIGNATURE SCAN REPORT\n")
	sb.WriteString("=" + strings.Repeat("=", 78) + "\n\n")

	// Summary
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 79) + "\n")
	sb.WriteString(fmt.Sprintf("Scan ID:          %s\n", results.ScanID))
	sb.WriteString(fmt.Sprintf("Scan Path:        %s\n", results.Target.Path))
	sb.WriteString(fmt.Sprintf("Scan Mode:        %s\n", results.Target.Mode))
	sb.WriteString(fmt.Sprintf("Start Time:       %s\n", results.StartTime.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("End Time:         %s\n", results.EndTime.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("Duration:         %s\n", FormatDuration(results.Duration)))
	sb.WriteString(fmt.Sprintf("Signatures:       %d (%s)\n", results.Signatures, results.Algorithm))
	sb.WriteString(fmt.Sprintf("Total Files:      %d\n", results.TotalFiles))
	sb.WriteString(fmt.Sprintf("Scanned Files:    %d\n", results.ScannedFiles))
	sb.WriteString(fmt.Sprintf("Unreadable Files: %d\n", results.Unreadable))
	if results.Cancelled {
		sb.WriteString("Status:           CANCELLED\n")
	}
	sb.WriteString(fmt.Sprintf("THREATS FOUND:    %d\n", results.ThreatsFound))
	sb.WriteString("\n")

	if results.ThreatsFound > 0 {
		quarantined := make(map[string]string, len(results.Quarantined))
		for _, r := range results.Quarantined {
			quarantined[r.OriginalPath] = r.QuarantinePath
		}

		sb.WriteString("INFECTED FILES\n")
		sb.WriteString(strings.Repeat("=", 79) + "\n\n")

		for i, v := range results.Infected() {
			sb.WriteString(fmt.Sprintf("[%d] %s\n", i+1, v.Path))
			sb.WriteString(strings.Repeat("-", 79) + "\n")
			sb.WriteString(fmt.Sprintf("Fingerprint: %s\n", v.Fingerprint))
			sb.WriteString(fmt.Sprintf("Size:        %s\n", humanize.IBytes(uint64(v.Size))))
			if dst, ok := quarantined[v.Path]; ok {
				sb.WriteString(fmt.Sprintf("Quarantine:  %s\n", dst))
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("No threats detected.\n\n")
	}

	if results.Unreadable > 0 {
		sb.WriteString("UNREADABLE FILES\n")
		sb.WriteString(strings.Repeat("-", 79) + "\n")
		for _, v := range results.Verdicts {
			if v.Unreadable {
				sb.WriteString(fmt.Sprintf("  %s: %s\n", v.Path, v.Error))
			}
		}
		sb.WriteString("\n")
	}

	if len(results.EnumerationErrors) > 0 {
		sb.WriteString("SKIPPED DIRECTORIES\n")
		sb.WriteString(strings.Repeat("-", 79) + "\n")
		for _, e := range results.EnumerationErrors {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", e.Path, e.Error))
		}
		sb.WriteString("\n")
	}

	// Performance stats
	if results.Stats != nil {
		mode := "sequential"
		if results.Stats.Concurrent {
			mode = "concurrent"
		}
		sb.WriteString("PERFORMANCE\n")
		sb.WriteString(strings.Repeat("-", 79) + "\n")
		sb.WriteString(fmt.Sprintf("Files/Second:     %.2f\n", results.Stats.FilesPerSecond))
		sb.WriteString(fmt.Sprintf("Bytes Hashed:     %s\n", humanize.IBytes(uint64(results.Stats.BytesHashed))))
		sb.WriteString(fmt.Sprintf("Workers Used:     %d (%s)\n", results.Stats.WorkersUsed, mode))
		sb.WriteString("\n")
	}

	// Footer
	sb.WriteString(strings.Repeat("=", 79) + "\n")
	sb.WriteString("End of Report\n")
	sb.WriteString(strings.Repeat("=", 79) + "\n")

	return []byte(sb.String())
}
