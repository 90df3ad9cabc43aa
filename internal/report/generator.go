package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/IvanShishkin/sigscan/internal/config"
	"github.com/IvanShishkin/sigscan/pkg/models"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorOrange = "\033[38;5;208m"
	colorGray   = "\033[38;5;245m"
)

// FormatDuration formats duration to a human-readable string with max 2 decimal places
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1e6)
	} else if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	} else if d < time.Hour {
		mins := int(d.Minutes())
		secs := d.Seconds() - float64(mins*60)
		return fmt.Sprintf("%dm%.2fs", mins, secs)
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) - hours*60
	secs := d.Seconds() - float64(hours*3600) - float64(mins*60)
	return fmt.Sprintf("%dh%dm%.2fs", hours, mins, secs)
}

// Generator generates scan reports in various formats
type Generator struct {
	config *config.Config
	logger *zap.Logger
	out    io.Writer // console output
	color  bool
}

// NewGenerator creates a new report generator
func NewGenerator(cfg *config.Config, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		config: cfg,
		logger: logger,
		out:    os.Stdout,
		color:  os.Getenv("NO_COLOR") == "",
	}
}

// SetOutput redirects console output
func (g *Generator) SetOutput(w io.Writer, color bool) {
	g.out = w
	g.color = color
}

// Generate writes a report file in the configured format and returns its
// absolute path. With no format the summary is printed to the console.
func (g *Generator) Generate(results *models.ScanResults) (string, error) {
	format := g.config.ReportFormat
	outputFile := g.config.OutputFile

	// If no format specified, print to console
	if format == "" {
		g.PrintConsole(results)
		return "", nil
	}

	// Generate default filename if not specified
	if outputFile == "" {
		timestamp := time.Now().Format("20060102-150405")
		ext, err := extension(format)
		if err != nil {
			return "", err
		}
		outputFile = fmt.Sprintf("SIGSCAN-REPORT-%s.%s", timestamp, ext)
	}

	g.logger.Info("Generating report",
		zap.String("format", format),
		zap.String("output", outputFile))

	data, err := Render(format, results)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s report: %w", format, err)
	}
	if err := os.WriteFile(outputFile, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s report: %w", format, err)
	}

	absPath, _ := filepath.Abs(outputFile)
	return absPath, nil
}

// Render encodes results in format
func Render(format string, results *models.ScanResults) ([]byte, error) {
	switch format {
	case "json":
		return renderJSON(results)
	case "yaml":
		return renderYAML(results)
	case "csv":
		return renderCSV(results)
	case "txt", "text":
		return renderText(results), nil
	default:
		return nil, fmt.Errorf("unknown report format: %s", format)
	}
}

func extension(format string) (string, error) {
	switch format {
	case "json", "yaml", "csv":
		return format, nil
	case "txt", "text":
		return "txt", nil
	default:
		return "", fmt.Errorf("unknown report format: %s", format)
	}
}

func (g *Generator) c(code string) string {
	if !g.color {
		return ""
	}
	return code
}

// PrintConsole prints the scan summary
func (g *Generator) PrintConsole(results *models.ScanResults) {
	w := g.out
	reset, bold, gray := g.c(colorReset), g.c(colorBold), g.c(colorGray)

	fmt.Fprintln(w)
	if results.Cancelled {
		fmt.Fprintf(w, "%s%sSCAN CANCELLED%s\n", bold, g.c(colorYellow), reset)
	} else {
		fmt.Fprintf(w, "%s%sSCAN COMPLETE%s\n", bold, g.c(colorOrange), reset)
	}
	fmt.Fprintln(w)

	// Stats
	fmt.Fprintf(w, "  %sPath:%s        %s\n", gray, reset, results.Target.Path)
	fmt.Fprintf(w, "  %sFiles:%s       %d of %d\n", gray, reset, results.ScannedFiles, results.TotalFiles)
	fmt.Fprintf(w, "  %sHashed:%s      %s\n", gray, reset, humanize.IBytes(uint64(bytesHashed(results))))
	fmt.Fprintf(w, "  %sSignatures:%s  %d (%s)\n", gray, reset, results.Signatures, results.Algorithm)
	fmt.Fprintf(w, "  %sDuration:%s    %s\n", gray, reset, FormatDuration(results.Duration))
	if results.Unreadable > 0 {
		fmt.Fprintf(w, "  %sUnreadable:%s  %s%d%s\n", gray, reset, g.c(colorYellow), results.Unreadable, reset)
	}
	if n := len(results.EnumerationErrors); n > 0 {
		fmt.Fprintf(w, "  %sSkipped dirs:%s %s%d%s\n", gray, reset, g.c(colorYellow), n, reset)
	}
	fmt.Fprintln(w)

	if results.ThreatsFound == 0 {
		fmt.Fprintf(w, "  %s%s✓ No threats detected%s\n", bold, g.c(colorGreen), reset)
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, "  %s%s⚠ THREATS FOUND: %d%s\n", bold, g.c(colorRed), results.ThreatsFound, reset)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s───────────────────────────────────────────────────────────────%s\n", gray, reset)

	quarantined := make(map[string]string, len(results.Quarantined))
	for _, r := range results.Quarantined {
		quarantined[r.OriginalPath] = r.QuarantinePath
	}

	for i, v := range results.Infected() {
		fmt.Fprintf(w, "\n  %s[%d]%s %s%s%s\n", bold, i+1, reset, g.c(colorOrange), v.Path, reset)
		fmt.Fprintf(w, "      %sFingerprint:%s %s%s%s\n", gray, reset, g.c(colorDim), v.Fingerprint, reset)
		fmt.Fprintf(w, "      %sSize:%s        %s\n", gray, reset, humanize.IBytes(uint64(v.Size)))
		if dst, ok := quarantined[v.Path]; ok {
			fmt.Fprintf(w, "      %sQuarantine:%s  %s%s%s\n", gray, reset, g.c(colorGreen), dst, reset)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s───────────────────────────────────────────────────────────────%s\n", gray, reset)
	fmt.Fprintln(w)
}

func bytesHashed(results *models.ScanResults) int64 {
	if results.Stats == nil {
		return 0
	}
	return results.Stats.BytesHashed
}
