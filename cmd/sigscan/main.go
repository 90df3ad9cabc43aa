package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/IvanShishkin/sigscan/internal/config"
	"github.com/IvanShishkin/sigscan/internal/logging"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorOrange = "\033[38;5;208m"
	colorYellow = "\033[38;5;220m"
	colorGray   = "\033[38;5;245m"
)

var (
	version    = "0.1.0"
	verbose    bool
	configFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sigscan",
		Short: "sigscan - signature based file scanner",
		Long: `Fingerprint files in a directory tree, match them against a store of
known-malicious digests and move matches into quarantine.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			printBanner()
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: $HOME/.sigscan.yaml if present)")

	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(signaturesCmd())
	rootCmd.AddCommand(quarantineCmd())
	rootCmd.AddCommand(updateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\n  %s✗ Error:%s %v\n\n", colorRed, colorReset, err)
		os.Exit(1)
	}
}

// app bundles what every subcommand needs
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	closer io.Closer
}

// setup loads configuration and builds the logger
func setup() (*app, error) {
	path, err := resolveConfigFile(configFile)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	logger, closer, err := logging.New(cfg.Log, verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if path != "" {
		logger.Debug("Loaded config", zap.String("file", path))
	}

	return &app{cfg: cfg, logger: logger, closer: closer}, nil
}

func (a *app) close() {
	a.logger.Sync()
	a.closer.Close()
}

// resolveConfigFile returns the explicit config path, or the default
// $HOME/.sigscan.yaml when it exists, or "" for defaults only
func resolveConfigFile(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", nil
	}
	candidate := filepath.Join(home, ".sigscan.yaml")
	if _, err := os.Stat(candidate); err != nil {
		return "", nil
	}
	return candidate, nil
}

func printBanner() {
	fmt.Println()
	fmt.Printf("  %s%ssigscan%s %sv%s%s\n", colorBold, colorOrange, colorReset, colorGray, version, colorReset)
	fmt.Println()
}

// progressBar renders a single-line bar that is redrawn in place
func progressBar(pct, done, total int) string {
	const width = 30
	filled := width * pct / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("\r  %sScanning:%s  [%s%s%s] %s%3d%%%s (%d/%d)",
		colorGray, colorReset, colorOrange, bar, colorReset, colorOrange, pct, colorReset, done, total)
}
