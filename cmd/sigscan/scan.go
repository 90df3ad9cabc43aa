package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IvanShishkin/sigscan/internal/core"
	"github.com/IvanShishkin/sigscan/internal/quarantine"
	"github.com/IvanShishkin/sigscan/internal/report"
	"github.com/IvanShishkin/sigscan/internal/signatures"
	"github.com/IvanShishkin/sigscan/internal/updater"
	"github.com/IvanShishkin/sigscan/pkg/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// scanCmd creates the scan command
func scanCmd() *cobra.Command {
	var (
		fileMode       bool
		workers        int
		threshold      int
		exclude        []string
		followSymlinks bool
		rateLimit      float64
		quarantineHits bool
		update         bool
		reportFormat   string
		outputFile     string
		algorithm      string
	)

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a file or directory against the signature store",
		Long: `Recursively fingerprint every regular file under path and report the
files whose digest is in the signature store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()
			cfg, logger := a.cfg, a.logger

			// Override config with CLI flags
			if cmd.Flags().Changed("workers") {
				cfg.Scan.Workers = workers
			}
			if cmd.Flags().Changed("threshold") {
				cfg.Scan.SequentialThreshold = threshold
			}
			if len(exclude) > 0 {
				cfg.Scan.Exclude = append(cfg.Scan.Exclude, exclude...)
			}
			if followSymlinks {
				cfg.Scan.FollowSymlinks = true
			}
			if cmd.Flags().Changed("rate") {
				cfg.Scan.RateLimit = rateLimit
			}
			if reportFormat != "" {
				cfg.ReportFormat = reportFormat
			}
			if outputFile != "" {
				cfg.OutputFile = outputFile
			}
			if algorithm != "" {
				cfg.Algorithm = algorithm
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid parameter: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store := signatures.NewStore(cfg.SignaturesPath, logger)
			if update {
				syncBeforeScan(ctx, updater.NewClient(cfg, logger), store, logger)
			}

			set := store.Load()
			if set.Len() == 0 {
				fmt.Printf("  %s⚠ Signature store %s is empty%s\n", colorYellow, store.Path(), colorReset)
			}

			// Never descend into our own quarantine
			jail := quarantine.NewManager(cfg.QuarantineDir, logger)
			cfg.Scan.Exclude = append(cfg.Scan.Exclude, jail.Dir())

			scanner, err := core.NewScanner(cfg, logger)
			if err != nil {
				return err
			}

			mode := models.ModeAuto
			if fileMode {
				mode = models.ModeFile
			}
			target, err := models.ResolveTarget(args[0], mode)
			if err != nil {
				return err
			}

			printBanner()
			fmt.Printf("  %sTarget:%s     %s\n", colorGray, colorReset, target.Path)
			fmt.Printf("  %sSignatures:%s %d (%s)\n\n", colorGray, colorReset, set.Len(), scanner.Algorithm())

			results, err := scanner.Scan(ctx, target, set, progressPrinter(logger))
			if err != nil {
				logger.Error("Scan failed", zap.Error(err))
				return err
			}
			fmt.Println()

			if quarantineHits {
				results.Quarantined = quarantineInfected(jail, results, logger)
			}

			gen := report.NewGenerator(cfg, logger)
			reportPath, err := gen.Generate(results)
			if err != nil {
				return err
			}
			if reportPath != "" {
				fmt.Printf("\n  %sReport:%s    %s%s%s\n\n", colorGray, colorReset, colorOrange, reportPath, colorReset)
			}

			if results.Cancelled {
				return errors.New("scan cancelled")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fileMode, "file", false, "Treat path as a single file")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent hashing workers (default from config)")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "Scan sequentially at or below this many files")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Directory names or absolute paths to skip (comma-separated)")
	cmd.Flags().BoolVar(&followSymlinks, "follow-symlinks", false, "Follow directory symlinks")
	cmd.Flags().Float64Var(&rateLimit, "rate", 0, "Maximum files per second, 0 for unlimited")
	cmd.Flags().BoolVar(&quarantineHits, "quarantine", false, "Move infected files into quarantine")
	cmd.Flags().BoolVar(&update, "update", false, "Sync signatures from the remote feed before scanning")
	cmd.Flags().StringVarP(&reportFormat, "report", "r", "", "Report format: json, yaml, csv, txt (default: console output)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path")
	cmd.Flags().StringVar(&algorithm, "algorithm", "", "Fingerprint algorithm: md5, sha256")

	return cmd
}

// progressPrinter draws the progress bar and reports enumeration errors
func progressPrinter(logger *zap.Logger) func(models.Event) {
	return func(ev models.Event) {
		switch ev.Type {
		case models.EventProgress:
			fmt.Print(progressBar(ev.Progress, ev.Done, ev.Total))
		case models.EventEnumerationError:
			logger.Warn("Could not enumerate", zap.String("path", ev.EnumerationError.Path), zap.String("error", ev.EnumerationError.Error))
		case models.EventVerdict:
			if ev.Verdict.Matched {
				logger.Info("Signature match", zap.String("path", ev.Verdict.Path), zap.String("fingerprint", ev.Verdict.Fingerprint))
			}
		case models.EventCompleted:
			if ev.Results != nil && ev.Results.Cancelled {
				fmt.Printf("\n  %s⊘ Scan cancelled%s", colorYellow, colorReset)
			}
		}
	}
}

// syncBeforeScan refreshes the store; a failed sync only warns
func syncBeforeScan(ctx context.Context, client *updater.Client, store *signatures.Store, logger *zap.Logger) {
	res, err := client.SyncStore(ctx, store, time.Now(), false)
	switch {
	case err != nil:
		fmt.Printf("  %s⚠ Signature update failed:%s %v\n", colorYellow, colorReset, err)
	case res == nil:
		logger.Debug("Signature update skipped, cooldown active")
	default:
		fmt.Printf("  %s✓ Signatures updated:%s %d new\n", colorGreen, colorReset, res.Added)
	}
}

// quarantineInfected isolates every matched file and returns the records of
// the moves that succeeded
func quarantineInfected(jail *quarantine.Manager, results *models.ScanResults, logger *zap.Logger) []models.QuarantineRecord {
	var records []models.QuarantineRecord
	for _, v := range results.Infected() {
		rec, err := jail.Quarantine(v.Path)
		if err != nil {
			logger.Error("Quarantine failed", zap.String("path", v.Path), zap.Error(err))
			fmt.Printf("  %s✗ Could not quarantine%s %s: %v\n", colorRed, colorReset, v.Path, err)
			continue
		}
		records = append(records, *rec)
	}
	return records
}
