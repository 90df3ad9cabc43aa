package main

import (
	"fmt"

	"github.com/IvanShishkin/sigscan/internal/quarantine"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// quarantineCmd creates the quarantine command group
func quarantineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quarantine",
		Short: "Move files into, list, or restore from quarantine",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "move <file>...",
		Short: "Isolate files in the quarantine directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			jail := quarantine.NewManager(a.cfg.QuarantineDir, a.logger)
			var failed int
			for _, path := range args {
				rec, err := jail.Quarantine(path)
				if err != nil {
					fmt.Printf("  %s✗%s %v\n", colorRed, colorReset, err)
					failed++
					continue
				}
				fmt.Printf("  %s✓%s %s -> %s %s(%s)%s\n", colorGreen, colorReset, rec.OriginalPath, rec.QuarantinePath, colorGray, rec.Method, colorReset)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be quarantined", failed, len(args))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List quarantined files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			jail := quarantine.NewManager(a.cfg.QuarantineDir, a.logger)
			entries, err := jail.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Printf("  %sQuarantine %s is empty%s\n", colorGray, jail.Dir(), colorReset)
				return nil
			}
			for _, e := range entries {
				fmt.Printf("  %-40s %10s  %s\n", e.Name, humanize.IBytes(uint64(e.Size)), e.ModTime.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restore <name> [dest-dir]",
		Short: "Move a quarantined file back out (default: current directory)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			dest := "."
			if len(args) == 2 {
				dest = args[1]
			}
			restored, err := quarantine.NewManager(a.cfg.QuarantineDir, a.logger).Restore(args[0], dest)
			if err != nil {
				return err
			}
			fmt.Printf("  %s✓%s restored to %s\n", colorGreen, colorReset, restored)
			return nil
		},
	})

	return cmd
}
