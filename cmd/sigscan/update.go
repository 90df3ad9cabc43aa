package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/IvanShishkin/sigscan/internal/signatures"
	"github.com/IvanShishkin/sigscan/internal/updater"
	"github.com/spf13/cobra"
)

// updateCmd creates the update command
func updateCmd() *cobra.Command {
	var (
		force bool
		url   string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Merge fingerprints from the remote signature feed",
		Long: `Fetch the configured feed (a JSON array of fingerprints) and merge it into
the local store. Fetches at most once per sync.cooldown unless --force is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			if url != "" {
				a.cfg.Sync.URL = url
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			client := updater.NewClient(a.cfg, a.logger)
			store := signatures.NewStore(a.cfg.SignaturesPath, a.logger)

			now := time.Now()
			res, err := client.SyncStore(ctx, store, now, force)
			if err != nil {
				return err
			}
			if res == nil {
				last := client.LastSync()
				fmt.Printf("  %s⊘ Not due:%s last sync %s, next after %s\n", colorGray, colorReset,
					last.Local().Format(time.RFC3339), last.Add(a.cfg.Sync.Cooldown).Local().Format(time.RFC3339))
				return nil
			}

			fmt.Printf("  %s✓ Signatures updated%s\n", colorGreen, colorReset)
			fmt.Printf("  %sFeed:%s   %d\n", colorGray, colorReset, res.Remote)
			fmt.Printf("  %sAdded:%s  %d\n", colorGray, colorReset, res.Added)
			fmt.Printf("  %sTotal:%s  %d\n", colorGray, colorReset, res.Set.Len())
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Fetch even if the cooldown has not elapsed")
	cmd.Flags().StringVar(&url, "url", "", "Feed URL (overrides sync.url)")

	return cmd
}
