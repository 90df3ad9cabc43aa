package main

import (
	"fmt"
	"os"

	"github.com/IvanShishkin/sigscan/internal/filesystem"
	"github.com/IvanShishkin/sigscan/internal/signatures"
	"github.com/spf13/cobra"
)

// signaturesCmd creates the signatures command group
func signaturesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signatures",
		Short: "Inspect and edit the signature store",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every fingerprint in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			for _, fp := range signatures.NewStore(a.cfg.SignaturesPath, a.logger).Load().Sorted() {
				fmt.Println(fp)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <file-or-hash>...",
		Short: "Add fingerprints, hashing any argument that is not one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			hasher, err := newHasher(a)
			if err != nil {
				return err
			}

			fps := make([]string, 0, len(args))
			for _, arg := range args {
				// An existing file wins over a hex-looking argument
				if _, statErr := os.Stat(arg); statErr != nil && hasher.IsFingerprint(arg) {
					fps = append(fps, arg)
					continue
				}
				fp, _, err := hasher.Fingerprint(arg)
				if err != nil {
					return err
				}
				fps = append(fps, fp)
			}

			added, err := signatures.NewStore(a.cfg.SignaturesPath, a.logger).Add(fps...)
			if err != nil {
				return err
			}
			fmt.Printf("  %s✓%s %d added, %d already present\n", colorGreen, colorReset, added, len(fps)-added)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <hash>",
		Short: "Remove a fingerprint from the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			removed, err := signatures.NewStore(a.cfg.SignaturesPath, a.logger).Remove(args[0])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Printf("  %s⊘ %s not in store%s\n", colorGray, args[0], colorReset)
				return nil
			}
			fmt.Printf("  %s✓%s removed %s\n", colorGreen, colorReset, args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "hash <file>...",
		Short: "Print the fingerprint of files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			hasher, err := newHasher(a)
			if err != nil {
				return err
			}
			for _, path := range args {
				fp, _, err := hasher.Fingerprint(path)
				if err != nil {
					return err
				}
				fmt.Printf("%s  %s\n", fp, path)
			}
			return nil
		},
	})

	return cmd
}

func newHasher(a *app) (*filesystem.Hasher, error) {
	chunk, err := a.cfg.ChunkBytes()
	if err != nil {
		return nil, err
	}
	return filesystem.NewHasher(filesystem.Algorithm(a.cfg.Algorithm), chunk)
}
