package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/menuhub/hubsync/internal/identity"
)

// newDeviceCommand prints the stored device descriptor, applying the
// configured device fields and creating the id on first use.
func newDeviceCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "device",
		Short: "Print this device's identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := root.loadConfig()
			if err != nil {
				return err
			}

			db, err := openStore(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // Read-mostly command; close error is not actionable

			ident := identity.NewManager(identity.NewSQLiteStore(db.DB), time.Now)
			desc, err := seedDevice(cmd.Context(), ident, cfg.Device)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(desc); err != nil {
				return fmt.Errorf("printing descriptor: %w", err)
			}
			return nil
		},
	}
}
