package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menuhub/hubsync/internal/pairing"
)

// newDecodeCommand prints the offer inside a scanned pairing payload.
func newDecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <payload>",
		Short: "Decode a pairing QR payload and print the hub offer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			offer, err := pairing.Decode(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(offer); err != nil {
				return fmt.Errorf("printing offer: %w", err)
			}
			return nil
		},
	}
}
