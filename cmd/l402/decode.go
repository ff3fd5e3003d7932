package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/refined-element/l402-requests/bolt11"
)

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode INVOICE",
		Short: "Decode a BOLT11 invoice amount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sats, err := bolt11.AmountSats(args[0])
			if errors.Is(err, bolt11.ErrNoAmount) {
				return fmt.Errorf("invoice encodes no amount (amountless invoices cannot be budgeted)")
			}
			if err != nil {
				return err
			}
			fmt.Printf("%d sats\n", sats)
			return nil
		},
	}
}
