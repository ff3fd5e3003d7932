package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/refined-element/l402-requests/wallet"
)

func newWalletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Inspect Lightning wallet configuration",
	}
	cmd.AddCommand(newWalletDetectCmd())
	return cmd
}

func newWalletDetectCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Show which wallet backend would be used",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			w, err := wallet.DetectFrom(cfg)
			if err != nil {
				return err
			}

			if named, ok := w.(interface{ Name() string }); ok {
				fmt.Printf("detected wallet: %s\n", named.Name())
			} else {
				fmt.Printf("detected wallet: %T\n", w)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (default ~/.l402/config.yaml)")
	return cmd
}
