package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	l402 "github.com/refined-element/l402-requests"
)

func main() {
	root := &cobra.Command{
		Use:     "l402",
		Short:   "l402 — HTTP client that pays Lightning paywalls within a budget",
		Version: l402.Version,
	}

	root.AddCommand(
		newFetchCmd(),
		newDecodeCmd(),
		newWalletCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print detailed version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(l402.GetVersion())
		},
	}
}
