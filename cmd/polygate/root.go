package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "polygate",
	Short: "Polygate - multi-provider LLM inference gateway",
	Long: `Polygate is a multi-provider LLM inference gateway.

It presents one client surface over heterogeneous model providers,
providing:
  - Canonical types across chat, embeddings, images, audio, realtime
  - Strategy-based routing across model deployments
  - Retries, timeouts, and error classification
  - Response caching with per-model tuning
  - Exact cost accounting over configurable pricing models`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
}
