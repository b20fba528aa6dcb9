package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "finlens",
	Short: "finlens - market fact packs and structured LLM analysis",
	Long: `finlens assembles bounded market snapshots (bars, indicators, levels,
events, derivatives, news) for stock and crypto symbols and runs them
through an LLM chain that returns schema-validated analysis.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
