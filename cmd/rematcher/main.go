// Package main provides the entry point for the job re-matching engine: HTTP API, queue workers and operator commands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "rematcher",
	Short: "Job re-matching engine",
	Long: "Rematcher takes a candidate's CV after a rejection, searches the open job catalogue by vector similarity " +
		"and writes a ranked list of alternative roles with a recommendation memo.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Optional JSON config file applied over the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
