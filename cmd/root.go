package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sync-player",
	Short: "Sync-player: shared-room video playback synchronization",
	Long:  `HTTP + WebSocket/SSE API. Commands: api, migrate, seed.`,
	RunE:  runAPI, // default: run API (same as "sync-player api")
}

func init() {
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

// Execute runs the root command and returns the error (for main to log.Fatal).
func Execute() error {
	return rootCmd.Execute()
}
