package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/happy-game/sync-player/internal/config"
	"github.com/happy-game/sync-player/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [create <name>]",
	Short: "Run SQL migrations against postgres (sqlite and mysql auto-migrate on startup)",
	RunE:  runMigrateUp,
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	if len(args) > 0 && args[0] == "create" {
		name := ""
		if len(args) > 1 {
			name = args[1]
		} else {
			fmt.Print("Enter migration name: ")
			_, _ = fmt.Scanln(&name)
		}
		if name == "" {
			log.Fatal("migration name required")
		}
		return database.CreateMigration(name)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.DB.Dialect != "postgres" {
		return fmt.Errorf("migrate: SQL migrations apply to postgres only, DB_DIALECT is %q", cfg.DB.Dialect)
	}
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()
	return database.MigrateUp(cfg.DatabaseURL(), logger)
}
