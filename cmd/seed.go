package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/happy-game/sync-player/internal/config"
	"github.com/happy-game/sync-player/internal/database"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Run migrations and seeds (migrate up, then database/seeds/*.sql)",
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	db, err := database.Open(cfg.DB.Dialect, cfg.DSN())
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if cfg.DB.Dialect == "postgres" {
		if err := database.MigrateUp(cfg.DatabaseURL(), logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	} else {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	if err := database.RunSeeds(db, logger); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	return nil
}
