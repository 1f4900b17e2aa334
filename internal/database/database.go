package database

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/happy-game/sync-player/internal/model"
)

// Open opens a GORM connection for the given dialect. Supported dialects:
// sqlite (embedded, default), postgres, mysql.
func Open(dialect, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch dialect {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("database: unsupported dialect %q", dialect)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", dialect, err)
	}
	return db, nil
}

// AutoMigrate creates or updates the schema from the GORM entities. Used for
// sqlite and mysql; postgres deployments run SQL migrations instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Room{},
		&model.RoomMember{},
		&model.PlaylistItem{},
		&model.VideoSource{},
		&model.RoomPlayStatus{},
	)
}
