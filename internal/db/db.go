package db

import (
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"inkpress/internal/config"
	"inkpress/internal/user"
)

// SQLitePrefix selects the embedded SQLite driver instead of Postgres,
// e.g. "sqlite:inkpress.db" or "sqlite:file::memory:?cache=shared".
const SQLitePrefix = "sqlite:"

// Open connects to the database named by dsn. Unique index violations are
// reported as gorm.ErrDuplicatedKey.
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("database dsn is empty")
	}
	var dialector gorm.Dialector
	if rest, ok := strings.CutPrefix(dsn, SQLitePrefix); ok {
		dialector = sqlite.Open(rest)
	} else {
		dialector = postgres.Open(dsn)
	}
	return gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&user.User{}, &user.Bootstrap{})
}

func Init(cfg *config.Config) (*gorm.DB, error) {
	db, err := Open(cfg.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info().Msg("Database connected and migrated")
	return db, nil
}
