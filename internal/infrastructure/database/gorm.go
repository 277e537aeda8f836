package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"nearbuy/internal/domain/entity"
	"nearbuy/pkg/logger"
)

// Models lists every table owned by the relational backend, in creation order.
func Models() []interface{} {
	return []interface{}{
		&entity.User{},
		&entity.Listing{},
		&entity.Transaction{},
		&entity.TransactionStatusHistory{},
		&entity.ChatRoom{},
		&entity.ChatMessage{},
	}
}

type Options struct {
	Driver      string // postgres or sqlite
	DatabaseURL string
	SQLitePath  string
	LogQueries  bool
}

// Open connects with the configured driver. SQLite is limited to a single
// connection so that writers serialize instead of failing with SQLITE_BUSY.
func Open(opts Options) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(opts.Driver) {
	case "postgres":
		dialector = postgres.Open(opts.DatabaseURL)
	case "sqlite", "":
		dialector = sqlite.Open(opts.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	level := gormlogger.Warn
	if opts.LogQueries {
		level = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger: gormlogger.New(gormWriter{}, gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if opts.Driver == "sqlite" || opts.Driver == "" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		logger.Error("Failed to migrate database schema: %v", err)
		return err
	}
	logger.Info("Database migrations completed")
	return nil
}

// Reset drops every table and recreates the schema.
func Reset(db *gorm.DB) error {
	if err := db.Migrator().DropTable(Models()...); err != nil {
		logger.Error("Failed to drop tables: %v", err)
		return err
	}
	logger.Info("All tables dropped")
	return Migrate(db)
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	logger.Warn(format, args...)
}
