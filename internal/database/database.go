package database

import (
	"strings"

	"github.com/pathakanu/chronobot/internal/model"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSQLitePath is used when neither a database URL nor a SQLite path is configured.
const DefaultSQLitePath = "reminders.db"

// New creates a GORM database connection and migrates the schema.
// When databaseURL is provided PostgreSQL is used, otherwise SQLite at sqlitePath.
func New(databaseURL, sqlitePath string, logger *zap.Logger) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	if sqlitePath == "" {
		sqlitePath = DefaultSQLitePath
	}

	if databaseURL != "" {
		db, err = gorm.Open(postgres.Open(databaseURL), gormConfig)
	} else {
		db, err = gorm.Open(sqlite.Open(sqlitePath), gormConfig)
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logBackend(db, sqlitePath, logger)
	return db, nil
}

// Migrate creates or updates the reminders and trusted_chats tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Reminder{}, &model.TrustedChat{})
}

func logBackend(db *gorm.DB, sqlitePath string, logger *zap.Logger) {
	dialector := db.Dialector.Name()
	switch strings.ToLower(dialector) {
	case "postgres":
		logger.Info("database: connected to PostgreSQL")
	case "sqlite":
		logger.Info("database: using SQLite", zap.String("path", sqlitePath))
	default:
		logger.Info("database: connected", zap.String("dialector", dialector))
	}
}
