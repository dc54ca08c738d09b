package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/procsense/procsense/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultDBName = "procsense.db"
	defaultDBDir  = "procsense"

	// The tracker writes while report and web readers query the same file.
	sqliteParams = "?_busy_timeout=5000&_journal_mode=WAL"

	slowQueryThreshold = 500 * time.Millisecond
)

type DB struct {
	*gorm.DB
	path string
}

// GetDefaultDBPath returns procsense.db in the user's config directory,
// creating the directory.
func GetDefaultDBPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}

	dbDir := filepath.Join(configDir, defaultDBDir)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}

	return filepath.Join(dbDir, defaultDBName), nil
}

// Connect opens the SQLite database at dbPath, or the default path when
// dbPath is empty. Only slow queries are logged.
func Connect(dbPath string) (*DB, error) {
	if dbPath == "" {
		var err error
		dbPath, err = GetDefaultDBPath()
		if err != nil {
			return nil, err
		}
	} else if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	gormLogger := logger.New(log.New(os.Stderr, "database: ", log.LstdFlags), logger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(sqlite.Open(dbPath+sqliteParams), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}

	return &DB{DB: db, path: dbPath}, nil
}

// Path is the database file in use.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) Initialize() error {
	if err := db.AutoMigrate(&models.ActivitySample{}, &models.ErrorLog{}); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
