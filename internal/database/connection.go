package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/actionsum/focusstat/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultDBName = "focusstat.db"
	defaultDBDir  = ".config/focusstat"

	// the daemon writes while report/status read
	dsnOptions = "?_busy_timeout=5000&_journal_mode=WAL"
)

// DB is the statistics store of one process
type DB struct {
	*gorm.DB
	path string
}

func GetDefaultDBPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, defaultDBDir, defaultDBName), nil
}

// Connect opens the SQLite file at dbPath, or the default path when empty,
// creating its directory if needed
func Connect(dbPath string) (*DB, error) {
	if dbPath == "" {
		var err error
		dbPath, err = GetDefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath+dsnOptions), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// sqlite allows one writer, queue in the pool instead of on SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)

	return &DB{DB: db, path: dbPath}, nil
}

// Path returns the database file in use
func (db *DB) Path() string {
	return db.path
}

// Initialize creates or migrates the schema
func (db *DB) Initialize() error {
	err := db.AutoMigrate(&models.CategoryStat{}, &models.Run{}, &models.ErrorLog{})
	if err != nil {
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
