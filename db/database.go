package db

import (
	"database/sql"
	"fmt"
	"strings"

	"QueueFM/config"
	"QueueFM/logger"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("connected to the database",
		logger.String("host", cfg.DBHost),
		logger.String("name", cfg.DBName))
	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist,
// and applies schema changes from later revisions.
func InitDB() error {
	if err := createSongsTable(); err != nil {
		return err
	}
	if err := alterSongsTableAddRequester(); err != nil {
		// The requester columns were added in a later revision; re-running the
		// ALTER against an up-to-date schema is expected to fail.
		if !strings.Contains(err.Error(), "Duplicate column name") && !strings.Contains(err.Error(), "already exists") {
			return err
		}
		logger.Debug("requester columns already exist in songs table", logger.ErrorField(err))
	}

	logger.Info("database schema initialized")
	return nil
}

func createSongsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS songs (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		youtube_id VARCHAR(16) NOT NULL,
		title VARCHAR(255) NOT NULL,
		channel_title VARCHAR(255) NOT NULL,
		thumbnail_url VARCHAR(767),
		duration VARCHAR(32),
		play_order INT NOT NULL,
		is_played TINYINT(1) NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		played_at TIMESTAMP NULL DEFAULT NULL,
		INDEX idx_songs_day_order (created_at, play_order)
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create songs table: %w", err)
	}
	return nil
}

func alterSongsTableAddRequester() error {
	query := `
	ALTER TABLE songs
		ADD COLUMN requested_by_user_id VARCHAR(32) NULL,
		ADD COLUMN requested_by_user_name VARCHAR(128) NULL;
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to add requester columns to songs table: %w", err)
	}
	return nil
}
