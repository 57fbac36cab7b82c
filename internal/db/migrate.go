package db

import (
	"fmt"

	"github.com/router-for-me/ContactRelay/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite:
		return migrateSQLite(conn)
	case DialectPostgres, "":
		return migratePostgres(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

// migratePostgres applies the schema and a descending index for the admin listing.
func migratePostgres(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(&models.Submission{}); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if errIndex := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_contact_submissions_status_created
		ON contact_submissions (status, created_at DESC)
	`).Error; errIndex != nil {
		return fmt.Errorf("db: create status index: %w", errIndex)
	}
	return nil
}

func migrateSQLite(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(&models.Submission{}); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if errIndex := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_contact_submissions_status_created
		ON contact_submissions (status, created_at)
	`).Error; errIndex != nil {
		return fmt.Errorf("db: create status index: %w", errIndex)
	}
	return nil
}
