package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ConnectPostgres establishes a connection to the PostgreSQL database using the provided DSN.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// EnsureIndexes creates indexes that GORM's AutoMigrate cannot express.
// The partial unique index guarantees at most one latest attempt row per
// (student, exam) pair even under concurrent submissions.
func EnsureIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}

	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_exam_results_latest
		 ON exam_results (student_id, exam_id) WHERE is_latest`,
	).Error
}
