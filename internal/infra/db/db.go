package db

import (
	"errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var errDBUnavailable = errors.New("database unavailable")

func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func AutoMigrate(conn *gorm.DB) error {
	if conn == nil {
		return errDBUnavailable
	}
	return conn.AutoMigrate(
		&CoverageModel{},
		&ClaimModel{},
		&VerificationRequestModel{},
	)
}
