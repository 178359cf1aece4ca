package database

import (
	"trialguard-api/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// InitTestDB opens an in-memory SQLite database for tests
func InitTestDB() {
	var err error
	DB, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	if err != nil {
		panic("failed to connect test database")
	}

	// SQLite allows a single writer; one pooled connection keeps concurrent
	// test writers from tripping over lock errors.
	if sqlDB, err := DB.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	err = DB.AutoMigrate(&models.FingerprintRecord{}, &models.UserSession{})
	if err != nil {
		panic("failed to migrate test database")
	}
}

// CleanTestDB closes the test database
func CleanTestDB() {
	sqlDB, err := DB.DB()
	if err != nil {
		return
	}
	sqlDB.Close()
}
