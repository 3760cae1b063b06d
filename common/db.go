package common

import (
	"log"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDb opens the database named by DATABASE_URL. A postgres:// prefix
// selects the postgres driver, sqlite:// a local file.
func ConnectDb() *gorm.DB {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "sqlite://heritage.db"
		log.Println("DATABASE_URL not set, defaulting to 'sqlite://heritage.db'")
	}

	var dialector gorm.Dialector

	switch {
	case strings.HasPrefix(dbURL, "postgres://"):
		dialector = postgres.Open(dbURL)
		log.Println("Connecting to PostgreSQL database...")
	case strings.HasPrefix(dbURL, "sqlite://"):
		dsn := strings.TrimPrefix(dbURL, "sqlite://")
		dialector = sqlite.Open(dsn)
		log.Println("Connecting to SQLite database at", dsn)
	default:
		log.Println("Invalid DATABASE_URL prefix, must start with 'postgres://' or 'sqlite://'")
		return nil
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Println("Error opening database: " + err.Error())
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Println("Error configuring connection pool: " + err.Error())
		return nil
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	return db
}
