package database

import (
	"errors"

	"github.com/MarcoPoloResearchLab/photodiary/internal/authenticator"
	"github.com/MarcoPoloResearchLab/photodiary/internal/photos"
	"github.com/MarcoPoloResearchLab/photodiary/internal/session"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var errMissingPath = errors.New("database: path is required")

// OpenSQLite opens the local client database and performs schema migrations.
func OpenSQLite(path string, log *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, errMissingPath
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&photos.CachedRecord{}, &authenticator.StoredCredential{}, &session.Session{}, &migrationRecord{}); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, log); err != nil {
		return nil, err
	}

	if log != nil {
		log.Debug("database initialized", zap.String("path", path))
	}

	return db, nil
}
