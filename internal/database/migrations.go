package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/photodiary/internal/photos"
	"github.com/MarcoPoloResearchLab/photodiary/internal/session"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationPruneMalformedCachedDays = "2024-03-01_prune_malformed_cached_days"
	migrationDropEmptySessions        = "2024-03-08_drop_empty_sessions"

	canonicalDayPattern = "[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationPruneMalformedCachedDays, apply: pruneMalformedCachedDays},
		{name: migrationDropEmptySessions, apply: dropEmptySessions},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Cached rows keyed by anything but a canonical day would never match a grid cell.
func pruneMalformedCachedDays(db *gorm.DB) error {
	return db.Where("day NOT GLOB ?", canonicalDayPattern).Delete(&photos.CachedRecord{}).Error
}

func dropEmptySessions(db *gorm.DB) error {
	return db.Where("token = ''").Delete(&session.Session{}).Error
}
