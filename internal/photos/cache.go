package photos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errMissingDatabase = errors.New("photos: database handle is required")

// CachedRecord is the local copy of a Record kept for offline browsing.
type CachedRecord struct {
	Day           string    `gorm:"column:day;primaryKey;size:10;not null"`
	ID            string    `gorm:"column:id;size:190;not null"`
	Filepath      string    `gorm:"column:filepath;size:512;not null"`
	ThumbnailPath string    `gorm:"column:thumbnail_path;size:512;not null;default:''"`
	Lat           float64   `gorm:"column:lat;not null;default:0"`
	Lon           float64   `gorm:"column:lon;not null;default:0"`
	Notes         string    `gorm:"column:notes;type:text;not null;default:''"`
	ExifData      string    `gorm:"column:exif_data;type:text;not null;default:''"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	SyncedAt      time.Time `gorm:"column:synced_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (CachedRecord) TableName() string {
	return "cached_photos"
}

// Cache stores fetched records in the local database.
type Cache struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewCache constructs a Cache over an already migrated database.
func NewCache(db *gorm.DB, clock func() time.Time) (*Cache, error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	if clock == nil {
		clock = time.Now
	}
	return &Cache{db: db, clock: clock}, nil
}

// Store replaces the cached set with records in one transaction: days absent
// from records are removed, the rest are upserted by day.
func (c *Cache) Store(ctx context.Context, records []Record) error {
	syncedAt := c.clock().UTC()
	rows := make([]CachedRecord, 0, len(records))
	days := make([]string, 0, len(records))
	for _, record := range records {
		days = append(days, record.Day)
		rows = append(rows, CachedRecord{
			Day:           record.Day,
			ID:            record.ID,
			Filepath:      record.Filepath,
			ThumbnailPath: record.ThumbnailPath,
			Lat:           record.Lat,
			Lon:           record.Lon,
			Notes:         record.Notes,
			ExifData:      record.ExifData,
			CreatedAt:     record.CreatedAt,
			SyncedAt:      syncedAt,
		})
	}

	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if len(days) > 0 {
			stale = stale.Where("day NOT IN ?", days)
		}
		if err := stale.Delete(&CachedRecord{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "day"}},
			UpdateAll: true,
		}).Create(&rows).Error
	})
}

// Load returns every cached record, newest day first.
func (c *Cache) Load(ctx context.Context) ([]Record, error) {
	var rows []CachedRecord
	if err := c.db.WithContext(ctx).Order("day DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, Record{
			Day:           row.Day,
			ID:            row.ID,
			Filepath:      row.Filepath,
			ThumbnailPath: row.ThumbnailPath,
			Lat:           row.Lat,
			Lon:           row.Lon,
			Notes:         row.Notes,
			ExifData:      row.ExifData,
			CreatedAt:     row.CreatedAt,
		})
	}
	return records, nil
}
