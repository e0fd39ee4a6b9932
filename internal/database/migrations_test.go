package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/photodiary/internal/photos"
	"github.com/MarcoPoloResearchLab/photodiary/internal/session"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsPrunesMalformedRows(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&photos.CachedRecord{}, &session.Session{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	syncedAt := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []photos.CachedRecord{
		{Day: "2024-02-15", ID: "good", Filepath: "/uploads/good.jpg", SyncedAt: syncedAt},
		{Day: "2024-2-15", ID: "short", Filepath: "/uploads/short.jpg", SyncedAt: syncedAt},
		{Day: "15/02/2024", ID: "foreign", Filepath: "/uploads/foreign.jpg", SyncedAt: syncedAt},
	}
	if err := database.Create(&rows).Error; err != nil {
		testContext.Fatalf("failed to insert cached rows: %v", err)
	}
	sessions := []session.Session{
		{BaseURL: "http://a", Token: "", SavedAt: syncedAt},
		{BaseURL: "http://b", Token: "token", SavedAt: syncedAt},
	}
	if err := database.Create(&sessions).Error; err != nil {
		testContext.Fatalf("failed to insert sessions: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var remaining []photos.CachedRecord
	if err := database.Find(&remaining).Error; err != nil {
		testContext.Fatalf("failed to reload cached rows: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "good" {
		testContext.Fatalf("expected only canonical day to survive, got %+v", remaining)
	}

	var remainingSessions []session.Session
	if err := database.Find(&remainingSessions).Error; err != nil {
		testContext.Fatalf("failed to reload sessions: %v", err)
	}
	if len(remainingSessions) != 1 || remainingSessions[0].BaseURL != "http://b" {
		testContext.Fatalf("expected empty session to be dropped, got %+v", remainingSessions)
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationPruneMalformedCachedDays).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}
}

func TestApplyMigrationsRunsOnce(testContext *testing.T) {
	database, err := gorm.Open(sqlite.Open(filepath.Join(testContext.TempDir(), "once.db")), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&photos.CachedRecord{}, &session.Session{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}
	if err := applyMigrations(database, nil); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	late := photos.CachedRecord{Day: "bogus", ID: "late", Filepath: "/uploads/late.jpg", SyncedAt: time.Now().UTC()}
	if err := database.Create(&late).Error; err != nil {
		testContext.Fatalf("failed to insert cached row: %v", err)
	}
	if err := applyMigrations(database, nil); err != nil {
		testContext.Fatalf("failed to re-apply migrations: %v", err)
	}
	var count int64
	if err := database.Model(&photos.CachedRecord{}).Count(&count).Error; err != nil {
		testContext.Fatalf("failed to count rows: %v", err)
	}
	if count != 1 {
		testContext.Fatalf("expected applied migrations to be skipped, got %d rows", count)
	}
}

func TestOpenSQLiteCreatesSchema(testContext *testing.T) {
	database, err := OpenSQLite(filepath.Join(testContext.TempDir(), "client.db"), zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}
	for _, table := range []string{"cached_photos", "authenticator_credentials", "sessions", "db_migrations"} {
		if !database.Migrator().HasTable(table) {
			testContext.Fatalf("expected table %s", table)
		}
	}
	if _, err := OpenSQLite("", nil); err == nil {
		testContext.Fatalf("expected empty path to fail")
	}
}
