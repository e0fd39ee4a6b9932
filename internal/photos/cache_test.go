package photos

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestCache(t *testing.T, clock func() time.Time) (*Cache, *gorm.DB) {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "cache.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&CachedRecord{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	cache, err := NewCache(database, clock)
	if err != nil {
		t.Fatalf("failed to construct cache: %v", err)
	}
	return cache, database
}

func TestCacheStoreAndLoad(t *testing.T) {
	syncedAt := time.Date(2024, time.March, 2, 10, 0, 0, 0, time.UTC)
	cache, database := newTestCache(t, func() time.Time { return syncedAt })
	ctx := context.Background()

	records := []Record{
		{Day: "2024-01-01", ID: "a", Filepath: "/uploads/a.jpg", Notes: "first"},
		{Day: "2024-03-01", ID: "c", Filepath: "/uploads/c.jpg", Lat: 1.5, Lon: 2.5},
		{Day: "2024-02-15", ID: "b", Filepath: "/uploads/b.jpg", ExifData: `{"Model":"X"}`},
	}
	if err := cache.Store(ctx, records); err != nil {
		t.Fatalf("failed to store records: %v", err)
	}

	loaded, err := cache.Load(ctx)
	if err != nil {
		t.Fatalf("failed to load records: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("unexpected record count: %d", len(loaded))
	}
	if loaded[0].Day != "2024-03-01" || loaded[2].Day != "2024-01-01" {
		t.Fatalf("expected newest day first, got %s..%s", loaded[0].Day, loaded[2].Day)
	}
	if loaded[0].Lat != 1.5 || loaded[1].ExifData != `{"Model":"X"}` || loaded[2].Notes != "first" {
		t.Fatalf("unexpected record contents: %+v", loaded)
	}

	var row CachedRecord
	if err := database.Where("day = ?", "2024-01-01").Take(&row).Error; err != nil {
		t.Fatalf("failed to reload row: %v", err)
	}
	if !row.SyncedAt.Equal(syncedAt) {
		t.Fatalf("unexpected sync time: %v", row.SyncedAt)
	}
}

func TestCacheStoreReplacesExistingDay(t *testing.T) {
	cache, _ := newTestCache(t, nil)
	ctx := context.Background()

	if err := cache.Store(ctx, []Record{{Day: "2024-01-01", ID: "old", Filepath: "/uploads/old.jpg"}}); err != nil {
		t.Fatalf("failed to store record: %v", err)
	}
	if err := cache.Store(ctx, []Record{{Day: "2024-01-01", ID: "new", Filepath: "/uploads/new.jpg", Notes: "edited"}}); err != nil {
		t.Fatalf("failed to store replacement: %v", err)
	}

	loaded, err := cache.Load(ctx)
	if err != nil {
		t.Fatalf("failed to load records: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "new" || loaded[0].Notes != "edited" {
		t.Fatalf("expected replaced record, got %+v", loaded)
	}
}

func TestCacheStoreDropsDaysMissingFromServer(t *testing.T) {
	cache, _ := newTestCache(t, nil)
	ctx := context.Background()

	initial := []Record{
		{Day: "2024-01-01", ID: "a", Filepath: "/uploads/a.jpg"},
		{Day: "2024-01-02", ID: "b", Filepath: "/uploads/b.jpg"},
		{Day: "2024-01-03", ID: "c", Filepath: "/uploads/c.jpg"},
	}
	if err := cache.Store(ctx, initial); err != nil {
		t.Fatalf("failed to store records: %v", err)
	}
	if err := cache.Store(ctx, initial[1:]); err != nil {
		t.Fatalf("failed to store narrowed records: %v", err)
	}
	loaded, err := cache.Load(ctx)
	if err != nil {
		t.Fatalf("failed to load records: %v", err)
	}
	if len(loaded) != 2 || loaded[0].Day != "2024-01-03" || loaded[1].Day != "2024-01-02" {
		t.Fatalf("expected dropped day to leave the cache, got %+v", loaded)
	}

	if err := cache.Store(ctx, nil); err != nil {
		t.Fatalf("failed to store empty diary: %v", err)
	}
	loaded, err = cache.Load(ctx)
	if err != nil {
		t.Fatalf("failed to load records: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty cache after empty listing, got %+v", loaded)
	}
}

func TestNewCacheRequiresDatabase(t *testing.T) {
	if _, err := NewCache(nil, nil); err == nil {
		t.Fatalf("expected error for missing database")
	}
}
