package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/actionsum/focusstat/internal/models"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := Connect(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Initialize(); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	return NewRepository(db)
}

func bucket(hour int) time.Time {
	return time.Date(2024, 3, 14, hour, 0, 0, 0, time.UTC)
}

func stat(category string, hour int, d time.Duration) models.CategoryStat {
	return models.CategoryStat{
		Category:    category,
		BucketStart: bucket(hour),
		BucketWidth: 3600,
		Duration:    int64(d),
	}
}

func TestAddDurationsIsAdditive(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.AddDurations(ctx, []models.CategoryStat{
		stat("browser", 10, 5*time.Minute),
		stat("terminal", 10, time.Minute),
	}); err != nil {
		t.Fatalf("AddDurations() error: %v", err)
	}
	if err := repo.AddDurations(ctx, []models.CategoryStat{
		stat("browser", 10, 2*time.Minute),
	}); err != nil {
		t.Fatalf("AddDurations() error: %v", err)
	}

	got, err := repo.GetStat("browser", bucket(10))
	if err != nil {
		t.Fatalf("GetStat() error: %v", err)
	}
	if got == nil || time.Duration(got.Duration) != 7*time.Minute {
		t.Errorf("browser@10:00 = %+v, want 7m", got)
	}

	missing, err := repo.GetStat("browser", bucket(11))
	if err != nil || missing != nil {
		t.Errorf("GetStat(missing) = %+v, %v, want nil, nil", missing, err)
	}
}

func TestAddDurationsLocalTimeMatchesUTCRow(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	local := bucket(10).In(time.FixedZone("UTC+2", 2*3600))
	if err := repo.AddDurations(ctx, []models.CategoryStat{
		{Category: "x", BucketStart: local, BucketWidth: 3600, Duration: int64(time.Minute)},
	}); err != nil {
		t.Fatal(err)
	}
	if err := repo.AddDurations(ctx, []models.CategoryStat{stat("x", 10, time.Minute)}); err != nil {
		t.Fatal(err)
	}

	stats, err := repo.GetStatsBetween(bucket(0), bucket(23))
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 || time.Duration(stats[0].Duration) != 2*time.Minute {
		t.Errorf("GetStatsBetween() = %+v, want one 2m row", stats)
	}
}

func TestGetCategorySummaryBetween(t *testing.T) {
	repo := newTestRepository(t)

	if err := repo.AddDurations(context.Background(), []models.CategoryStat{
		stat("browser", 9, 30*time.Minute),
		stat("browser", 10, 15*time.Minute),
		stat("terminal", 10, 20*time.Minute),
		stat("terminal", 20, 60*time.Minute),
	}); err != nil {
		t.Fatal(err)
	}

	summaries, err := repo.GetCategorySummaryBetween(bucket(0), bucket(12))
	if err != nil {
		t.Fatalf("GetCategorySummaryBetween() error: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
	if summaries[0].Category != "browser" || summaries[0].TotalSeconds != 2700 || summaries[0].Buckets != 2 {
		t.Errorf("summaries[0] = %+v, want browser 2700s in 2 buckets", summaries[0])
	}
	if summaries[1].Category != "terminal" || summaries[1].TotalSeconds != 1200 {
		t.Errorf("summaries[1] = %+v, want terminal 1200s", summaries[1])
	}
}

func TestRuns(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	run := &models.Run{ID: "6f1c1f1e-0000-4000-8000-000000000001", StartedAt: time.Now(), DisplayServer: "x11"}
	if err := repo.CreateRun(run); err != nil {
		t.Fatalf("CreateRun() error: %v", err)
	}
	if err := repo.RecordFlush(ctx, run.ID, time.Minute); err != nil {
		t.Fatalf("RecordFlush() error: %v", err)
	}
	if err := repo.RecordFlush(ctx, run.ID, 2*time.Minute); err != nil {
		t.Fatalf("RecordFlush() error: %v", err)
	}
	if err := repo.FinishRun(run.ID, time.Now()); err != nil {
		t.Fatalf("FinishRun() error: %v", err)
	}

	latest, err := repo.GetLatestRun()
	if err != nil {
		t.Fatalf("GetLatestRun() error: %v", err)
	}
	if latest == nil || latest.Flushes != 2 || time.Duration(latest.Tracked) != 3*time.Minute || latest.StoppedAt == nil {
		t.Errorf("GetLatestRun() = %+v", latest)
	}
}

func TestDeleteOldStatsAndClear(t *testing.T) {
	repo := newTestRepository(t)

	if err := repo.AddDurations(context.Background(), []models.CategoryStat{
		stat("a", 1, time.Minute),
		stat("a", 5, time.Minute),
	}); err != nil {
		t.Fatal(err)
	}

	n, err := repo.DeleteOldStats(bucket(3))
	if err != nil || n != 1 {
		t.Errorf("DeleteOldStats() = %d, %v, want 1", n, err)
	}

	if err := repo.CreateErrorLog(&models.ErrorLog{Kind: "clock", Timestamp: time.Now(), ErrorMsg: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	stats, err := repo.GetStatsBetween(bucket(0), bucket(23))
	if err != nil || len(stats) != 0 {
		t.Errorf("GetStatsBetween() after Clear = %v, %v", stats, err)
	}
}

func TestConnectCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "stats.db")

	db, err := Connect(path)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %s, want %s", db.Path(), path)
	}
	if err := db.Initialize(); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	// migrating twice is a no-op
	if err := db.Initialize(); err != nil {
		t.Fatalf("second Initialize() error: %v", err)
	}
}
