package database

import (
	"context"
	"time"

	"github.com/actionsum/focusstat/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles all database operations for category statistics
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// AddDurations adds each stat's duration to the stored total of its
// (category, bucket), creating missing rows. All rows are written in one
// transaction so a failed flush leaves the store untouched.
func (r *Repository) AddDurations(ctx context.Context, stats []models.CategoryStat) error {
	if len(stats) == 0 {
		return nil
	}

	for i := range stats {
		stats[i].BucketStart = stats[i].BucketStart.UTC()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "category"}, {Name: "bucket_start"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"duration":   gorm.Expr("category_stats.duration + excluded.duration"),
				"updated_at": time.Now(),
			}),
		}).Create(&stats).Error
	})
	if err != nil {
		return errors.Wrap(err, "failed to upsert category stats")
	}
	return nil
}

// GetStat retrieves the stored total for one (category, bucket), nil if absent
func (r *Repository) GetStat(category string, bucket time.Time) (*models.CategoryStat, error) {
	var stat models.CategoryStat
	result := r.db.Where("category = ? AND bucket_start = ?", category, bucket.UTC()).First(&stat)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get category stat")
	}
	return &stat, nil
}

// GetStatsBetween retrieves every bucket row in [start, end)
func (r *Repository) GetStatsBetween(start, end time.Time) ([]models.CategoryStat, error) {
	var stats []models.CategoryStat
	result := r.db.Where("bucket_start >= ? AND bucket_start < ?", start.UTC(), end.UTC()).
		Order("bucket_start ASC, category ASC").
		Find(&stats)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query category stats")
	}

	return stats, nil
}

// GetCategorySummaryBetween returns per-category totals for buckets in [start, end)
// Uses SQL SUM - runtime derives minutes, hours and percentages
func (r *Repository) GetCategorySummaryBetween(start, end time.Time) ([]models.CategorySummary, error) {
	var summaries []models.CategorySummary

	result := r.db.Model(&models.CategoryStat{}).
		Select("category, SUM(duration) / 1e9 as total_seconds, COUNT(*) as buckets").
		Where("bucket_start >= ? AND bucket_start < ?", start.UTC(), end.UTC()).
		Group("category").
		Order("total_seconds DESC").
		Scan(&summaries)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query category summary")
	}

	return summaries, nil
}

// DeleteOldStats deletes bucket rows older than a specified date
func (r *Repository) DeleteOldStats(before time.Time) (int64, error) {
	result := r.db.Where("bucket_start < ?", before.UTC()).Delete(&models.CategoryStat{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old stats")
	}
	return result.RowsAffected, nil
}

// CreateRun inserts the record of a starting daemon run
func (r *Repository) CreateRun(run *models.Run) error {
	result := r.db.Create(run)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert run")
	}
	return nil
}

// RecordFlush bumps the flush counter of a run and adds the persisted time
func (r *Repository) RecordFlush(ctx context.Context, runID string, tracked time.Duration) error {
	result := r.db.WithContext(ctx).Model(&models.Run{}).Where("id = ?", runID).Updates(map[string]interface{}{
		"flushes": gorm.Expr("flushes + 1"),
		"tracked": gorm.Expr("tracked + ?", int64(tracked)),
	})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to record flush")
	}
	return nil
}

// FinishRun marks a run as stopped
func (r *Repository) FinishRun(runID string, stoppedAt time.Time) error {
	result := r.db.Model(&models.Run{}).Where("id = ?", runID).Update("stopped_at", stoppedAt)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to finish run")
	}
	return nil
}

// GetLatestRun retrieves the most recently started run
func (r *Repository) GetLatestRun() (*models.Run, error) {
	var run models.Run
	result := r.db.Order("started_at DESC").First(&run)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest run")
	}
	return &run, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// CountErrorLogs counts error logs of a run
func (r *Repository) CountErrorLogs(runID string) (int64, error) {
	var count int64
	result := r.db.Model(&models.ErrorLog{}).Where("run_id = ?", runID).Count(&count)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to count error logs")
	}
	return count, nil
}

// Clear removes all statistics, runs and error logs from the database
func (r *Repository) Clear() error {
	for _, table := range []string{"category_stats", "runs", "error_logs"} {
		if result := r.db.Exec("DELETE FROM " + table); result.Error != nil {
			return errors.Wrapf(result.Error, "failed to clear %s", table)
		}
	}
	return nil
}
