package database

import (
	"time"

	"github.com/procsense/procsense/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// Repository handles all database operations for activity samples
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateBatch inserts samples in one transaction. Timestamps are stored in
// UTC so that range queries compare instants whatever zone the caller uses.
func (r *Repository) CreateBatch(samples []*models.ActivitySample) error {
	if len(samples) == 0 {
		return nil
	}
	for _, s := range samples {
		s.Timestamp = s.Timestamp.UTC()
	}
	result := r.db.Create(samples)
	if result.Error != nil {
		return errors.Wrapf(result.Error, "failed to insert %d activity samples", len(samples))
	}
	return nil
}

// GetSamplesSince retrieves all samples since a given time, oldest first
func (r *Repository) GetSamplesSince(since time.Time) ([]*models.ActivitySample, error) {
	var samples []*models.ActivitySample
	result := r.db.Where("timestamp >= ?", since.UTC()).Order("timestamp ASC").Find(&samples)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query activity samples")
	}

	return samples, nil
}

// GetAppSummarySince returns foreground time per executable since a given time
func (r *Repository) GetAppSummarySince(since time.Time) ([]models.AppSummary, error) {
	var summaries []models.AppSummary

	result := r.db.Model(&models.ActivitySample{}).
		Select("process_name, exe_path, SUM(duration_ms) / 1000 as total_seconds, COUNT(*) as sample_count").
		Where("timestamp >= ?", since.UTC()).
		Group("process_name, exe_path").
		Order("total_seconds DESC").
		Scan(&summaries)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query app summary")
	}

	return summaries, nil
}

// DeleteOldSamples deletes samples older than a specified date (soft delete)
func (r *Repository) DeleteOldSamples(before time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", before.UTC()).Delete(&models.ActivitySample{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old samples")
	}
	return result.RowsAffected, nil
}

// GetLatest retrieves the most recent sample, or nil when there is none
func (r *Repository) GetLatest() (*models.ActivitySample, error) {
	var sample models.ActivitySample
	result := r.db.Order("timestamp DESC").First(&sample)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest sample")
	}
	return &sample, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	errorLog.Timestamp = errorLog.Timestamp.UTC()
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// GetRecentErrors returns up to limit error logs, newest first
func (r *Repository) GetRecentErrors(limit int) ([]*models.ErrorLog, error) {
	var logs []*models.ErrorLog
	result := r.db.Order("timestamp DESC").Limit(limit).Find(&logs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query error logs")
	}
	return logs, nil
}

// Clear removes all activity samples from the database
func (r *Repository) Clear() error {
	result := r.db.Exec("DELETE FROM activity_samples")
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear activity samples")
	}
	return nil
}
