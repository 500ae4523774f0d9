package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/saicare2025/dinarexchangenz-sub001/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrJobNotFound = errors.New("notification job not found")

// JobRepository is the durable notification queue. ClaimBatch is the one
// operation whose atomicity the whole system leans on: two overlapping worker
// passes must never receive the same row.
type JobRepository interface {
	Create(ctx context.Context, job *models.NotificationJob) error
	HasActive(ctx context.Context, orderID, eventType, channel string) (bool, error)
	ClaimBatch(ctx context.Context, channel string, limit int) ([]models.NotificationJob, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailedOrRetry(ctx context.Context, id uuid.UUID, attempts int, sendErr string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	GetJobs(ctx context.Context, filter models.JobFilter) ([]models.NotificationJob, int64, error)
	GetJobByID(ctx context.Context, id uuid.UUID) (*models.NotificationJob, error)
}

type gormJobRepository struct {
	db          *gorm.DB
	maxAttempts int
	lockGrace   time.Duration
}

func NewJobRepository(db *gorm.DB, maxAttempts int, lockGrace time.Duration) JobRepository {
	return &gormJobRepository{db: db, maxAttempts: maxAttempts, lockGrace: lockGrace}
}

func (r *gormJobRepository) Create(ctx context.Context, job *models.NotificationJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = models.StatusPending
	}
	return r.db.WithContext(ctx).Create(job).Error
}

// HasActive reports whether a non-terminal job already exists for the
// (order, event, channel) tuple. Used by the enqueuer as a duplicate guard.
func (r *gormJobRepository) HasActive(ctx context.Context, orderID, eventType, channel string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.NotificationJob{}).
		Where("order_id = ? AND event_type = ? AND channel = ? AND status IN ?",
			orderID, eventType, channel,
			[]string{models.StatusPending, models.StatusSending}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ClaimBatch atomically flips up to limit rows from pending to sending and
// stamps locked_at, oldest first. Rows stuck in sending longer than the lock
// grace period (a worker crashed mid-pass) are folded into the same predicate
// so they become claimable again. SKIP LOCKED keeps concurrent passes from
// blocking on, or double-claiming, the same rows.
func (r *gormJobRepository) ClaimBatch(ctx context.Context, channel string, limit int) ([]models.NotificationJob, error) {
	graceSeconds := int(r.lockGrace / time.Second)

	raw := `
		WITH cte AS (
			SELECT id
			FROM notification_jobs
			WHERE channel = ?
			  AND (
				status = 'pending'
				OR (status = 'sending' AND locked_at < now() - (? * interval '1 second'))
			  )
			ORDER BY created_at
			LIMIT ?
			FOR UPDATE SKIP LOCKED
		)
		UPDATE notification_jobs j
		SET status = 'sending', locked_at = now(), updated_at = now()
		FROM cte
		WHERE j.id = cte.id
		RETURNING j.*;
	`

	var jobs []models.NotificationJob
	tx := r.db.WithContext(ctx).Begin(&sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if tx.Error != nil {
		return nil, tx.Error
	}
	if err := tx.Raw(raw, channel, graceSeconds, limit).Scan(&jobs).Error; err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("claim batch failed: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	// RETURNING does not guarantee row order; restore FIFO here.
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	return jobs, nil
}

func (r *gormJobRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.NotificationJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.StatusSent,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": "",
			"locked_at":  nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// MarkFailedOrRetry records a failed attempt: back to pending while attempts
// remain, terminal failed once they are exhausted. Clears the lock either way.
func (r *gormJobRepository) MarkFailedOrRetry(ctx context.Context, id uuid.UUID, attempts int, sendErr string) error {
	status := models.StatusPending
	if attempts+1 >= r.maxAttempts {
		status = models.StatusFailed
	}

	res := r.db.WithContext(ctx).
		Model(&models.NotificationJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"attempts":   attempts + 1,
			"last_error": sendErr,
			"locked_at":  nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// MarkFailed is the terminal transition for jobs that can never succeed
// (e.g. the referenced order no longer exists), regardless of attempts left.
func (r *gormJobRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	res := r.db.WithContext(ctx).
		Model(&models.NotificationJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.StatusFailed,
			"last_error": reason,
			"locked_at":  nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (r *gormJobRepository) GetJobs(ctx context.Context, filter models.JobFilter) ([]models.NotificationJob, int64, error) {
	var jobs []models.NotificationJob
	var total int64

	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	if filter.Page < 1 {
		filter.Page = 1
	}

	query := r.db.WithContext(ctx).Model(&models.NotificationJob{})

	if filter.OrderID != "" {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Channel != "" {
		query = query.Where("channel = ?", filter.Channel)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.PageSize
	err := query.Order("created_at DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&jobs).Error

	return jobs, total, err
}

func (r *gormJobRepository) GetJobByID(ctx context.Context, id uuid.UUID) (*models.NotificationJob, error) {
	var job models.NotificationJob
	err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}
