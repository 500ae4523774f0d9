package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/saicare2025/dinarexchangenz-sub001/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// These tests hit a live Postgres because ClaimBatch's guarantees (SKIP
// LOCKED, lock-grace reclaim) cannot be exercised against a fake. Set
// TEST_DB_DSN to run them, e.g.
//
//	TEST_DB_DSN="host=localhost user=postgres password=postgres dbname=notifier_test sslmode=disable" go test ./repository/

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set, skipping database tests")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.NotificationJob{}))

	require.NoError(t, db.Exec("DELETE FROM notification_jobs").Error)
	require.NoError(t, db.Exec("DELETE FROM orders").Error)
	return db
}

func newTestRepo(t *testing.T, db *gorm.DB, lockGrace time.Duration) JobRepository {
	t.Helper()
	return NewJobRepository(db, 3, lockGrace)
}

func seedDBOrder(t *testing.T, db *gorm.DB, id string) {
	t.Helper()
	order := models.Order{
		ID:     id,
		Email:  "tom@example.com",
		Status: models.OrderStatusProcessing,
	}
	require.NoError(t, db.Where("id = ?", id).FirstOrCreate(&order).Error)
}

func createJob(t *testing.T, db *gorm.DB, repo JobRepository, channel string) *models.NotificationJob {
	t.Helper()
	seedDBOrder(t, db, "ORD-DB-1")
	job := &models.NotificationJob{
		OrderID:     "ORD-DB-1",
		EventType:   models.TypeStatusUpdate,
		Channel:     channel,
		Destination: "tom@example.com",
	}
	require.NoError(t, repo.Create(context.Background(), job))
	return job
}

func TestClaimBatchTransitionsAndLocks(t *testing.T) {
	db := testDB(t)
	repo := newTestRepo(t, db, 15*time.Minute)
	ctx := context.Background()

	created := createJob(t, db, repo, models.ChannelEmail)

	claimed, err := repo.ClaimBatch(ctx, models.ChannelEmail, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, created.ID, claimed[0].ID)
	assert.Equal(t, models.StatusSending, claimed[0].Status)
	assert.NotNil(t, claimed[0].LockedAt)

	// The row is now locked; a second pass sees nothing.
	again, err := repo.ClaimBatch(ctx, models.ChannelEmail, 10)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestClaimBatchFiltersByChannel(t *testing.T) {
	db := testDB(t)
	repo := newTestRepo(t, db, 15*time.Minute)
	ctx := context.Background()

	createJob(t, db, repo, models.ChannelEmail)
	createJob(t, db, repo, models.ChannelSMS)

	claimed, err := repo.ClaimBatch(ctx, models.ChannelSMS, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, models.ChannelSMS, claimed[0].Channel)
}

func TestClaimBatchReturnsOldestFirst(t *testing.T) {
	db := testDB(t)
	repo := newTestRepo(t, db, 15*time.Minute)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		job := createJob(t, db, repo, models.ChannelEmail)
		ids = append(ids, job.ID)
		time.Sleep(5 * time.Millisecond) // distinct created_at
	}

	claimed, err := repo.ClaimBatch(ctx, models.ChannelEmail, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 3)
	for i, job := range claimed {
		assert.Equal(t, ids[i], job.ID)
	}
}

// The core queue property: concurrent passes never hand out the same row.
func TestClaimBatchNoDoubleClaim(t *testing.T) {
	db := testDB(t)
	repo := newTestRepo(t, db, 15*time.Minute)
	ctx := context.Background()

	const total = 40
	for i := 0; i < total; i++ {
		createJob(t, db, repo, models.ChannelEmail)
	}

	const workers = 4
	var mu sync.Mutex
	seen := make(map[uuid.UUID]int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				claimed, err := repo.ClaimBatch(ctx, models.ChannelEmail, 5)
				if err != nil || len(claimed) == 0 {
					return
				}
				mu.Lock()
				for _, job := range claimed {
					seen[job.ID]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, total)
	for id, n := range seen {
		assert.Equal(t, 1, n, "job %s claimed more than once", id)
	}
}

func TestClaimBatchReclaimsStaleSending(t *testing.T) {
	db := testDB(t)
	repo := newTestRepo(t, db, time.Minute)
	ctx := context.Background()

	job := createJob(t, db, repo, models.ChannelEmail)

	// Simulate a worker that claimed the row and then crashed.
	stale := time.Now().Add(-10 * time.Minute)
	require.NoError(t, db.Model(&models.NotificationJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]interface{}{"status": models.StatusSending, "locked_at": stale}).Error)

	claimed, err := repo.ClaimBatch(ctx, models.ChannelEmail, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, job.ID, claimed[0].ID)
}

func TestClaimBatchLeavesFreshSendingAlone(t *testing.T) {
	db := testDB(t)
	repo := newTestRepo(t, db, time.Hour)
	ctx := context.Background()

	createJob(t, db, repo, models.ChannelEmail)
	_, err := repo.ClaimBatch(ctx, models.ChannelEmail, 10)
	require.NoError(t, err)

	claimed, err := repo.ClaimBatch(ctx, models.ChannelEmail, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestMarkSentClearsLock(t *testing.T) {
	db := testDB(t)
	repo := newTestRepo(t, db, 15*time.Minute)
	ctx := context.Background()

	job := createJob(t, db, repo, models.ChannelEmail)
	claimed, err := repo.ClaimBatch(ctx, models.ChannelEmail, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	require.NoError(t, repo.MarkSent(ctx, job.ID))

	got, err := repo.GetJobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.Empty(t, got.LastError)
	assert.Nil(t, got.LockedAt)
}

func TestMarkFailedOrRetryExhaustsAttempts(t *testing.T) {
	db := testDB(t)
	repo := newTestRepo(t, db, 15*time.Minute)
	ctx := context.Background()

	job := createJob(t, db, repo, models.ChannelEmail)

	for attempt := 0; attempt < 3; attempt++ {
		claimed, err := repo.ClaimBatch(ctx, models.ChannelEmail, 1)
		require.NoError(t, err)
		require.Len(t, claimed, 1, "attempt %d should find the job pending again", attempt+1)
		require.NoError(t, repo.MarkFailedOrRetry(ctx, job.ID, claimed[0].Attempts, "smtp timeout"))
	}

	got, err := repo.GetJobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, "smtp timeout", got.LastError)
	assert.Nil(t, got.LockedAt)

	// Terminal: never claimed again.
	claimed, err := repo.ClaimBatch(ctx, models.ChannelEmail, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestMarkFailedIsTerminalRegardlessOfAttempts(t *testing.T) {
	db := testDB(t)
	repo := newTestRepo(t, db, 15*time.Minute)
	ctx := context.Background()

	job := createJob(t, db, repo, models.ChannelEmail)
	require.NoError(t, repo.MarkFailed(ctx, job.ID, "order not found"))

	got, err := repo.GetJobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, 0, got.Attempts)
	assert.Equal(t, "order not found", got.LastError)
}

func TestHasActiveDuplicateGuard(t *testing.T) {
	db := testDB(t)
	repo := newTestRepo(t, db, 15*time.Minute)
	ctx := context.Background()

	job := createJob(t, db, repo, models.ChannelEmail)

	active, err := repo.HasActive(ctx, job.OrderID, job.EventType, job.Channel)
	require.NoError(t, err)
	assert.True(t, active)

	// Other tuple members differ: not a duplicate.
	active, err = repo.HasActive(ctx, job.OrderID, job.EventType, models.ChannelSMS)
	require.NoError(t, err)
	assert.False(t, active)

	// Terminal rows no longer block re-enqueueing.
	require.NoError(t, repo.MarkFailed(ctx, job.ID, "dead"))
	active, err = repo.HasActive(ctx, job.OrderID, job.EventType, job.Channel)
	require.NoError(t, err)
	assert.False(t, active)
}

// Referential integrity lives in the store: the orders foreign key rejects a
// job for an order the database does not know.
func TestCreateRejectsJobForUnknownOrder(t *testing.T) {
	db := testDB(t)
	repo := newTestRepo(t, db, 15*time.Minute)

	job := &models.NotificationJob{
		OrderID:     "ORD-NOWHERE",
		EventType:   models.TypeStatusUpdate,
		Channel:     models.ChannelEmail,
		Destination: "tom@example.com",
	}
	require.Error(t, repo.Create(context.Background(), job))
}

func TestDeletingOrderRemovesItsJobs(t *testing.T) {
	db := testDB(t)
	repo := newTestRepo(t, db, 15*time.Minute)
	ctx := context.Background()

	job := createJob(t, db, repo, models.ChannelEmail)
	require.NoError(t, db.Delete(&models.Order{}, "id = ?", job.OrderID).Error)

	_, err := repo.GetJobByID(ctx, job.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)

	claimed, err := repo.ClaimBatch(ctx, models.ChannelEmail, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestGetJobsFiltersAndPaginates(t *testing.T) {
	db := testDB(t)
	repo := newTestRepo(t, db, 15*time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		createJob(t, db, repo, models.ChannelEmail)
	}
	createJob(t, db, repo, models.ChannelSMS)

	jobs, total, err := repo.GetJobs(ctx, models.JobFilter{Channel: models.ChannelEmail, Page: 1, PageSize: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, jobs, 3)

	jobs, total, err = repo.GetJobs(ctx, models.JobFilter{Status: models.StatusPending})
	require.NoError(t, err)
	assert.EqualValues(t, 6, total)
	assert.Len(t, jobs, 6)
}
