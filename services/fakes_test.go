package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/saicare2025/dinarexchangenz-sub001/models"
	"github.com/saicare2025/dinarexchangenz-sub001/repository"
	"github.com/saicare2025/dinarexchangenz-sub001/sender"

	"github.com/google/uuid"
)

// In-memory doubles for the repositories and transports, mirroring the store
// semantics closely enough to exercise the worker and scanner paths.

type fakeJobRepo struct {
	mu           sync.Mutex
	jobs         map[uuid.UUID]*models.NotificationJob
	order        []uuid.UUID // insertion order, stands in for created_at FIFO
	maxAttempts  int
	createErrFor map[string]error // orderID → forced Create failure
	claimErr     error
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{
		jobs:         make(map[uuid.UUID]*models.NotificationJob),
		maxAttempts:  3,
		createErrFor: make(map[string]error),
	}
}

func (f *fakeJobRepo) Create(ctx context.Context, job *models.NotificationJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.createErrFor[job.OrderID]; err != nil {
		return err
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = models.StatusPending
	}
	job.CreatedAt = time.Now()
	copied := *job
	f.jobs[job.ID] = &copied
	f.order = append(f.order, job.ID)
	return nil
}

func (f *fakeJobRepo) HasActive(ctx context.Context, orderID, eventType, channel string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if j.OrderID == orderID && j.EventType == eventType && j.Channel == channel &&
			(j.Status == models.StatusPending || j.Status == models.StatusSending) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeJobRepo) ClaimBatch(ctx context.Context, channel string, limit int) ([]models.NotificationJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	var claimed []models.NotificationJob
	for _, id := range f.order {
		if len(claimed) >= limit {
			break
		}
		j := f.jobs[id]
		if j.Channel != channel || j.Status != models.StatusPending {
			continue
		}
		now := time.Now()
		j.Status = models.StatusSending
		j.LockedAt = &now
		claimed = append(claimed, *j)
	}
	return claimed, nil
}

func (f *fakeJobRepo) MarkSent(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return repository.ErrJobNotFound
	}
	j.Status = models.StatusSent
	j.Attempts++
	j.LastError = ""
	j.LockedAt = nil
	return nil
}

func (f *fakeJobRepo) MarkFailedOrRetry(ctx context.Context, id uuid.UUID, attempts int, sendErr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return repository.ErrJobNotFound
	}
	if attempts+1 >= f.maxAttempts {
		j.Status = models.StatusFailed
	} else {
		j.Status = models.StatusPending
	}
	j.Attempts = attempts + 1
	j.LastError = sendErr
	j.LockedAt = nil
	return nil
}

func (f *fakeJobRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return repository.ErrJobNotFound
	}
	j.Status = models.StatusFailed
	j.LastError = reason
	j.LockedAt = nil
	return nil
}

func (f *fakeJobRepo) GetJobs(ctx context.Context, filter models.JobFilter) ([]models.NotificationJob, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.NotificationJob
	for _, id := range f.order {
		j := f.jobs[id]
		if filter.OrderID != "" && j.OrderID != filter.OrderID {
			continue
		}
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		if filter.Channel != "" && j.Channel != filter.Channel {
			continue
		}
		out = append(out, *j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out, int64(len(out)), nil
}

func (f *fakeJobRepo) GetJobByID(ctx context.Context, id uuid.UUID) (*models.NotificationJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, repository.ErrJobNotFound
	}
	copied := *j
	return &copied, nil
}

func (f *fakeJobRepo) byStatus(status string) []models.NotificationJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.NotificationJob
	for _, id := range f.order {
		if f.jobs[id].Status == status {
			out = append(out, *f.jobs[id])
		}
	}
	return out
}

type fakeOrderRepo struct {
	mu         sync.Mutex
	orders     map[string]*models.Order
	flagErrFor map[string]error
}

func newFakeOrderRepo(orders ...*models.Order) *fakeOrderRepo {
	f := &fakeOrderRepo{
		orders:     make(map[string]*models.Order),
		flagErrFor: make(map[string]error),
	}
	for _, o := range orders {
		copied := *o
		f.orders[o.ID] = &copied
	}
	return f
}

func (f *fakeOrderRepo) FindByID(ctx context.Context, id string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	copied := *o
	return &copied, nil
}

func (f *fakeOrderRepo) FindDelayCandidates(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.orders {
		if len(out) >= limit {
			break
		}
		statusOK := o.Status == models.OrderStatusPaymentConfirmed ||
			o.Status == models.OrderStatusProcessing ||
			o.Status == models.OrderStatusPreparing
		if statusOK && o.TrackingNumber == "" && !o.DelayNoticeSent &&
			o.PaymentReceivedAt != nil && o.PaymentReceivedAt.Before(olderThan) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) FindReviewCandidates(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.orders {
		if len(out) >= limit {
			break
		}
		if o.Status == models.OrderStatusDelivered && !o.ReviewRequestSent &&
			o.DeliveredAt != nil && o.DeliveredAt.Before(olderThan) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) MarkDelayNoticeSent(ctx context.Context, id string) error {
	return f.setFlag(id, func(o *models.Order) { o.DelayNoticeSent = true })
}

func (f *fakeOrderRepo) MarkReviewRequestSent(ctx context.Context, id string) error {
	return f.setFlag(id, func(o *models.Order) { o.ReviewRequestSent = true })
}

func (f *fakeOrderRepo) setFlag(id string, set func(*models.Order)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.flagErrFor[id]; err != nil {
		return err
	}
	o, ok := f.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	set(o)
	return nil
}

type emailSend struct {
	to      string
	subject string
	html    string
	text    string
}

type fakeEmailSender struct {
	mu       sync.Mutex
	sends    []emailSend
	failNext int // fail this many calls before succeeding
}

func (f *fakeEmailSender) SendEmail(ctx context.Context, to, subject, html, text string) (sender.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return sender.SendResult{}, errors.New("smtp: connection refused")
	}
	f.sends = append(f.sends, emailSend{to: to, subject: subject, html: html, text: text})
	return sender.SendResult{MessageID: "fake-email", SentAt: time.Now()}, nil
}

type fakeSMSSender struct {
	mu       sync.Mutex
	sends    []string // destination numbers
	bodies   []string
	failNext int
}

func (f *fakeSMSSender) SendSMS(ctx context.Context, to, msg string) (sender.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return sender.SendResult{}, errors.New("twilio error 503: unavailable")
	}
	f.sends = append(f.sends, to)
	f.bodies = append(f.bodies, msg)
	return sender.SendResult{MessageID: "fake-sms", SentAt: time.Now()}, nil
}
