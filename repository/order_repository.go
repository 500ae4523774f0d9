package repository

import (
	"context"
	"errors"
	"time"

	"github.com/saicare2025/dinarexchangenz-sub001/models"

	"gorm.io/gorm"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderRepository reads order rows and writes the two notification-owned
// flags. Everything else on the order is owned by the intake/admin flows.
type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindDelayCandidates(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error)
	FindReviewCandidates(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error)
	MarkDelayNoticeSent(ctx context.Context, id string) error
	MarkReviewRequestSent(ctx context.Context, id string) error
}

type gormOrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &gormOrderRepository{db: db}
}

func (r *gormOrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindDelayCandidates returns paid orders that still have no tracking number
// after the delay threshold and have not been notified about it yet.
func (r *gormOrderRepository) FindDelayCandidates(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{
			models.OrderStatusPaymentConfirmed,
			models.OrderStatusProcessing,
			models.OrderStatusPreparing,
		}).
		Where("(tracking_number IS NULL OR tracking_number = '')").
		Where("payment_received_at IS NOT NULL AND payment_received_at < ?", olderThan).
		Where("delay_notice_sent = ?", false).
		Order("payment_received_at").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

// FindReviewCandidates returns delivered orders past the review window that
// have not been asked for a review yet.
func (r *gormOrderRepository) FindReviewCandidates(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ?", models.OrderStatusDelivered).
		Where("delivered_at IS NOT NULL AND delivered_at < ?", olderThan).
		Where("review_request_sent = ?", false).
		Order("delivered_at").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

func (r *gormOrderRepository) MarkDelayNoticeSent(ctx context.Context, id string) error {
	return r.setFlag(ctx, id, "delay_notice_sent")
}

func (r *gormOrderRepository) MarkReviewRequestSent(ctx context.Context, id string) error {
	return r.setFlag(ctx, id, "review_request_sent")
}

func (r *gormOrderRepository) setFlag(ctx context.Context, id, column string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update(column, true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
