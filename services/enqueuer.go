package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/saicare2025/dinarexchangenz-sub001/models"
	"github.com/saicare2025/dinarexchangenz-sub001/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EnqueueOptions customizes a single enqueue call. All fields are optional:
// channels default to whatever contact details the order carries, and the
// overrides exist for ad-hoc (custom) messages.
type EnqueueOptions struct {
	Channels    []string
	Destination string
	Subject     string
	Body        string
}

// Enqueuer inserts pending notification jobs when order lifecycle events
// occur. Callers in the order-mutation path must treat failures as
// best-effort: log and move on, never block the order flow.
type Enqueuer struct {
	jobs   repository.JobRepository
	orders repository.OrderRepository
	logger *zap.Logger
}

func NewEnqueuer(jobs repository.JobRepository, orders repository.OrderRepository, logger *zap.Logger) *Enqueuer {
	return &Enqueuer{jobs: jobs, orders: orders, logger: logger}
}

// Enqueue inserts one pending job per channel, capturing the destination at
// enqueue time. A channel with no destination is skipped, as is a channel
// that already has a non-terminal job for the same (order, event) pair.
func (e *Enqueuer) Enqueue(ctx context.Context, orderID, eventType string, opts EnqueueOptions) ([]uuid.UUID, error) {
	if !models.ValidEventType(eventType) {
		return nil, fmt.Errorf("unsupported event type: %s", eventType)
	}

	order, err := e.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s for order %s: %w", eventType, orderID, err)
	}

	channels := opts.Channels
	if len(channels) == 0 {
		if order.Email != "" {
			channels = append(channels, models.ChannelEmail)
		}
		if order.Mobile != "" {
			channels = append(channels, models.ChannelSMS)
		}
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("order %s has no contact details", orderID)
	}

	var ids []uuid.UUID
	var errs []error
	for _, channel := range channels {
		destination := opts.Destination
		if destination == "" {
			switch channel {
			case models.ChannelEmail:
				destination = order.Email
			case models.ChannelSMS:
				destination = order.Mobile
			}
		}
		if destination == "" {
			continue
		}

		active, err := e.jobs.HasActive(ctx, orderID, eventType, channel)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if active {
			e.logger.Debug("skipping duplicate enqueue",
				zap.String("order_id", orderID),
				zap.String("event_type", eventType),
				zap.String("channel", channel),
			)
			continue
		}

		job := &models.NotificationJob{
			ID:          uuid.New(),
			OrderID:     orderID,
			EventType:   eventType,
			Channel:     channel,
			Destination: destination,
			Subject:     opts.Subject,
			Body:        opts.Body,
			Status:      models.StatusPending,
		}
		if err := e.jobs.Create(ctx, job); err != nil {
			e.logger.Error("failed to enqueue notification job",
				zap.String("order_id", orderID),
				zap.String("event_type", eventType),
				zap.String("channel", channel),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		ids = append(ids, job.ID)
	}

	if len(ids) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return ids, nil
}
