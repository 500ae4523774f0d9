package services

import (
	"context"
	"time"

	"github.com/saicare2025/dinarexchangenz-sub001/models"
	"github.com/saicare2025/dinarexchangenz-sub001/repository"

	"go.uber.org/zap"
)

type ScannerConfig struct {
	DelayThreshold  time.Duration // age of payment before a delay notice fires
	ReviewThreshold time.Duration // age of delivery before a review request fires
	Limit           int           // max orders examined per run
}

// Scanner converts time-based order conditions into notification jobs. Both
// scans are the same machine (find candidates past a threshold, enqueue, flip
// the order's flag) parameterized per trigger. Safe to re-run: the flag keeps
// an already-notified order out of the next pass.
type Scanner struct {
	orders   repository.OrderRepository
	enqueuer *Enqueuer
	cfg      ScannerConfig
	logger   *zap.Logger
}

func NewScanner(orders repository.OrderRepository, enqueuer *Enqueuer, cfg ScannerConfig, logger *zap.Logger) *Scanner {
	if cfg.DelayThreshold <= 0 {
		cfg.DelayThreshold = 7 * 24 * time.Hour
	}
	if cfg.ReviewThreshold <= 0 {
		cfg.ReviewThreshold = 7 * 24 * time.Hour
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}
	return &Scanner{orders: orders, enqueuer: enqueuer, cfg: cfg, logger: logger}
}

type scanSpec struct {
	message   string
	event     string
	threshold time.Duration
	find      func(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error)
	flag      func(ctx context.Context, id string) error
}

func (s *Scanner) RunDelayScan(ctx context.Context) (models.ScanReport, error) {
	return s.run(ctx, scanSpec{
		message:   "delay scan complete",
		event:     models.TypeDelayNotice,
		threshold: s.cfg.DelayThreshold,
		find:      s.orders.FindDelayCandidates,
		flag:      s.orders.MarkDelayNoticeSent,
	})
}

func (s *Scanner) RunReviewScan(ctx context.Context) (models.ScanReport, error) {
	return s.run(ctx, scanSpec{
		message:   "review scan complete",
		event:     models.TypeReviewRequest,
		threshold: s.cfg.ReviewThreshold,
		find:      s.orders.FindReviewCandidates,
		flag:      s.orders.MarkReviewRequestSent,
	})
}

func (s *Scanner) run(ctx context.Context, spec scanSpec) (models.ScanReport, error) {
	olderThan := time.Now().Add(-spec.threshold)

	orders, err := spec.find(ctx, olderThan, s.cfg.Limit)
	if err != nil {
		return models.ScanReport{}, err
	}

	report := models.ScanReport{
		Message: spec.message,
		Total:   len(orders),
		Results: make([]models.OrderScanResult, 0, len(orders)),
	}

	for _, order := range orders {
		result := models.OrderScanResult{OrderID: order.ID}

		// One order's failure is recorded, not propagated: the rest of the
		// batch still runs.
		if _, err := s.enqueuer.Enqueue(ctx, order.ID, spec.event, EnqueueOptions{}); err != nil {
			result.Error = err.Error()
			s.logger.Error("scan enqueue failed",
				zap.String("order_id", order.ID),
				zap.String("event_type", spec.event),
				zap.Error(err),
			)
			report.Results = append(report.Results, result)
			continue
		}
		result.Enqueued = true
		report.Processed++

		// Flag write comes after enqueue. If it fails the order is re-scanned
		// next run; a duplicate notice beats a lost one.
		if err := spec.flag(ctx, order.ID); err != nil {
			result.Error = "flag update failed: " + err.Error()
			s.logger.Warn("scan flag update failed",
				zap.String("order_id", order.ID),
				zap.String("event_type", spec.event),
				zap.Error(err),
			)
		}

		report.Results = append(report.Results, result)
	}

	return report, nil
}
