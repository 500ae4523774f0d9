package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/saicare2025/dinarexchangenz-sub001/models"
	"github.com/saicare2025/dinarexchangenz-sub001/render"
	"github.com/saicare2025/dinarexchangenz-sub001/repository"
	"github.com/saicare2025/dinarexchangenz-sub001/sender"

	"go.uber.org/zap"
)

const fallbackSubject = "An update regarding your Dinar Exchange order"

type WorkerConfig struct {
	EmailBatchSize int
	SMSBatchSize   int
	CountryCode    string // calling code replacing the trunk prefix, e.g. "+64"
	SendTimeout    time.Duration
}

// Worker drains the notification queue. One RunOnce call is one bounded pass:
// claim a batch per channel, render, send, record the outcome. The worker
// holds no state between calls; overlap safety rests on ClaimBatch.
type Worker struct {
	jobs     repository.JobRepository
	orders   repository.OrderRepository
	renderer *render.Renderer
	email    sender.EmailSender
	sms      sender.SMSSender
	cfg      WorkerConfig
	logger   *zap.Logger
}

func NewWorker(
	jobs repository.JobRepository,
	orders repository.OrderRepository,
	renderer *render.Renderer,
	email sender.EmailSender,
	sms sender.SMSSender,
	cfg WorkerConfig,
	logger *zap.Logger,
) *Worker {
	if cfg.EmailBatchSize <= 0 {
		cfg.EmailBatchSize = 20
	}
	if cfg.SMSBatchSize <= 0 {
		cfg.SMSBatchSize = 50
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	return &Worker{
		jobs:     jobs,
		orders:   orders,
		renderer: renderer,
		email:    email,
		sms:      sms,
		cfg:      cfg,
		logger:   logger,
	}
}

// RunOnce processes the email phase then the SMS phase. A claim failure aborts
// only its own channel's phase; individual job failures never abort a batch.
func (w *Worker) RunOnce(ctx context.Context) (models.WorkerReport, error) {
	var report models.WorkerReport
	var emailErr, smsErr error

	jobs, err := w.jobs.ClaimBatch(ctx, models.ChannelEmail, w.cfg.EmailBatchSize)
	if err != nil {
		emailErr = err
		w.logger.Error("email claim failed", zap.Error(err))
	} else {
		report.Picked = len(jobs)
		for _, job := range jobs {
			if w.processEmailJob(ctx, job) {
				report.Sent++
			} else {
				report.Failed++
			}
		}
	}

	if w.sms == nil {
		if report.Picked > 0 || report.Sent > 0 {
			w.logger.Debug("sms sender not configured, skipping sms phase")
		}
		return report, emailErr
	}

	smsJobs, err := w.jobs.ClaimBatch(ctx, models.ChannelSMS, w.cfg.SMSBatchSize)
	if err != nil {
		smsErr = err
		w.logger.Error("sms claim failed", zap.Error(err))
	} else {
		report.SMSPicked = len(smsJobs)
		for _, job := range smsJobs {
			if w.processSMSJob(ctx, job) {
				report.SMSSent++
			} else {
				report.SMSFailed++
			}
		}
	}

	return report, errors.Join(emailErr, smsErr)
}

func (w *Worker) processEmailJob(ctx context.Context, job models.NotificationJob) bool {
	order, ok := w.resolveOrder(ctx, job)
	if !ok {
		return false
	}

	var subject, html, text string
	if job.Body != "" {
		subject = job.Subject
		if subject == "" {
			subject = fallbackSubject
		}
		html = job.Body
		text = render.StripHTML(job.Body)
	} else {
		msg, err := w.renderer.Render(job.EventType, order, models.ChannelEmail)
		if err != nil {
			w.recordFailure(ctx, job, "render: "+err.Error())
			return false
		}
		subject, html, text = msg.Subject, msg.HTML, msg.Text
		if job.Subject != "" {
			subject = job.Subject
		}
	}

	// Recipient reflects the order's current contact; the captured
	// destination is only the fallback when the live field is empty.
	to := order.Email
	if to == "" {
		to = job.Destination
	}
	if to == "" {
		w.recordFailure(ctx, job, "no email destination")
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.cfg.SendTimeout)
	defer cancel()

	if _, err := w.email.SendEmail(sendCtx, to, subject, html, text); err != nil {
		w.recordFailure(ctx, job, err.Error())
		return false
	}

	if err := w.jobs.MarkSent(ctx, job.ID); err != nil {
		w.logger.Error("failed to mark job sent",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}
	return true
}

func (w *Worker) processSMSJob(ctx context.Context, job models.NotificationJob) bool {
	order, ok := w.resolveOrder(ctx, job)
	if !ok {
		return false
	}

	var body string
	if job.Body != "" {
		body = job.Body
	} else {
		msg, err := w.renderer.Render(job.EventType, order, models.ChannelSMS)
		if err != nil {
			w.recordFailure(ctx, job, "render: "+err.Error())
			return false
		}
		body = msg.Text
	}

	to := order.Mobile
	if to == "" {
		to = job.Destination
	}
	if to == "" {
		w.recordFailure(ctx, job, "no sms destination")
		return false
	}
	to = normalizeNumber(to, w.cfg.CountryCode)

	sendCtx, cancel := context.WithTimeout(ctx, w.cfg.SendTimeout)
	defer cancel()

	if _, err := w.sms.SendSMS(sendCtx, to, body); err != nil {
		w.recordFailure(ctx, job, err.Error())
		return false
	}

	if err := w.jobs.MarkSent(ctx, job.ID); err != nil {
		w.logger.Error("failed to mark job sent",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}
	return true
}

// resolveOrder fetches the order snapshot fresh at send time so the message
// reflects the latest state. A missing order can never heal, so that job goes
// terminal immediately instead of burning retries.
func (w *Worker) resolveOrder(ctx context.Context, job models.NotificationJob) (*models.Order, bool) {
	order, err := w.orders.FindByID(ctx, job.OrderID)
	if err == nil {
		return order, true
	}

	if errors.Is(err, repository.ErrOrderNotFound) {
		if markErr := w.jobs.MarkFailed(ctx, job.ID, "order not found: "+job.OrderID); markErr != nil {
			w.logger.Error("failed to mark job failed",
				zap.String("job_id", job.ID.String()),
				zap.Error(markErr),
			)
		}
		return nil, false
	}

	w.recordFailure(ctx, job, "load order: "+err.Error())
	return nil, false
}

func (w *Worker) recordFailure(ctx context.Context, job models.NotificationJob, reason string) {
	w.logger.Warn("notification job attempt failed",
		zap.String("job_id", job.ID.String()),
		zap.String("order_id", job.OrderID),
		zap.String("event_type", job.EventType),
		zap.String("channel", job.Channel),
		zap.Int("attempt", job.Attempts+1),
		zap.String("reason", reason),
	)
	if err := w.jobs.MarkFailedOrRetry(ctx, job.ID, job.Attempts, reason); err != nil {
		w.logger.Error("failed to record job failure",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}
}

// normalizeNumber converts a national number to E.164: a leading trunk zero
// is replaced with the configured calling code, "00" with "+"; numbers
// already in international form pass through.
func normalizeNumber(num, countryCode string) string {
	n := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(num)
	switch {
	case strings.HasPrefix(n, "+"):
		return n
	case strings.HasPrefix(n, "00"):
		return "+" + n[2:]
	case strings.HasPrefix(n, "0") && countryCode != "":
		return countryCode + n[1:]
	default:
		return n
	}
}
