package controllers

import (
	"context"
	"net/http"

	"github.com/saicare2025/dinarexchangenz-sub001/models"
	"github.com/saicare2025/dinarexchangenz-sub001/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CronController exposes the scheduler-triggered endpoints: one delivery
// worker pass and the two time-based scans. All of them sit behind the
// cron-secret middleware.
type CronController struct {
	worker   *services.Worker
	scanner  *services.Scanner
	enqueuer *services.Enqueuer
	logger   *zap.Logger
}

func NewCronController(worker *services.Worker, scanner *services.Scanner, enqueuer *services.Enqueuer, logger *zap.Logger) *CronController {
	return &CronController{worker: worker, scanner: scanner, enqueuer: enqueuer, logger: logger}
}

// RunDeliveryWorker executes one bounded queue pass. Jobs already marked
// sent/failed stay that way even when a later phase errors, so the report is
// returned alongside the error.
func (cc *CronController) RunDeliveryWorker(c *gin.Context) {
	report, err := cc.worker.RunOnce(c.Request.Context())
	if err != nil {
		cc.logger.Error("delivery worker pass failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      err.Error(),
			"picked":     report.Picked,
			"sent":       report.Sent,
			"failed":     report.Failed,
			"sms_picked": report.SMSPicked,
			"sms_sent":   report.SMSSent,
			"sms_failed": report.SMSFailed,
		})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (cc *CronController) RunDelayScan(c *gin.Context) {
	cc.runScan(c, cc.scanner.RunDelayScan)
}

func (cc *CronController) RunReviewScan(c *gin.Context) {
	cc.runScan(c, cc.scanner.RunReviewScan)
}

func (cc *CronController) runScan(c *gin.Context, scan func(ctx context.Context) (models.ScanReport, error)) {
	report, err := scan(c.Request.Context())
	if err != nil {
		cc.logger.Error("trigger scan failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

type enqueueTestRequest struct {
	OrderID   string `json:"order_id" binding:"required"`
	EventType string `json:"event_type" binding:"required"`
}

// EnqueueTest is the developer endpoint for inserting a job by hand.
func (cc *CronController) EnqueueTest(c *gin.Context) {
	var req enqueueTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ids, err := cc.enqueuer.Enqueue(c.Request.Context(), req.OrderID, req.EventType, services.EnqueueOptions{})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		jobIDs = append(jobIDs, id.String())
	}
	c.JSON(http.StatusOK, gin.H{"job_id": jobIDs})
}

// ListEventTypes is the GET variant of the test endpoint.
func (cc *CronController) ListEventTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"event_types": models.EventTypes})
}
