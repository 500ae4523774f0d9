package controllers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/saicare2025/dinarexchangenz-sub001/models"
	"github.com/saicare2025/dinarexchangenz-sub001/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NotificationController serves the operator-facing job log. Customers never
// see delivery errors; operators follow up on failed rows from here.
type NotificationController struct {
	jobs   repository.JobRepository
	logger *zap.Logger
}

func NewNotificationController(jobs repository.JobRepository, logger *zap.Logger) *NotificationController {
	return &NotificationController{jobs: jobs, logger: logger}
}

const (
	maxPageSize     = 100
	defaultPage     = 1
	defaultPageSize = 20
)

func parsePaginationParams(ctx *gin.Context) (int, int) {
	page := defaultPage
	pageSize := defaultPageSize

	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("page_size", "20")); err == nil && l > 0 {
		pageSize = l
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}
	}
	return page, pageSize
}

func (nc *NotificationController) GetJobLog(ctx *gin.Context) {
	page, pageSize := parsePaginationParams(ctx)

	filter := models.JobFilter{
		OrderID:  ctx.Query("order_id"),
		Status:   ctx.Query("status"),
		Channel:  ctx.Query("channel"),
		Page:     page,
		PageSize: pageSize,
	}

	jobs, total, err := nc.jobs.GetJobs(ctx.Request.Context(), filter)
	if err != nil {
		nc.logger.Error("failed to get notification job log", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))

	ctx.JSON(http.StatusOK, gin.H{
		"data":        jobs,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": totalPages,
	})
}
