package routes

import (
	"net/http"

	"github.com/saicare2025/dinarexchangenz-sub001/controllers"
	"github.com/saicare2025/dinarexchangenz-sub001/middleware"

	"github.com/gin-gonic/gin"
)

type Controllers struct {
	Cron         *controllers.CronController
	Notification *controllers.NotificationController
	Order        *controllers.OrderController
}

func RegisterRoutes(router *gin.Engine, ctrl Controllers, cronSecret string, rateLimit gin.HandlerFunc) {
	// Public
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": "order-notifier"})
	})
	router.GET("/orders/:id", rateLimit, ctrl.Order.GetOrderStatus)

	// Scheduler-triggered, shared-secret auth
	cron := router.Group("/cron", middleware.CronAuth(cronSecret))
	{
		cron.POST("/delivery-worker", ctrl.Cron.RunDeliveryWorker)
		cron.POST("/delay-scan", ctrl.Cron.RunDelayScan)
		cron.POST("/review-scan", ctrl.Cron.RunReviewScan)
	}

	// Developer / operator endpoints, behind the same secret
	dev := router.Group("/dev", middleware.CronAuth(cronSecret))
	{
		dev.POST("/enqueue-test", ctrl.Cron.EnqueueTest)
		dev.GET("/enqueue-test", ctrl.Cron.ListEventTypes)
	}

	ops := router.Group("/notifications", middleware.CronAuth(cronSecret))
	{
		ops.GET("/log", ctrl.Notification.GetJobLog)
	}
}
