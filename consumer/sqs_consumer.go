package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/saicare2025/dinarexchangenz-sub001/models"
	"github.com/saicare2025/dinarexchangenz-sub001/services"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// SQSConsumer drives the enqueuer from order lifecycle events published by
// the intake/admin flows (SNS fan-out into this service's queue). Enqueue
// failures never block the order flow: the message retries via the queue's
// visibility timeout.
type SQSConsumer struct {
	client   *sqs.Client
	queueURL string
	enqueuer *services.Enqueuer
	logger   *zap.Logger
}

func NewSQSConsumer(enqueuer *services.Enqueuer, logger *zap.Logger) (*SQSConsumer, error) {
	queueURL := os.Getenv("SQS_QUEUE_URL")
	if queueURL == "" {
		return nil, fmt.Errorf("SQS_QUEUE_URL not set")
	}

	cfg, err := loadAWSConfig(context.Background())
	if err != nil {
		return nil, err
	}

	return &SQSConsumer{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
		enqueuer: enqueuer,
		logger:   logger,
	}, nil
}

// loadAWSConfig supports a LocalStack endpoint via AWS_SQS_ENDPOINT or
// AWS_ENDPOINT for local development.
func loadAWSConfig(ctx context.Context) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return cfg, fmt.Errorf("failed to load aws config: %w", err)
	}

	endpoint := os.Getenv("AWS_SQS_ENDPOINT")
	if endpoint == "" {
		endpoint = os.Getenv("AWS_ENDPOINT")
	}
	if endpoint != "" {
		signingRegion := cfg.Region
		if signingRegion == "" {
			signingRegion = os.Getenv("AWS_REGION")
		}
		cfg.EndpointResolverWithOptions = aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				sr := signingRegion
				if sr == "" {
					sr = region
				}
				return aws.Endpoint{
					URL:               endpoint,
					SigningRegion:     sr,
					HostnameImmutable: true,
				}, nil
			})
	}

	return cfg, nil
}

func (c *SQSConsumer) Start(ctx context.Context) {
	c.logger.Info("SQS consumer started", zap.String("queue", c.queueURL))
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("SQS consumer shutting down")
			return
		default:
			c.poll(ctx)
		}
	}
}

func (c *SQSConsumer) poll(ctx context.Context) {
	output, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     5, // long polling
	})
	if err != nil {
		c.logger.Error("SQS receive error", zap.Error(err))
		time.Sleep(5 * time.Second)
		return
	}

	for _, msg := range output.Messages {
		c.processMessage(ctx, msg.Body, msg.ReceiptHandle)
	}
}

// snsEnvelope unwraps the SNS → SQS message wrapper
type snsEnvelope struct {
	Message string `json:"Message"`
}

func (c *SQSConsumer) processMessage(ctx context.Context, body *string, receiptHandle *string) {
	if body == nil || *body == "" {
		c.logger.Error("received empty SQS message body")
		return
	}
	if receiptHandle == nil || *receiptHandle == "" {
		c.logger.Error("received empty SQS receipt handle")
		return
	}

	var envelope snsEnvelope
	if err := json.Unmarshal([]byte(*body), &envelope); err != nil {
		c.logger.Error("failed to unmarshal SNS envelope", zap.Error(err))
		c.deleteMessage(ctx, receiptHandle) // unparseable, delete to avoid a poison loop
		return
	}

	var event models.LifecycleEvent
	if err := json.Unmarshal([]byte(envelope.Message), &event); err != nil {
		c.logger.Error("failed to unmarshal lifecycle event", zap.Error(err))
		c.deleteMessage(ctx, receiptHandle)
		return
	}

	if event.OrderID == "" || !models.ValidEventType(event.EventType) {
		c.logger.Error("discarding invalid lifecycle event",
			zap.String("order_id", event.OrderID),
			zap.String("event_type", event.EventType),
		)
		c.deleteMessage(ctx, receiptHandle)
		return
	}

	if _, err := c.enqueuer.Enqueue(ctx, event.OrderID, event.EventType, services.EnqueueOptions{}); err != nil {
		c.logger.Error("failed to enqueue from lifecycle event",
			zap.String("order_id", event.OrderID),
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
		return // retry after visibility timeout
	}

	c.deleteMessage(ctx, receiptHandle)
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		c.logger.Error("failed to delete SQS message", zap.Error(err))
	}
}
