package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"

	StatusPending = "pending"
	StatusSending = "sending"
	StatusSent    = "sent"
	StatusFailed  = "failed"

	TypeOrderReceived   = "order_received"
	TypeMissingID       = "missing_id"
	TypeMissingPayment  = "missing_payment"
	TypeStatusUpdate    = "status_update"
	TypeTrackingAdded   = "tracking_added"
	TypeTrackingUpdated = "tracking_updated"
	TypeOrderCompleted  = "order_completed"
	TypeDelayNotice     = "delay_notice"
	TypeReviewRequest   = "review_request"
	TypeCustom          = "custom"
)

// EventTypes lists every supported event type, in the order shown by the
// enqueue-test endpoint.
var EventTypes = []string{
	TypeOrderReceived,
	TypeMissingID,
	TypeMissingPayment,
	TypeStatusUpdate,
	TypeTrackingAdded,
	TypeTrackingUpdated,
	TypeOrderCompleted,
	TypeDelayNotice,
	TypeReviewRequest,
	TypeCustom,
}

func ValidEventType(eventType string) bool {
	for _, t := range EventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

// NotificationJob is one queued notification: one order, one event, one
// channel. Rows are claimed pending → sending by the delivery worker and end
// in sent or failed; terminal rows are kept for audit. The order reference is
// a real foreign key, so a job can never be created for (or claimed against)
// an order the store does not know.
type NotificationJob struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID     string     `json:"order_id" gorm:"index"`
	Order       *Order     `json:"-" gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	EventType   string     `json:"event_type"`
	Channel     string     `json:"channel" gorm:"index:idx_jobs_channel_status"`
	Destination string     `json:"destination"`
	Subject     string     `json:"subject,omitempty"`
	Body        string     `json:"body,omitempty"`
	Status      string     `json:"status" gorm:"index:idx_jobs_channel_status"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"last_error,omitempty"`
	LockedAt    *time.Time `json:"locked_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

type JobFilter struct {
	OrderID  string
	Status   string
	Channel  string
	Page     int
	PageSize int
}

// WorkerReport is the response body of one delivery-worker pass.
type WorkerReport struct {
	Picked    int `json:"picked"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	SMSPicked int `json:"sms_picked"`
	SMSSent   int `json:"sms_sent"`
	SMSFailed int `json:"sms_failed"`
}

// OrderScanResult records the outcome for a single order within one trigger
// scan batch.
type OrderScanResult struct {
	OrderID  string `json:"order_id"`
	Enqueued bool   `json:"enqueued"`
	Error    string `json:"error,omitempty"`
}

type ScanReport struct {
	Message   string            `json:"message"`
	Processed int               `json:"processed"`
	Total     int               `json:"total"`
	Results   []OrderScanResult `json:"results"`
}

// LifecycleEvent is the payload published by the order flows (SNS → SQS) when
// an order is created or changes state.
type LifecycleEvent struct {
	EventType string `json:"event_type"`
	OrderID   string `json:"order_id"`
}
