package models

import "time"

const (
	OrderStatusReceived         = "received"
	OrderStatusAwaitingID       = "awaiting_id"
	OrderStatusAwaitingPayment  = "awaiting_payment"
	OrderStatusPaymentConfirmed = "payment_confirmed"
	OrderStatusProcessing       = "processing"
	OrderStatusPreparing        = "preparing"
	OrderStatusShipped          = "shipped"
	OrderStatusDelivered        = "delivered"
	OrderStatusCompleted        = "completed"
)

// StatusLabel maps an order status to the customer-facing wording used in
// notification bodies.
var statusLabels = map[string]string{
	OrderStatusReceived:         "Order Received",
	OrderStatusAwaitingID:       "Awaiting Photo ID",
	OrderStatusAwaitingPayment:  "Awaiting Payment",
	OrderStatusPaymentConfirmed: "Payment Confirmed",
	OrderStatusProcessing:       "Processing",
	OrderStatusPreparing:        "Preparing for Shipment",
	OrderStatusShipped:          "Shipped",
	OrderStatusDelivered:        "Delivered",
	OrderStatusCompleted:        "Completed",
}

func StatusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

// Order is the customer order row. The notification core owns only the two
// *_sent flags; everything else is written by the order intake/admin flows.
type Order struct {
	ID                string     `json:"id" gorm:"primaryKey"`
	FullName          string     `json:"full_name"`
	Email             string     `json:"email"`
	Mobile            string     `json:"mobile"`
	Status            string     `json:"status" gorm:"index"`
	TrackingNumber    string     `json:"tracking_number,omitempty"`
	PaymentReceivedAt *time.Time `json:"payment_received_at,omitempty"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
	DelayNoticeSent   bool       `json:"delay_notice_sent"`
	ReviewRequestSent bool       `json:"review_request_sent"`
	CreatedAt         time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}
