package entity

import "time"

const (
	EventPaymentCreated    = "payment_created"
	EventPaymentProcessing = "payment_processing"
	EventPaymentApproved   = "payment_approved"
	EventPaymentRejected   = "payment_rejected"
	EventPaymentFailed     = "payment_failed"
	EventPaymentReconciled = "payment_reconciled"
)

type PaymentEvent struct {
	ID uint64

	PaymentID   string
	WorkOrderID string

	EventType string

	OldStatus *PaymentStatus
	NewStatus PaymentStatus

	ErrorMessage *string

	CreatedAt time.Time
}
