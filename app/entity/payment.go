package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	StatusPending    PaymentStatus = "PENDING"
	StatusProcessing PaymentStatus = "PROCESSING"
	StatusApproved   PaymentStatus = "APPROVED"
	StatusRejected   PaymentStatus = "REJECTED"
	StatusFailed     PaymentStatus = "FAILED"
)

var ErrInvalidTransition = errors.New("invalid payment status transition")

// Terminal reports whether no further gateway interaction may occur.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusFailed:
		return true
	default:
		return false
	}
}

// Payment is one billing attempt for a work order. ID, WorkOrderID, PayerID,
// Amount and CreatedAt never change after construction; everything else moves
// through the transition methods below.
type Payment struct {
	ID          string
	WorkOrderID string
	PayerID     string
	Amount      decimal.Decimal

	Status PaymentStatus

	ExternalPaymentID *string
	ExternalOrderID   *string
	PaymentMethod     *string
	QRCode            *string
	QRCodeBase64      *string

	ErrorMessage *string

	CreatedAt   time.Time
	ProcessedAt *time.Time
}

func NewPayment(id, workOrderID, payerID string, amount decimal.Decimal) *Payment {
	return &Payment{
		ID:          id,
		WorkOrderID: workOrderID,
		PayerID:     payerID,
		Amount:      amount,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}

// MarkProcessing records the gateway submission response. Only a PENDING
// payment may be submitted.
func (p *Payment) MarkProcessing(externalPaymentID, externalOrderID, paymentMethod, qrCode, qrCodeBase64 string) error {
	if p.Status != StatusPending {
		return transitionError(p.Status, StatusProcessing)
	}
	p.Status = StatusProcessing
	p.ExternalPaymentID = optionalString(externalPaymentID)
	p.ExternalOrderID = optionalString(externalOrderID)
	p.PaymentMethod = optionalString(paymentMethod)
	p.QRCode = optionalString(qrCode)
	p.QRCodeBase64 = optionalString(qrCodeBase64)
	return nil
}

func (p *Payment) MarkApproved() error {
	if p.Status != StatusProcessing {
		return transitionError(p.Status, StatusApproved)
	}
	p.Status = StatusApproved
	p.setProcessedAt()
	return nil
}

func (p *Payment) MarkRejected(errorMessage string) error {
	if p.Status != StatusProcessing {
		return transitionError(p.Status, StatusRejected)
	}
	p.Status = StatusRejected
	p.ErrorMessage = optionalString(errorMessage)
	p.setProcessedAt()
	return nil
}

// MarkFailed is reachable from any non-terminal state.
func (p *Payment) MarkFailed(errorMessage string) error {
	if p.Status.Terminal() {
		return transitionError(p.Status, StatusFailed)
	}
	p.Status = StatusFailed
	p.ErrorMessage = optionalString(errorMessage)
	p.setProcessedAt()
	return nil
}

func (p *Payment) setProcessedAt() {
	if p.ProcessedAt == nil {
		now := time.Now().UTC()
		p.ProcessedAt = &now
	}
}

func transitionError(from, to PaymentStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
