package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// PaymentRequestMessage is one payment attempt delivered through the request
// queue. The queue may redeliver the same message; processing must tolerate
// duplicates.
type PaymentRequestMessage struct {
	WorkOrderID string          `json:"work_order_id"`
	CustomerID  string          `json:"customer_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	FirstName   string          `json:"first_name,omitempty"`
}

func (m *PaymentRequestMessage) Validate() error {
	if strings.TrimSpace(m.WorkOrderID) == "" {
		return errors.New("work_order_id is required")
	}
	if strings.TrimSpace(m.CustomerID) == "" {
		return errors.New("customer_id is required")
	}
	if m.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("amount must be > 0")
	}
	return nil
}

// PaymentResponseMessage is published to the success or failure response
// topic once a payment reaches its outcome.
type PaymentResponseMessage struct {
	WorkOrderID       string `json:"work_order_id"`
	PaymentID         string `json:"payment_id"`
	Status            string `json:"status"`
	ExternalPaymentID string `json:"external_payment_id,omitempty"`
	ExternalOrderID   string `json:"external_order_id,omitempty"`
	ErrorMessage      string `json:"error_message,omitempty"`
}

// PaymentResponse is the HTTP representation of a payment record.
type PaymentResponse struct {
	ID                string `json:"id"`
	WorkOrderID       string `json:"work_order_id"`
	PayerID           string `json:"payer_id"`
	Amount            string `json:"amount"`
	Status            string `json:"status"`
	ExternalPaymentID string `json:"external_payment_id,omitempty"`
	ExternalOrderID   string `json:"external_order_id,omitempty"`
	PaymentMethod     string `json:"payment_method,omitempty"`
	QRCode            string `json:"qr_code,omitempty"`
	QRCodeBase64      string `json:"qr_code_base64,omitempty"`
	ErrorMessage      string `json:"error_message,omitempty"`
	CreatedAt         string `json:"created_at"`
	ProcessedAt       string `json:"processed_at,omitempty"`
}

type GetPaymentRequest struct {
	WorkOrderID string
}

func NewGetPaymentRequestFromContext(ctx echo.Context) *GetPaymentRequest {
	return &GetPaymentRequest{WorkOrderID: strings.TrimSpace(ctx.Param("workOrderId"))}
}

func (r *GetPaymentRequest) Validate() error {
	if r.WorkOrderID == "" {
		return errors.New("work order id is required")
	}
	return nil
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
