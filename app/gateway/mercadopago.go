package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

const defaultBaseURL = "https://api.mercadopago.com"

var ErrOrderNotFound = errors.New("order not found")

type MercadoPagoConfig struct {
	AccessToken string
	BaseURL     string
	HTTPTimeout time.Duration
}

// OrderInput is one instant-transfer submission. PayerEmail falls back to a
// sandbox address when empty, matching Mercado Pago test accounts.
type OrderInput struct {
	Amount         decimal.Decimal
	PayerEmail     string
	PayerFirstName string
	Description    string
}

// OrderResult carries the gateway's view of an order: correlation ids, the
// PIX presentation artifacts and the mapped status. ErrorMessage is set only
// when the mapped status is REJECTED.
type OrderResult struct {
	ExternalPaymentID string
	ExternalOrderID   string
	PaymentMethod     string
	QRCode            string
	QRCodeBase64      string
	Status            entity.PaymentStatus
	ErrorMessage      string
}

type MercadoPagoClient struct {
	cfg    MercadoPagoConfig
	client *http.Client
}

func NewMercadoPagoClient(cfg MercadoPagoConfig) *MercadoPagoClient {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &MercadoPagoClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// CreateOrder submits a new PIX order. Every call carries a fresh
// X-Idempotency-Key; replay protection across invocations lives in the
// payment store, not here.
func (c *MercadoPagoClient) CreateOrder(ctx context.Context, input *OrderInput) (*OrderResult, error) {
	if strings.TrimSpace(c.cfg.AccessToken) == "" {
		return nil, errors.New("mercado pago access token is not configured")
	}

	payerEmail := strings.TrimSpace(input.PayerEmail)
	if payerEmail == "" {
		payerEmail = "test@testuser.com"
	}

	amount := input.Amount.StringFixed(2)
	payload := &orderRequest{
		Type:              "online",
		ExternalReference: "order_ref_" + uuid.NewString(),
		TotalAmount:       amount,
		Description:       strings.TrimSpace(input.Description),
		Payer: orderPayer{
			Email:     payerEmail,
			FirstName: strings.TrimSpace(input.PayerFirstName),
		},
		Transactions: orderTransactions{
			Payments: []orderPayment{
				{
					Amount: amount,
					PaymentMethod: orderPaymentMethod{
						ID:   "pix",
						Type: "bank_transfer",
					},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("X-Idempotency-Key", uuid.NewString())
	req.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var order orderResponse
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, err
	}
	if strings.TrimSpace(order.ID) == "" {
		return nil, errors.New("mercado pago order response missing id")
	}

	return resultFromOrder(&order), nil
}

// GetOrderStatus queries the current state of an existing order.
func (c *MercadoPagoClient) GetOrderStatus(ctx context.Context, externalOrderID string) (*OrderResult, error) {
	if strings.TrimSpace(externalOrderID) == "" {
		return nil, errors.New("external order id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/orders/"+url.PathEscape(externalOrderID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: id=%s", ErrOrderNotFound, externalOrderID)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("mercado pago get order failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var order orderResponse
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, err
	}

	return resultFromOrder(&order), nil
}

func (c *MercadoPagoClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("mercado pago request failed: path=%s status=%d body=%s", req.URL.Path, resp.StatusCode, string(body))
	}

	return body, nil
}

type orderRequest struct {
	Type              string            `json:"type"`
	ExternalReference string            `json:"external_reference"`
	TotalAmount       string            `json:"total_amount"`
	Description       string            `json:"description,omitempty"`
	Payer             orderPayer        `json:"payer"`
	Transactions      orderTransactions `json:"transactions"`
}

type orderPayer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
}

type orderTransactions struct {
	Payments []orderPayment `json:"payments"`
}

type orderPayment struct {
	Amount        string             `json:"amount"`
	PaymentMethod orderPaymentMethod `json:"payment_method"`
}

type orderPaymentMethod struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type orderResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Transactions struct {
		Payments []struct {
			ID                 string `json:"id"`
			Status             string `json:"status"`
			StatusDetail       string `json:"status_detail"`
			PointOfInteraction struct {
				TransactionData struct {
					QRCode       string `json:"qr_code"`
					QRCodeBase64 string `json:"qr_code_base64"`
				} `json:"transaction_data"`
			} `json:"point_of_interaction"`
		} `json:"payments"`
	} `json:"transactions"`
}

func resultFromOrder(order *orderResponse) *OrderResult {
	result := &OrderResult{
		ExternalPaymentID: order.ID,
		ExternalOrderID:   order.ID,
		PaymentMethod:     "pix",
		Status:            mapStatus(order.Status),
	}

	if len(order.Transactions.Payments) > 0 {
		payment := order.Transactions.Payments[0]
		if strings.TrimSpace(payment.ID) != "" {
			result.ExternalPaymentID = payment.ID
		}
		if strings.TrimSpace(payment.Status) != "" {
			result.Status = mapStatus(payment.Status)
		}
		result.QRCode = payment.PointOfInteraction.TransactionData.QRCode
		result.QRCodeBase64 = payment.PointOfInteraction.TransactionData.QRCodeBase64
		if result.Status == entity.StatusRejected {
			result.ErrorMessage = payment.StatusDetail
		}
	}

	return result
}

func mapStatus(raw string) entity.PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved", "processed", "accredited":
		return entity.StatusApproved
	case "rejected", "cancelled":
		return entity.StatusRejected
	case "pending", "processing":
		return entity.StatusProcessing
	default:
		return entity.StatusProcessing
	}
}
