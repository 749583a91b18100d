package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

const approvedOrderBody = `{
	"id": "ORD-123",
	"status": "processed",
	"transactions": {
		"payments": [
			{
				"id": "PAY-456",
				"status": "approved",
				"point_of_interaction": {
					"transaction_data": {
						"qr_code": "00020126pix-code",
						"qr_code_base64": "MDAwMjAxMjZwaXgtY29kZQ=="
					}
				}
			}
		]
	}
}`

func newTestClient(baseURL string) *MercadoPagoClient {
	return NewMercadoPagoClient(MercadoPagoConfig{
		AccessToken: "TEST-token",
		BaseURL:     baseURL,
	})
}

func TestCreateOrderParsesPixFields(t *testing.T) {
	var gotIdempotencyKey string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/orders" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer TEST-token" {
			t.Fatalf("unexpected authorization header: %s", r.Header.Get("Authorization"))
		}
		gotIdempotencyKey = r.Header.Get("X-Idempotency-Key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		_, _ = w.Write([]byte(approvedOrderBody))
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL).CreateOrder(context.Background(), &OrderInput{
		Amount:         decimal.RequireFromString("150.00"),
		PayerFirstName: "Ana",
		Description:    "Payment for order wo-1",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if gotIdempotencyKey == "" {
		t.Fatal("expected X-Idempotency-Key header")
	}
	if gotBody["total_amount"] != "150.00" {
		t.Fatalf("unexpected total_amount: %v", gotBody["total_amount"])
	}
	if result.ExternalOrderID != "ORD-123" {
		t.Fatalf("unexpected external order id: %s", result.ExternalOrderID)
	}
	if result.ExternalPaymentID != "PAY-456" {
		t.Fatalf("unexpected external payment id: %s", result.ExternalPaymentID)
	}
	if result.Status != entity.StatusApproved {
		t.Fatalf("unexpected status: %s", result.Status)
	}
	if result.QRCode != "00020126pix-code" || result.QRCodeBase64 == "" {
		t.Fatalf("unexpected qr fields: %q %q", result.QRCode, result.QRCodeBase64)
	}
	if result.PaymentMethod != "pix" {
		t.Fatalf("unexpected payment method: %s", result.PaymentMethod)
	}
}

func TestCreateOrderRejectedCarriesStatusDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"id": "ORD-9",
			"status": "rejected",
			"transactions": {"payments": [{"id": "PAY-9", "status": "rejected", "status_detail": "cc_rejected_insufficient_amount"}]}
		}`))
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL).CreateOrder(context.Background(), &OrderInput{Amount: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if result.Status != entity.StatusRejected {
		t.Fatalf("expected rejected status, got %s", result.Status)
	}
	if result.ErrorMessage != "cc_rejected_insufficient_amount" {
		t.Fatalf("unexpected error message: %s", result.ErrorMessage)
	}
}

func TestCreateOrderHTTPErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid access token"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateOrder(context.Background(), &OrderInput{Amount: decimal.NewFromInt(10)})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestCreateOrderRequiresAccessToken(t *testing.T) {
	client := NewMercadoPagoClient(MercadoPagoConfig{})
	if _, err := client.CreateOrder(context.Background(), &OrderInput{Amount: decimal.NewFromInt(10)}); err == nil {
		t.Fatal("expected error when access token missing")
	}
}

func TestGetOrderStatusMapsStatuses(t *testing.T) {
	cases := map[string]entity.PaymentStatus{
		"approved":   entity.StatusApproved,
		"processed":  entity.StatusApproved,
		"accredited": entity.StatusApproved,
		"rejected":   entity.StatusRejected,
		"cancelled":  entity.StatusRejected,
		"pending":    entity.StatusProcessing,
		"processing": entity.StatusProcessing,
		"weird":      entity.StatusProcessing,
	}

	for raw, want := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/orders/ORD-1" {
				t.Fatalf("unexpected path: %s", r.URL.Path)
			}
			_, _ = w.Write([]byte(`{"id":"ORD-1","status":"` + raw + `","transactions":{"payments":[{"id":"PAY-1","status":"` + raw + `"}]}}`))
		}))

		result, err := newTestClient(srv.URL).GetOrderStatus(context.Background(), "ORD-1")
		srv.Close()
		if err != nil {
			t.Fatalf("get order status for %q failed: %v", raw, err)
		}
		if result.Status != want {
			t.Fatalf("status %q: expected %s, got %s", raw, want, result.Status)
		}
	}
}

func TestGetOrderStatusNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetOrderStatus(context.Background(), "missing")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
