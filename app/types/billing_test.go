package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func validRequestMessage() *PaymentRequestMessage {
	return &PaymentRequestMessage{
		WorkOrderID: "9c5de3f2-6a44-4e33-a2a0-76e41e8f0a01",
		CustomerID:  "0d1b2f6e-9f6b-4c58-8a32-4a9d2fa3b8d2",
		Amount:      decimal.RequireFromString("100.00"),
		Description: "work order repair",
		FirstName:   "Ana",
	}
}

func TestPaymentRequestMessageValidate(t *testing.T) {
	if err := validRequestMessage().Validate(); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}

	missingWorkOrder := validRequestMessage()
	missingWorkOrder.WorkOrderID = "  "
	if err := missingWorkOrder.Validate(); err == nil {
		t.Fatal("expected error for missing work_order_id")
	}

	missingCustomer := validRequestMessage()
	missingCustomer.CustomerID = ""
	if err := missingCustomer.Validate(); err == nil {
		t.Fatal("expected error for missing customer_id")
	}

	zeroAmount := validRequestMessage()
	zeroAmount.Amount = decimal.Zero
	if err := zeroAmount.Validate(); err == nil {
		t.Fatal("expected error for zero amount")
	}

	negativeAmount := validRequestMessage()
	negativeAmount.Amount = decimal.NewFromInt(-5)
	if err := negativeAmount.Validate(); err == nil {
		t.Fatal("expected error for negative amount")
	}
}

func TestPaymentRequestMessageUnmarshal(t *testing.T) {
	raw := `{"work_order_id":"wo-1","customer_id":"cust-1","amount":"250.50","first_name":"Ana"}`

	var msg PaymentRequestMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if msg.WorkOrderID != "wo-1" {
		t.Fatalf("unexpected work order id: %s", msg.WorkOrderID)
	}
	if !msg.Amount.Equal(decimal.RequireFromString("250.50")) {
		t.Fatalf("unexpected amount: %s", msg.Amount)
	}
	if err := msg.Validate(); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
}
