package entity

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func newTestPayment() *Payment {
	return NewPayment("pay-1", "wo-1", "payer-1", decimal.NewFromInt(100))
}

func TestNewPaymentStartsPending(t *testing.T) {
	p := newTestPayment()
	if p.Status != StatusPending {
		t.Fatalf("expected pending status, got %s", p.Status)
	}
	if p.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
	if p.ProcessedAt != nil {
		t.Fatal("expected processed_at to be unset for pending payment")
	}
}

func TestMarkProcessingRecordsGatewayFields(t *testing.T) {
	p := newTestPayment()
	if err := p.MarkProcessing("ext-1", "order-1", "pix", "qr-data", "cXItZGF0YQ=="); err != nil {
		t.Fatalf("mark processing failed: %v", err)
	}
	if p.Status != StatusProcessing {
		t.Fatalf("expected processing status, got %s", p.Status)
	}
	if p.ExternalPaymentID == nil || *p.ExternalPaymentID != "ext-1" {
		t.Fatalf("unexpected external payment id: %v", p.ExternalPaymentID)
	}
	if p.ExternalOrderID == nil || *p.ExternalOrderID != "order-1" {
		t.Fatalf("unexpected external order id: %v", p.ExternalOrderID)
	}
	if p.ProcessedAt != nil {
		t.Fatal("expected processed_at to remain unset while processing")
	}
}

func TestMarkApprovedSetsProcessedAt(t *testing.T) {
	p := newTestPayment()
	_ = p.MarkProcessing("ext-1", "order-1", "pix", "", "")
	if err := p.MarkApproved(); err != nil {
		t.Fatalf("mark approved failed: %v", err)
	}
	if p.Status != StatusApproved {
		t.Fatalf("expected approved status, got %s", p.Status)
	}
	if p.ProcessedAt == nil {
		t.Fatal("expected processed_at to be set on approval")
	}
}

func TestMarkRejectedCarriesErrorMessage(t *testing.T) {
	p := newTestPayment()
	_ = p.MarkProcessing("ext-1", "order-1", "pix", "", "")
	if err := p.MarkRejected("insufficient funds"); err != nil {
		t.Fatalf("mark rejected failed: %v", err)
	}
	if p.ErrorMessage == nil || *p.ErrorMessage != "insufficient funds" {
		t.Fatalf("unexpected error message: %v", p.ErrorMessage)
	}
	if p.ProcessedAt == nil {
		t.Fatal("expected processed_at to be set on rejection")
	}
}

func TestMarkFailedFromPendingAndProcessing(t *testing.T) {
	pending := newTestPayment()
	if err := pending.MarkFailed("gateway unavailable"); err != nil {
		t.Fatalf("mark failed from pending: %v", err)
	}

	processing := newTestPayment()
	_ = processing.MarkProcessing("ext-1", "order-1", "pix", "", "")
	if err := processing.MarkFailed("gateway unavailable"); err != nil {
		t.Fatalf("mark failed from processing: %v", err)
	}
	if processing.ProcessedAt == nil {
		t.Fatal("expected processed_at to be set on failure")
	}
}

func TestTerminalStatesRejectFurtherTransitions(t *testing.T) {
	rejected := newTestPayment()
	_ = rejected.MarkProcessing("ext-1", "order-1", "pix", "", "")
	_ = rejected.MarkRejected("declined")

	if err := rejected.MarkApproved(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition rejected->approved, got %v", err)
	}
	if err := rejected.MarkFailed("boom"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition rejected->failed, got %v", err)
	}
	if err := rejected.MarkProcessing("x", "y", "pix", "", ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition rejected->processing, got %v", err)
	}
}

func TestApproveRequiresProcessing(t *testing.T) {
	p := newTestPayment()
	if err := p.MarkApproved(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition pending->approved, got %v", err)
	}
}

func TestTerminalPredicate(t *testing.T) {
	for status, terminal := range map[PaymentStatus]bool{
		StatusPending:    false,
		StatusProcessing: false,
		StatusApproved:   true,
		StatusRejected:   true,
		StatusFailed:     true,
	} {
		if status.Terminal() != terminal {
			t.Fatalf("status %s: expected terminal=%v", status, terminal)
		}
	}
}
