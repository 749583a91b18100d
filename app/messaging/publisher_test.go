package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
	"github.com/vibast-solutions/ms-go-billing/app/factory"
	"github.com/vibast-solutions/ms-go-billing/app/types"
)

type captureWriter struct {
	messages []kafka.Message
	writeErr error
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.writeErr != nil {
		return w.writeErr
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func newTestPublisher() (*Publisher, *captureWriter, *captureWriter) {
	success := &captureWriter{}
	failure := &captureWriter{}
	p := &Publisher{
		success: success,
		failure: failure,
		logger:  factory.NewModuleLogger("billing-publisher"),
	}
	return p, success, failure
}

func paymentWithStatus(t *testing.T, status entity.PaymentStatus) *entity.Payment {
	t.Helper()
	p := entity.NewPayment("pay-1", "wo-1", "payer-1", decimal.NewFromInt(100))
	switch status {
	case entity.StatusPending:
	case entity.StatusProcessing:
		_ = p.MarkProcessing("ext-1", "order-1", "pix", "", "")
	case entity.StatusApproved:
		_ = p.MarkProcessing("ext-1", "order-1", "pix", "", "")
		_ = p.MarkApproved()
	case entity.StatusRejected:
		_ = p.MarkProcessing("ext-1", "order-1", "pix", "", "")
		_ = p.MarkRejected("declined")
	case entity.StatusFailed:
		_ = p.MarkFailed("boom")
	}
	return p
}

func TestPublishRoutesByOutcomePolarity(t *testing.T) {
	routes := map[entity.PaymentStatus]bool{
		entity.StatusApproved:   true,
		entity.StatusProcessing: true,
		entity.StatusPending:    false,
		entity.StatusRejected:   false,
		entity.StatusFailed:     false,
	}

	for status, positive := range routes {
		p, success, failure := newTestPublisher()
		if err := p.Publish(context.Background(), paymentWithStatus(t, status)); err != nil {
			t.Fatalf("publish %s failed: %v", status, err)
		}
		if positive && (len(success.messages) != 1 || len(failure.messages) != 0) {
			t.Fatalf("status %s: expected success route, got success=%d failure=%d", status, len(success.messages), len(failure.messages))
		}
		if !positive && (len(failure.messages) != 1 || len(success.messages) != 0) {
			t.Fatalf("status %s: expected failure route, got success=%d failure=%d", status, len(success.messages), len(failure.messages))
		}
	}
}

func TestPublishPayloadCarriesWorkOrder(t *testing.T) {
	p, success, _ := newTestPublisher()
	if err := p.Publish(context.Background(), paymentWithStatus(t, entity.StatusApproved)); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	msg := success.messages[0]
	if string(msg.Key) != "wo-1" {
		t.Fatalf("unexpected message key: %s", string(msg.Key))
	}

	var payload types.PaymentResponseMessage
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.WorkOrderID != "wo-1" || payload.PaymentID != "pay-1" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.Status != string(entity.StatusApproved) {
		t.Fatalf("unexpected payload status: %s", payload.Status)
	}
}

func TestPublishReturnsWriterError(t *testing.T) {
	p, success, _ := newTestPublisher()
	success.writeErr = errors.New("broker unavailable")

	if err := p.Publish(context.Background(), paymentWithStatus(t, entity.StatusApproved)); err == nil {
		t.Fatal("expected writer error to surface")
	}
}
