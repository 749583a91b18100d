package service

import (
	"context"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

// RunReconcileBatch finalizes payments that legitimately stayed PROCESSING
// after the inline reconciliation (the gateway reported them still in flight).
// Each stale record is re-queried; terminal answers are persisted and
// dispatched to the response channel.
func (s *PaymentService) RunReconcileBatch(ctx context.Context) error {
	now := time.Now().UTC()
	before := now.Add(-s.billingCfg.ReconcileStaleAfter)

	items, err := s.paymentRepo.ListStaleProcessing(ctx, before, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, payment := range items {
		if payment == nil || payment.ExternalOrderID == nil || strings.TrimSpace(*payment.ExternalOrderID) == "" {
			continue
		}

		queried, err := s.gateway.GetOrderStatus(ctx, *payment.ExternalOrderID)
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}

		oldStatus := payment.Status
		switch queried.Status {
		case entity.StatusApproved:
			if err := payment.MarkApproved(); err != nil {
				firstErr = keepFirstErr(firstErr, err)
				continue
			}
		case entity.StatusRejected:
			if err := payment.MarkRejected(queried.ErrorMessage); err != nil {
				firstErr = keepFirstErr(firstErr, err)
				continue
			}
		default:
			continue
		}

		if err := s.paymentRepo.Update(ctx, payment); err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}

		s.recordEvent(ctx, payment, entity.EventPaymentReconciled, &oldStatus)
		s.notify(ctx, payment)
	}

	return firstErr
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
