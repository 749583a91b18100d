package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
	"github.com/vibast-solutions/ms-go-billing/app/factory"
	"github.com/vibast-solutions/ms-go-billing/app/gateway"
	"github.com/vibast-solutions/ms-go-billing/app/repository"
	"github.com/vibast-solutions/ms-go-billing/app/types"
	"github.com/vibast-solutions/ms-go-billing/config"
)

const (
	defaultBatchSize      = int32(100)
	maxErrorMessageLength = 1024
)

type paymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	Update(ctx context.Context, payment *entity.Payment) error
	FindByWorkOrderID(ctx context.Context, workOrderID string) (*entity.Payment, error)
	ListStaleProcessing(ctx context.Context, before time.Time, limit int32) ([]*entity.Payment, error)
}

type paymentEventRepository interface {
	Create(ctx context.Context, event *entity.PaymentEvent) error
}

type paymentGateway interface {
	CreateOrder(ctx context.Context, input *gateway.OrderInput) (*gateway.OrderResult, error)
	GetOrderStatus(ctx context.Context, externalOrderID string) (*gateway.OrderResult, error)
}

type responsePublisher interface {
	Publish(ctx context.Context, payment *entity.Payment) error
}

type PaymentService struct {
	paymentRepo paymentRepository
	eventRepo   paymentEventRepository
	gateway     paymentGateway
	publisher   responsePublisher
	billingCfg  config.BillingConfig
	logger      logrus.FieldLogger
}

func NewPaymentService(
	paymentRepo paymentRepository,
	eventRepo paymentEventRepository,
	paymentGateway paymentGateway,
	publisher responsePublisher,
	billingCfg config.BillingConfig,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		eventRepo:   eventRepo,
		gateway:     paymentGateway,
		publisher:   publisher,
		billingCfg:  billingCfg,
		logger:      factory.NewModuleLogger("billing-service"),
	}
}

// ProcessPayment drives one payment request through deduplication, gateway
// submission and status reconciliation. It is safe to call repeatedly for the
// same work order: at most one gateway submission succeeds per work order, and
// every call converges to the authoritative record for it.
func (s *PaymentService) ProcessPayment(ctx context.Context, req *types.PaymentRequestMessage) (*entity.Payment, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	l := s.logger.WithField("work_order_id", req.WorkOrderID)

	existing, err := s.paymentRepo.FindByWorkOrderID(ctx, req.WorkOrderID)
	if err != nil {
		return nil, err
	}

	var payment *entity.Payment
	switch {
	case existing != nil && existing.Status != entity.StatusPending:
		// Retry after the outcome is already known: return it, do not touch
		// the gateway again.
		l.WithFields(logrus.Fields{"payment_id": existing.ID, "status": existing.Status}).
			Warn("Duplicate payment request, returning existing payment")
		return existing, nil

	case existing != nil:
		// A prior attempt crashed between record creation and submission.
		// Resume with the existing record's identity.
		l.WithField("payment_id", existing.ID).Info("Pending payment found, resuming processing")
		payment = existing

	default:
		payment = entity.NewPayment(uuid.NewString(), req.WorkOrderID, req.CustomerID, req.Amount)
		if err := s.paymentRepo.Create(ctx, payment); err != nil {
			if errors.Is(err, repository.ErrPaymentAlreadyExists) {
				return s.resolveCreationRace(ctx, req.WorkOrderID)
			}
			return nil, err
		}
		l.WithField("payment_id", payment.ID).Info("Payment created")
		s.recordEvent(ctx, payment, entity.EventPaymentCreated, nil)
	}

	result, err := s.submitAndReconcile(ctx, payment, req)
	if err != nil {
		s.failPayment(ctx, payment, err)
		return nil, fmt.Errorf("%w: work order %s: %w", ErrPaymentProcessing, req.WorkOrderID, err)
	}

	return result, nil
}

// resolveCreationRace handles the losing side of a concurrent creation: the
// store's uniqueness constraint rejected our insert, so the winner's record
// must exist. If it does not, something violated store semantics and the
// operation fails rather than risking a duplicate submission.
func (s *PaymentService) resolveCreationRace(ctx context.Context, workOrderID string) (*entity.Payment, error) {
	winner, err := s.paymentRepo.FindByWorkOrderID(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	if winner == nil {
		return nil, fmt.Errorf("%w: insert rejected as duplicate but no payment found for work order %s", ErrProcessingConflict, workOrderID)
	}

	s.logger.WithFields(logrus.Fields{"work_order_id": workOrderID, "payment_id": winner.ID}).
		Info("Concurrent duplicate detected, returning winner's payment")
	return winner, nil
}

func (s *PaymentService) submitAndReconcile(ctx context.Context, payment *entity.Payment, req *types.PaymentRequestMessage) (*entity.Payment, error) {
	l := s.logger.WithFields(logrus.Fields{"work_order_id": payment.WorkOrderID, "payment_id": payment.ID})

	description := req.Description
	if description == "" {
		description = "Payment for order " + req.WorkOrderID
	}

	submitted, err := s.gateway.CreateOrder(ctx, &gateway.OrderInput{
		Amount:         req.Amount,
		PayerFirstName: req.FirstName,
		Description:    description,
	})
	if err != nil {
		return nil, err
	}

	oldStatus := payment.Status
	if err := payment.MarkProcessing(
		submitted.ExternalPaymentID,
		submitted.ExternalOrderID,
		submitted.PaymentMethod,
		submitted.QRCode,
		submitted.QRCodeBase64,
	); err != nil {
		return nil, err
	}
	s.recordEvent(ctx, payment, entity.EventPaymentProcessing, &oldStatus)

	if err := s.reconcile(ctx, payment, submitted); err != nil {
		return nil, err
	}

	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, err
	}

	switch payment.Status {
	case entity.StatusApproved:
		s.recordEvent(ctx, payment, entity.EventPaymentApproved, nil)
	case entity.StatusRejected:
		s.recordEvent(ctx, payment, entity.EventPaymentRejected, nil)
	}

	l.WithField("status", payment.Status).Info("Payment processed")
	s.notify(ctx, payment)

	return payment, nil
}

// reconcile queries the gateway for the authoritative status of the order just
// created. The query is a best-effort freshness check: when it cannot be
// completed, the submission response's own status decides the outcome.
func (s *PaymentService) reconcile(ctx context.Context, payment *entity.Payment, submitted *gateway.OrderResult) error {
	queried, err := s.gateway.GetOrderStatus(ctx, submitted.ExternalOrderID)
	if err != nil {
		s.logger.WithError(err).WithField("payment_id", payment.ID).
			Warn("Status query failed, falling back to submission response")

		if submitted.Status == entity.StatusApproved {
			return payment.MarkApproved()
		}
		return payment.MarkRejected(submitted.ErrorMessage)
	}

	switch queried.Status {
	case entity.StatusApproved:
		return payment.MarkApproved()
	case entity.StatusRejected:
		return payment.MarkRejected(queried.ErrorMessage)
	default:
		// Still in flight at the gateway: stay PROCESSING, the reconcile job
		// picks it up later.
		return nil
	}
}

func (s *PaymentService) failPayment(ctx context.Context, payment *entity.Payment, cause error) {
	l := s.logger.WithFields(logrus.Fields{"work_order_id": payment.WorkOrderID, "payment_id": payment.ID})

	oldStatus := payment.Status
	if err := payment.MarkFailed(truncate(cause.Error(), maxErrorMessageLength)); err != nil {
		l.WithError(err).Error("Could not mark payment as failed")
		return
	}
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		l.WithError(err).Error("Could not persist failed payment")
	}
	s.recordEvent(ctx, payment, entity.EventPaymentFailed, &oldStatus)

	if s.billingCfg.NotifyOnFailure {
		s.notify(ctx, payment)
	}
}

// notify dispatches the record to the response channel. Best effort: delivery
// failure never propagates to the caller.
func (s *PaymentService) notify(ctx context.Context, payment *entity.Payment) {
	if err := s.publisher.Publish(ctx, payment); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"work_order_id": payment.WorkOrderID,
			"payment_id":    payment.ID,
		}).Warn("Payment response publish failed")
	}
}

func (s *PaymentService) recordEvent(ctx context.Context, payment *entity.Payment, eventType string, oldStatus *entity.PaymentStatus) {
	_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
		PaymentID:    payment.ID,
		WorkOrderID:  payment.WorkOrderID,
		EventType:    eventType,
		OldStatus:    oldStatus,
		NewStatus:    payment.Status,
		ErrorMessage: payment.ErrorMessage,
		CreatedAt:    time.Now().UTC(),
	})
}

// GetPaymentByWorkOrder is the one-record-per-order lookup used by the HTTP
// surface.
func (s *PaymentService) GetPaymentByWorkOrder(ctx context.Context, workOrderID string) (*entity.Payment, error) {
	payment, err := s.paymentRepo.FindByWorkOrderID(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

func (s *PaymentService) batchSize() int32 {
	if s.billingCfg.JobBatchSize > 0 {
		return s.billingCfg.JobBatchSize
	}
	return defaultBatchSize
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
