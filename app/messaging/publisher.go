package messaging

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
	"github.com/vibast-solutions/ms-go-billing/app/factory"
	"github.com/vibast-solutions/ms-go-billing/app/mapper"
	"github.com/vibast-solutions/ms-go-billing/app/tracing"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher routes processed payment records to the success or failure
// response topic. APPROVED and PROCESSING are positive outcomes; everything
// else routes to the failure topic.
type Publisher struct {
	success messageWriter
	failure messageWriter
	logger  logrus.FieldLogger
}

func NewPublisher(brokers []string, successTopic, failureTopic string) *Publisher {
	return &Publisher{
		success: newWriter(brokers, successTopic),
		failure: newWriter(brokers, failureTopic),
		logger:  factory.NewModuleLogger("billing-publisher"),
	}
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
}

func (p *Publisher) Publish(ctx context.Context, payment *entity.Payment) error {
	body, err := json.Marshal(mapper.PaymentToMessage(payment))
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:     []byte(payment.WorkOrderID),
		Value:   body,
		Headers: tracing.InjectKafkaHeaders(ctx, nil),
	}

	writer := p.failure
	if positiveOutcome(payment.Status) {
		writer = p.success
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"work_order_id": payment.WorkOrderID,
		"payment_id":    payment.ID,
		"status":        payment.Status,
	}).Info("Payment response published")

	return nil
}

func (p *Publisher) Close() error {
	errSuccess := p.success.Close()
	errFailure := p.failure.Close()
	if errSuccess != nil {
		return errSuccess
	}
	return errFailure
}

func positiveOutcome(status entity.PaymentStatus) bool {
	return status == entity.StatusApproved || status == entity.StatusProcessing
}
