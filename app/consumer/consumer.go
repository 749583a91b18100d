package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
	"github.com/vibast-solutions/ms-go-billing/app/factory"
	"github.com/vibast-solutions/ms-go-billing/app/service"
	"github.com/vibast-solutions/ms-go-billing/app/tracing"
	"github.com/vibast-solutions/ms-go-billing/app/types"
	"github.com/vibast-solutions/ms-go-billing/config"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type paymentProcessor interface {
	ProcessPayment(ctx context.Context, req *types.PaymentRequestMessage) (*entity.Payment, error)
}

// seenStore filters transport-level redeliveries. Optional; correctness does
// not depend on it. Seen must be a pure read: a message is marked only
// together with its offset commit, so that uncommitted messages still look
// unseen when the broker redelivers them.
type seenStore interface {
	Key(group, topic string, partition int, offset int64) string
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// Consumer reads payment request messages and drives them through the payment
// service. Offsets are committed only for messages that must not be
// redelivered: processed ones and malformed or invalid ones. Transient
// failures leave the offset uncommitted so the broker redelivers; the
// service's deduplication absorbs the retry.
type Consumer struct {
	reader messageReader
	svc    paymentProcessor
	seen   seenStore
	group  string
	logger *logrus.Entry
	tracer trace.Tracer
}

func NewConsumer(kafkaCfg config.KafkaConfig, svc paymentProcessor, seen seenStore) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: kafkaCfg.Brokers,
		Topic:   kafkaCfg.RequestTopic,
		GroupID: kafkaCfg.ConsumerGroup,
	})
	return newConsumer(reader, svc, seen, kafkaCfg.ConsumerGroup)
}

func newConsumer(reader messageReader, svc paymentProcessor, seen seenStore, group string) *Consumer {
	return &Consumer{
		reader: reader,
		svc:    svc,
		seen:   seen,
		group:  group,
		logger: factory.NewModuleLogger("payment-consumer"),
		tracer: otel.Tracer("payment-consumer"),
	}
}

// Run fetches messages until ctx is cancelled or the reader fails.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	l := c.logger.WithFields(logrus.Fields{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	if c.seen != nil {
		key := c.seen.Key(c.group, msg.Topic, msg.Partition, msg.Offset)
		seen, err := c.seen.Seen(ctx, key)
		if err != nil {
			// The store being down must not stall consumption.
			l.WithError(err).Warn("Seen-store check failed, processing anyway")
		} else if seen {
			l.Info("Duplicate message skipped")
			c.markAndCommit(ctx, msg, l)
			return
		}
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ProcessPaymentRequest")
	defer span.End()

	var req types.PaymentRequestMessage
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		l.WithError(err).Error("Malformed payment request message")
		c.markAndCommit(ctx, msg, l)
		return
	}

	payment, err := c.svc.ProcessPayment(msgCtx, &req)
	switch {
	case err == nil:
		l.WithFields(logrus.Fields{
			"work_order_id": payment.WorkOrderID,
			"payment_id":    payment.ID,
			"status":        payment.Status,
		}).Info("Payment request processed")
		c.markAndCommit(ctx, msg, l)

	case errors.Is(err, service.ErrInvalidRequest):
		// Redelivery cannot fix a bad payload.
		l.WithError(err).WithField("work_order_id", req.WorkOrderID).
			Error("Invalid payment request discarded")
		c.markAndCommit(ctx, msg, l)

	default:
		// Not marked, not committed: the broker redelivers and the message
		// must still look unseen then.
		l.WithError(err).WithField("work_order_id", req.WorkOrderID).
			Error("Payment request failed, leaving message for redelivery")
	}
}

// markAndCommit marks the message seen and commits its offset. Both are best
// effort: a failed mark only risks one extra ProcessPayment call, which the
// work order dedup absorbs.
func (c *Consumer) markAndCommit(ctx context.Context, msg kafka.Message, l *logrus.Entry) {
	if c.seen != nil {
		key := c.seen.Key(c.group, msg.Topic, msg.Partition, msg.Offset)
		if err := c.seen.Mark(ctx, key); err != nil {
			l.WithError(err).Warn("Seen-store mark failed")
		}
	}
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		l.WithError(err).Error("Offset commit failed")
	}
}
