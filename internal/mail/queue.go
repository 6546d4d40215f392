package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Fernatzoc/skynet-next/internal/application"
	"github.com/Fernatzoc/skynet-next/internal/logging"
)

// DefaultQueue is the durable queue carrying visit report jobs.
const DefaultQueue = "skynet.visit-reports"

// Publisher is the part of *amqp.Channel used to enqueue reports.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// QueuedMailer implements application.Mailer by publishing the report payload
// to RabbitMQ. The returned id is the AMQP message id; the provider id is only
// known to the consumer.
type QueuedMailer struct {
	publisher Publisher
	queue     string
	newID     func() string
	now       func() time.Time
	logger    *slog.Logger
}

var _ application.Mailer = (*QueuedMailer)(nil)

// NewQueuedMailer publishes to queue on publisher.
func NewQueuedMailer(publisher Publisher, queue string, logger *slog.Logger) *QueuedMailer {
	queue = strings.TrimSpace(queue)
	if queue == "" {
		queue = DefaultQueue
	}
	return &QueuedMailer{
		publisher: publisher,
		queue:     queue,
		newID:     uuid.NewString,
		now:       time.Now,
		logger:    logger,
	}
}

func (m *QueuedMailer) SendVisitReport(ctx context.Context, email application.VisitReportEmail) (string, error) {
	if m == nil || m.publisher == nil {
		return "", fmt.Errorf("QueuedMailer is nil")
	}
	if strings.TrimSpace(email.ClienteEmail) == "" {
		return "", ErrMissingRecipient
	}

	body, err := json.Marshal(email)
	if err != nil {
		return "", fmt.Errorf("encode visit report: %w", err)
	}
	id := m.newID()
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    id,
		Timestamp:    m.now().UTC(),
		Type:         "visit.report",
		Body:         body,
	}
	if err := m.publisher.PublishWithContext(ctx, "", m.queue, false, false, pub); err != nil {
		queueLogger(ctx, m.logger).Error("visit report publish failed", "queue", m.queue, "visit_id", email.VisitaID, "error", err)
		return "", fmt.Errorf("publish visit report: %w", err)
	}
	queueLogger(ctx, m.logger).Info("visit report queued", "queue", m.queue, "visit_id", email.VisitaID, "message_id", id)
	return id, nil
}

// Connection is an open AMQP connection with a channel on which the report
// queue has been declared.
type Connection struct {
	conn    *amqp.Connection
	Channel *amqp.Channel
	Queue   string
}

// Dial connects to url and declares the durable report queue.
func Dial(url, queue string) (*Connection, error) {
	queue = strings.TrimSpace(queue)
	if queue == "" {
		queue = DefaultQueue
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp queue declare: %w", err)
	}
	return &Connection{conn: conn, Channel: ch, Queue: queue}, nil
}

// Deliveries starts consuming the report queue with manual acknowledgements.
func (c *Connection) Deliveries(prefetch int) (<-chan amqp.Delivery, error) {
	if prefetch > 0 {
		if err := c.Channel.Qos(prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("amqp qos: %w", err)
		}
	}
	deliveries, err := c.Channel.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("amqp consume: %w", err)
	}
	return deliveries, nil
}

// Close closes the channel and the connection.
func (c *Connection) Close() error {
	if c == nil {
		return nil
	}
	chErr := c.Channel.Close()
	connErr := c.conn.Close()
	return errors.Join(chErr, connErr)
}

// Consumer drains queued visit reports into a delivering mailer.
type Consumer struct {
	mailer application.Mailer
	logger *slog.Logger
}

// NewConsumer hands every queued report to mailer.
func NewConsumer(mailer application.Mailer, logger *slog.Logger) *Consumer {
	return &Consumer{mailer: mailer, logger: logger}
}

// Run processes deliveries until ctx is done or the channel closes.
// Undecodable messages are dropped. A failed send is requeued once; a
// redelivered message that fails again is dropped.
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	if c == nil || c.mailer == nil {
		return fmt.Errorf("Consumer is nil")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	logger := queueLogger(ctx, c.logger).With("message_id", d.MessageId)

	var email application.VisitReportEmail
	if err := json.Unmarshal(d.Body, &email); err != nil {
		logger.Error("dropping undecodable visit report", "error", err)
		_ = d.Nack(false, false)
		return
	}

	id, err := c.mailer.SendVisitReport(ctx, email)
	if err != nil {
		requeue := !d.Redelivered && !errors.Is(err, ErrMissingRecipient)
		logger.Warn("visit report delivery failed", "visit_id", email.VisitaID, "requeue", requeue, "error", err)
		_ = d.Nack(false, requeue)
		return
	}
	logger.Info("visit report delivered", "visit_id", email.VisitaID, "email_id", id)
	_ = d.Ack(false)
}

func queueLogger(ctx context.Context, base *slog.Logger) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return logger.With("component", "report_queue")
}
