package queue

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"commonthread/internal/config"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	contentTypeJSON = "application/json"
	headerGroupID   = "x-group-id"
)

// RabbitBroker publishes persistent JSON messages to one durable queue and
// consumes them with manual acknowledgement.
type RabbitBroker struct {
	conn        *amqp.Connection
	chn         *amqp.Channel
	queue       string
	waitTime    time.Duration
	maxMessages int

	once     sync.Once
	msgs     <-chan amqp.Delivery
	startErr error
}

func NewRabbitBroker(cfg *config.QueueConfig) (*RabbitBroker, error) {
	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		return nil, fmt.Errorf(errFailedConnectBrokerFmt, err)
	}

	chn, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf(errFailedOpenChannelFmt, err)
	}

	_, err = chn.QueueDeclare(
		cfg.RabbitQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		chn.Close()
		conn.Close()
		return nil, fmt.Errorf(errFailedDeclareQueueFmt, err)
	}

	// Prefetch bounds the unacked deliveries to one batch.
	if err := chn.Qos(cfg.MaxMessages, 0, false); err != nil {
		chn.Close()
		conn.Close()
		return nil, fmt.Errorf(errFailedOpenChannelFmt, err)
	}

	return &RabbitBroker{
		conn:        conn,
		chn:         chn,
		queue:       cfg.RabbitQueue,
		waitTime:    cfg.WaitTime,
		maxMessages: cfg.MaxMessages,
	}, nil
}

func (b *RabbitBroker) Send(ctx context.Context, msg Outgoing) (string, error) {
	id := msg.DedupID
	if id == "" {
		id = uuid.NewString()
	}

	pub := amqp.Publishing{
		ContentType:  contentTypeJSON,
		DeliveryMode: amqp.Persistent,
		MessageId:    id,
		Timestamp:    time.Now(),
		Body:         msg.Body,
	}
	if msg.GroupID != "" {
		pub.Headers = amqp.Table{headerGroupID: msg.GroupID}
	}

	err := b.chn.PublishWithContext(ctx,
		"",      // default exchange
		b.queue, // routing key
		false,   // mandatory
		false,   // immediate
		pub,
	)
	if err != nil {
		return "", fmt.Errorf(errFailedSendMessageFmt, err)
	}
	return id, nil
}

func (b *RabbitBroker) Receive(ctx context.Context) ([]Delivery, error) {
	b.once.Do(func() {
		b.msgs, b.startErr = b.chn.Consume(
			b.queue,
			"",    // consumer
			false, // auto-ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
	})
	if b.startErr != nil {
		return nil, fmt.Errorf(errFailedConsumeFmt, b.startErr)
	}
	return collect(ctx, b.msgs, b.maxMessages, b.waitTime)
}

// collect waits up to wait for a first delivery, then drains whatever is
// already buffered up to max without waiting further.
func collect(ctx context.Context, msgs <-chan amqp.Delivery, max int, wait time.Duration) ([]Delivery, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	var out []Delivery
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	case d, ok := <-msgs:
		if !ok {
			return nil, ErrClosed
		}
		out = append(out, toDelivery(d))
	}

	for len(out) < max {
		select {
		case d, ok := <-msgs:
			if !ok {
				return out, nil
			}
			out = append(out, toDelivery(d))
		default:
			return out, nil
		}
	}
	return out, nil
}

func toDelivery(d amqp.Delivery) Delivery {
	return Delivery{
		ID:      d.MessageId,
		Body:    d.Body,
		Receipt: strconv.FormatUint(d.DeliveryTag, 10),
	}
}

func (b *RabbitBroker) Ack(_ context.Context, d Delivery) error {
	tag, err := strconv.ParseUint(d.Receipt, 10, 64)
	if err != nil {
		return fmt.Errorf(errBadReceiptFmt, d.Receipt)
	}
	if err := b.chn.Ack(tag, false); err != nil {
		return fmt.Errorf(errFailedAckMessageFmt, err)
	}
	return nil
}

func (b *RabbitBroker) Close() error {
	if err := b.chn.Close(); err != nil {
		return err
	}
	return b.conn.Close()
}
