// Package queue abstracts the message broker the ML pipeline runs on.
package queue

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("broker closed")

// Outgoing is one message to publish. GroupID and DedupID are honored by
// FIFO-capable brokers and ignored elsewhere.
type Outgoing struct {
	Body    []byte
	GroupID string
	DedupID string
}

// Delivery is one received message. Receipt identifies it for Ack.
type Delivery struct {
	ID      string
	Body    []byte
	Receipt string
}

type Sender interface {
	// Send returns the broker-assigned message id.
	Send(ctx context.Context, msg Outgoing) (string, error)
}

type Receiver interface {
	// Receive blocks up to the broker's wait time and returns at most its
	// batch size. An empty batch is not an error.
	Receive(ctx context.Context) ([]Delivery, error)
	Ack(ctx context.Context, d Delivery) error
}

type Broker interface {
	Sender
	Receiver
	Close() error
}

const (
	errFailedSendMessageFmt    = "failed to send message: %w"
	errFailedReceiveMessageFmt = "failed to receive messages: %w"
	errFailedAckMessageFmt     = "failed to acknowledge message: %w"
	errFailedConnectBrokerFmt  = "failed to connect to broker: %w"
	errFailedOpenChannelFmt    = "failed to open channel: %w"
	errFailedDeclareQueueFmt   = "failed to declare queue: %w"
	errFailedConsumeFmt        = "failed to start consumer: %w"
	errBadReceiptFmt           = "invalid delivery receipt %q"
)
