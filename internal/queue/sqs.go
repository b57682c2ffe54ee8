package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"commonthread/internal/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
)

const fifoSuffix = ".fifo"

// SQSBroker publishes to and long-polls one SQS queue. Group and dedup ids
// are only sent to FIFO queues, which reject messages without a group.
type SQSBroker struct {
	svc         sqsiface.SQSAPI
	queueURL    string
	fifo        bool
	waitTime    time.Duration
	maxMessages int
	visibility  time.Duration
}

func NewSQSBroker(sess *session.Session, cfg *config.QueueConfig) *SQSBroker {
	return NewSQSBrokerWithClient(sqs.New(sess), cfg)
}

func NewSQSBrokerWithClient(svc sqsiface.SQSAPI, cfg *config.QueueConfig) *SQSBroker {
	return &SQSBroker{
		svc:         svc,
		queueURL:    cfg.SQSQueueURL,
		fifo:        strings.HasSuffix(cfg.SQSQueueURL, fifoSuffix),
		waitTime:    cfg.WaitTime,
		maxMessages: cfg.MaxMessages,
		visibility:  cfg.VisibilityTimeout,
	}
}

func (b *SQSBroker) Send(ctx context.Context, msg Outgoing) (string, error) {
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(b.queueURL),
		MessageBody: aws.String(string(msg.Body)),
	}
	if b.fifo {
		input.MessageGroupId = aws.String(msg.GroupID)
		if msg.DedupID != "" {
			input.MessageDeduplicationId = aws.String(msg.DedupID)
		}
	}

	out, err := b.svc.SendMessageWithContext(ctx, input)
	if err != nil {
		return "", fmt.Errorf(errFailedSendMessageFmt, err)
	}
	return aws.StringValue(out.MessageId), nil
}

func (b *SQSBroker) Receive(ctx context.Context) ([]Delivery, error) {
	input := &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(b.queueURL),
		MaxNumberOfMessages: aws.Int64(int64(b.maxMessages)),
		WaitTimeSeconds:     aws.Int64(int64(b.waitTime / time.Second)),
	}
	if b.visibility > 0 {
		input.VisibilityTimeout = aws.Int64(int64(b.visibility / time.Second))
	}

	out, err := b.svc.ReceiveMessageWithContext(ctx, input)
	if err != nil {
		return nil, fmt.Errorf(errFailedReceiveMessageFmt, err)
	}

	deliveries := make([]Delivery, 0, len(out.Messages))
	for _, m := range out.Messages {
		deliveries = append(deliveries, Delivery{
			ID:      aws.StringValue(m.MessageId),
			Body:    []byte(aws.StringValue(m.Body)),
			Receipt: aws.StringValue(m.ReceiptHandle),
		})
	}
	return deliveries, nil
}

func (b *SQSBroker) Ack(ctx context.Context, d Delivery) error {
	_, err := b.svc.DeleteMessageWithContext(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(b.queueURL),
		ReceiptHandle: aws.String(d.Receipt),
	})
	if err != nil {
		return fmt.Errorf(errFailedAckMessageFmt, err)
	}
	return nil
}

func (b *SQSBroker) Close() error {
	return nil
}
