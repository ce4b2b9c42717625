package awsadp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/mashiike/aipkit"
	"github.com/mashiike/aipkit/aip"
)

// SQSClient is the subset of *sqs.Client used by SQSDeliveryQueue.
type SQSClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
}

var _ SQSClient = (*sqs.Client)(nil)

// maxSQSDelay is the largest DelaySeconds SQS accepts.
const maxSQSDelay = 15 * time.Minute

// SQSDeliveryQueueConfig represents the configuration for SQSDeliveryQueue
type SQSDeliveryQueueConfig struct {
	Client    SQSClient
	QueueURL  string
	QueueName string // Resolved with GetQueueUrl when QueueURL is empty
	// RetryDelay delays redelivery of a failed notification. Capped at 15 minutes.
	RetryDelay time.Duration
	// WaitTime is the long polling duration of Dequeue. Defaults to 20 seconds.
	WaitTime time.Duration
	Logger   *slog.Logger // Optional logger, defaults to slog.Default()
}

// SQSDeliveryQueue implements aipkit.DeliveryQueue using AWS SQS.
// It also implements aipkit.EventParser so that a Lambda function subscribed to the
// queue receives deliveries as SQS events.
type SQSDeliveryQueue struct {
	client     SQSClient
	queueURL   string
	retryDelay time.Duration
	waitTime   time.Duration
	logger     *slog.Logger
	closed     atomic.Bool
}

var (
	_ aipkit.DeliveryQueue = (*SQSDeliveryQueue)(nil)
	_ aipkit.EventParser   = (*SQSDeliveryQueue)(nil)
)

// deliveryMessage is the SQS message body of one delivery.
type deliveryMessage struct {
	TaskID   string          `json:"taskId"`
	ConfigID string          `json:"configId"`
	Event    aip.StreamEvent `json:"event"`
	Attempt  int             `json:"attempt"`
}

// NewSQSDeliveryQueue creates a new SQS-based delivery queue
func NewSQSDeliveryQueue(config SQSDeliveryQueueConfig) (*SQSDeliveryQueue, error) {
	if config.Client == nil {
		return nil, errors.New("SQS Client is required")
	}

	queueURL := config.QueueURL
	if queueURL == "" && config.QueueName == "" {
		return nil, errors.New("either QueueURL or QueueName must be specified")
	}
	if queueURL == "" {
		result, err := config.Client.GetQueueUrl(context.Background(), &sqs.GetQueueUrlInput{
			QueueName: aws.String(config.QueueName),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get queue URL for %s: %w", config.QueueName, err)
		}
		queueURL = aws.ToString(result.QueueUrl)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	waitTime := config.WaitTime
	if waitTime <= 0 {
		waitTime = 20 * time.Second
	}

	return &SQSDeliveryQueue{
		client:     config.Client,
		queueURL:   queueURL,
		retryDelay: min(config.RetryDelay, maxSQSDelay),
		waitTime:   waitTime,
		logger:     logger,
	}, nil
}

// Enqueue sends a delivery to the SQS queue. Retries are delayed by RetryDelay.
func (q *SQSDeliveryQueue) Enqueue(ctx context.Context, config aipkit.DeliveryConfig) error {
	if q.closed.Load() {
		return aipkit.ErrDeliveryQueueClosed
	}
	body, err := json.Marshal(deliveryMessage{
		TaskID:   config.TaskID,
		ConfigID: config.ConfigID,
		Event:    config.Event,
		Attempt:  config.Attempt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal delivery: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	}
	if config.Attempt > 0 && q.retryDelay > 0 {
		input.DelaySeconds = int32(q.retryDelay.Seconds())
	}
	if _, err := q.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}
	return nil
}

// Dequeue retrieves a delivery from the SQS queue, blocking until one is available
func (q *SQSDeliveryQueue) Dequeue(ctx context.Context) (*aipkit.Delivery, error) {
	for {
		if q.closed.Load() {
			return nil, aipkit.ErrDeliveryQueueClosed
		}
		result, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(q.queueURL),
			MaxNumberOfMessages: 1,
			WaitTimeSeconds:     int32(q.waitTime.Seconds()),
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to receive message from SQS: %w", err)
		}
		if len(result.Messages) == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
				continue
			}
		}

		message := result.Messages[0]
		receiptHandle := aws.ToString(message.ReceiptHandle)
		d, err := parseDelivery(aws.ToString(message.Body))
		if err != nil {
			// an undecodable message would be redelivered forever
			q.logger.ErrorContext(ctx, "dropping invalid delivery message", "error", err, "messageId", aws.ToString(message.MessageId))
			if deleteErr := q.deleteMessage(context.WithoutCancel(ctx), receiptHandle); deleteErr != nil {
				q.logger.ErrorContext(ctx, "failed to delete invalid message", "error", deleteErr)
			}
			continue
		}
		d.CompleteFunc = func() error {
			return q.deleteMessage(context.Background(), receiptHandle)
		}
		d.FailFunc = q.createFailFunc(receiptHandle)
		return d, nil
	}
}

// Close stops Dequeue and Enqueue. SQS itself needs no cleanup.
func (q *SQSDeliveryQueue) Close() error {
	q.closed.Store(true)
	return nil
}

// ParseEvent implements aipkit.EventParser for an SQS event carrying one delivery.
// Lambda deletes the message when the invocation succeeds and redelivers it otherwise.
func (q *SQSDeliveryQueue) ParseEvent(ctx context.Context, event json.RawMessage) (*aipkit.Delivery, error) {
	var sqsEvent events.SQSEvent
	if err := json.Unmarshal(event, &sqsEvent); err != nil {
		return nil, fmt.Errorf("failed to parse SQS event: %w", err)
	}

	records := make([]events.SQSMessage, 0, len(sqsEvent.Records))
	for _, record := range sqsEvent.Records {
		if record.EventSource != "aws:sqs" {
			q.logger.WarnContext(ctx, "skipping non-SQS record", "eventSource", record.EventSource)
			continue
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return nil, aipkit.ErrSkipEvent
	}
	if len(records) > 1 {
		return nil, fmt.Errorf("multiple SQS messages found in event, expected only one: %d messages", len(records))
	}

	d, err := parseDelivery(records[0].Body)
	if err != nil {
		return nil, err
	}
	d.CompleteFunc = func() error { return nil }
	d.FailFunc = func() error { return nil }
	return d, nil
}

func parseDelivery(body string) (*aipkit.Delivery, error) {
	var msg deliveryMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return nil, fmt.Errorf("failed to parse delivery from SQS message: %w", err)
	}
	if msg.TaskID == "" || msg.ConfigID == "" {
		return nil, errors.New("delivery message requires taskId and configId")
	}
	return &aipkit.Delivery{
		TaskID:   msg.TaskID,
		ConfigID: msg.ConfigID,
		Event:    msg.Event,
		Attempt:  msg.Attempt,
	}, nil
}

// createFailFunc makes the message visible again immediately
func (q *SQSDeliveryQueue) createFailFunc(receiptHandle string) func() error {
	return func() error {
		_, err := q.client.ChangeMessageVisibility(context.Background(), &sqs.ChangeMessageVisibilityInput{
			QueueUrl:          aws.String(q.queueURL),
			ReceiptHandle:     aws.String(receiptHandle),
			VisibilityTimeout: 0,
		})
		if err != nil {
			return fmt.Errorf("failed to release delivery: %w", err)
		}
		return nil
	}
}

func (q *SQSDeliveryQueue) deleteMessage(ctx context.Context, receiptHandle string) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}
