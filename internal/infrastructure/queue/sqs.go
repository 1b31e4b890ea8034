package queue

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/sirupsen/logrus"
)

// SQSAPI is the subset of the SQS client the listener needs.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSListener long-polls a queue and registers a subscriber per message.
// Processed messages are deleted. Anything that fails, malformed bodies
// included, stays on the queue and comes back after the visibility timeout.
type SQSListener struct {
	Client      SQSAPI
	QueueURL    string
	Commands    Commands
	Logger      logrus.FieldLogger
	MaxMessages int32
	WaitTime    time.Duration
	Backoff     time.Duration
}

func NewSQSListener(client SQSAPI, queueURL string, commands Commands, logger logrus.FieldLogger) *SQSListener {
	return &SQSListener{
		Client:      client,
		QueueURL:    queueURL,
		Commands:    commands,
		Logger:      logger,
		MaxMessages: 10,
		WaitTime:    20 * time.Second,
		Backoff:     5 * time.Second,
	}
}

// Run polls until ctx is cancelled.
func (l *SQSListener) Run(ctx context.Context) error {
	l.Logger.WithField("queue", l.QueueURL).Info("sqs listener started")
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := l.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.Logger.WithError(err).Warn("sqs receive failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(l.Backoff):
			}
		}
	}
}

// Poll receives one batch and processes it. Only a receive error is returned.
func (l *SQSListener) Poll(ctx context.Context) error {
	out, err := l.Client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(l.QueueURL),
		MaxNumberOfMessages: l.MaxMessages,
		WaitTimeSeconds:     int32(l.WaitTime / time.Second),
	})
	if err != nil {
		return err
	}
	for _, msg := range out.Messages {
		l.handle(ctx, msg)
	}
	return nil
}

func (l *SQSListener) handle(ctx context.Context, msg types.Message) {
	log := l.Logger.WithField("message_id", aws.ToString(msg.MessageId))
	cmd, err := register(ctx, l.Commands, []byte(aws.ToString(msg.Body)))
	if err != nil {
		log.WithError(err).WithField("permanent", permanent(err)).Warn("registration from sqs failed")
		return
	}
	if _, err := l.Client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(l.QueueURL),
		ReceiptHandle: msg.ReceiptHandle,
	}); err != nil {
		log.WithError(err).Warn("sqs delete failed")
		return
	}
	log.WithField("subscriber_id", cmd.ID).Info("subscriber registered from sqs")
}
