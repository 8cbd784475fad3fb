package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/config"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"go.uber.org/zap"
)

var ErrQueueNotFound = errors.New("queue not found")

type MessageService interface {
	SendMessage(ctx context.Context, item Item, body interface{}) error
	PollMessages(ctx context.Context, item Item, messages chan<- *sqs.Message)
	DeleteMessage(ctx context.Context, item Item, message *sqs.Message) error
	GetQueueSize(ctx context.Context, item Item) (int, error)
}

type Messenger struct {
	client sqsiface.SQSAPI
	queues map[Item]string
}

type Item string

var (
	MarketplaceActions Item = "marketplace.actions"
)

const (
	waitTimeSeconds     = 20
	maxNumberOfMessages = 10
	pollBackoff         = 5 * time.Second
)

func NewMessenger(client sqsiface.SQSAPI, queues map[Item]string) MessageService {
	return &Messenger{client: client, queues: queues}
}

func NewSQSClient(cfg config.AwsConfig) (sqsiface.SQSAPI, error) {
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.AccessKey != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, cfg.Token))
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, err
	}

	return sqs.New(sess), nil
}

func (m Messenger) queue(item Item) (string, error) {
	url, ok := m.queues[item]
	if !ok || url == "" {
		return "", fmt.Errorf("%w: %s", ErrQueueNotFound, item)
	}
	return url, nil
}

func (m Messenger) SendMessage(ctx context.Context, item Item, body interface{}) error {
	url, err := m.queue(item)
	if err != nil {
		return err
	}

	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	out, err := m.client.SendMessageWithContext(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(url),
		MessageBody: aws.String(string(data)),
	})
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("queue", string(item))).Error("[Queue] Failed to send message")
		return err
	}

	zap.L().With(zap.String("queue", string(item)), zap.String("messageId", aws.StringValue(out.MessageId))).Debug("[Queue] Published message")

	return nil
}

// PollMessages long-polls the queue and forwards every message until ctx is done.
// The channel is closed on return.
func (m Messenger) PollMessages(ctx context.Context, item Item, messages chan<- *sqs.Message) {
	defer close(messages)

	url, err := m.queue(item)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("[Queue] Unable to poll")
		return
	}

	for ctx.Err() == nil {
		out, err := m.client.ReceiveMessageWithContext(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(url),
			MaxNumberOfMessages: aws.Int64(maxNumberOfMessages),
			WaitTimeSeconds:     aws.Int64(waitTimeSeconds),
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			zap.L().With(zap.Error(err), zap.String("queue", string(item))).Error("[Queue] Failed to receive messages")
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollBackoff):
			}
			continue
		}

		for _, message := range out.Messages {
			select {
			case messages <- message:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (m Messenger) DeleteMessage(ctx context.Context, item Item, message *sqs.Message) error {
	url, err := m.queue(item)
	if err != nil {
		return err
	}

	_, err = m.client.DeleteMessageWithContext(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(url),
		ReceiptHandle: message.ReceiptHandle,
	})

	return err
}

func (m Messenger) GetQueueSize(ctx context.Context, item Item) (int, error) {
	url, err := m.queue(item)
	if err != nil {
		return 0, err
	}

	attr := sqs.QueueAttributeNameApproximateNumberOfMessages
	out, err := m.client.GetQueueAttributesWithContext(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(url),
		AttributeNames: []*string{aws.String(attr)},
	})
	if err != nil {
		return 0, err
	}

	var size int
	if _, err := fmt.Sscan(aws.StringValue(out.Attributes[attr]), &size); err != nil {
		return 0, err
	}

	return size, nil
}
