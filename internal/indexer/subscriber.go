package indexer

import (
	"context"
	"time"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/messenger"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	"go.uber.org/zap"
)

const subscriberBatchSize = 100

// QueueSubscriber indexes the marketplace notifications published to a queue. Messages are
// deleted only after the documents they produced are persisted, so a failed flush leaves
// them on the queue for redelivery.
type QueueSubscriber struct {
	messages messenger.MessageService
	indexer  MarketplaceIndexer
	item     messenger.Item
	interval time.Duration
	pending  []*sqs.Message
}

func NewQueueSubscriber(messages messenger.MessageService, indexer MarketplaceIndexer, item messenger.Item, interval time.Duration) *QueueSubscriber {
	return &QueueSubscriber{
		messages: messages,
		indexer:  indexer,
		item:     item,
		interval: interval,
	}
}

// Run polls the queue until ctx is done, then flushes what is left.
func (s *QueueSubscriber) Run(ctx context.Context) {
	zap.L().With(zap.String("queue", string(s.item))).Info("QueueSubscriber: Subscribing")

	messages := make(chan *sqs.Message, 10)
	go s.messages.PollMessages(ctx, s.item, messages)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-messages:
			if !ok {
				flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				_ = s.Flush(flushCtx)
				cancel()
				return
			}
			s.Handle(message)
			if len(s.pending) >= subscriberBatchSize {
				_ = s.Flush(ctx)
			}
		case <-ticker.C:
			_ = s.Flush(ctx)
		}
	}
}

// Handle buffers the documents carried by message. Unreadable messages are dropped on the
// next successful flush.
func (s *QueueSubscriber) Handle(message *sqs.Message) {
	defer func() {
		s.pending = append(s.pending, message)
	}()

	msg, err := messenger.Decode(message)
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("messageId", aws.StringValue(message.MessageId))).Error("QueueSubscriber: Failed to read message")
		return
	}

	if msg.Action != nil {
		s.indexer.IndexAction(*msg.Action)
	} else {
		s.indexer.IndexRejection(*msg.Rejection)
	}
}

// Flush persists the buffered documents, then deletes the messages they came from.
func (s *QueueSubscriber) Flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}

	if err := s.indexer.Flush(ctx); err != nil {
		zap.L().With(zap.Error(err), zap.Int("messages", len(s.pending))).Warn("QueueSubscriber: Messages kept on the queue")
		return err
	}

	for _, message := range s.pending {
		if err := s.messages.DeleteMessage(ctx, s.item, message); err != nil {
			zap.L().With(zap.Error(err), zap.String("messageId", aws.StringValue(message.MessageId))).Error("QueueSubscriber: Failed to delete message")
		}
	}
	s.pending = nil

	return nil
}
