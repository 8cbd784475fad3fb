package messenger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/event"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	"go.uber.org/zap"
)

// Message is the queue envelope for marketplace notifications. Exactly one payload is set.
type Message struct {
	Type      event.Type                `json:"type"`
	Action    *entity.MarketplaceAction `json:"action,omitempty"`
	Rejection *entity.OperationError    `json:"rejection,omitempty"`
}

func Decode(message *sqs.Message) (Message, error) {
	var msg Message
	if err := json.Unmarshal([]byte(aws.StringValue(message.Body)), &msg); err != nil {
		return msg, err
	}
	if msg.Action == nil && msg.Rejection == nil {
		return msg, fmt.Errorf("message %s has no payload", aws.StringValue(message.MessageId))
	}
	return msg, nil
}

// Publish forwards every marketplace notification to the item's queue.
func Publish(events *event.Manager, messageService MessageService, item Item) {
	send := func(msg Message) {
		if err := messageService.SendMessage(context.Background(), item, msg); err != nil {
			zap.L().With(zap.Error(err), zap.String("type", string(msg.Type))).Error("[Queue] Notification lost")
		}
	}

	for _, eventType := range event.ActionEvents {
		eventType := eventType
		events.AddEventListener(eventType, func(payload interface{}) {
			if action, ok := payload.(entity.MarketplaceAction); ok {
				send(Message{Type: eventType, Action: &action})
			}
		})
	}

	events.AddEventListener(event.OperationRejectedEvent, func(payload interface{}) {
		if rejection, ok := payload.(entity.OperationError); ok {
			send(Message{Type: event.OperationRejectedEvent, Rejection: &rejection})
		}
	})
}
