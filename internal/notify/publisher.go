package notify

import (
	"context"
	"encoding/json"
	"fmt"

	sdksqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/farmstand-app/orderflow/internal/aws"
	"github.com/farmstand-app/orderflow/internal/orders"
)

// Notification event names consumed by the worker.
const (
	EventOrderCreated      = "order_created"
	EventOrderConfirmation = "order_confirmation"
	EventPickupReady       = "pickup_ready"
)

// Publisher sends change broadcasts and customer notifications through SQS.
// Everything here is best-effort by contract: callers log the returned error
// and move on, they never fail the triggering operation because of it.
type Publisher struct {
	sqs      aws.SQSAPI
	queueURL string
}

// NewPublisher returns a Publisher bound to a queue URL.
func NewPublisher(sqsClient aws.SQSAPI, queueURL string) *Publisher {
	return &Publisher{sqs: sqsClient, queueURL: queueURL}
}

// Broadcast publishes a change event on a logical channel so client caches
// can invalidate. payload is serialized as the message body.
func (p *Publisher) Broadcast(ctx context.Context, channel, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal broadcast payload: %w", err)
	}
	return p.send(ctx, string(body), map[string]string{
		"channel": channel,
		"event":   event,
	})
}

// SendOrderConfirmation queues the order-confirmation notification.
func (p *Publisher) SendOrderConfirmation(ctx context.Context, o *orders.Order) error {
	return p.sendOrderEvent(ctx, EventOrderConfirmation, o)
}

// SendPickupReady queues the pickup-ready notification.
func (p *Publisher) SendPickupReady(ctx context.Context, o *orders.Order) error {
	return p.sendOrderEvent(ctx, EventPickupReady, o)
}

func (p *Publisher) sendOrderEvent(ctx context.Context, event string, o *orders.Order) error {
	body, err := json.Marshal(map[string]string{
		"order_id": o.OrderID,
		"event":    event,
	})
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	return p.send(ctx, string(body), map[string]string{
		"order_id": o.OrderID,
		"event":    event,
	})
}

func (p *Publisher) send(ctx context.Context, body string, attributes map[string]string) error {
	input := &sdksqs.SendMessageInput{
		QueueUrl:    &p.queueURL,
		MessageBody: &body,
	}
	if len(attributes) > 0 {
		msgAttrs := map[string]sqstypes.MessageAttributeValue{}
		for k, v := range attributes {
			msgAttrs[k] = sqstypes.MessageAttributeValue{
				DataType:    awsString("String"),
				StringValue: awsString(v),
			}
		}
		input.MessageAttributes = msgAttrs
	}

	if _, err := p.sqs.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
