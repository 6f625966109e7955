package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"

	"github.com/farmstand-app/orderflow/internal/notify"
	"github.com/farmstand-app/orderflow/internal/orders"
)

// OrderSource is the slice of the orders store the worker needs.
type OrderSource interface {
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	UpdateStatus(ctx context.Context, orderID, newStatus string) error
}

// Processor consumes queued order events and delivers customer
// notifications.
type Processor struct {
	store OrderSource
	log   *logrus.Logger
}

// NewProcessor creates a worker processor.
func NewProcessor(store OrderSource, log *logrus.Logger) *Processor {
	if log == nil {
		log = logrus.New()
	}
	return &Processor{store: store, log: log}
}

// Handle receives an SQS batch event and processes each message.
// Returning an error lets the runtime retry and eventually dead-letter.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.log.WithFields(logrus.Fields{"component": "worker"}).Errorf("message failed: %v", err)
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg NotificationMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}

	// Decide before touching storage. Broadcast-channel traffic serializes a
	// whole payload as the body (which carries an order_id of its own), so the
	// event name is the only reliable discriminator.
	switch msg.Event {
	case notify.EventOrderConfirmation, notify.EventPickupReady:
	default:
		p.log.WithFields(logrus.Fields{"component": "worker", "event": msg.Event}).
			Debug("skipping non-notification message")
		return nil
	}

	if msg.OrderID == "" {
		return fmt.Errorf("%s event without order_id", msg.Event)
	}

	order, err := p.store.Get(ctx, msg.OrderID)
	if err != nil {
		return fmt.Errorf("fetch order %s: %w", msg.OrderID, err)
	}
	if order == nil {
		return fmt.Errorf("order not found: %s", msg.OrderID)
	}

	switch msg.Event {
	case notify.EventOrderConfirmation:
		p.deliver(order, notify.FormatOrderConfirmation(order))
		// confirmation delivered; move the order along
		if err := p.store.UpdateStatus(ctx, order.OrderID, orders.StatusConfirmed); err != nil {
			return fmt.Errorf("confirm order %s: %w", order.OrderID, err)
		}
	case notify.EventPickupReady:
		p.deliver(order, notify.FormatPickupReady(order))
	}
	return nil
}

// deliver hands the rendered message to the delivery channel. The mobile
// shell owns the actual push/email transport; the worker records the
// rendered notification for it.
func (p *Processor) deliver(order *orders.Order, text string) {
	p.log.WithFields(logrus.Fields{
		"component":    "worker",
		"order_id": order.OrderID,
		"to":       order.CustomerEmail,
	}).Info(text)
}
