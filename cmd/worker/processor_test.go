package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"

	"github.com/farmstand-app/orderflow/internal/orders"
)

type fakeOrderSource struct {
	orders        map[string]*orders.Order
	statusUpdates map[string]string
	getCalls      int
	getErr        error
}

func newFakeOrderSource() *fakeOrderSource {
	return &fakeOrderSource{
		orders:        map[string]*orders.Order{},
		statusUpdates: map[string]string{},
	}
}

func (f *fakeOrderSource) Get(ctx context.Context, orderID string) (*orders.Order, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.orders[orderID], nil
}

func (f *fakeOrderSource) UpdateStatus(ctx context.Context, orderID, newStatus string) error {
	f.statusUpdates[orderID] = newStatus
	return nil
}

func quietProcessor(src *fakeOrderSource) *Processor {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewProcessor(src, log)
}

func sqsEvent(body string) events.SQSEvent {
	return events.SQSEvent{Records: []events.SQSMessage{{Body: body}}}
}

func TestHandle_Confirmation(t *testing.T) {
	src := newFakeOrderSource()
	src.orders["order-1"] = &orders.Order{
		OrderID:       "order-1",
		CustomerName:  "Ada Crane",
		CustomerEmail: "ada@example.com",
		Status:        orders.StatusPending,
	}
	p := quietProcessor(src)

	err := p.Handle(context.Background(), sqsEvent(`{"order_id":"order-1","event":"order_confirmation"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := src.statusUpdates["order-1"]; got != orders.StatusConfirmed {
		t.Fatalf("expected status confirmed, got %q", got)
	}
}

func TestHandle_PickupReady(t *testing.T) {
	src := newFakeOrderSource()
	src.orders["order-1"] = &orders.Order{OrderID: "order-1", CustomerName: "Ada Crane"}
	p := quietProcessor(src)

	err := p.Handle(context.Background(), sqsEvent(`{"order_id":"order-1","event":"pickup_ready"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(src.statusUpdates) != 0 {
		t.Fatalf("pickup-ready must not change status, got %v", src.statusUpdates)
	}
}

func TestHandle_UnknownOrder(t *testing.T) {
	p := quietProcessor(newFakeOrderSource())
	err := p.Handle(context.Background(), sqsEvent(`{"order_id":"ghost","event":"order_confirmation"}`))
	if err == nil {
		t.Fatal("expected error so the message dead-letters")
	}
}

func TestHandle_SkipsBroadcastTraffic(t *testing.T) {
	src := newFakeOrderSource()
	src.getErr = errors.New("transient dynamo error")
	p := quietProcessor(src)

	// an order_created broadcast serializes the whole order as the body, so it
	// carries an order_id but no event field the worker handles
	body, err := json.Marshal(&orders.Order{
		OrderID:      "order-77",
		CustomerName: "Ada Crane",
		Status:       orders.StatusPending,
		Total:        8.66,
	})
	if err != nil {
		t.Fatalf("marshal broadcast body: %v", err)
	}

	if err := p.Handle(context.Background(), sqsEvent(string(body))); err != nil {
		t.Fatalf("broadcast traffic must be skipped, got %v", err)
	}
	if src.getCalls != 0 {
		t.Fatalf("broadcast traffic must not hit storage, got %d get(s)", src.getCalls)
	}
}

func TestHandle_EventWithoutOrderID(t *testing.T) {
	src := newFakeOrderSource()
	p := quietProcessor(src)

	err := p.Handle(context.Background(), sqsEvent(`{"event":"order_confirmation"}`))
	if err == nil {
		t.Fatal("expected error so the malformed event dead-letters")
	}
	if src.getCalls != 0 {
		t.Fatalf("malformed event must not hit storage, got %d get(s)", src.getCalls)
	}
}

func TestHandle_UnknownEvent(t *testing.T) {
	src := newFakeOrderSource()
	src.orders["order-1"] = &orders.Order{OrderID: "order-1"}
	p := quietProcessor(src)

	err := p.Handle(context.Background(), sqsEvent(`{"order_id":"order-1","event":"mystery"}`))
	if err != nil {
		t.Fatalf("unknown events must be skipped, got %v", err)
	}
	if src.getCalls != 0 || len(src.statusUpdates) != 0 {
		t.Fatalf("unknown event must not touch storage, got %d get(s), %v", src.getCalls, src.statusUpdates)
	}
}

func TestHandle_InvalidBody(t *testing.T) {
	p := quietProcessor(newFakeOrderSource())
	if err := p.Handle(context.Background(), sqsEvent(`{not json`)); err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestHandle_FetchError(t *testing.T) {
	src := newFakeOrderSource()
	src.getErr = errors.New("table unavailable")
	p := quietProcessor(src)

	err := p.Handle(context.Background(), sqsEvent(`{"order_id":"order-1","event":"order_confirmation"}`))
	if err == nil {
		t.Fatal("expected error")
	}
}
