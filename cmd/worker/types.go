package main

// NotificationMessage is the queue payload produced by the API publisher.
type NotificationMessage struct {
	OrderID string `json:"order_id"`
	Event   string `json:"event"`
}
