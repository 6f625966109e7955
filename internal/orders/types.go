package orders

import (
	"context"
	"time"
)

// Order lifecycle statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusReady     = "ready"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Fulfillment modes.
const (
	FulfillmentPickup   = "pickup"
	FulfillmentDelivery = "delivery"
)

// Payment statuses.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// Submission failure codes.
const (
	CodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
	CodeInventoryConflict    = "INVENTORY_CONFLICT"
	CodePersistenceFailure   = "PERSISTENCE_FAILURE"
	CodeStockUpdateFailure   = "STOCK_UPDATE_FAILURE"
	CodeUnexpectedError      = "UNEXPECTED_ERROR"
)

// LineItem is one product line within an order. Lines are created atomically
// with their order and never mutated afterwards; a correction is a new order.
type LineItem struct {
	OrderID     string  `dynamodbav:"order_id" json:"-"` // set at persistence time
	ProductID   string  `dynamodbav:"product_id" json:"product_id"`
	ProductName string  `dynamodbav:"product_name" json:"product_name"`
	UnitPrice   float64 `dynamodbav:"unit_price" json:"unit_price"`
	Quantity    int     `dynamodbav:"quantity" json:"quantity"`
	Subtotal    float64 `dynamodbav:"subtotal" json:"subtotal"`
}

// Order represents the header stored in the orders table. Line items live in
// their own table and are hydrated on read.
type Order struct {
	OrderID         string     `dynamodbav:"order_id" json:"order_id"` // PK
	CustomerID      string     `dynamodbav:"customer_id,omitempty" json:"customer_id,omitempty"`
	CustomerName    string     `dynamodbav:"customer_name" json:"customer_name"`
	CustomerEmail   string     `dynamodbav:"customer_email" json:"customer_email"`
	CustomerPhone   string     `dynamodbav:"customer_phone" json:"customer_phone"`
	Items           []LineItem `dynamodbav:"-" json:"items"`
	Subtotal        float64    `dynamodbav:"subtotal" json:"subtotal"`
	Tax             float64    `dynamodbav:"tax" json:"tax"`
	Total           float64    `dynamodbav:"total" json:"total"`
	FulfillmentMode string     `dynamodbav:"fulfillment_mode" json:"fulfillment_mode"`
	PaymentMethod   string     `dynamodbav:"payment_method" json:"payment_method"`
	PaymentStatus   string     `dynamodbav:"payment_status" json:"payment_status"`
	Status          string     `dynamodbav:"status" json:"status"`
	DeliveryAddress string     `dynamodbav:"delivery_address,omitempty" json:"delivery_address,omitempty"`
	PickupDate      string     `dynamodbav:"pickup_date,omitempty" json:"pickup_date,omitempty"`
	PickupTime      string     `dynamodbav:"pickup_time,omitempty" json:"pickup_time,omitempty"`
	Instructions    string     `dynamodbav:"instructions,omitempty" json:"instructions,omitempty"`
	CreatedAt       time.Time  `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `dynamodbav:"updated_at" json:"updated_at"`
}

// InventoryConflict reports one line the current stock cannot satisfy.
type InventoryConflict struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

// SubmitResult is the discriminated outcome of a submission. Expected
// business conditions never surface as errors; they come back here.
type SubmitResult struct {
	Success   bool                `json:"success"`
	Order     *Order              `json:"order,omitempty"`
	ErrorCode string              `json:"error_code,omitempty"`
	Message   string              `json:"message,omitempty"`
	Conflicts []InventoryConflict `json:"conflicts,omitempty"`
}

// Notifier is the best-effort notification collaborator. Returned errors are
// informational only: the caller logs them and never propagates.
type Notifier interface {
	Broadcast(ctx context.Context, channel, event string, payload any) error
	SendOrderConfirmation(ctx context.Context, o *Order) error
	SendPickupReady(ctx context.Context, o *Order) error
}

func validStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusReady, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
