package validation

// Strictness governs how shape violations are treated.
type Strictness int

const (
	// Moderate fails on critical violations (missing required fields,
	// security-sensitive fields) and downgrades the rest to warnings.
	Moderate Strictness = iota
	// Strict fails on any violation.
	Strict
	// Lenient always returns usable (sanitized) data and reports
	// violations as warnings only.
	Lenient
)

// Options tune a single validation call.
type Options struct {
	Strictness Strictness
	// Transform normalizes well-known fields after a successful shape check
	// (emails lowercased, phones reduced to digits, numeric-looking strings
	// in money/quantity fields coerced to numbers).
	Transform bool
	// FieldMessages overrides the generated message for a field by name.
	FieldMessages map[string]string
	// Scope labels the call site in monitoring output.
	Scope string
}

// Outcome reports exactly what happened to one piece of input.
type Outcome[T any] struct {
	Success     bool
	Data        *T
	Errors      []string
	Warnings    []string
	Sanitized   bool
	Transformed bool
}

// OrderItemInput is one requested product line.
type OrderItemInput struct {
	ProductID   string  `json:"product_id" validate:"required"`
	ProductName string  `json:"product_name" validate:"required"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
	Quantity    int     `json:"quantity" validate:"required,min=1"`
	Subtotal    float64 `json:"subtotal" validate:"gte=0"`
}

// SubmitOrderRequest is the payload for submitting an order.
// Fulfillment cross-field rules are registered as struct-level validation.
type SubmitOrderRequest struct {
	CustomerID      string           `json:"customer_id"`
	CustomerName    string           `json:"customer_name" validate:"required"`
	CustomerEmail   string           `json:"customer_email" validate:"required,email"`
	CustomerPhone   string           `json:"customer_phone" validate:"required,phone"`
	Items           []OrderItemInput `json:"items" validate:"required,min=1,dive"`
	FulfillmentMode string           `json:"fulfillment_mode" validate:"required,oneof=pickup delivery"`
	PaymentMethod   string           `json:"payment_method" validate:"required"`
	DeliveryAddress string           `json:"delivery_address,omitempty"`
	PickupDate      string           `json:"pickup_date,omitempty"`
	PickupTime      string           `json:"pickup_time,omitempty"`
	Instructions    string           `json:"instructions,omitempty"`
}
