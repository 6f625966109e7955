package inventory

import "time"

// Snapshot is a read-time view of one product's stock, fetched immediately
// before reservation. It is recomputed on every submission attempt and never
// persisted by this package.
type Snapshot struct {
	ProductID   string  `dynamodbav:"product_id"`
	ProductName string  `dynamodbav:"product_name"`
	Quantity    int     `dynamodbav:"quantity"`
	UnitPrice   float64 `dynamodbav:"unit_price,omitempty"`
}

// Product is the item stored in the products table.
type Product struct {
	ProductID   string    `dynamodbav:"product_id"` // PK
	ProductName string    `dynamodbav:"product_name"`
	UnitPrice   float64   `dynamodbav:"unit_price"`
	Quantity    int       `dynamodbav:"quantity"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
	UpdatedAt   time.Time `dynamodbav:"updated_at"`
}
