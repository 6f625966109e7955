package notify

import (
	"fmt"
	"strings"

	"github.com/farmstand-app/orderflow/internal/orders"
)

// FormatOrderConfirmation renders the customer-facing confirmation text for
// a freshly submitted order.
func FormatOrderConfirmation(o *orders.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s, thanks for your order!\n\n", o.CustomerName)
	fmt.Fprintf(&b, "Order %s\n", o.OrderID)
	for _, it := range o.Items {
		fmt.Fprintf(&b, "  %d x %s - $%.2f\n", it.Quantity, it.ProductName, it.Subtotal)
	}
	fmt.Fprintf(&b, "Subtotal: $%.2f\n", o.Subtotal)
	fmt.Fprintf(&b, "Tax: $%.2f\n", o.Tax)
	fmt.Fprintf(&b, "Total: $%.2f\n", o.Total)

	switch o.FulfillmentMode {
	case orders.FulfillmentPickup:
		fmt.Fprintf(&b, "\nPickup: %s at %s\n", o.PickupDate, o.PickupTime)
	case orders.FulfillmentDelivery:
		fmt.Fprintf(&b, "\nDelivery to: %s\n", o.DeliveryAddress)
	}
	if o.Instructions != "" {
		fmt.Fprintf(&b, "Notes: %s\n", o.Instructions)
	}
	return b.String()
}

// FormatPickupReady renders the pickup-ready notification text.
func FormatPickupReady(o *orders.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s, your order %s is ready for pickup", o.CustomerName, o.OrderID)
	if o.PickupDate != "" {
		fmt.Fprintf(&b, " (%s", o.PickupDate)
		if o.PickupTime != "" {
			fmt.Fprintf(&b, " at %s", o.PickupTime)
		}
		b.WriteString(")")
	}
	b.WriteString(".\n")
	return b.String()
}
