package whatsapp

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// OrderLine is one item rendered in an order confirmation.
type OrderLine struct {
	ProductName string
	Label       string
	Quantity    int
}

// OrderSummary is the order data the message templates need.
type OrderSummary struct {
	ID          string
	TotalAmount decimal.Decimal
	Status      string
	Items       []OrderLine
}

// LowStockProduct is one entry of a low-stock alert.
type LowStockProduct struct {
	Name              string
	AvailableQuantity int
}

func OrderConfirmationMessage(order OrderSummary) string {
	var b strings.Builder
	b.WriteString("🛒 Order Confirmed!\n")
	fmt.Fprintf(&b, "Order ID: %s\n", order.ID)
	fmt.Fprintf(&b, "Total: ₹%s\n", order.TotalAmount.StringFixed(2))
	fmt.Fprintf(&b, "Status: %s\n\n", order.Status)
	b.WriteString("Items:\n")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "- %s (%s) x%d\n", item.ProductName, item.Label, item.Quantity)
	}
	b.WriteString("\nThank you for your order! 🙏")
	return b.String()
}

func OrderStatusUpdateMessage(order OrderSummary) string {
	var b strings.Builder
	b.WriteString("📦 Order Update\n")
	fmt.Fprintf(&b, "Order ID: %s\n", order.ID)
	fmt.Fprintf(&b, "Status: %s\n", strings.ToUpper(order.Status))
	fmt.Fprintf(&b, "Total: ₹%s\n\n", order.TotalAmount.StringFixed(2))
	b.WriteString("Track your order status anytime on our platform.")
	return b.String()
}

func LowStockAlertMessage(products []LowStockProduct) string {
	var b strings.Builder
	b.WriteString("⚠️ Low Stock Alert\n\n")
	b.WriteString("The following products are running low:\n")
	for _, p := range products {
		fmt.Fprintf(&b, "- %s: %d left\n", p.Name, p.AvailableQuantity)
	}
	b.WriteString("\nPlease restock soon to avoid stockouts.")
	return b.String()
}
