package domain

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// ShippingAddress is where an order is delivered.
type ShippingAddress struct {
	Address    string `json:"shipping_address"`
	City       string `json:"shipping_city"`
	PostalCode string `json:"shipping_postal_code"`
	Country    string `json:"shipping_country"`
}

// Order owns the items purchased from a cart once checkout succeeds.
type Order struct {
	ID             string          `json:"id"`
	Number         string          `json:"order_number"`
	SessionID      string          `json:"-"`
	Status         OrderStatus     `json:"status"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	TotalAmount    Price           `json:"total_amount"`
	DiscountAmount Price           `json:"discount_amount"`
	TaxAmount      Price           `json:"tax_amount"`
	FinalAmount    Price           `json:"final_amount"`
	Shipping       ShippingAddress `json:"shipping"`
	Items          []OrderItem     `json:"items,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	ShippedAt      *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time      `json:"delivered_at,omitempty"`
}

type OrderItem struct {
	ID           string `json:"id"`
	ProductID    int64  `json:"product"`
	ProductName  string `json:"product_name"`
	Quantity     int    `json:"quantity"`
	PricePerUnit Price  `json:"price_per_unit"`
	TotalPrice   Price  `json:"total_price"`
}

// CalculateFinalAmount sets FinalAmount to total - discount + tax.
func (o *Order) CalculateFinalAmount() Price {
	o.FinalAmount = o.TotalAmount.Sub(o.DiscountAmount).Add(o.TaxAmount)
	return o.FinalAmount
}
