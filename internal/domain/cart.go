package domain

// LineItem pairs one product snapshot with a positive quantity.
type LineItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Subtotal returns price times quantity for the line.
func (l LineItem) Subtotal() Price {
	return l.Product.Price.Mul(l.Quantity)
}
