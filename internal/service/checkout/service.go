package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/ledger"
	"storefront/internal/logging"
	ordersvc "storefront/internal/service/order"
	"storefront/internal/service/payment"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidShipping = errors.New("invalid shipping address")
)

type cartProvider interface {
	Ledger(ctx context.Context, sessionID string) (*ledger.Ledger, error)
}

type orderService interface {
	Create(ctx context.Context, in ordersvc.CreateInput) (*domain.Order, error)
	RecordPayment(ctx context.Context, sessionID, number string, paid bool) (*domain.Order, error)
}

type paymentProcessor interface {
	Charge(ctx context.Context, amount domain.Price, card payment.Card) (payment.Receipt, error)
}

type Input struct {
	Shipping domain.ShippingAddress
	Card     payment.Card
}

type Result struct {
	Order   *domain.Order   `json:"order"`
	Receipt payment.Receipt `json:"receipt"`
}

type Service struct {
	carts    cartProvider
	orders   orderService
	payments paymentProcessor
	logger   *zap.Logger
}

func New(carts cartProvider, orders orderService, payments paymentProcessor, logger *zap.Logger) *Service {
	return &Service{carts: carts, orders: orders, payments: payments, logger: logging.OrNop(logger)}
}

// Checkout turns the session's cart into a paid order. The cart is cleared
// only after the order exists and the payment went through; on any failure
// it is left as it was.
func (s *Service) Checkout(ctx context.Context, sessionID string, in Input) (*Result, error) {
	if err := ValidateShipping(in.Shipping); err != nil {
		return nil, err
	}
	if err := payment.ValidateCard(in.Card, timeNow()); err != nil {
		return nil, err
	}

	cart, err := s.carts.Ledger(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	items := cart.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	order, err := s.orders.Create(ctx, BuildOrderRequest(sessionID, items, in.Shipping))
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	receipt, err := s.payments.Charge(ctx, order.FinalAmount, in.Card)
	if err != nil {
		if _, recErr := s.orders.RecordPayment(ctx, sessionID, order.Number, false); recErr != nil {
			s.logger.Error("checkout: record failed payment", zap.String("number", order.Number), zap.Error(recErr))
		}
		s.logger.Info("checkout: payment rejected", zap.String("number", order.Number), zap.Error(err))
		return nil, err
	}

	paid, err := s.orders.RecordPayment(ctx, sessionID, order.Number, true)
	if err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	// Only the ordered lines leave the cart; anything added while the payment
	// was in flight stays.
	cart.Deduct(ctx, items)
	s.logger.Info("checkout: completed",
		zap.String("session", sessionID),
		zap.String("number", paid.Number),
		zap.String("amount", receipt.Amount.String()),
	)
	return &Result{Order: paid, Receipt: receipt}, nil
}

// BuildOrderRequest maps cart lines onto the order submission payload.
func BuildOrderRequest(sessionID string, items []domain.LineItem, shipping domain.ShippingAddress) ordersvc.CreateInput {
	out := ordersvc.CreateInput{
		SessionID: sessionID,
		Items:     make([]ordersvc.CreateItem, 0, len(items)),
		Shipping:  shipping,
	}
	for _, item := range items {
		out.Items = append(out.Items, ordersvc.CreateItem{ProductID: item.Product.ID, Quantity: item.Quantity})
	}
	return out
}

// ValidateShipping applies the minimum field lengths of the checkout form.
func ValidateShipping(a domain.ShippingAddress) error {
	checks := []struct {
		field string
		value string
		min   int
	}{
		{"shipping_address", a.Address, 5},
		{"shipping_city", a.City, 2},
		{"shipping_postal_code", a.PostalCode, 4},
		{"shipping_country", a.Country, 2},
	}
	for _, c := range checks {
		if len([]rune(strings.TrimSpace(c.value))) < c.min {
			return fmt.Errorf("%w: %s must be at least %d characters", ErrInvalidShipping, c.field, c.min)
		}
	}
	return nil
}
