package order

import (
	"context"
	"errors"

	"storefront/internal/domain"
)

// ErrStatusChanged is returned by UpdateStatus when the stored order no longer
// holds the status the caller read.
var ErrStatusChanged = errors.New("order status changed concurrently")

// Status is the pair of fields a status update is conditioned on.
type Status struct {
	Order   domain.OrderStatus
	Payment domain.PaymentStatus
}

// ListFilter pages through all orders, newest first. An empty Status matches
// every order.
type ListFilter struct {
	Status domain.OrderStatus
	Limit  int
	Offset int
}

type Repository interface {
	Create(ctx context.Context, order domain.Order) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListBySession(ctx context.Context, sessionID string) ([]domain.Order, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Order, error)
	// UpdateStatus writes the status fields of order only while the stored
	// row still holds from.
	UpdateStatus(ctx context.Context, order domain.Order, from Status) error
}
