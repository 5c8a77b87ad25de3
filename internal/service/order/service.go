package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logging"
	orderrepo "storefront/internal/repository/order"
)

var (
	ErrEmptyOrder        = errors.New("order must contain at least one item")
	ErrInvalidItem       = errors.New("each item must have a product and a quantity of at least 1")
	ErrProductNotFound   = errors.New("one or more products not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

type productReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
}

type Service struct {
	repo      orderrepo.Repository
	products  productReader
	logger    *zap.Logger
	now       func() time.Time
	newNumber func() string
}

func New(repo orderrepo.Repository, products productReader, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		logger:    logging.OrNop(logger),
		now:       time.Now,
		newNumber: NewOrderNumber,
	}
}

// NewOrderNumber returns "ORD-" followed by eight upper-case hex digits.
func NewOrderNumber() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(hex[:8])
}

type CreateItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type CreateInput struct {
	SessionID string
	Items     []CreateItem
	Shipping  domain.ShippingAddress
}

// Create prices every item from the catalog and stores a pending order.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	o := domain.Order{
		Number:        s.newNumber(),
		SessionID:     in.SessionID,
		Status:        domain.OrderPending,
		PaymentStatus: domain.PaymentPending,
		Shipping:      in.Shipping,
	}
	for _, item := range in.Items {
		if item.ProductID <= 0 || item.Quantity < 1 {
			return nil, ErrInvalidItem
		}
		product, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: %d", ErrProductNotFound, item.ProductID)
			}
			return nil, err
		}
		line := domain.OrderItem{
			ProductID:    product.ID,
			ProductName:  product.DisplayName,
			Quantity:     item.Quantity,
			PricePerUnit: product.Price,
			TotalPrice:   product.Price.Mul(item.Quantity),
		}
		o.Items = append(o.Items, line)
		o.TotalAmount = o.TotalAmount.Add(line.TotalPrice)
	}
	o.CalculateFinalAmount()

	created, err := s.repo.Create(ctx, o)
	if err != nil {
		return nil, err
	}
	s.logger.Info("order: created",
		zap.String("number", created.Number),
		zap.String("session", in.SessionID),
		zap.String("final_amount", created.FinalAmount.String()),
	)
	return created, nil
}

// Get returns the order only when it belongs to sessionID.
func (s *Service) Get(ctx context.Context, sessionID, number string) (*domain.Order, error) {
	o, err := s.repo.GetByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		return nil, err
	}
	if o.SessionID != sessionID {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

// GetByNumber looks an order up regardless of the owning session.
func (s *Service) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return s.repo.GetByNumber(ctx, strings.TrimSpace(number))
}

func (s *Service) List(ctx context.Context, sessionID string) ([]domain.Order, error) {
	return s.repo.ListBySession(ctx, sessionID)
}

func (s *Service) ListAll(ctx context.Context, filter orderrepo.ListFilter) ([]domain.Order, error) {
	return s.repo.List(ctx, filter)
}

// RecordPayment marks the order paid and confirmed, or its payment failed.
func (s *Service) RecordPayment(ctx context.Context, sessionID, number string, paid bool) (*domain.Order, error) {
	o, err := s.Get(ctx, sessionID, number)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, o, func(o *domain.Order) error {
		if o.Status != domain.OrderPending || o.PaymentStatus == domain.PaymentPaid {
			return ErrInvalidTransition
		}
		if paid {
			o.PaymentStatus = domain.PaymentPaid
			o.Status = domain.OrderConfirmed
		} else {
			o.PaymentStatus = domain.PaymentFailed
		}
		return nil
	})
}

// Cancel is only allowed while the order is pending.
func (s *Service) Cancel(ctx context.Context, sessionID, number string) (*domain.Order, error) {
	o, err := s.Get(ctx, sessionID, number)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, o, func(o *domain.Order) error {
		if o.Status != domain.OrderPending {
			return fmt.Errorf("%w: only pending orders can be cancelled", ErrInvalidTransition)
		}
		o.Status = domain.OrderCancelled
		return nil
	})
}

func (s *Service) MarkShipped(ctx context.Context, number string) (*domain.Order, error) {
	o, err := s.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, o, func(o *domain.Order) error {
		if o.Status != domain.OrderPending && o.Status != domain.OrderConfirmed {
			return fmt.Errorf("%w: only confirmed orders can be shipped", ErrInvalidTransition)
		}
		now := s.now().UTC()
		o.Status = domain.OrderShipped
		o.ShippedAt = &now
		return nil
	})
}

func (s *Service) ConfirmDelivery(ctx context.Context, number string) (*domain.Order, error) {
	o, err := s.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, o, func(o *domain.Order) error {
		if o.Status != domain.OrderShipped {
			return fmt.Errorf("%w: only shipped orders can be delivered", ErrInvalidTransition)
		}
		now := s.now().UTC()
		o.Status = domain.OrderDelivered
		o.DeliveredAt = &now
		return nil
	})
}

// Refund moves a paid order to refunded. The fulfilment status is untouched.
func (s *Service) Refund(ctx context.Context, number string) (*domain.Order, error) {
	o, err := s.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, o, func(o *domain.Order) error {
		if o.PaymentStatus != domain.PaymentPaid {
			return fmt.Errorf("%w: only paid orders can be refunded", ErrInvalidTransition)
		}
		o.PaymentStatus = domain.PaymentRefunded
		return nil
	})
}

func (s *Service) transition(ctx context.Context, o *domain.Order, apply func(*domain.Order) error) (*domain.Order, error) {
	from := orderrepo.Status{Order: o.Status, Payment: o.PaymentStatus}
	if err := apply(o); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, *o, from); err != nil {
		if errors.Is(err, orderrepo.ErrStatusChanged) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTransition, err)
		}
		return nil, err
	}
	s.logger.Info("order: status changed",
		zap.String("number", o.Number),
		zap.String("from", string(from.Order)),
		zap.String("to", string(o.Status)),
		zap.String("payment", string(o.PaymentStatus)),
	)
	return o, nil
}
