package order

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"storefront/internal/domain"
	orderrepo "storefront/internal/repository/order"
)

type stubRepo struct {
	created    *domain.Order
	createErr  error
	orders     map[string]*domain.Order
	updates    []domain.Order
	updateErr  error
	lastCreate domain.Order
	lastFilter orderrepo.ListFilter
	// beforeUpdate runs ahead of the conditional write, standing in for a
	// concurrent writer.
	beforeUpdate func()
}

func (s *stubRepo) Create(_ context.Context, o domain.Order) (*domain.Order, error) {
	s.lastCreate = o
	if s.createErr != nil {
		return nil, s.createErr
	}
	if s.created != nil {
		return s.created, nil
	}
	o.ID = "id-1"
	return &o, nil
}

func (s *stubRepo) GetByNumber(_ context.Context, number string) (*domain.Order, error) {
	o, ok := s.orders[number]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *stubRepo) List(_ context.Context, f orderrepo.ListFilter) ([]domain.Order, error) {
	s.lastFilter = f
	var out []domain.Order
	for _, o := range s.orders {
		if f.Status == "" || o.Status == f.Status {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *stubRepo) ListBySession(_ context.Context, sessionID string) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range s.orders {
		if o.SessionID == sessionID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *stubRepo) UpdateStatus(_ context.Context, o domain.Order, from orderrepo.Status) error {
	if s.beforeUpdate != nil {
		s.beforeUpdate()
	}
	if s.updateErr != nil {
		return s.updateErr
	}
	stored, ok := s.orders[o.Number]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Status != from.Order || stored.PaymentStatus != from.Payment {
		return orderrepo.ErrStatusChanged
	}
	cp := o
	s.orders[o.Number] = &cp
	s.updates = append(s.updates, o)
	return nil
}

type stubProducts map[int64]domain.Product

func (s stubProducts) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := s[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func newTestService(repo *stubRepo) *Service {
	svc := New(repo, stubProducts{
		1: {ID: 1, DisplayName: "Shirt", Price: domain.MustPrice("29.99")},
		2: {ID: 2, DisplayName: "Pants", Price: domain.MustPrice("49.99")},
	}, nil)
	svc.newNumber = func() string { return "ORD-TEST0001" }
	svc.now = func() time.Time { return time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC) }
	return svc
}

func TestNewOrderNumberFormat(t *testing.T) {
	re := regexp.MustCompile(`^ORD-[0-9A-F]{8}$`)
	for i := 0; i < 20; i++ {
		if n := NewOrderNumber(); !re.MatchString(n) {
			t.Fatalf("unexpected order number %q", n)
		}
	}
}

func TestServiceCreateValidation(t *testing.T) {
	svc := newTestService(&stubRepo{})
	if _, err := svc.Create(context.Background(), CreateInput{}); !errors.Is(err, ErrEmptyOrder) {
		t.Fatalf("expected empty order error, got %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateInput{Items: []CreateItem{{ProductID: 1, Quantity: 0}}}); !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("expected invalid item error, got %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateInput{Items: []CreateItem{{ProductID: 9, Quantity: 1}}}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected product not found, got %v", err)
	}
}

func TestServiceCreatePricesFromCatalog(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo)
	got, err := svc.Create(context.Background(), CreateInput{
		SessionID: "sess",
		Items:     []CreateItem{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}},
		Shipping:  domain.ShippingAddress{City: "Lyon"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Number != "ORD-TEST0001" || got.Status != domain.OrderPending || got.PaymentStatus != domain.PaymentPending {
		t.Fatalf("unexpected order header %+v", got)
	}
	if !got.TotalAmount.Equal(domain.MustPrice("109.97")) || !got.FinalAmount.Equal(domain.MustPrice("109.97")) {
		t.Fatalf("unexpected amounts total=%s final=%s", got.TotalAmount, got.FinalAmount)
	}
	if len(repo.lastCreate.Items) != 2 || !repo.lastCreate.Items[0].TotalPrice.Equal(domain.MustPrice("59.98")) {
		t.Fatalf("unexpected items %+v", repo.lastCreate.Items)
	}
}

func TestServiceCreateRepoError(t *testing.T) {
	svc := newTestService(&stubRepo{createErr: errors.New("boom")})
	_, err := svc.Create(context.Background(), CreateInput{Items: []CreateItem{{ProductID: 1, Quantity: 1}}})
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected repo error, got %v", err)
	}
}

func TestServiceTransitions(t *testing.T) {
	repo := &stubRepo{orders: map[string]*domain.Order{
		"ORD-P": {Number: "ORD-P", SessionID: "s", Status: domain.OrderPending, PaymentStatus: domain.PaymentPending},
		"ORD-C": {Number: "ORD-C", SessionID: "s", Status: domain.OrderConfirmed, PaymentStatus: domain.PaymentPaid},
		"ORD-S": {Number: "ORD-S", SessionID: "s", Status: domain.OrderShipped},
		"ORD-D": {Number: "ORD-D", SessionID: "s", Status: domain.OrderDelivered},
	}}
	svc := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.Cancel(ctx, "other", "ORD-P"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign session: expected not found, got %v", err)
	}
	if o, err := svc.Cancel(ctx, "s", "ORD-P"); err != nil || o.Status != domain.OrderCancelled {
		t.Fatalf("cancel pending: %+v %v", o, err)
	}
	if _, err := svc.Cancel(ctx, "s", "ORD-S"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancel shipped: expected invalid transition, got %v", err)
	}
	if o, err := svc.MarkShipped(ctx, "ORD-C"); err != nil || o.Status != domain.OrderShipped || o.ShippedAt == nil {
		t.Fatalf("ship confirmed: %+v %v", o, err)
	}
	if _, err := svc.MarkShipped(ctx, "ORD-D"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("ship delivered: expected invalid transition, got %v", err)
	}
	if o, err := svc.ConfirmDelivery(ctx, "ORD-S"); err != nil || o.Status != domain.OrderDelivered || o.DeliveredAt == nil {
		t.Fatalf("deliver shipped: %+v %v", o, err)
	}
	if _, err := svc.ConfirmDelivery(ctx, "ORD-P"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("deliver cancelled: expected invalid transition, got %v", err)
	}
	if _, err := svc.MarkShipped(ctx, "ORD-NONE"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ship unknown: expected not found, got %v", err)
	}
	if len(repo.updates) != 3 {
		t.Fatalf("expected 3 persisted transitions, got %d", len(repo.updates))
	}
}

func TestServiceRefund(t *testing.T) {
	repo := &stubRepo{orders: map[string]*domain.Order{
		"ORD-C": {Number: "ORD-C", SessionID: "s", Status: domain.OrderConfirmed, PaymentStatus: domain.PaymentPaid},
		"ORD-P": {Number: "ORD-P", SessionID: "s", Status: domain.OrderPending, PaymentStatus: domain.PaymentPending},
	}}
	svc := newTestService(repo)
	ctx := context.Background()

	o, err := svc.Refund(ctx, "ORD-C")
	if err != nil {
		t.Fatalf("refund paid: %v", err)
	}
	if o.PaymentStatus != domain.PaymentRefunded || o.Status != domain.OrderConfirmed {
		t.Fatalf("unexpected refunded order %+v", o)
	}
	if _, err := svc.Refund(ctx, "ORD-C"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("double refund: expected invalid transition, got %v", err)
	}
	if _, err := svc.Refund(ctx, "ORD-P"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("refund unpaid: expected invalid transition, got %v", err)
	}
}

func TestServiceTransitionLosesRace(t *testing.T) {
	repo := &stubRepo{orders: map[string]*domain.Order{
		"ORD-P": {Number: "ORD-P", SessionID: "s", Status: domain.OrderPending, PaymentStatus: domain.PaymentPending},
	}}
	// The order gets cancelled between our read and our write.
	repo.beforeUpdate = func() {
		repo.orders["ORD-P"].Status = domain.OrderCancelled
		repo.beforeUpdate = nil
	}
	svc := newTestService(repo)

	_, err := svc.MarkShipped(context.Background(), "ORD-P")
	if !errors.Is(err, ErrInvalidTransition) || !errors.Is(err, orderrepo.ErrStatusChanged) {
		t.Fatalf("expected invalid transition from concurrent change, got %v", err)
	}
	if got := repo.orders["ORD-P"].Status; got != domain.OrderCancelled {
		t.Fatalf("concurrent cancel overwritten: status %s", got)
	}
	if len(repo.updates) != 0 {
		t.Fatalf("expected no persisted transition, got %d", len(repo.updates))
	}
}

func TestServiceListAll(t *testing.T) {
	repo := &stubRepo{orders: map[string]*domain.Order{
		"ORD-A": {Number: "ORD-A", SessionID: "a", Status: domain.OrderPending},
		"ORD-B": {Number: "ORD-B", SessionID: "b", Status: domain.OrderShipped},
	}}
	svc := newTestService(repo)

	all, err := svc.ListAll(context.Background(), orderrepo.ListFilter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("list all: %+v %v", all, err)
	}
	shipped, err := svc.ListAll(context.Background(), orderrepo.ListFilter{Status: domain.OrderShipped, Limit: 5})
	if err != nil || len(shipped) != 1 || shipped[0].Number != "ORD-B" {
		t.Fatalf("list shipped: %+v %v", shipped, err)
	}
	if repo.lastFilter.Limit != 5 {
		t.Fatalf("filter not forwarded: %+v", repo.lastFilter)
	}
}

func TestServiceRecordPayment(t *testing.T) {
	repo := &stubRepo{orders: map[string]*domain.Order{
		"ORD-P": {Number: "ORD-P", SessionID: "s", Status: domain.OrderPending, PaymentStatus: domain.PaymentPending},
		"ORD-F": {Number: "ORD-F", SessionID: "s", Status: domain.OrderPending, PaymentStatus: domain.PaymentPending},
	}}
	svc := newTestService(repo)

	o, err := svc.RecordPayment(context.Background(), "s", "ORD-P", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Status != domain.OrderConfirmed || o.PaymentStatus != domain.PaymentPaid {
		t.Fatalf("unexpected order %+v", o)
	}

	if _, err := svc.RecordPayment(context.Background(), "s", "ORD-P", true); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second payment: expected invalid transition, got %v", err)
	}

	o, err = svc.RecordPayment(context.Background(), "s", "ORD-F", false)
	if err != nil || o.PaymentStatus != domain.PaymentFailed || o.Status != domain.OrderPending {
		t.Fatalf("failed payment: %+v %v", o, err)
	}
}
