package cart

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/ledger"
	"storefront/internal/logging"
)

var (
	ErrInvalidSession  = errors.New("session id required")
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 999")
)

const defaultIdleTTL = 30 * time.Minute

// MaxQuantity caps a single line of the cart.
const MaxQuantity = 999

type productReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
}

type Options struct {
	IdleTTL time.Duration
	Logger  *zap.Logger
	Now     func() time.Time
}

// Service keeps exactly one ledger per session. Ledgers are restored from
// the store on first use and dropped from memory after IdleTTL without access.
type Service struct {
	store    ledger.Store
	products productReader
	logger   *zap.Logger
	idleTTL  time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	ledger   *ledger.Ledger
	lastSeen time.Time
}

// View is the cart as shown to clients.
type View struct {
	SessionID string            `json:"sessionId"`
	Items     []domain.LineItem `json:"items"`
	Total     domain.Price      `json:"total"`
	ItemCount int               `json:"itemCount"`
}

func New(store ledger.Store, products productReader, opts Options) *Service {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = defaultIdleTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:    store,
		products: products,
		logger:   logging.OrNop(opts.Logger),
		idleTTL:  opts.IdleTTL,
		now:      opts.Now,
		sessions: make(map[string]*session),
	}
}

// Ledger returns the session's ledger, restoring it from the store when it
// is not in memory.
func (s *Service) Ledger(ctx context.Context, sessionID string) (*ledger.Ledger, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.lastSeen = s.now()
		return sess.ledger, nil
	}
	logger := s.logger.With(zap.String("session", sessionID))
	l := ledger.Open(ctx, s.store, ledger.SessionKey(sessionID),
		ledger.WithLogger(logger),
		ledger.WithListener(changeLogger(logger)))
	s.sessions[sessionID] = &session{ledger: l, lastSeen: s.now()}
	s.logger.Debug("cart: session opened", zap.String("session", sessionID), zap.Int("lines", l.Len()))
	return l, nil
}

func (s *Service) Get(ctx context.Context, sessionID string) (View, error) {
	l, err := s.Ledger(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	return viewOf(sessionID, l), nil
}

// AddItem snapshots the catalog product into the cart. The merged line may
// not exceed MaxQuantity.
func (s *Service) AddItem(ctx context.Context, sessionID string, productID int64, quantity int) (View, error) {
	if quantity <= 0 || quantity > MaxQuantity {
		return View{}, ErrInvalidQuantity
	}
	l, err := s.Ledger(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	if quantityOf(l, productID)+quantity > MaxQuantity {
		return View{}, ErrInvalidQuantity
	}
	if s.products == nil {
		return View{}, errors.New("product repository unavailable")
	}
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return View{}, err
	}
	l.AddItem(ctx, *product, quantity)
	return viewOf(sessionID, l), nil
}

// UpdateQuantity sets the line quantity; zero or less removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, sessionID string, productID int64, quantity int) (View, error) {
	if quantity > MaxQuantity {
		return View{}, ErrInvalidQuantity
	}
	l, err := s.Ledger(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	l.UpdateQuantity(ctx, productID, quantity)
	return viewOf(sessionID, l), nil
}

func (s *Service) RemoveItem(ctx context.Context, sessionID string, productID int64) (View, error) {
	l, err := s.Ledger(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	l.RemoveItem(ctx, productID)
	return viewOf(sessionID, l), nil
}

func (s *Service) Clear(ctx context.Context, sessionID string) (View, error) {
	l, err := s.Ledger(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	l.ClearCart(ctx)
	return viewOf(sessionID, l), nil
}

// Sessions reports how many ledgers are held in memory.
func (s *Service) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictIdle drops ledgers not accessed within IdleTTL and returns how many
// were dropped. Non-empty carts remain in the store; the snapshots of empty
// ones are deleted.
func (s *Service) EvictIdle(ctx context.Context) int {
	cutoff := s.now().Add(-s.idleTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted, forgotten := 0, 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			evicted++
			if sess.ledger.Forget(ctx) {
				forgotten++
			}
		}
	}
	if evicted > 0 {
		s.logger.Debug("cart: evicted idle sessions",
			zap.Int("count", evicted),
			zap.Int("forgotten", forgotten),
			zap.Int("remaining", len(s.sessions)))
	}
	return evicted
}

// Run evicts idle sessions periodically until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	interval := s.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.EvictIdle(ctx)
		}
	}
}

func changeLogger(logger *zap.Logger) ledger.Listener {
	return func(items []domain.LineItem) {
		count := 0
		for _, item := range items {
			count += item.Quantity
		}
		logger.Debug("cart: changed", zap.Int("lines", len(items)), zap.Int("items", count))
	}
}

func quantityOf(l *ledger.Ledger, productID int64) int {
	for _, item := range l.Items() {
		if item.Product.ID == productID {
			return item.Quantity
		}
	}
	return 0
}

func viewOf(sessionID string, l *ledger.Ledger) View {
	return View{
		SessionID: sessionID,
		Items:     l.Items(),
		Total:     l.Total(),
		ItemCount: l.ItemCount(),
	}
}
