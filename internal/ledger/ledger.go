// Package ledger owns the state of one shopping cart: the ordered line items,
// their mutation rules and the derived totals. Every mutation is written
// through to a key-value Store so the cart survives a restart.
package ledger

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logging"
)

// DefaultKey is the well-known storage key for a single-owner cart.
const DefaultKey = "cart-storage"

// SessionKey derives the storage key of a session-scoped cart.
func SessionKey(sessionID string) string {
	return DefaultKey + ":" + sessionID
}

// Store is the persistence medium. Load returns domain.ErrNotFound when the
// key has never been written.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
}

// Deleter is implemented by stores that can drop a key.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// persistTimeout bounds a snapshot write. The write is detached from the
// caller's cancellation so a mutation applied in memory is not lost because
// the request that caused it went away.
const persistTimeout = 5 * time.Second

// Listener is notified with a copy of the items after every mutation.
type Listener func(items []domain.LineItem)

type Option func(*Ledger)

func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) { l.logger = logging.OrNop(logger) }
}

func WithListener(fn Listener) Option {
	return func(l *Ledger) {
		if fn != nil {
			l.listeners = append(l.listeners, fn)
		}
	}
}

// Ledger is safe for concurrent use; each operation is atomic with respect
// to the others.
type Ledger struct {
	mu        sync.Mutex
	key       string
	store     Store
	logger    *zap.Logger
	items     []domain.LineItem
	listeners []Listener
}

// New returns an empty ledger bound to key. A nil store disables persistence.
func New(store Store, key string, opts ...Option) *Ledger {
	l := &Ledger{
		key:    key,
		store:  store,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open returns a ledger restored from the store. A missing or unreadable
// snapshot yields an empty ledger.
func Open(ctx context.Context, store Store, key string, opts ...Option) *Ledger {
	l := New(store, key, opts...)
	if store == nil {
		return l
	}
	payload, err := store.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			l.logger.Warn("ledger: restore failed", zap.String("key", key), zap.Error(err))
		}
		return l
	}
	items, err := Decode(payload)
	if err != nil {
		l.logger.Warn("ledger: discarding undecodable snapshot", zap.String("key", key), zap.Error(err))
		return l
	}
	l.items = items
	l.logger.Debug("ledger: restored", zap.String("key", key), zap.Int("lines", len(items)))
	return l
}

func (l *Ledger) Key() string { return l.key }

// AddItem merges quantity into the line for product.ID, appending a new line
// when the product is not in the cart yet. Non-positive quantities are ignored
// and a merged quantity saturates at math.MaxInt.
func (l *Ledger) AddItem(ctx context.Context, product domain.Product, quantity int) {
	if quantity <= 0 {
		return
	}
	l.mutate(ctx, func() {
		if i := l.indexOf(product.ID); i >= 0 {
			l.items[i].Quantity = saturatingAdd(l.items[i].Quantity, quantity)
			return
		}
		l.items = append(l.items, domain.LineItem{Product: product, Quantity: quantity})
	})
}

// UpdateQuantity sets the absolute quantity of a line. Zero or less removes it.
func (l *Ledger) UpdateQuantity(ctx context.Context, productID int64, quantity int) {
	l.mutate(ctx, func() {
		i := l.indexOf(productID)
		if i < 0 {
			return
		}
		if quantity <= 0 {
			l.removeAt(i)
			return
		}
		l.items[i].Quantity = quantity
	})
}

func (l *Ledger) RemoveItem(ctx context.Context, productID int64) {
	l.mutate(ctx, func() {
		if i := l.indexOf(productID); i >= 0 {
			l.removeAt(i)
		}
	})
}

func (l *Ledger) ClearCart(ctx context.Context) {
	l.mutate(ctx, func() {
		l.items = nil
	})
}

// Deduct subtracts the given quantities from the matching lines in a single
// mutation, dropping lines that reach zero. Lines not named in items, and any
// quantity added on top of the deducted amount, are kept.
func (l *Ledger) Deduct(ctx context.Context, items []domain.LineItem) {
	if len(items) == 0 {
		return
	}
	l.mutate(ctx, func() {
		for _, item := range items {
			i := l.indexOf(item.Product.ID)
			if i < 0 || item.Quantity <= 0 {
				continue
			}
			if l.items[i].Quantity <= item.Quantity {
				l.removeAt(i)
				continue
			}
			l.items[i].Quantity -= item.Quantity
		}
	})
}

// Forget deletes the stored snapshot of an empty cart. It reports whether a
// delete was issued; non-empty carts and stores without Delete are left alone.
func (l *Ledger) Forget(ctx context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	deleter, ok := l.store.(Deleter)
	if !ok || len(l.items) > 0 {
		return false
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := deleter.Delete(saveCtx, l.key); err != nil {
		l.logger.Warn("ledger: delete snapshot", zap.String("key", l.key), zap.Error(err))
		return false
	}
	return true
}

// Total is the sum of price times quantity over all lines.
func (l *Ledger) Total() domain.Price {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total domain.Price
	for _, item := range l.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ItemCount is the sum of quantities, not the number of lines.
func (l *Ledger) ItemCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, item := range l.items {
		count += item.Quantity
	}
	return count
}

// Items returns a copy of the lines in insertion order.
func (l *Ledger) Items() []domain.LineItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.copyItems()
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

func (l *Ledger) mutate(ctx context.Context, fn func()) {
	l.mu.Lock()
	fn()
	l.persist(ctx)
	snapshot := l.copyItems()
	listeners := l.listeners
	l.mu.Unlock()

	for _, notify := range listeners {
		notify(snapshot)
	}
}

// persist must be called with mu held. Failures are logged and dropped; the
// in-memory items stay authoritative.
func (l *Ledger) persist(ctx context.Context) {
	if l.store == nil {
		return
	}
	payload, err := Encode(l.items)
	if err != nil {
		l.logger.Warn("ledger: encode snapshot", zap.String("key", l.key), zap.Error(err))
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := l.store.Save(saveCtx, l.key, payload); err != nil {
		l.logger.Warn("ledger: persist snapshot", zap.String("key", l.key), zap.Error(err))
	}
}

func (l *Ledger) indexOf(productID int64) int {
	for i, item := range l.items {
		if item.Product.ID == productID {
			return i
		}
	}
	return -1
}

func saturatingAdd(a, b int) int {
	if b > 0 && a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

func (l *Ledger) removeAt(i int) {
	l.items = append(l.items[:i], l.items[i+1:]...)
}

func (l *Ledger) copyItems() []domain.LineItem {
	out := make([]domain.LineItem, len(l.items))
	copy(out, l.items)
	return out
}
