package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logging"
)

const orderColumns = `id::text, order_number, session_id, status, payment_status,
total_amount::text, discount_amount::text, tax_amount::text, final_amount::text,
shipping_address, shipping_city, shipping_postal_code, shipping_country,
created_at, updated_at, shipped_at, delivered_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger)}
}

// Create inserts the order and its items in one transaction.
func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	created, err := scanOrder(tx.QueryRow(ctx, `
INSERT INTO orders (order_number, session_id, status, payment_status,
                    total_amount, discount_amount, tax_amount, final_amount,
                    shipping_address, shipping_city, shipping_postal_code, shipping_country)
VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9, $10, $11, $12)
RETURNING `+orderColumns,
		o.Number, o.SessionID, string(o.Status), string(o.PaymentStatus),
		o.TotalAmount.String(), o.DiscountAmount.String(), o.TaxAmount.String(), o.FinalAmount.String(),
		o.Shipping.Address, o.Shipping.City, o.Shipping.PostalCode, o.Shipping.Country,
	))
	if err != nil {
		r.logger.Error("order repo: insert order", zap.String("number", o.Number), zap.Error(err))
		return nil, err
	}

	for _, item := range o.Items {
		var id string
		err := tx.QueryRow(ctx, `
INSERT INTO order_items (order_id, product_id, product_name, quantity, price_per_unit, total_price)
VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric)
RETURNING id::text
`, created.ID, item.ProductID, item.ProductName, item.Quantity, item.PricePerUnit.String(), item.TotalPrice.String()).Scan(&id)
		if err != nil {
			r.logger.Error("order repo: insert item", zap.String("number", o.Number), zap.Int64("product_id", item.ProductID), zap.Error(err))
			return nil, err
		}
		item.ID = id
		created.Items = append(created.Items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Info("order repo: created", zap.String("number", created.Number), zap.Int("items", len(created.Items)))
	return created, nil
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func (r *postgresRepo) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	items, err := r.items(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (r *postgresRepo) ListBySession(ctx context.Context, sessionID string) ([]domain.Order, error) {
	return r.query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE session_id = $1 ORDER BY created_at DESC`, sessionID)
}

// List returns orders of every session, newest first.
func (r *postgresRepo) List(ctx context.Context, f ListFilter) ([]domain.Order, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := max(f.Offset, 0)
	return r.query(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE ($1::text = '' OR status = $1::text)
ORDER BY created_at DESC, order_number DESC
LIMIT $2 OFFSET $3
`, string(f.Status), limit, offset)
}

func (r *postgresRepo) query(ctx context.Context, sql string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// UpdateStatus is a compare-and-set on (status, payment_status). When no row
// matches it tells a missing order apart from one changed in between.
func (r *postgresRepo) UpdateStatus(ctx context.Context, o domain.Order, from Status) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE orders
SET status = $1,
    payment_status = $2,
    shipped_at = $3,
    delivered_at = $4,
    updated_at = now()
WHERE order_number = $5
  AND status = $6
  AND payment_status = $7
`, string(o.Status), string(o.PaymentStatus), o.ShippedAt, o.DeliveredAt, o.Number,
		string(from.Order), string(from.Payment))
	if err != nil {
		r.logger.Error("order repo: update status", zap.String("number", o.Number), zap.Error(err))
		return err
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)`, o.Number).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	r.logger.Warn("order repo: status changed concurrently",
		zap.String("number", o.Number),
		zap.String("expected", string(from.Order)),
		zap.String("to", string(o.Status)))
	return ErrStatusChanged
}

func (r *postgresRepo) items(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id::text, COALESCE(product_id, 0), product_name, quantity, price_per_unit::text, total_price::text
FROM order_items
WHERE order_id = $1
ORDER BY created_at ASC
`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.OrderItem
	for rows.Next() {
		var (
			item        domain.OrderItem
			unit, total string
		)
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &unit, &total); err != nil {
			return nil, err
		}
		if item.PricePerUnit, err = domain.ParsePrice(unit); err != nil {
			return nil, err
		}
		if item.TotalPrice, err = domain.ParsePrice(total); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                                 domain.Order
		status, paymentStatus             string
		total, discount, tax, finalAmount string
	)
	if err := row.Scan(
		&o.ID, &o.Number, &o.SessionID, &status, &paymentStatus,
		&total, &discount, &tax, &finalAmount,
		&o.Shipping.Address, &o.Shipping.City, &o.Shipping.PostalCode, &o.Shipping.Country,
		&o.CreatedAt, &o.UpdatedAt, &o.ShippedAt, &o.DeliveredAt,
	); err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	o.PaymentStatus = domain.PaymentStatus(paymentStatus)

	amounts := []struct {
		raw string
		dst *domain.Price
	}{
		{total, &o.TotalAmount},
		{discount, &o.DiscountAmount},
		{tax, &o.TaxAmount},
		{finalAmount, &o.FinalAmount},
	}
	for _, a := range amounts {
		p, err := domain.ParsePrice(a.raw)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", o.Number, err)
		}
		*a.dst = p
	}
	return &o, nil
}
