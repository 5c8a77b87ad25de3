package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logging"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

const productColumns = `id, product_display_name, gender, master_category, sub_category, article_type,
base_colour, season, year, usage, price::text, COALESCE(description, ''), COALESCE(image, ''), created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger)}
}

func (r *postgresRepo) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	q, args := buildListQuery(filter)
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Error("product repo: list", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("product repo: list rows", zap.Error(err))
		return nil, err
	}
	r.logger.Debug("product repo: list", zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("product repo: get not found", zap.Int64("id", id))
			return nil, domain.ErrNotFound
		}
		r.logger.Error("product repo: get", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (id, product_display_name, gender, master_category, sub_category, article_type,
                      base_colour, season, year, usage, price, description, image)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::numeric, NULLIF($12, ''), NULLIF($13, ''))
ON CONFLICT (id) DO UPDATE SET
    product_display_name = EXCLUDED.product_display_name,
    gender = EXCLUDED.gender,
    master_category = EXCLUDED.master_category,
    sub_category = EXCLUDED.sub_category,
    article_type = EXCLUDED.article_type,
    base_colour = EXCLUDED.base_colour,
    season = EXCLUDED.season,
    year = EXCLUDED.year,
    usage = EXCLUDED.usage,
    price = EXCLUDED.price,
    description = EXCLUDED.description,
    image = EXCLUDED.image,
    updated_at = now()
RETURNING ` + productColumns
	res, err := scanProduct(r.pool.QueryRow(ctx, q,
		product.ID,
		product.DisplayName,
		product.Gender,
		product.MasterCategory,
		product.SubCategory,
		product.ArticleType,
		product.BaseColour,
		product.Season,
		product.Year,
		product.Usage,
		product.Price.String(),
		product.Description,
		product.Image,
	))
	if err != nil {
		r.logger.Error("product repo: upsert", zap.Int64("id", product.ID), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("product repo: upserted", zap.Int64("id", res.ID))
	return res, nil
}

func (r *postgresRepo) Create(ctx context.Context, product domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (id, product_display_name, gender, master_category, sub_category, article_type,
                      base_colour, season, year, usage, price, description, image)
VALUES (
    CASE WHEN $1::bigint > 0 THEN $1::bigint ELSE (SELECT COALESCE(MAX(id), 0) + 1 FROM products) END,
    $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::numeric, NULLIF($12, ''), NULLIF($13, ''))
ON CONFLICT (id) DO NOTHING
RETURNING ` + productColumns
	res, err := scanProduct(r.pool.QueryRow(ctx, q,
		product.ID,
		product.DisplayName,
		product.Gender,
		product.MasterCategory,
		product.SubCategory,
		product.ArticleType,
		product.BaseColour,
		product.Season,
		product.Year,
		product.Usage,
		product.Price.String(),
		product.Description,
		product.Image,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", product.ID, domain.ErrConflict)
		}
		r.logger.Error("product repo: create", zap.Int64("id", product.ID), zap.Error(err))
		return nil, err
	}
	r.logger.Info("product repo: created", zap.Int64("id", res.ID))
	return res, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("product repo: delete", zap.Int64("id", id), zap.Error(err))
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Info("product repo: deleted", zap.Int64("id", id))
	return nil
}

func (r *postgresRepo) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		r.logger.Error("product repo: bulk delete", zap.Int("requested", len(ids)), zap.Error(err))
		return 0, err
	}
	r.logger.Info("product repo: bulk deleted", zap.Int("requested", len(ids)), zap.Int64("deleted", cmd.RowsAffected()))
	return cmd.RowsAffected(), nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	if err := row.Scan(
		&p.ID, &p.DisplayName, &p.Gender, &p.MasterCategory, &p.SubCategory, &p.ArticleType,
		&p.BaseColour, &p.Season, &p.Year, &p.Usage, &price, &p.Description, &p.Image,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := domain.ParsePrice(price)
	if err != nil {
		return nil, fmt.Errorf("product %d: %w", p.ID, err)
	}
	p.Price = parsed
	return &p, nil
}

// buildListQuery renders the filtered catalog query with positional args.
func buildListQuery(f domain.ProductFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Gender != "" {
		add("gender = $%d", f.Gender)
	}
	if f.MasterCategory != "" {
		add("master_category = $%d", f.MasterCategory)
	}
	if f.SubCategory != "" {
		add("sub_category = $%d", f.SubCategory)
	}
	if f.Season != "" {
		add("season = $%d", f.Season)
	}
	if f.Usage != "" {
		add("usage = $%d", f.Usage)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		add("product_display_name ILIKE $%d", "%"+s+"%")
	}
	if f.MinPrice != nil {
		add("price >= $%d::numeric", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		add("price <= $%d::numeric", f.MaxPrice.String())
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(productColumns)
	b.WriteString(" FROM products")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY id ASC")

	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	args = append(args, limit)
	fmt.Fprintf(&b, " LIMIT $%d", len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}
	return b.String(), args
}
