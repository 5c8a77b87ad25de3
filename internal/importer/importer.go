package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logging"
)

const defaultYear = 2000

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// Stats summarizes one import run.
type Stats struct {
	Imported int
	Skipped  int
}

// CSVImporter reads the fashion catalog export (styles.csv layout) and
// upserts one product per row.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
	logger      *zap.Logger
	randPrice   func() domain.Price
}

type Option func(*CSVImporter)

// WithLogger attaches a logger for skipped rows and progress.
func WithLogger(logger *zap.Logger) Option {
	return func(i *CSVImporter) { i.logger = logger }
}

// WithPriceSource overrides how prices are chosen for rows without a price
// column.
func WithPriceSource(fn func() domain.Price) Option {
	return func(i *CSVImporter) { i.randPrice = fn }
}

func NewCSVImporter(r io.Reader, repo ProductWriter, opts ...Option) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // product names sometimes carry stray commas
	csvr.LazyQuotes = true
	imp := &CSVImporter{
		reader:      csvr,
		productRepo: repo,
		randPrice:   randomPrice,
	}
	for _, opt := range opts {
		opt(imp)
	}
	imp.logger = logging.OrNop(imp.logger)
	return imp
}

// Run parses CSV rows and upserts products. Malformed rows are skipped;
// repository errors abort the run.
func (i *CSVImporter) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	headers, err := i.reader.Read()
	if err != nil {
		return stats, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["id"]; !ok {
		return stats, errors.New("missing id column")
	}

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				stats.Skipped++
				i.logger.Debug("importer: unreadable row", zap.Error(err))
				continue
			}
			return stats, fmt.Errorf("read row: %w", err)
		}

		p, err := i.parseRow(record, index)
		if err != nil {
			stats.Skipped++
			i.logger.Debug("importer: skip row", zap.Error(err))
			continue
		}
		if _, err := i.productRepo.Upsert(ctx, p); err != nil {
			return stats, fmt.Errorf("upsert product %d: %w", p.ID, err)
		}
		stats.Imported++
		if stats.Imported%1000 == 0 {
			i.logger.Info("importer: progress", zap.Int("imported", stats.Imported))
		}
	}
	return stats, nil
}

func (i *CSVImporter) parseRow(record []string, index map[string]int) (domain.Product, error) {
	rawID := pick(record, index, "id")
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return domain.Product{}, fmt.Errorf("invalid id %q", rawID)
	}
	name := pick(record, index, "productDisplayName")
	if name == "" {
		return domain.Product{}, fmt.Errorf("product %d: missing display name", id)
	}

	price := i.randPrice()
	if raw := pick(record, index, "price"); raw != "" {
		price, err = domain.ParsePrice(raw)
		if err != nil || price.IsNegative() {
			return domain.Product{}, fmt.Errorf("product %d: invalid price %q", id, raw)
		}
	}

	return domain.Product{
		ID:             id,
		DisplayName:    name,
		Gender:         pick(record, index, "gender"),
		MasterCategory: pick(record, index, "masterCategory"),
		SubCategory:    pick(record, index, "subCategory"),
		ArticleType:    pick(record, index, "articleType"),
		BaseColour:     pick(record, index, "baseColour"),
		Season:         pick(record, index, "season"),
		Year:           parseYear(pick(record, index, "year")),
		Usage:          pick(record, index, "usage"),
		Price:          price,
		Description:    name,
		Image:          fmt.Sprintf("products/images/%d.jpg", id),
	}, nil
}

// parseYear accepts "2012" and "2012.0"; anything else falls back to defaultYear.
func parseYear(raw string) int {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 {
		return defaultYear
	}
	return int(f)
}

// randomPrice picks a demo price between 10.00 and 100.00.
func randomPrice() domain.Price {
	cents := 1000 + rand.Int64N(9001)
	return domain.NewPrice(decimal.New(cents, -2))
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
