package seed

import (
	"context"
	"fmt"

	"storefront/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// DemoProducts is a small slice of the fashion catalog for manual testing.
func DemoProducts() []domain.Product {
	return []domain.Product{
		{
			ID:             15970,
			DisplayName:    "Turtle Check Men Navy Blue Shirt",
			Gender:         "Men",
			MasterCategory: "Apparel",
			SubCategory:    "Topwear",
			ArticleType:    "Shirts",
			BaseColour:     "Navy Blue",
			Season:         "Fall",
			Year:           2011,
			Usage:          "Casual",
			Price:          domain.MustPrice("29.99"),
		},
		{
			ID:             39386,
			DisplayName:    "Peter England Men Party Blue Jeans",
			Gender:         "Men",
			MasterCategory: "Apparel",
			SubCategory:    "Bottomwear",
			ArticleType:    "Jeans",
			BaseColour:     "Blue",
			Season:         "Summer",
			Year:           2012,
			Usage:          "Casual",
			Price:          domain.MustPrice("59.98"),
		},
		{
			ID:             59263,
			DisplayName:    "Titan Women Silver Watch",
			Gender:         "Women",
			MasterCategory: "Accessories",
			SubCategory:    "Watches",
			ArticleType:    "Watches",
			BaseColour:     "Silver",
			Season:         "Winter",
			Year:           2016,
			Usage:          "Casual",
			Price:          domain.MustPrice("89.50"),
		},
		{
			ID:             53759,
			DisplayName:    "Puma Men Grey T-shirt",
			Gender:         "Men",
			MasterCategory: "Apparel",
			SubCategory:    "Topwear",
			ArticleType:    "Tshirts",
			BaseColour:     "Grey",
			Season:         "Summer",
			Year:           2012,
			Usage:          "Casual",
			Price:          domain.MustPrice("19.99"),
		},
	}
}

// Apply upserts the demo catalog. It is idempotent since products are keyed by id.
func Apply(ctx context.Context, repo ProductWriter) (int, error) {
	count := 0
	for _, p := range DemoProducts() {
		p.Description = p.DisplayName
		p.Image = fmt.Sprintf("products/images/%d.jpg", p.ID)
		if _, err := repo.Upsert(ctx, p); err != nil {
			return count, fmt.Errorf("upsert product %d: %w", p.ID, err)
		}
		count++
	}
	return count, nil
}
