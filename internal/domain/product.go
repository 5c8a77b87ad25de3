package domain

import "time"

// Product is the catalog snapshot carried by cart line items and orders.
type Product struct {
	ID             int64     `json:"id"`
	DisplayName    string    `json:"product_display_name"`
	Gender         string    `json:"gender,omitempty"`
	MasterCategory string    `json:"master_category,omitempty"`
	SubCategory    string    `json:"sub_category,omitempty"`
	ArticleType    string    `json:"article_type,omitempty"`
	BaseColour     string    `json:"base_colour,omitempty"`
	Season         string    `json:"season,omitempty"`
	Year           int       `json:"year,omitempty"`
	Usage          string    `json:"usage,omitempty"`
	Price          Price     `json:"price"`
	Description    string    `json:"description,omitempty"`
	Image          string    `json:"image,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProductFilter narrows catalog listings. Zero values are ignored.
type ProductFilter struct {
	Gender         string
	MasterCategory string
	SubCategory    string
	Season         string
	Usage          string
	Search         string
	MinPrice       *Price
	MaxPrice       *Price
	Limit          int
	Offset         int
}

// ProductPatch is a partial product update. Nil fields are left unchanged.
type ProductPatch struct {
	DisplayName    *string `json:"product_display_name"`
	Gender         *string `json:"gender"`
	MasterCategory *string `json:"master_category"`
	SubCategory    *string `json:"sub_category"`
	ArticleType    *string `json:"article_type"`
	BaseColour     *string `json:"base_colour"`
	Season         *string `json:"season"`
	Year           *int    `json:"year"`
	Usage          *string `json:"usage"`
	Price          *Price  `json:"price"`
	Description    *string `json:"description"`
	Image          *string `json:"image"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ProductPatch) IsEmpty() bool {
	return p == ProductPatch{}
}

// Apply copies every set field onto product.
func (p ProductPatch) Apply(product *Product) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&product.DisplayName, p.DisplayName)
	set(&product.Gender, p.Gender)
	set(&product.MasterCategory, p.MasterCategory)
	set(&product.SubCategory, p.SubCategory)
	set(&product.ArticleType, p.ArticleType)
	set(&product.BaseColour, p.BaseColour)
	set(&product.Season, p.Season)
	set(&product.Usage, p.Usage)
	set(&product.Description, p.Description)
	set(&product.Image, p.Image)
	if p.Year != nil {
		product.Year = *p.Year
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
}
