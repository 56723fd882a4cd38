package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/antonminaichev/gomarket/internal/util/money"
)

// Market groups the products of one seller. The market owner is the
// account credited when the product is sold.
type Market struct {
	ID        int64     `db:"id" json:"id"`
	OwnerID   int64     `db:"owner_id" json:"-"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Product struct {
	ID              int64           `db:"id" json:"id"`
	MarketID        int64           `db:"market_id" json:"-"`
	Name            string          `db:"name" json:"name"`
	OriginalPrice   decimal.Decimal `db:"original_price" json:"original_price"`
	DiscountPercent decimal.Decimal `db:"discount_percent" json:"discount_percent"`
	Available       bool            `db:"available" json:"available"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// SalePrice is the product price after the product-level discount.
func (p *Product) SalePrice() decimal.Decimal {
	factor := decimal.NewFromInt(100).Sub(p.DiscountPercent).Div(decimal.NewFromInt(100))
	return money.Round(p.OriginalPrice.Mul(factor))
}

// ProductType is a purchasable variant of a product with its own stock
// count and price markup. UnitsCount never goes negative.
type ProductType struct {
	ID            int64             `db:"id" json:"id"`
	ProductID     int64             `db:"product_id" json:"-"`
	UnitsCount    int               `db:"units_count" json:"units_count"`
	Properties    map[string]string `db:"properties" json:"properties,omitempty"`
	MarkupPercent decimal.Decimal   `db:"markup_percent" json:"markup_percent"`

	// Denormalized product fields filled by reads that join the parent.
	ProductName            string          `db:"-" json:"product_name,omitempty"`
	ProductOriginalPrice   decimal.Decimal `db:"-" json:"-"`
	ProductDiscountPercent decimal.Decimal `db:"-" json:"-"`
	SellerID               int64           `db:"-" json:"-"`
}

func (t *ProductType) markupFactor() decimal.Decimal {
	return decimal.NewFromInt(100).Add(t.MarkupPercent).Div(decimal.NewFromInt(100))
}

// OriginalPrice is the parent product's original price with the type
// markup applied, rounded to currency precision.
func (t *ProductType) OriginalPrice() decimal.Decimal {
	return money.Round(t.ProductOriginalPrice.Mul(t.markupFactor()))
}

// SalePrice is the parent product's discounted price with the type
// markup applied, rounded to currency precision.
func (t *ProductType) SalePrice() decimal.Decimal {
	p := Product{OriginalPrice: t.ProductOriginalPrice, DiscountPercent: t.ProductDiscountPercent}
	return money.Round(p.SalePrice().Mul(t.markupFactor()))
}

func (t *ProductType) HasUnits() bool {
	return t.UnitsCount > 0
}
