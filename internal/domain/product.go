package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog product that can appear on a shopping list
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Brand    string `json:"brand,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Store represents a physical or online store that publishes offers
type Store struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	URL       string   `json:"url,omitempty"`
	LogoURL   string   `json:"logo_url,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Address   string   `json:"address,omitempty"`
	Phone     string   `json:"phone,omitempty"`
}

// Location returns the store coordinates, or nil when either one is unknown
func (s *Store) Location() *Location {
	if s == nil || s.Latitude == nil || s.Longitude == nil {
		return nil
	}
	return &Location{Latitude: *s.Latitude, Longitude: *s.Longitude}
}

// Offer is a store's priced listing for a product
type Offer struct {
	ID                 string              `json:"id"`
	ProductID          string              `json:"product_id"`
	StoreID            string              `json:"store_id"`
	Price              decimal.Decimal     `json:"price"`
	OriginalPrice      decimal.NullDecimal `json:"original_price"`
	DiscountPercentage decimal.NullDecimal `json:"discount_percentage"`
	InStock            bool                `json:"in_stock"`
	ValidUntil         *time.Time          `json:"valid_until,omitempty"`
	ScrapedAt          *time.Time          `json:"scraped_at,omitempty"`
}

// CalculateDiscountPercentage derives the discount from the original price.
// Returns an invalid NullDecimal when there is no original price or no reduction.
func (o *Offer) CalculateDiscountPercentage() decimal.NullDecimal {
	if !o.OriginalPrice.Valid || !o.OriginalPrice.Decimal.IsPositive() {
		return decimal.NullDecimal{}
	}
	if !o.Price.LessThan(o.OriginalPrice.Decimal) {
		return decimal.NullDecimal{}
	}
	pct := o.OriginalPrice.Decimal.Sub(o.Price).
		Div(o.OriginalPrice.Decimal).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	return decimal.NewNullDecimal(pct)
}

// EffectiveDiscount returns the supplied discount, falling back to the derived one
func (o *Offer) EffectiveDiscount() decimal.NullDecimal {
	if o.DiscountPercentage.Valid {
		return o.DiscountPercentage
	}
	return o.CalculateDiscountPercentage()
}

// Savings returns (original_price - price) for one unit, zero without an original price
func (o *Offer) Savings() decimal.Decimal {
	if !o.OriginalPrice.Valid {
		return decimal.Zero
	}
	return o.OriginalPrice.Decimal.Sub(o.Price)
}

// ListItem is one line of a shopping list
type ListItem struct {
	ID       string  `json:"id,omitempty"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// ShoppingList is a user's list of products, resolved by the list collaborator
type ShoppingList struct {
	ID       string     `json:"id"`
	UserID   string     `json:"user_id,omitempty"`
	Name     string     `json:"name,omitempty"`
	Location *Location  `json:"location,omitempty"`
	Items    []ListItem `json:"items"`
}

// Location is a latitude/longitude pair in decimal degrees
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
