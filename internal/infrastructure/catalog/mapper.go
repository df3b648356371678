package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mercai/backend/internal/domain"
	"github.com/shopspring/decimal"
)

// envelope is the response wrapper used by every backend endpoint
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// flexID accepts identifiers sent either as JSON numbers or strings
type flexID string

func (id *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = flexID(n.String())
	return nil
}

// flexTime accepts the date and timestamp layouts the backend emits
type flexTime struct {
	time.Time
	Valid bool
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil || strings.TrimSpace(*s) == "" {
		*t = flexTime{}
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, *s); err == nil {
			*t = flexTime{Time: parsed, Valid: true}
			return nil
		}
	}
	return fmt.Errorf("unrecognised time %q", *s)
}

func (t flexTime) ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

type storeDTO struct {
	ID        flexID   `json:"id"`
	Name      string   `json:"name"`
	URL       string   `json:"url"`
	LogoURL   string   `json:"logo_url"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address"`
	Phone     string   `json:"phone"`
}

type productDTO struct {
	ID       flexID `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Brand    string `json:"brand"`
	ImageURL string `json:"image_url"`
}

// popularDTO is a product listed with its in-stock offer count
type popularDTO struct {
	productDTO
	OffersCount int `json:"offers_count"`
}

type paginationDTO struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
	Pages   int `json:"pages"`
}

type offerDTO struct {
	ID                 flexID              `json:"id"`
	ProductID          flexID              `json:"product_id"`
	StoreID            flexID              `json:"store_id"`
	Price              decimal.Decimal     `json:"price"`
	OriginalPrice      decimal.NullDecimal `json:"original_price"`
	DiscountPercentage decimal.NullDecimal `json:"discount_percentage"`
	InStock            *bool               `json:"in_stock"`
	ValidUntil         flexTime            `json:"valid_until"`
	ScrapedAt          flexTime            `json:"scraped_at"`
	Store              *storeDTO           `json:"store"`
}

type listItemDTO struct {
	ID        flexID      `json:"id"`
	ProductID flexID      `json:"product_id"`
	Quantity  int         `json:"quantity"`
	Product   *productDTO `json:"product"`
}

type listDTO struct {
	ID        flexID        `json:"id"`
	UserID    flexID        `json:"user_id"`
	Name      string        `json:"name"`
	Latitude  *float64      `json:"latitude"`
	Longitude *float64      `json:"longitude"`
	Items     []listItemDTO `json:"items"`
}

// mapStore converts a backend store to the domain model. A record without
// an id (e.g. "store": null) is reported as not found.
func mapStore(dto *storeDTO) (*domain.Store, error) {
	if dto == nil || dto.ID == "" {
		return nil, fmt.Errorf("%w: empty store record", domain.ErrStoreNotFound)
	}
	return &domain.Store{
		ID:        string(dto.ID),
		Name:      dto.Name,
		URL:       dto.URL,
		LogoURL:   dto.LogoURL,
		Latitude:  dto.Latitude,
		Longitude: dto.Longitude,
		Address:   dto.Address,
		Phone:     dto.Phone,
	}, nil
}

// mapProduct converts a backend product to the domain model. A record
// without an id is reported as not found.
func mapProduct(dto *productDTO) (*domain.Product, error) {
	if dto == nil || dto.ID == "" {
		return nil, fmt.Errorf("%w: empty product record", domain.ErrProductNotFound)
	}
	product := productFromDTO(dto)
	return &product, nil
}

func productFromDTO(dto *productDTO) domain.Product {
	return domain.Product{
		ID:       string(dto.ID),
		Name:     dto.Name,
		Category: dto.Category,
		Brand:    dto.Brand,
		ImageURL: dto.ImageURL,
	}
}

// mapOffer converts a backend offer to the domain model. The backend omits
// product_id and store_id when the store is embedded, so productID fills the
// former and the embedded store the latter. in_stock defaults to true.
func mapOffer(dto *offerDTO, productID string) domain.Offer {
	offer := domain.Offer{
		ID:                 string(dto.ID),
		ProductID:          string(dto.ProductID),
		StoreID:            string(dto.StoreID),
		Price:              dto.Price,
		OriginalPrice:      dto.OriginalPrice,
		DiscountPercentage: dto.DiscountPercentage,
		InStock:            dto.InStock == nil || *dto.InStock,
		ValidUntil:         dto.ValidUntil.ptr(),
		ScrapedAt:          dto.ScrapedAt.ptr(),
	}
	if offer.ProductID == "" {
		offer.ProductID = productID
	}
	if offer.StoreID == "" && dto.Store != nil {
		offer.StoreID = string(dto.Store.ID)
	}
	return offer
}

// mapList converts a backend shopping list to the domain model.
// Items without an embedded product keep only the product id.
func mapList(dto *listDTO) (*domain.ShoppingList, error) {
	if dto.ID == "" {
		return nil, fmt.Errorf("%w: empty list record", domain.ErrListNotFound)
	}
	list := &domain.ShoppingList{
		ID:     string(dto.ID),
		UserID: string(dto.UserID),
		Name:   dto.Name,
		Items:  make([]domain.ListItem, 0, len(dto.Items)),
	}
	if dto.Latitude != nil && dto.Longitude != nil {
		list.Location = &domain.Location{Latitude: *dto.Latitude, Longitude: *dto.Longitude}
	}

	for i := range dto.Items {
		item := &dto.Items[i]
		var product domain.Product
		if item.Product != nil {
			product = productFromDTO(item.Product)
		}
		if product.ID == "" {
			product.ID = string(item.ProductID)
		}
		if product.ID == "" {
			return nil, fmt.Errorf("%w: list %s item %s has no product", domain.ErrCatalogAPIFailure, dto.ID, item.ID)
		}
		list.Items = append(list.Items, domain.ListItem{
			ID:       string(item.ID),
			Product:  product,
			Quantity: item.Quantity,
		})
	}
	return list, nil
}
