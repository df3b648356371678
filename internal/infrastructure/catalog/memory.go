package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/mercai/backend/internal/domain"
)

//go:embed fixtures/catalog.json
var defaultFixture []byte

// fixture is the on-disk layout of a memory catalog
type fixture struct {
	Stores   []domain.Store   `json:"stores"`
	Products []domain.Product `json:"products"`
	Offers   []domain.Offer   `json:"offers"`
	Lists    []fixtureList    `json:"lists"`
}

type fixtureList struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Name      string        `json:"name"`
	Latitude  *float64      `json:"latitude"`
	Longitude *float64      `json:"longitude"`
	Items     []fixtureItem `json:"items"`
}

type fixtureItem struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// snapshot is an immutable, validated view of a fixture
type snapshot struct {
	products map[string]domain.Product
	stores   map[string]domain.Store
	offers   map[string][]domain.Offer
	lists    map[string]domain.ShoppingList
}

// MemoryCatalog serves catalog data from a JSON fixture held in memory.
// It needs no credentials and ignores session tokens.
type MemoryCatalog struct {
	mu   sync.RWMutex
	data *snapshot
}

// NewMemoryCatalog creates a catalog loaded with the built-in seed data
func NewMemoryCatalog() (*MemoryCatalog, error) {
	c := &MemoryCatalog{}
	if err := c.Load(bytes.NewReader(defaultFixture)); err != nil {
		return nil, fmt.Errorf("failed to load built-in fixture: %w", err)
	}
	return c, nil
}

// NewMemoryCatalogFromFile creates a catalog loaded from a fixture file
func NewMemoryCatalogFromFile(path string) (*MemoryCatalog, error) {
	c := &MemoryCatalog{}
	if err := c.LoadFile(path); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile replaces the catalog contents with the fixture at path
func (c *MemoryCatalog) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open fixture: %w", err)
	}
	defer f.Close()

	if err := c.Load(f); err != nil {
		return fmt.Errorf("fixture %s: %w", path, err)
	}
	return nil
}

// Load replaces the catalog contents with the fixture read from r.
// On error the previous contents are kept.
func (c *MemoryCatalog) Load(r io.Reader) error {
	var fx fixture
	if err := json.NewDecoder(r).Decode(&fx); err != nil {
		return fmt.Errorf("failed to decode fixture: %w", err)
	}

	snap, err := buildSnapshot(&fx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.data = snap
	c.mu.Unlock()
	return nil
}

// buildSnapshot indexes a fixture and checks every reference resolves, so
// that store lookups never fail for a store referenced by an offer.
func buildSnapshot(fx *fixture) (*snapshot, error) {
	snap := &snapshot{
		products: make(map[string]domain.Product, len(fx.Products)),
		stores:   make(map[string]domain.Store, len(fx.Stores)),
		offers:   make(map[string][]domain.Offer),
		lists:    make(map[string]domain.ShoppingList, len(fx.Lists)),
	}

	for _, p := range fx.Products {
		if p.ID == "" {
			return nil, fmt.Errorf("product %q has no id", p.Name)
		}
		snap.products[p.ID] = p
	}
	for _, s := range fx.Stores {
		if s.ID == "" {
			return nil, fmt.Errorf("store %q has no id", s.Name)
		}
		snap.stores[s.ID] = s
	}

	for _, o := range fx.Offers {
		if _, ok := snap.products[o.ProductID]; !ok {
			return nil, fmt.Errorf("offer %s references unknown product %s", o.ID, o.ProductID)
		}
		if _, ok := snap.stores[o.StoreID]; !ok {
			return nil, fmt.Errorf("offer %s references unknown store %s", o.ID, o.StoreID)
		}
		if o.Price.IsNegative() {
			return nil, fmt.Errorf("offer %s has negative price", o.ID)
		}
		snap.offers[o.ProductID] = append(snap.offers[o.ProductID], o)
	}

	for _, l := range fx.Lists {
		list := domain.ShoppingList{
			ID:     l.ID,
			UserID: l.UserID,
			Name:   l.Name,
			Items:  make([]domain.ListItem, 0, len(l.Items)),
		}
		if l.Latitude != nil && l.Longitude != nil {
			list.Location = &domain.Location{Latitude: *l.Latitude, Longitude: *l.Longitude}
		}
		for _, item := range l.Items {
			product, ok := snap.products[item.ProductID]
			if !ok {
				return nil, fmt.Errorf("list %s references unknown product %s", l.ID, item.ProductID)
			}
			if item.Quantity <= 0 {
				return nil, fmt.Errorf("list %s item %s has non-positive quantity", l.ID, item.ID)
			}
			list.Items = append(list.Items, domain.ListItem{ID: item.ID, Product: product, Quantity: item.Quantity})
		}
		snap.lists[l.ID] = list
	}

	return snap, nil
}

func (c *MemoryCatalog) current() *snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data
}

// ForSession returns the catalog itself
func (c *MemoryCatalog) ForSession(token string) domain.Catalog {
	return c
}

// OffersForProduct returns a copy of the product's offers in fixture order
func (c *MemoryCatalog) OffersForProduct(ctx context.Context, productID string) ([]domain.Offer, error) {
	offers := c.current().offers[productID]
	out := make([]domain.Offer, len(offers))
	copy(out, offers)
	return out, nil
}

// GetStore returns the store with the given id
func (c *MemoryCatalog) GetStore(ctx context.Context, storeID string) (*domain.Store, error) {
	store, ok := c.current().stores[storeID]
	if !ok {
		return nil, domain.ErrStoreNotFound
	}
	return &store, nil
}

// GetProduct returns the product with the given id
func (c *MemoryCatalog) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	product, ok := c.current().products[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &product, nil
}

// GetList returns a copy of the list with the given id
func (c *MemoryCatalog) GetList(ctx context.Context, listID string) (*domain.ShoppingList, error) {
	list, ok := c.current().lists[listID]
	if !ok {
		return nil, domain.ErrListNotFound
	}
	items := make([]domain.ListItem, len(list.Items))
	copy(items, list.Items)
	list.Items = items
	return &list, nil
}

// SearchProducts returns the products matching filter, ordered by name
func (c *MemoryCatalog) SearchProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range c.current().products {
		if filter.Matches(p) {
			out = append(out, p)
		}
	}
	sortProducts(out)
	return out, nil
}

// Categories counts the products of each non-empty category
func (c *MemoryCatalog) Categories(ctx context.Context) ([]domain.CategoryCount, error) {
	counts := make(map[string]int)
	for _, p := range c.current().products {
		if p.Category != "" {
			counts[p.Category]++
		}
	}

	out := make([]domain.CategoryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, domain.CategoryCount{Name: name, Count: n})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out, nil
}

// PopularProducts ranks products by in-stock offer count, then by name.
// Products without an in-stock offer are left out.
func (c *MemoryCatalog) PopularProducts(ctx context.Context, limit int) ([]domain.PopularProduct, error) {
	snap := c.current()

	var out []domain.PopularProduct
	for id, offers := range snap.offers {
		n := 0
		for _, o := range offers {
			if o.InStock {
				n++
			}
		}
		if n > 0 {
			out = append(out, domain.PopularProduct{Product: snap.products[id], OffersCount: n})
		}
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].OffersCount != out[b].OffersCount {
			return out[a].OffersCount > out[b].OffersCount
		}
		return lessByName(out[a].Name, out[a].ID, out[b].Name, out[b].ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListStores returns every store ordered by name
func (c *MemoryCatalog) ListStores(ctx context.Context) ([]domain.Store, error) {
	stores := c.current().stores
	out := make([]domain.Store, 0, len(stores))
	for _, s := range stores {
		out = append(out, s)
	}
	sort.Slice(out, func(a, b int) bool {
		return lessByName(out[a].Name, out[a].ID, out[b].Name, out[b].ID)
	})
	return out, nil
}

func sortProducts(products []domain.Product) {
	sort.Slice(products, func(a, b int) bool {
		return lessByName(products[a].Name, products[a].ID, products[b].Name, products[b].ID)
	})
}

// lessByName orders by folded name, then id
func lessByName(nameA, idA, nameB, idB string) bool {
	fa, fb := domain.FoldText(nameA), domain.FoldText(nameB)
	if fa != fb {
		return fa < fb
	}
	return idA < idB
}
