package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mercai/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCachedCatalog_DefaultTTL(t *testing.T) {
	cached := NewCachedCatalog(newFakeCatalog(), NewMockCacheRepository(), 0)
	assert.Equal(t, 30*time.Minute, cached.ttl)

	cached = NewCachedCatalog(newFakeCatalog(), NewMockCacheRepository(), time.Minute)
	assert.Equal(t, time.Minute, cached.ttl)
}

func TestCachedCatalog_OffersForProduct(t *testing.T) {
	catalog := newFakeCatalog()
	offer := newOffer("o1", "p1", "s1", "28.90", true)
	offer.OriginalPrice = nullDec("32.90")
	validUntil := time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)
	offer.ValidUntil = &validUntil
	catalog.addOffer(offer)

	cache := NewMockCacheRepository()
	cached := NewCachedCatalog(catalog, cache, time.Minute)
	ctx := context.Background()

	first, err := cached.OffersForProduct(ctx, "p1")
	require.NoError(t, err)
	second, err := cached.OffersForProduct(ctx, "p1")
	require.NoError(t, err)

	assert.Equal(t, 1, catalog.offerCalls["p1"])
	assert.Contains(t, cache.data, "offers:p1")
	require.Len(t, second, 1)
	assertDecimal(t, "28.90", second[0].Price)
	assert.True(t, second[0].OriginalPrice.Valid)
	assert.False(t, second[0].DiscountPercentage.Valid)
	require.NotNil(t, second[0].ValidUntil)
	assert.True(t, second[0].ValidUntil.Equal(validUntil))
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestCachedCatalog_GetStoreAndProduct(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addStore("s1", "Supermercado Central")
	catalog.products["p1"] = domain.Product{ID: "p1", Name: "Arroz"}

	cache := NewMockCacheRepository()
	cached := NewCachedCatalog(catalog, cache, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		store, err := cached.GetStore(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "Supermercado Central", store.Name)

		product, err := cached.GetProduct(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "Arroz", product.Name)
	}

	assert.Equal(t, 1, catalog.storeCalls["s1"])
	assert.Contains(t, cache.data, "store:s1")
	assert.Contains(t, cache.data, "product:p1")
}

func TestCachedCatalog_ListsAreNotCached(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.lists["l1"] = domain.ShoppingList{ID: "l1", UserID: "u1"}

	cache := NewMockCacheRepository()
	cached := NewCachedCatalog(catalog, cache, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := cached.GetList(context.Background(), "l1")
		require.NoError(t, err)
	}

	assert.Equal(t, 2, catalog.listCalls)
	assert.Zero(t, cache.sets)
}

func TestCachedCatalog_ErrorsAreNotCached(t *testing.T) {
	boom := errors.New("backend down")
	catalog := newFakeCatalog()
	catalog.offerErr["p1"] = boom

	cache := NewMockCacheRepository()
	cached := NewCachedCatalog(catalog, cache, time.Minute)
	ctx := context.Background()

	_, err := cached.OffersForProduct(ctx, "p1")
	assert.ErrorIs(t, err, boom)

	_, err = cached.GetStore(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrStoreNotFound)

	assert.Zero(t, cache.sets)
}

func TestCachedCatalog_DropsUndecodableEntries(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addStore("s1", "Atacadão")

	cache := NewMockCacheRepository()
	cache.data["store:s1"] = []byte("not json")
	cached := NewCachedCatalog(catalog, cache, time.Minute)

	store, err := cached.GetStore(context.Background(), "s1")

	require.NoError(t, err)
	assert.Equal(t, "Atacadão", store.Name)
	assert.Equal(t, 1, cache.deletes)
	assert.Equal(t, 1, catalog.storeCalls["s1"])
	assert.JSONEq(t, `{"id":"s1","name":"Atacadão"}`, string(cache.data["store:s1"]))
}

func TestCachedCatalog_CacheFailuresFallThrough(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.products["p1"] = domain.Product{ID: "p1", Name: "Feijão"}

	cache := NewMockCacheRepository()
	cache.getError = errors.New("cache unavailable")
	cache.setError = errors.New("cache unavailable")
	cached := NewCachedCatalog(catalog, cache, time.Minute)

	product, err := cached.GetProduct(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, "Feijão", product.Name)
	assert.Equal(t, 1, cache.sets)
}

func TestCachedCatalog_NilLookupsAreNotFound(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.stores["s1"] = nil
	catalog.addOffer(newOffer("o1", "p1", "s1", "10.00", true))

	cache := NewMockCacheRepository()
	cached := NewCachedCatalog(catalog, cache, time.Minute)
	engine := NewRankingEngine(RankingConfig{})
	items := []domain.ListItem{listItem("p1", 1)}

	for i := 0; i < 2; i++ {
		_, err := cached.GetStore(context.Background(), "s1")
		assert.ErrorIs(t, err, domain.ErrStoreNotFound)

		result, err := engine.RankList(context.Background(), "l1", items, cached, cached, nil)
		assert.Nil(t, result, "call %d", i)
		assert.ErrorIs(t, err, domain.ErrLookupFailure)
		assert.ErrorIs(t, err, domain.ErrStoreNotFound)
	}

	assert.NotContains(t, cache.data, "store:s1")
	assert.Equal(t, 4, catalog.storeCalls["s1"])
}

func TestCachedCatalog_NullEntryIsAMiss(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.addStore("s1", "Mercado Popular")
	catalog.products["p1"] = domain.Product{ID: "p1", Name: "Arroz"}

	cache := NewMockCacheRepository()
	cache.data["store:s1"] = []byte("null")
	cache.data["product:p1"] = []byte(" null\n")
	cached := NewCachedCatalog(catalog, cache, time.Minute)
	ctx := context.Background()

	store, err := cached.GetStore(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", store.ID)

	product, err := cached.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", product.ID)

	assert.Equal(t, 2, cache.deletes)
	assert.JSONEq(t, `{"id":"s1","name":"Mercado Popular"}`, string(cache.data["store:s1"]))
}

func TestCachedCatalog_CachesEmptyOffers(t *testing.T) {
	catalog := newFakeCatalog()
	cache := NewMockCacheRepository()
	cached := NewCachedCatalog(catalog, cache, time.Minute)

	for i := 0; i < 2; i++ {
		offers, err := cached.OffersForProduct(context.Background(), "p9")
		require.NoError(t, err)
		assert.Empty(t, offers)
	}

	assert.Equal(t, 1, catalog.offerCalls["p9"])
	assert.Equal(t, "[]", string(cache.data["offers:p9"]))
}
