package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/mercai/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testListID = "3f2b9a1e-5c4d-4e8f-9a7b-1c2d3e4f5a60"

// newShoppingCatalog builds a two-store catalog with one list owned by user "1"
func newShoppingCatalog() *fakeCatalog {
	catalog := newFakeCatalog()
	lat1, lon1 := -15.7942, -47.8822
	lat2, lon2 := -15.8100, -47.9000
	catalog.stores["1"] = &domain.Store{ID: "1", Name: "Supermercado Central", Latitude: &lat1, Longitude: &lon1}
	catalog.stores["2"] = &domain.Store{ID: "2", Name: "Supermercado Bom Preço", Latitude: &lat2, Longitude: &lon2}

	rice := newOffer("1", "1", "1", "28.90", true)
	rice.OriginalPrice = nullDec("32.90")
	rice.DiscountPercentage = nullDec("12.16")
	catalog.addOffer(rice)
	catalog.addOffer(newOffer("2", "1", "2", "29.90", true))
	catalog.addOffer(newOffer("3", "2", "2", "5.99", true))

	catalog.lists[testListID] = domain.ShoppingList{
		ID:       testListID,
		UserID:   "1",
		Name:     "Compras do Mês",
		Location: &domain.Location{Latitude: lat1, Longitude: lon1},
		Items:    []domain.ListItem{listItem("1", 2), listItem("2", 4)},
	}
	return catalog
}

func TestRankingService_Rank(t *testing.T) {
	catalog := newShoppingCatalog()
	provider := &fakeProvider{catalog: catalog}
	service := NewRankingService(provider, nil, RankingServiceConfig{})

	result, err := service.Rank(context.Background(), &domain.RankRequest{
		ListID: testListID,
		UserID: "1",
		Token:  "session-token",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"session-token"}, provider.tokens)
	assert.Equal(t, testListID, result.ListID)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "1", result.Items[0].BestOffer.Store.ID)
	assert.Equal(t, "2", result.Items[1].BestOffer.Store.ID)

	// store 1: 57.80, store 2: 23.96
	require.NotNil(t, result.BestCombination)
	assert.Equal(t, "Supermercado Bom Preço", result.BestCombination.RecommendedStore)
	assertDecimal(t, "23.96", result.BestCombination.EstimatedTotal)
	require.Len(t, result.BestCombination.Alternatives, 1)
	assertDecimal(t, "57.80", result.BestCombination.Alternatives[0].EstimatedTotal)
	assertDecimal(t, "8.00", result.BestCombination.Alternatives[0].Savings)
}

func TestRankingService_RankDetailed(t *testing.T) {
	catalog := newShoppingCatalog()
	service := NewRankingService(&fakeProvider{catalog: catalog}, nil, RankingServiceConfig{})

	result, err := service.RankDetailed(context.Background(), &domain.RankRequest{ListID: testListID, UserID: "1"})

	require.NoError(t, err)
	assertDecimal(t, "81.76", result.Summary.EstimatedTotal)
	assertDecimal(t, "8.00", result.Summary.TotalSavings)
	assert.Equal(t, 2, result.Summary.ItemsCount)
	assert.NotNil(t, result.BestCombination)
}

func TestRankingService_InvalidRequest(t *testing.T) {
	service := NewRankingService(&fakeProvider{catalog: newShoppingCatalog()}, nil, RankingServiceConfig{})
	ctx := context.Background()

	t.Run("returns error for nil request", func(t *testing.T) {
		_, err := service.Rank(ctx, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})

	t.Run("returns error for empty list id", func(t *testing.T) {
		_, err := service.RankDetailed(ctx, &domain.RankRequest{UserID: "1"})
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})
}

func TestRankingService_ListNotFound(t *testing.T) {
	catalog := newShoppingCatalog()
	service := NewRankingService(&fakeProvider{catalog: catalog}, nil, RankingServiceConfig{})
	ctx := context.Background()

	tests := []struct {
		name    string
		request *domain.RankRequest
	}{
		{name: "unknown list", request: &domain.RankRequest{ListID: "00000000-0000-0000-0000-000000000000", UserID: "1"}},
		{name: "list owned by another user", request: &domain.RankRequest{ListID: testListID, UserID: "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := service.Rank(ctx, tt.request)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, domain.ErrListNotFound)
		})
	}

	assert.Empty(t, catalog.offerCalls, "offers are never fetched for a list the caller cannot see")
}

func TestRankingService_SkipsOwnershipWithoutUser(t *testing.T) {
	service := NewRankingService(&fakeProvider{catalog: newShoppingCatalog()}, nil, RankingServiceConfig{})

	_, err := service.Rank(context.Background(), &domain.RankRequest{ListID: testListID})

	assert.NoError(t, err)
}

func TestRankingService_LocationFallsBackToList(t *testing.T) {
	catalog := newShoppingCatalog()
	service := NewRankingService(&fakeProvider{catalog: catalog}, nil, RankingServiceConfig{})
	ctx := context.Background()

	fromList, err := service.Rank(ctx, &domain.RankRequest{ListID: testListID, UserID: "1"})
	require.NoError(t, err)
	best := fromList.Items[0].BestOffer
	require.NotNil(t, best.DistanceKm)
	assert.Equal(t, 0.0, *best.DistanceKm)

	hint := &domain.Location{Latitude: -15.8100, Longitude: -47.9000}
	fromHint, err := service.Rank(ctx, &domain.RankRequest{ListID: testListID, UserID: "1", Location: hint})
	require.NoError(t, err)
	require.NotNil(t, fromHint.Items[1].BestOffer.DistanceKm)
	assert.Equal(t, 0.0, *fromHint.Items[1].BestOffer.DistanceKm)
	assert.Greater(t, *fromHint.Items[0].BestOffer.DistanceKm, 0.0)

	list := catalog.lists[testListID]
	list.Location = nil
	catalog.lists[testListID] = list
	noHint, err := service.Rank(ctx, &domain.RankRequest{ListID: testListID, UserID: "1"})
	require.NoError(t, err)
	assert.Nil(t, noHint.Items[0].BestOffer.DistanceKm)
}

func TestRankingService_UsesCache(t *testing.T) {
	catalog := newShoppingCatalog()
	cache := NewMockCacheRepository()
	service := NewRankingService(&fakeProvider{catalog: catalog}, cache, RankingServiceConfig{CacheTTL: time.Minute})
	request := &domain.RankRequest{ListID: testListID, UserID: "1"}

	first, err := service.Rank(context.Background(), request)
	require.NoError(t, err)
	second, err := service.Rank(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, 1, catalog.offerCalls["1"])
	assert.Equal(t, 1, catalog.offerCalls["2"])
	assert.Equal(t, 1, catalog.storeCalls["1"])
	assert.Equal(t, 2, catalog.listCalls)
	assert.Equal(t, first.BestCombination.StoreID, second.BestCombination.StoreID)
	assert.True(t, first.BestCombination.EstimatedTotal.Equal(second.BestCombination.EstimatedTotal))
}

func TestRankingService_PropagatesLookupFailure(t *testing.T) {
	catalog := newShoppingCatalog()
	catalog.offerErr["2"] = domain.ErrCatalogAPIFailure
	service := NewRankingService(&fakeProvider{catalog: catalog}, nil, RankingServiceConfig{})

	_, err := service.Rank(context.Background(), &domain.RankRequest{ListID: testListID, UserID: "1"})

	assert.ErrorIs(t, err, domain.ErrLookupFailure)
	assert.ErrorIs(t, err, domain.ErrCatalogAPIFailure)
}
