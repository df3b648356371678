package catalog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mercai/backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  flexID
	}{
		{name: "number", input: `42`, want: "42"},
		{name: "string", input: `"3f2b9a1e"`, want: "3f2b9a1e"},
		{name: "null", input: `null`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id flexID
			require.NoError(t, json.Unmarshal([]byte(tt.input), &id))
			assert.Equal(t, tt.want, id)
		})
	}

	var id flexID
	assert.Error(t, json.Unmarshal([]byte(`{}`), &id))
}

func TestFlexTime_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
		valid bool
	}{
		{name: "date only", input: `"2024-12-31"`, want: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), valid: true},
		{name: "isoformat without zone", input: `"2024-01-15T10:00:00"`, want: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), valid: true},
		{name: "rfc3339", input: `"2024-01-15T10:00:00Z"`, want: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), valid: true},
		{name: "null", input: `null`},
		{name: "empty string", input: `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ft flexTime
			require.NoError(t, json.Unmarshal([]byte(tt.input), &ft))
			assert.Equal(t, tt.valid, ft.Valid)
			if tt.valid {
				assert.True(t, ft.Time.Equal(tt.want), "got %s", ft.Time)
			} else {
				assert.Nil(t, ft.ptr())
			}
		})
	}

	var ft flexTime
	assert.Error(t, json.Unmarshal([]byte(`"31/12/2024"`), &ft))
}

func TestMapOffer(t *testing.T) {
	inStock := false
	tests := []struct {
		name          string
		dto           offerDTO
		wantProductID string
		wantStoreID   string
		wantInStock   bool
	}{
		{
			name:          "ids from embedded store and request",
			dto:           offerDTO{ID: "1", Price: decimal.NewFromInt(5), Store: &storeDTO{ID: "7"}},
			wantProductID: "p1",
			wantStoreID:   "7",
			wantInStock:   true,
		},
		{
			name:          "explicit ids win",
			dto:           offerDTO{ID: "2", ProductID: "p2", StoreID: "3", Store: &storeDTO{ID: "7"}},
			wantProductID: "p2",
			wantStoreID:   "3",
			wantInStock:   true,
		},
		{
			name:          "explicit out of stock",
			dto:           offerDTO{ID: "3", StoreID: "3", InStock: &inStock},
			wantProductID: "p1",
			wantStoreID:   "3",
			wantInStock:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offer := mapOffer(&tt.dto, "p1")

			assert.Equal(t, string(tt.dto.ID), offer.ID)
			assert.Equal(t, tt.wantProductID, offer.ProductID)
			assert.Equal(t, tt.wantStoreID, offer.StoreID)
			assert.Equal(t, tt.wantInStock, offer.InStock)
		})
	}
}

func TestMapList(t *testing.T) {
	lat, lon := -15.79, -47.88
	dto := &listDTO{
		ID:        "l1",
		UserID:    "1",
		Name:      "Mensal",
		Latitude:  &lat,
		Longitude: &lon,
		Items: []listItemDTO{
			{ID: "1", Quantity: 2, Product: &productDTO{ID: "10", Name: "Arroz"}},
			{ID: "2", ProductID: "11", Quantity: 1},
		},
	}

	list, err := mapList(dto)

	require.NoError(t, err)
	assert.Equal(t, "1", list.UserID)
	require.NotNil(t, list.Location)
	assert.Equal(t, lat, list.Location.Latitude)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "Arroz", list.Items[0].Product.Name)
	assert.Equal(t, "11", list.Items[1].Product.ID)

	_, err = mapList(&listDTO{ID: "l2", Items: []listItemDTO{{ID: "9", Quantity: 1}}})
	assert.Error(t, err)
}

func TestMapList_LocationNeedsBothCoordinates(t *testing.T) {
	lat := -15.79
	list, err := mapList(&listDTO{ID: "l1", Latitude: &lat})

	require.NoError(t, err)
	assert.Nil(t, list.Location)
	assert.Empty(t, list.Items)
}

func TestMapStoreAndProduct_RejectEmptyRecords(t *testing.T) {
	_, err := mapStore(&storeDTO{Name: "Sem id"})
	assert.ErrorIs(t, err, domain.ErrStoreNotFound)

	_, err = mapProduct(&productDTO{})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	store, err := mapStore(&storeDTO{ID: "4", Name: "Supermercado Bom Preço"})
	require.NoError(t, err)
	assert.Equal(t, "4", store.ID)

	product, err := mapProduct(&productDTO{ID: "1", Name: "Arroz"})
	require.NoError(t, err)
	assert.Equal(t, "Arroz", product.Name)
}

func TestMapList_Errors(t *testing.T) {
	_, err := mapList(&listDTO{})
	assert.ErrorIs(t, err, domain.ErrListNotFound)

	_, err = mapList(&listDTO{ID: "l2", Items: []listItemDTO{{ID: "9", Quantity: 1}}})
	assert.ErrorIs(t, err, domain.ErrCatalogAPIFailure)

	list, err := mapList(&listDTO{ID: "l3", Items: []listItemDTO{{ID: "1", ProductID: "7", Quantity: 1, Product: &productDTO{Name: "Leite"}}}})
	require.NoError(t, err)
	assert.Equal(t, "7", list.Items[0].Product.ID)
	assert.Equal(t, "Leite", list.Items[0].Product.Name)
}
