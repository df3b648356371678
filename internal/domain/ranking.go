package domain

import "github.com/shopspring/decimal"

// ScoredOffer is an offer enriched with its store and a ranking score (0-100)
type ScoredOffer struct {
	Offer
	Store      Store           `json:"store"`
	Score      decimal.Decimal `json:"score"`
	DistanceKm *float64        `json:"distance_km,omitempty"` // Only set with a location hint
}

// RankingItemResult holds the ranked offers for one list item
type RankingItemResult struct {
	Product   Product       `json:"product"`
	Quantity  int           `json:"quantity"`
	BestOffer *ScoredOffer  `json:"best_offer"`
	AllOffers []ScoredOffer `json:"all_offers"`
}

// StoreAggregate accumulates totals for a store across the items it wins
type StoreAggregate struct {
	Store          Store           `json:"store"`
	EstimatedTotal decimal.Decimal `json:"estimated_total"`
	ItemsCount     int             `json:"items_count"`
	Savings        decimal.Decimal `json:"savings"`
}

// BestCombination is the cheapest single-store recommendation with alternatives
type BestCombination struct {
	RecommendedStore string           `json:"recommended_store"`
	StoreID          string           `json:"store_id"`
	Store            Store            `json:"store"`
	EstimatedTotal   decimal.Decimal  `json:"estimated_total"`
	TotalSavings     decimal.Decimal  `json:"total_savings"`
	ItemsCount       int              `json:"items_count"`
	Alternatives     []StoreAggregate `json:"alternatives"`
}

// RankingResult is the output of a ranking pass over a shopping list
type RankingResult struct {
	ListID          string              `json:"list_id"`
	Items           []RankingItemResult `json:"items"`
	BestCombination *BestCombination    `json:"best_combination"`
}

// RankingSummary totals the best offers of every item
type RankingSummary struct {
	EstimatedTotal decimal.Decimal `json:"estimated_total"`
	TotalSavings   decimal.Decimal `json:"total_savings"`
	ItemsCount     int             `json:"items_count"`
}

// DetailedRankingResult is a RankingResult plus its summary
type DetailedRankingResult struct {
	RankingResult
	Summary RankingSummary `json:"summary"`
}

// RankRequest identifies the list to rank and the caller's session
type RankRequest struct {
	ListID   string
	UserID   string    // Empty when authentication is disabled
	Token    string    // Forwarded to the catalog source, never stored
	Location *Location // Optional hint
}

// StoreOffer is an offer with its resolved store, as listed on a product page
type StoreOffer struct {
	Offer
	Store      Store    `json:"store"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// ProductOffers is the offer listing of a single product
type ProductOffers struct {
	Product Product      `json:"product"`
	Offers  []StoreOffer `json:"offers"`
	Count   int          `json:"count"`
}
