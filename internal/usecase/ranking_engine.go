package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/mercai/backend/internal/domain"
	"github.com/mercai/backend/internal/logging"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Score weights. score = 100 - price*2 + discount*0.5 + (in stock ? 10 : 0)
var (
	scoreBase      = decimal.NewFromInt(100)
	scoreFloor     = decimal.Zero
	scoreCeiling   = decimal.NewFromInt(100)
	priceWeight    = decimal.NewFromInt(2)
	discountWeight = decimal.RequireFromString("0.5")
	inStockBonus   = decimal.NewFromInt(10)
)

// Defaults for RankingConfig fields left at zero
const (
	defaultMaxOffersPerItem  = 5
	defaultMaxAlternatives   = 3
	defaultLookupConcurrency = 4
)

// RankingConfig holds configuration for the ranking engine
type RankingConfig struct {
	MaxOffersPerItem   int
	MaxAlternatives    int
	LookupConcurrency  int
	EnableDebugLogging bool
}

// RankingEngine scores offers per list item and picks the cheapest single store.
// It keeps no state between calls and is safe for concurrent use.
type RankingEngine struct {
	maxOffersPerItem  int
	maxAlternatives   int
	lookupConcurrency int
	debug             bool
	logger            *log.Logger
}

// NewRankingEngine creates a new ranking engine with the given configuration
func NewRankingEngine(config RankingConfig) *RankingEngine {
	maxOffers := config.MaxOffersPerItem
	if maxOffers <= 0 {
		maxOffers = defaultMaxOffersPerItem
	}

	maxAlternatives := config.MaxAlternatives
	if maxAlternatives <= 0 {
		maxAlternatives = defaultMaxAlternatives
	}

	concurrency := config.LookupConcurrency
	if concurrency <= 0 {
		concurrency = defaultLookupConcurrency
	}

	return &RankingEngine{
		maxOffersPerItem:  maxOffers,
		maxAlternatives:   maxAlternatives,
		lookupConcurrency: concurrency,
		debug:             config.EnableDebugLogging,
		logger:            logging.WithPrefix("ranking"),
	}
}

// ScoreOffer computes the 0-100 ranking score of a single offer.
// A missing discount counts as zero; it is never derived from the original price.
func ScoreOffer(offer *domain.Offer) decimal.Decimal {
	score := scoreBase.Sub(offer.Price.Mul(priceWeight))
	if offer.DiscountPercentage.Valid {
		score = score.Add(offer.DiscountPercentage.Decimal.Mul(discountWeight))
	}
	if offer.InStock {
		score = score.Add(inStockBonus)
	}
	return clampScore(score.Round(2))
}

func clampScore(score decimal.Decimal) decimal.Decimal {
	if score.LessThan(scoreFloor) {
		return scoreFloor
	}
	if score.GreaterThan(scoreCeiling) {
		return scoreCeiling
	}
	return score
}

// RankList ranks the in-stock offers of every item and aggregates a best
// single-store combination. Items keep list order. Any lookup error aborts
// the whole call and is returned wrapped in domain.ErrLookupFailure.
func (e *RankingEngine) RankList(
	ctx context.Context,
	listID string,
	items []domain.ListItem,
	offers domain.OfferLookup,
	stores domain.StoreLookup,
	location *domain.Location,
) (*domain.RankingResult, error) {
	offerSets, err := e.fetchOffers(ctx, items, offers)
	if err != nil {
		return nil, err
	}

	resolver := newStoreResolver(stores)
	results := make([]domain.RankingItemResult, 0, len(items))
	for i, item := range items {
		result, err := e.rankItem(ctx, item, offerSets[i], resolver, location)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	combination := e.bestCombination(results)
	if e.debug {
		if combination != nil {
			e.logger.Debug("best combination",
				"list", listID, "store", combination.StoreID,
				"total", combination.EstimatedTotal, "alternatives", len(combination.Alternatives))
		} else {
			e.logger.Debug("no store covers any item", "list", listID)
		}
	}

	return &domain.RankingResult{
		ListID:          listID,
		Items:           results,
		BestCombination: combination,
	}, nil
}

// RankListDetailed runs RankList and adds a summary over every item's best offer
func (e *RankingEngine) RankListDetailed(
	ctx context.Context,
	listID string,
	items []domain.ListItem,
	offers domain.OfferLookup,
	stores domain.StoreLookup,
	location *domain.Location,
) (*domain.DetailedRankingResult, error) {
	result, err := e.RankList(ctx, listID, items, offers, stores, location)
	if err != nil {
		return nil, err
	}

	return &domain.DetailedRankingResult{
		RankingResult: *result,
		Summary:       Summarize(result.Items),
	}, nil
}

// Summarize totals the best offers of the given items. ItemsCount counts every
// item, including those without an offer.
func Summarize(items []domain.RankingItemResult) domain.RankingSummary {
	total := decimal.Zero
	savings := decimal.Zero
	for _, item := range items {
		if item.BestOffer == nil {
			continue
		}
		qty := decimal.NewFromInt(int64(item.Quantity))
		total = total.Add(item.BestOffer.Price.Mul(qty))
		if item.BestOffer.OriginalPrice.Valid {
			savings = savings.Add(item.BestOffer.Savings().Mul(qty))
		}
	}

	return domain.RankingSummary{
		EstimatedTotal: total.Round(2),
		TotalSavings:   savings.Round(2),
		ItemsCount:     len(items),
	}
}

// fetchOffers looks up offers for all items concurrently. sets[i] belongs to items[i].
func (e *RankingEngine) fetchOffers(
	ctx context.Context,
	items []domain.ListItem,
	offers domain.OfferLookup,
) ([][]domain.Offer, error) {
	sets := make([][]domain.Offer, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.lookupConcurrency)
	for i := range items {
		productID := items[i].Product.ID
		g.Go(func() error {
			found, err := offers.OffersForProduct(gctx, productID)
			if err != nil {
				return fmt.Errorf("%w: offers for product %s: %w", domain.ErrLookupFailure, productID, err)
			}
			sets[i] = found
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sets, nil
}

func (e *RankingEngine) rankItem(
	ctx context.Context,
	item domain.ListItem,
	offers []domain.Offer,
	resolver *storeResolver,
	location *domain.Location,
) (domain.RankingItemResult, error) {
	result := domain.RankingItemResult{
		Product:   item.Product,
		Quantity:  item.Quantity,
		AllOffers: []domain.ScoredOffer{},
	}

	scored := make([]domain.ScoredOffer, 0, len(offers))
	for _, offer := range offers {
		if !offer.InStock {
			continue
		}

		store, err := resolver.resolve(ctx, offer.StoreID)
		if err != nil {
			return result, err
		}

		candidate := domain.ScoredOffer{
			Offer: offer,
			Store: *store,
			Score: ScoreOffer(&offer),
		}
		if location != nil {
			if storeLocation := store.Location(); storeLocation != nil {
				km := HaversineKm(*location, *storeLocation)
				candidate.DistanceKm = &km
			}
		}
		scored = append(scored, candidate)
	}

	if len(scored) == 0 {
		if e.debug {
			e.logger.Debug("no in-stock offers", "product", item.Product.ID, "offers", len(offers))
		}
		return result, nil
	}

	// Equal scores keep the order the lookup returned them in
	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score.GreaterThan(scored[b].Score)
	})

	best := scored[0]
	result.BestOffer = &best
	if len(scored) > e.maxOffersPerItem {
		scored = scored[:e.maxOffersPerItem]
	}
	result.AllOffers = scored

	if e.debug {
		e.logger.Debug("ranked item",
			"product", item.Product.ID, "offers", len(offers),
			"best_store", best.Store.ID, "best_score", best.Score)
	}

	return result, nil
}

// bestCombination groups items by the store of their best offer and picks the
// cheapest group. Returns nil when no item has an offer.
func (e *RankingEngine) bestCombination(results []domain.RankingItemResult) *domain.BestCombination {
	totals := make(map[string]*domain.StoreAggregate)
	var order []string

	for _, item := range results {
		if item.BestOffer == nil {
			continue
		}

		storeID := item.BestOffer.Store.ID
		agg, ok := totals[storeID]
		if !ok {
			agg = &domain.StoreAggregate{
				Store:          item.BestOffer.Store,
				EstimatedTotal: decimal.Zero,
				Savings:        decimal.Zero,
			}
			totals[storeID] = agg
			order = append(order, storeID)
		}

		qty := decimal.NewFromInt(int64(item.Quantity))
		agg.EstimatedTotal = agg.EstimatedTotal.Add(item.BestOffer.Price.Mul(qty))
		agg.ItemsCount++
		if item.BestOffer.OriginalPrice.Valid {
			agg.Savings = agg.Savings.Add(item.BestOffer.Savings().Mul(qty))
		}
	}

	if len(order) == 0 {
		return nil
	}

	aggregates := make([]domain.StoreAggregate, 0, len(order))
	for _, storeID := range order {
		aggregates = append(aggregates, *totals[storeID])
	}
	sort.SliceStable(aggregates, func(a, b int) bool {
		return aggregates[a].EstimatedTotal.LessThan(aggregates[b].EstimatedTotal)
	})

	winner := aggregates[0]
	rest := aggregates[1:]
	if len(rest) > e.maxAlternatives {
		rest = rest[:e.maxAlternatives]
	}

	alternatives := make([]domain.StoreAggregate, 0, len(rest))
	for _, agg := range rest {
		alternatives = append(alternatives, domain.StoreAggregate{
			Store:          agg.Store,
			EstimatedTotal: agg.EstimatedTotal.Round(2),
			ItemsCount:     agg.ItemsCount,
			Savings:        agg.Savings.Round(2),
		})
	}

	return &domain.BestCombination{
		RecommendedStore: winner.Store.Name,
		StoreID:          winner.Store.ID,
		Store:            winner.Store,
		EstimatedTotal:   winner.EstimatedTotal.Round(2),
		TotalSavings:     winner.Savings.Round(2),
		ItemsCount:       winner.ItemsCount,
		Alternatives:     alternatives,
	}
}

// storeResolver memoises store lookups for the duration of one ranking call
type storeResolver struct {
	lookup domain.StoreLookup
	seen   map[string]*domain.Store
}

func newStoreResolver(lookup domain.StoreLookup) *storeResolver {
	return &storeResolver{lookup: lookup, seen: make(map[string]*domain.Store)}
}

func (r *storeResolver) resolve(ctx context.Context, storeID string) (*domain.Store, error) {
	if store, ok := r.seen[storeID]; ok {
		return store, nil
	}

	store, err := r.lookup.GetStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("%w: store %s: %w", domain.ErrLookupFailure, storeID, err)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: store %s: %w", domain.ErrLookupFailure, storeID, domain.ErrStoreNotFound)
	}

	r.seen[storeID] = store
	return store, nil
}
