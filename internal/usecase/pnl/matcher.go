package pnl

import (
	"fmt"
	"runtime"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/offerledger/pnl-backend/internal/domain"
)

// Lot is a run of identical acquisition or disposal events: Quantity units
// of SKU at UnitPrice, recorded at TimestampMillis.
type Lot struct {
	SKU             string
	UnitPrice       decimal.Decimal
	Quantity        int64
	TimestampMillis int64
}

// MatchResult is the per-SKU FIFO breakdown.
// Unresolved lists explicit prices that could not be normalized; those
// units were priced by the fallback instead.
type MatchResult struct {
	PerItem    map[string]domain.ItemSummary
	Skipped    []Rejection
	Unresolved []Rejection
}

// Matcher pairs disposals with acquisitions per SKU on a FIFO basis
type Matcher struct {
	CurrencySKUs map[string]struct{}
	Fallback     FallbackPricer
}

type itemLedger struct {
	acquisitions []Lot
	disposals    []Lot
}

type side struct {
	items map[string]int64
	total domain.Value
	price func(domain.PricePair) *domain.Value
}

func sellPrice(p domain.PricePair) *domain.Value { return p.Sell }
func buyPrice(p domain.PricePair) *domain.Value  { return p.Buy }

// Match builds acquisition and disposal queues for every non-currency SKU
// and matches them. SKUs are independent, so matching runs in parallel once
// the queues are complete.
func (m Matcher) Match(trades []domain.SanitizedTrade, n domain.Normalizer) MatchResult {
	ledgers := make(map[string]*itemLedger)
	entry := func(sku string) *itemLedger {
		l, ok := ledgers[sku]
		if !ok {
			l = &itemLedger{}
			ledgers[sku] = l
		}
		return l
	}

	var skipped, unresolved []Rejection
	for _, trade := range trades {
		given := side{items: trade.ItemsGiven, total: trade.ValueGiven, price: sellPrice}
		lots, rejected, badPrices := m.lots(trade, given, n)
		skipped = append(skipped, rejected...)
		unresolved = append(unresolved, badPrices...)
		for _, lot := range lots {
			l := entry(lot.SKU)
			l.disposals = append(l.disposals, lot)
		}

		received := side{items: trade.ItemsReceived, total: trade.ValueReceived, price: buyPrice}
		lots, rejected, badPrices = m.lots(trade, received, n)
		skipped = append(skipped, rejected...)
		unresolved = append(unresolved, badPrices...)
		for _, lot := range lots {
			l := entry(lot.SKU)
			l.acquisitions = append(l.acquisitions, lot)
		}
	}

	skus := make([]string, 0, len(ledgers))
	for sku := range ledgers {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	summaries := make([]domain.ItemSummary, len(skus))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, sku := range skus {
		l := ledgers[sku]
		g.Go(func() error {
			summaries[i] = matchFIFO(l.acquisitions, l.disposals)
			return nil
		})
	}
	_ = g.Wait()

	perItem := make(map[string]domain.ItemSummary, len(skus))
	for i, sku := range skus {
		perItem[sku] = summaries[i]
	}

	return MatchResult{PerItem: perItem, Skipped: skipped, Unresolved: unresolved}
}

// lots turns one side of a trade into lots. Currency SKUs and zero
// quantities produce nothing; negative quantities are rejected. Explicit
// prices that fail to normalize are returned separately.
func (m Matcher) lots(trade domain.SanitizedTrade, s side, n domain.Normalizer) ([]Lot, []Rejection, []Rejection) {
	if len(s.items) == 0 {
		return nil, nil, nil
	}

	skus := make([]string, 0, len(s.items))
	for sku := range s.items {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	var rejected []Rejection
	valid := skus[:0]
	var units int64
	for _, sku := range skus {
		if _, ok := m.CurrencySKUs[sku]; ok {
			continue
		}
		qty := s.items[sku]
		if err := domain.ValidateQuantity(sku, qty); err != nil {
			rejected = append(rejected, Rejection{OfferID: trade.ID, Err: err})
			continue
		}
		if qty == 0 {
			continue
		}
		valid = append(valid, sku)
		units += qty
	}
	if len(valid) == 0 {
		return nil, rejected, nil
	}

	fallback := m.Fallback
	if fallback == nil {
		fallback = ZeroPrice
	}
	// unresolvable totals are reported by the ledger
	sideTotal, _ := n.Normalize(s.total)
	fallbackPrice := fallback(sideTotal, units)

	var badPrices []Rejection
	lots := make([]Lot, 0, len(valid))
	for _, sku := range valid {
		price := fallbackPrice
		if pair, ok := trade.PerItemPrice[sku]; ok {
			if explicit := s.price(pair); explicit != nil {
				v, err := n.Normalize(*explicit)
				if err != nil {
					badPrices = append(badPrices, Rejection{
						OfferID: trade.ID,
						Err:     fmt.Errorf("price of %s: %w", sku, err),
					})
				} else {
					price = v
				}
			}
		}
		lots = append(lots, Lot{
			SKU:             sku,
			UnitPrice:       price,
			Quantity:        s.items[sku],
			TimestampMillis: trade.TimestampMillis,
		})
	}

	return lots, rejected, badPrices
}

// matchFIFO consumes acquisitions oldest first against each disposal.
// Once acquisitions run out, the remaining disposals stay unmatched: their
// cost basis lies outside the observed history and is not guessed.
func matchFIFO(acquisitions, disposals []Lot) domain.ItemSummary {
	sortLots(acquisitions)
	sortLots(disposals)

	var summary domain.ItemSummary
	acquiredValue := decimal.Zero
	for _, lot := range acquisitions {
		summary.TotalAcquired += lot.Quantity
		acquiredValue = acquiredValue.Add(lot.UnitPrice.Mul(decimal.NewFromInt(lot.Quantity)))
	}
	disposedValue := decimal.Zero
	for _, lot := range disposals {
		summary.TotalDisposed += lot.Quantity
		disposedValue = disposedValue.Add(lot.UnitPrice.Mul(decimal.NewFromInt(lot.Quantity)))
	}

	realized := decimal.Zero
	next := 0
	var remaining int64
	if len(acquisitions) > 0 {
		remaining = acquisitions[0].Quantity
	}

walk:
	for _, disposal := range disposals {
		need := disposal.Quantity
		for need > 0 {
			if next >= len(acquisitions) {
				break walk
			}
			take := min(need, remaining)
			margin := disposal.UnitPrice.Sub(acquisitions[next].UnitPrice)
			realized = realized.Add(margin.Mul(decimal.NewFromInt(take)))
			need -= take
			remaining -= take
			summary.MatchedQuantity += take
			if remaining == 0 {
				next++
				if next < len(acquisitions) {
					remaining = acquisitions[next].Quantity
				}
			}
		}
	}

	summary.RealizedProfit = realized
	summary.NetQuantity = summary.TotalAcquired - summary.TotalDisposed
	summary.UnmatchedDisposed = summary.TotalDisposed - summary.MatchedQuantity
	summary.AvgAcquirePrice = average(acquiredValue, summary.TotalAcquired)
	summary.AvgDisposePrice = average(disposedValue, summary.TotalDisposed)

	return summary
}

func sortLots(lots []Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		return lots[i].TimestampMillis < lots[j].TimestampMillis
	})
}

func average(total decimal.Decimal, qty int64) decimal.Decimal {
	if qty == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(qty))
}
