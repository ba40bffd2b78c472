package report

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/offerledger/pnl-backend/internal/domain"
	"github.com/offerledger/pnl-backend/internal/usecase/pnl"
)

const keySKU = "5021;6"

// MockOfferRepository is a mock implementation of OfferRepository for testing
type MockOfferRepository struct {
	mock.Mock
}

func (m *MockOfferRepository) List(ctx context.Context) (*domain.OfferLog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OfferLog), args.Error(1)
}

// MockPricelistRepository is a mock implementation of PricelistRepository for testing
type MockPricelistRepository struct {
	mock.Mock
}

func (m *MockPricelistRepository) Add(ctx context.Context, entry *domain.PriceEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockPricelistRepository) GetLatest(ctx context.Context, sku string) (*domain.PriceEntry, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PriceEntry), args.Error(1)
}

// MockPriceCache is a mock implementation of PriceCache for testing
type MockPriceCache struct {
	mock.Mock
}

func (m *MockPriceCache) GetKeyRate(ctx context.Context, sku string) (decimal.Decimal, error) {
	args := m.Called(ctx, sku)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPriceCache) SetKeyRate(ctx context.Context, sku string, rate decimal.Decimal, ttl time.Duration) error {
	args := m.Called(ctx, sku, rate, ttl)
	return args.Error(0)
}

func testSettings() Settings {
	return Settings{
		KeySKU:       keySKU,
		FallbackRate: decimal.NewFromInt(55),
		MaxRate:      decimal.NewFromInt(1000),
		CurrencySKUs: []string{keySKU, "5002;6", "5001;6", "5000;6"},
		CacheTTL:     10 * time.Minute,
	}
}

// keySale gives 50 refined worth of goods for one key
func keySale() *domain.OfferLog {
	return &domain.OfferLog{Records: []domain.TradeRecord{
		{
			ID:                  "1",
			CounterpartyID:      "76561198000000001",
			TimestampCandidates: []domain.TimestampCandidate{{Field: domain.FieldFinishTimestamp, Raw: "1700000000"}},
			ItemsReceived:       map[string]int64{keySKU: 1},
			ValueGiven:          domain.KeysMetal(decimal.Zero, decimal.NewFromInt(50)),
			ValueReceived:       domain.KeysMetal(decimal.NewFromInt(1), decimal.Zero),
		},
	}}
}

func keyPrice(sell domain.Value) *domain.PriceEntry {
	return &domain.PriceEntry{SKU: keySKU, Sell: sell, Time: time.Unix(1700000000, 0)}
}

func decimalOf(v int64) interface{} {
	want := decimal.NewFromInt(v)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

func newService(offers *MockOfferRepository, prices *MockPricelistRepository, cache domain.PriceCache) *ReportService {
	logger, _ := test.NewNullLogger()
	return NewReportService(offers, prices, cache, pnl.NewEngine(logger), testSettings(), logger)
}

func TestGenerate_UsesCachedRate(t *testing.T) {
	ctx := context.Background()
	offers := new(MockOfferRepository)
	prices := new(MockPricelistRepository)
	cache := new(MockPriceCache)

	offers.On("List", mock.Anything).Return(keySale(), nil)
	cache.On("GetKeyRate", mock.Anything, keySKU).Return(decimal.NewFromInt(60), nil)

	service := newService(offers, prices, cache)
	result, err := service.Generate(ctx)

	require.NoError(t, err)
	assert.Equal(t, RateSourceCache, result.RateSource)
	assert.True(t, result.Report.CumulativeProfit.Equal(decimal.NewFromInt(10)))
	assert.False(t, result.Report.Diagnostics.DegradedPricing)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", result.ID.String())
	prices.AssertNotCalled(t, "GetLatest", mock.Anything, mock.Anything)
	cache.AssertNotCalled(t, "SetKeyRate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	offers.AssertExpectations(t)
}

func TestGenerate_CacheMissReadsPricelist(t *testing.T) {
	ctx := context.Background()
	offers := new(MockOfferRepository)
	prices := new(MockPricelistRepository)
	cache := new(MockPriceCache)

	offers.On("List", mock.Anything).Return(keySale(), nil)
	cache.On("GetKeyRate", mock.Anything, keySKU).Return(decimal.Zero, domain.ErrNotFound)
	prices.On("GetLatest", mock.Anything, keySKU).
		Return(keyPrice(domain.KeysMetal(decimal.Zero, decimal.NewFromInt(62))), nil)
	cache.On("SetKeyRate", mock.Anything, keySKU, decimalOf(62), 10*time.Minute).Return(nil)

	service := newService(offers, prices, cache)
	result, err := service.Generate(ctx)

	require.NoError(t, err)
	assert.Equal(t, RateSourcePricelist, result.RateSource)
	assert.True(t, result.KeyRate.Equal(decimal.NewFromInt(62)))
	assert.True(t, result.Report.CumulativeProfit.Equal(decimal.NewFromInt(12)))
	cache.AssertExpectations(t)
	prices.AssertExpectations(t)
}

func TestGenerate_CacheErrorStillReadsPricelist(t *testing.T) {
	ctx := context.Background()
	offers := new(MockOfferRepository)
	prices := new(MockPricelistRepository)
	cache := new(MockPriceCache)

	offers.On("List", mock.Anything).Return(keySale(), nil)
	cache.On("GetKeyRate", mock.Anything, keySKU).Return(decimal.Zero, errors.New("connection refused"))
	prices.On("GetLatest", mock.Anything, keySKU).
		Return(keyPrice(domain.ScrapTotal(decimal.NewFromInt(540))), nil)
	cache.On("SetKeyRate", mock.Anything, keySKU, decimalOf(60), 10*time.Minute).Return(errors.New("connection refused"))

	service := newService(offers, prices, cache)
	result, err := service.Generate(ctx)

	require.NoError(t, err)
	assert.Equal(t, RateSourcePricelist, result.RateSource)
	assert.True(t, result.Report.CumulativeProfit.Equal(decimal.NewFromInt(10)))
}

func TestGenerate_NoPriceUsesFallback(t *testing.T) {
	ctx := context.Background()
	offers := new(MockOfferRepository)
	prices := new(MockPricelistRepository)

	offers.On("List", mock.Anything).Return(keySale(), nil)
	prices.On("GetLatest", mock.Anything, keySKU).Return(nil, domain.ErrNotFound)

	service := newService(offers, prices, nil)
	result, err := service.Generate(ctx)

	require.NoError(t, err)
	assert.Equal(t, RateSourceNone, result.RateSource)
	assert.True(t, result.KeyRate.IsZero())
	assert.True(t, result.Report.Diagnostics.DegradedPricing)
	assert.Equal(t, "55", result.Report.Diagnostics.ExchangeRate)
	assert.True(t, result.Report.CumulativeProfit.Equal(decimal.NewFromInt(5)))
}

func TestGenerate_OfferLogUnavailable(t *testing.T) {
	ctx := context.Background()
	offers := new(MockOfferRepository)
	prices := new(MockPricelistRepository)

	offers.On("List", mock.Anything).Return(nil, fmt.Errorf("%w: polldata.json missing", domain.ErrFatalInput))

	service := newService(offers, prices, nil)
	result, err := service.Generate(ctx)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrFatalInput)
	prices.AssertNotCalled(t, "GetLatest", mock.Anything, mock.Anything)
}

func TestGenerate_StoreUnavailable(t *testing.T) {
	offers := new(MockOfferRepository)
	prices := new(MockPricelistRepository)

	offers.On("List", mock.Anything).Return(nil, fmt.Errorf("%w: connection refused", domain.ErrUnavailable))

	service := newService(offers, prices, nil)
	result, err := service.Generate(context.Background())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.NotErrorIs(t, err, domain.ErrFatalInput)
}

func TestGenerate_DecoderRejectionsAreDropped(t *testing.T) {
	offers := new(MockOfferRepository)
	prices := new(MockPricelistRepository)

	log := keySale()
	log.Rejected = []domain.Rejection{
		{OfferID: "7", Err: errors.New(`quantity of 30;6 is not an integer: "1.5"`)},
	}
	offers.On("List", mock.Anything).Return(log, nil)
	prices.On("GetLatest", mock.Anything, keySKU).
		Return(keyPrice(domain.KeysMetal(decimal.Zero, decimal.NewFromInt(60))), nil)

	service := newService(offers, prices, nil)
	result, err := service.Generate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Report.Diagnostics.DroppedRecords)
	require.Len(t, result.Report.Diagnostics.Warnings, 1)
	assert.Contains(t, result.Report.Diagnostics.Warnings[0], "dropped record 7")
	assert.True(t, result.Report.CumulativeProfit.Equal(decimal.NewFromInt(10)))
}

func TestGenerate_EmptyHistory(t *testing.T) {
	ctx := context.Background()
	offers := new(MockOfferRepository)
	prices := new(MockPricelistRepository)

	offers.On("List", mock.Anything).Return(&domain.OfferLog{Records: []domain.TradeRecord{}}, nil)
	prices.On("GetLatest", mock.Anything, keySKU).
		Return(keyPrice(domain.KeysMetal(decimal.Zero, decimal.NewFromInt(60))), nil)

	service := newService(offers, prices, nil)
	result, err := service.Generate(ctx)

	require.NoError(t, err)
	assert.True(t, result.Report.CumulativeProfit.IsZero())
	assert.Empty(t, result.Report.Points)
	assert.Empty(t, result.Report.PerItem)
}

func TestResolveKeyRate_KeyQuotedPriceIsUnusable(t *testing.T) {
	ctx := context.Background()
	prices := new(MockPricelistRepository)
	prices.On("GetLatest", mock.Anything, keySKU).
		Return(keyPrice(domain.KeysMetal(decimal.NewFromInt(1), decimal.Zero)), nil)

	service := newService(new(MockOfferRepository), prices, nil)
	rate, source := service.ResolveKeyRate(ctx)

	assert.True(t, rate.IsZero())
	assert.Equal(t, RateSourceNone, source)
}
