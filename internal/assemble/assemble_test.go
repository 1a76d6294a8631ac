package assemble_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/shanehull/goldbot/internal/assemble"
	"github.com/shanehull/goldbot/internal/quote"
	"github.com/shanehull/goldbot/internal/types"
	"github.com/shanehull/goldbot/internal/units"
)

const (
	goldURL    = "https://example.test/gold"
	usdURL     = "https://example.test/usd"
	coinURL    = "https://example.test/coin"
	halfURL    = "https://example.test/half"
	quarterURL = "https://example.test/quarter"
)

var pages = map[string]string{
	goldURL:    `<p>18K gold per gram was 45,000,000 Rials.</p><p>Real price: 43,000,000 Rials</p>`,
	usdURL:     `<p>The dollar was ۹۵٬۰۰۰ تومان</p>`,
	coinURL:    `<table><tr><td>Emami Coin</td><td>850,000,000</td><td>-0.3</td><td>800,000,000</td><td>50,000,000 (6.25%)</td></tr></table>`,
	halfURL:    `<table><tr><td>Half Coin</td><td>480,000,000</td><td>0.1</td><td>400,000,000</td><td>80,000,000 (20%)</td></tr></table>`,
	quarterURL: `<div>last 310,000,000 updated 12:00</div>`,
}

func sources(t *testing.T, fundURL string) []assemble.Source {
	t.Helper()

	phrase, err := quote.NewUnitPhrase(quote.DefaultPhrasePattern, quote.DefaultFairPattern)
	require.NoError(t, err)
	emami, err := quote.NewTable("Emami Coin", types.UnitRial)
	require.NoError(t, err)
	half, err := quote.NewTable("Half Coin", types.UnitRial)
	require.NoError(t, err)
	fund, err := quote.NewSelector(".price", ".nav", types.UnitRial)
	require.NoError(t, err)

	return []assemble.Source{
		{Instrument: types.GoldGram, URL: goldURL, Strategies: []quote.Strategy{phrase, quote.Fallback{}}},
		{Instrument: types.UsdFreeMarket, URL: usdURL, Strategies: []quote.Strategy{phrase}},
		{Instrument: types.CoinFull, URL: coinURL, Strategies: []quote.Strategy{emami, phrase}},
		{Instrument: types.CoinHalf, URL: halfURL, Strategies: []quote.Strategy{half}},
		{Instrument: types.CoinQuarter, URL: quarterURL, Strategies: []quote.Strategy{phrase, quote.Fallback{}}},
		{Instrument: types.FundShare, URL: fundURL, Strategies: []quote.Strategy{fund}},
	}
}

func servePages(f *MockFetcher, failing map[string]error) {
	f.EXPECT().
		Fetch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, url string) (string, error) {
			if err, ok := failing[url]; ok {
				return "", err
			}
			return pages[url], nil
		}).
		AnyTimes()
}

func byName(metrics []types.InstrumentMetric) map[types.Instrument]types.InstrumentMetric {
	out := make(map[types.Instrument]types.InstrumentMetric, len(metrics))
	for _, m := range metrics {
		out[m.Name] = m
	}
	return out
}

func TestAssemble_AllSourcesHealthy(t *testing.T) {
	t.Parallel()

	// Arrange
	ctrl := gomock.NewController(t)
	f := NewMockFetcher(ctrl)
	servePages(f, nil)
	a := assemble.New(f, quote.NewParser(nil), units.Default(), sources(t, ""), assemble.WithConcurrency(2))

	// Act
	metrics := a.Assemble(t.Context())

	// Assert: fixed order
	require.Len(t, metrics, len(types.Instruments))
	for i, inst := range types.Instruments {
		assert.Equal(t, inst, metrics[i].Name)
		assert.Equalf(t, types.StatusOk, metrics[i].Status, "%s", inst)
	}

	m := byName(metrics)

	gram := m[types.GoldGram]
	assert.Equal(t, int64(4_500_000), *gram.Quote.Market)
	assert.Equal(t, int64(4_300_000), *gram.Quote.Fair)
	assert.Equal(t, int64(200_000), *gram.Bubble.Amount)
	assert.Equal(t, "4.65", gram.Bubble.Percent.Decimal.StringFixed(2))

	mesghal := m[types.GoldTraditionalUnit]
	assert.Equal(t, int64(20_736_000), *mesghal.Quote.Market)
	assert.Equal(t, int64(19_814_400), *mesghal.Quote.Fair)
	assert.Equal(t, int64(921_600), *mesghal.Bubble.Amount)

	usd := m[types.UsdFreeMarket]
	assert.Equal(t, int64(95_000), *usd.Quote.Market)
	assert.False(t, usd.Bubble.Present())

	coin := m[types.CoinFull]
	assert.Equal(t, int64(85_000_000), *coin.Quote.Market)
	assert.Equal(t, int64(80_000_000), *coin.Quote.Fair)
	assert.Equal(t, "6.25", coin.Bubble.Percent.Decimal.StringFixed(2))

	half := m[types.CoinHalf]
	assert.Equal(t, "20.00", half.Bubble.Percent.Decimal.StringFixed(2))

	quarter := m[types.CoinQuarter]
	assert.Equal(t, int64(31_000_000), *quarter.Quote.Market)
	assert.Nil(t, quarter.Quote.Fair)

	fund := m[types.FundShare]
	assert.True(t, fund.Unavailable)
	assert.Nil(t, fund.Quote.Market)
	assert.False(t, fund.Bubble.Present())
}

func TestAssemble_OneFetchFailureIsIsolated(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	f := NewMockFetcher(ctrl)
	servePages(f, map[string]error{usdURL: errors.New("connection reset")})
	a := assemble.New(f, quote.NewParser(nil), units.Default(), sources(t, ""))

	metrics := a.Assemble(t.Context())

	failedCount := 0
	for _, m := range metrics {
		if m.Name == types.UsdFreeMarket {
			assert.Equal(t, types.StatusFetchError, m.Status)
			assert.Nil(t, m.Quote.Market)
			failedCount++
			continue
		}
		assert.Equalf(t, types.StatusOk, m.Status, "%s", m.Name)
	}
	assert.Equal(t, 1, failedCount)
}

func TestAssemble_GoldFailureCarriesToDerivedUnit(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	f := NewMockFetcher(ctrl)
	servePages(f, map[string]error{goldURL: types.ErrFetch})
	a := assemble.New(f, quote.NewParser(nil), units.Default(), sources(t, ""))

	m := byName(a.Assemble(t.Context()))
	assert.Equal(t, types.StatusFetchError, m[types.GoldGram].Status)
	assert.Equal(t, types.StatusFetchError, m[types.GoldTraditionalUnit].Status)
	assert.Equal(t, types.StatusOk, m[types.CoinFull].Status)
}

func TestAssemble_ParseError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	f := NewMockFetcher(ctrl)
	f.EXPECT().Fetch(gomock.Any(), halfURL).Return("<p>under maintenance</p>", nil)
	f.EXPECT().Fetch(gomock.Any(), gomock.Not(halfURL)).
		DoAndReturn(func(_ context.Context, url string) (string, error) { return pages[url], nil }).
		AnyTimes()
	a := assemble.New(f, quote.NewParser(nil), units.Default(), sources(t, ""))

	m := byName(a.Assemble(t.Context()))
	assert.Equal(t, types.StatusParseError, m[types.CoinHalf].Status)
	assert.Equal(t, types.StatusOk, m[types.CoinQuarter].Status)
}

func TestAssemble_PanicIsContained(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	f := NewMockFetcher(ctrl)
	f.EXPECT().Fetch(gomock.Any(), coinURL).DoAndReturn(func(context.Context, string) (string, error) {
		panic("boom")
	})
	f.EXPECT().Fetch(gomock.Any(), gomock.Not(coinURL)).
		DoAndReturn(func(_ context.Context, url string) (string, error) { return pages[url], nil }).
		AnyTimes()
	a := assemble.New(f, quote.NewParser(nil), units.Default(), sources(t, ""))

	m := byName(a.Assemble(t.Context()))
	assert.Equal(t, types.StatusParseError, m[types.CoinFull].Status)
	assert.Equal(t, types.StatusOk, m[types.GoldGram].Status)
}

func TestAssemble_ConfiguredFund(t *testing.T) {
	t.Parallel()

	const fundURL = "https://example.test/fund"

	ctrl := gomock.NewController(t)
	f := NewMockFetcher(ctrl)
	f.EXPECT().Fetch(gomock.Any(), fundURL).Return(`<span class="price">23,100</span><span class="nav">22,000</span>`, nil)
	f.EXPECT().Fetch(gomock.Any(), gomock.Not(fundURL)).
		DoAndReturn(func(_ context.Context, url string) (string, error) { return pages[url], nil }).
		AnyTimes()
	a := assemble.New(f, quote.NewParser(nil), units.Default(), sources(t, fundURL))

	fund := byName(a.Assemble(t.Context()))[types.FundShare]
	assert.Equal(t, types.StatusOk, fund.Status)
	assert.False(t, fund.Unavailable)
	assert.Equal(t, int64(2_310), *fund.Quote.Market)
	assert.Equal(t, int64(2_200), *fund.Quote.Fair)
	assert.Equal(t, "5.00", fund.Bubble.Percent.Decimal.StringFixed(2))
}

func TestAssemble_MissingSource(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	f := NewMockFetcher(ctrl)
	a := assemble.New(f, quote.NewParser(nil), units.Default(), nil)

	for _, m := range a.Assemble(t.Context()) {
		if m.Name == types.FundShare {
			assert.True(t, m.Unavailable)
			continue
		}
		assert.Equalf(t, types.StatusFetchError, m.Status, "%s", m.Name)
	}
}
