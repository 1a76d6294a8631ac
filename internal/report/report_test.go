package report_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shanehull/goldbot/internal/report"
	"github.com/shanehull/goldbot/internal/types"
)

var fixedTime = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func okMetric(inst types.Instrument, market, fair int64, pct string) types.InstrumentMetric {
	m := types.InstrumentMetric{
		Name:   inst,
		Status: types.StatusOk,
		Quote:  types.NormalizedQuote{Market: types.Int64(market), Fair: types.Int64(fair)},
		Bubble: types.Bubble{
			Amount:  types.Int64(market - fair),
			Percent: decimal.NewNullDecimal(decimal.RequireFromString(pct)),
		},
	}
	return m
}

func sampleMetrics() []types.InstrumentMetric {
	return []types.InstrumentMetric{
		okMetric(types.GoldGram, 4_500_000, 4_300_000, "4.651162790697674"),
		okMetric(types.GoldTraditionalUnit, 20_736_000, 19_814_400, "4.651162790697674"),
		{Name: types.UsdFreeMarket, Status: types.StatusFetchError},
		okMetric(types.CoinFull, 85_000_000, 80_000_000, "6.25"),
		{Name: types.CoinHalf, Status: types.StatusParseError},
		{Name: types.CoinQuarter, Status: types.StatusOk, Quote: types.NormalizedQuote{Market: types.Int64(31_000_000)}},
		{Name: types.FundShare, Status: types.StatusOk, Unavailable: true},
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	r, err := report.NewRenderer("en", time.UTC)
	require.NoError(t, err)

	got := r.Render(sampleMetrics(), fixedTime)

	want := strings.Join([]string{
		"🕒 2025-03-01 09:30 (UTC)",
		"",
		"🟡 طلای ۱۸ عیار (هر گرم)",
		"قیمت: 4,500,000 تومان",
		"قیمت واقعی: 4,300,000 تومان",
		"حباب: 200,000 تومان (4.65%)",
		"",
		"🟡 مثقال طلا",
		"قیمت: 20,736,000 تومان",
		"قیمت واقعی: 19,814,400 تومان",
		"حباب: 921,600 تومان (4.65%)",
		"",
		"💵 دلار آزاد",
		"قیمت: N/A [fetch error]",
		"",
		"🪙 سکه امامی",
		"قیمت: 85,000,000 تومان",
		"قیمت واقعی: 80,000,000 تومان",
		"حباب: 5,000,000 تومان (6.25%)",
		"",
		"🪙 نیم سکه",
		"قیمت: N/A [parse error]",
		"",
		"🪙 ربع سکه",
		"قیمت: 31,000,000 تومان",
		"قیمت واقعی: N/A",
		"حباب: N/A (N/A)",
		"",
		"📈 صندوق طلای کهربا",
		"قیمت: N/A [not available]",
		"",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestRender_Idempotent(t *testing.T) {
	t.Parallel()

	r, err := report.NewRenderer("en", time.UTC)
	require.NoError(t, err)

	metrics := sampleMetrics()
	assert.Equal(t, r.Render(metrics, fixedTime), r.Render(metrics, fixedTime))
}

func TestRender_TimezoneAndNegativeBubble(t *testing.T) {
	t.Parallel()

	tehran := time.FixedZone("IRST", 3*60*60+30*60)
	r, err := report.NewRenderer("en", tehran)
	require.NoError(t, err)

	got := r.Render([]types.InstrumentMetric{
		okMetric(types.CoinFull, 76_000_000, 80_000_000, "-5"),
	}, fixedTime)

	assert.Contains(t, got, "🕒 2025-03-01 13:00 (IRST)\n")
	assert.Contains(t, got, "حباب: -4,000,000 تومان (-5.00%)")
}

func TestRender_UnavailableDiffersFromMissingValues(t *testing.T) {
	t.Parallel()

	r, err := report.NewRenderer("en", time.UTC)
	require.NoError(t, err)

	unavailable := r.Render([]types.InstrumentMetric{
		{Name: types.FundShare, Status: types.StatusOk, Unavailable: true},
	}, fixedTime)
	empty := r.Render([]types.InstrumentMetric{
		{Name: types.FundShare, Status: types.StatusOk},
	}, fixedTime)

	assert.Contains(t, unavailable, "📈 صندوق طلای کهربا\nقیمت: N/A [not available]\n")
	assert.NotContains(t, unavailable, "حباب")
	assert.Contains(t, empty, "قیمت: N/A\nقیمت واقعی: N/A\nحباب: N/A (N/A)\n")
	assert.NotContains(t, empty, "[not available]")
}

func TestNewRenderer_InvalidLocale(t *testing.T) {
	t.Parallel()

	_, err := report.NewRenderer("not a locale!", time.UTC)
	require.Error(t, err)
}

type stubAssembler struct {
	metrics []types.InstrumentMetric
}

func (s stubAssembler) Assemble(context.Context) []types.InstrumentMetric {
	return s.metrics
}

func TestService_BuildReport(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	r, err := report.NewRenderer("en", time.UTC)
	require.NoError(t, err)

	svc := report.NewService(stubAssembler{metrics: sampleMetrics()}, r, zap.New(core)).
		WithClock(func() time.Time { return fixedTime })

	got := svc.BuildReport(t.Context())
	assert.Equal(t, r.Render(sampleMetrics(), fixedTime), got)

	entries := logs.FilterMessage("report built").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.NotEmpty(t, fields["request_id"])
	assert.EqualValues(t, 7, fields["instruments"])
	assert.EqualValues(t, 5, fields["ok"])
	assert.EqualValues(t, 1, fields["fetch_errors"])
	assert.EqualValues(t, 1, fields["parse_errors"])
}

func TestService_EachReportGetsItsOwnRequestID(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	r, err := report.NewRenderer("en", time.UTC)
	require.NoError(t, err)
	svc := report.NewService(stubAssembler{}, r, zap.New(core))

	svc.BuildReport(t.Context())
	svc.BuildReport(t.Context())

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.NotEqual(t, entries[0].ContextMap()["request_id"], entries[1].ContextMap()["request_id"])
}
