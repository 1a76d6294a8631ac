/*
Package report renders assembled metrics into the chat reply and exposes the
single BuildReport operation used by the delivery adapters.
*/
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/shanehull/goldbot/internal/types"
)

const (
	NotAvailable = "N/A"
	currency     = "تومان"

	// unavailableTag marks an instrument with no configured source.
	unavailableTag = "[not available]"
)

var titles = map[types.Instrument]string{
	types.GoldGram:            "🟡 طلای ۱۸ عیار (هر گرم)",
	types.GoldTraditionalUnit: "🟡 مثقال طلا",
	types.UsdFreeMarket:       "💵 دلار آزاد",
	types.CoinFull:            "🪙 سکه امامی",
	types.CoinHalf:            "🪙 نیم سکه",
	types.CoinQuarter:         "🪙 ربع سکه",
	types.FundShare:           "📈 صندوق طلای کهربا",
}

var statusTags = map[types.Status]string{
	types.StatusFetchError:      "[fetch error]",
	types.StatusParseError:      "[parse error]",
	types.StatusConversionError: "[conversion error]",
}

// Renderer formats metrics as text. It holds no per-request state.
type Renderer struct {
	tag      language.Tag
	location *time.Location
}

// NewRenderer groups integers per locale (a BCP 47 tag such as "en" or "fa")
// and prints timestamps in loc.
func NewRenderer(locale string, loc *time.Location) (*Renderer, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid report locale %q: %w", locale, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{tag: tag, location: loc}, nil
}

// Render returns the full report. The same metrics and timestamp always yield
// the same text.
func (r *Renderer) Render(metrics []types.InstrumentMetric, ts time.Time) string {
	p := message.NewPrinter(r.tag)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🕒 %s (%s)\n", ts.In(r.location).Format("2006-01-02 15:04"), r.location.String()))

	for _, m := range metrics {
		sb.WriteString("\n")
		r.section(&sb, p, m)
	}
	return sb.String()
}

func (r *Renderer) section(sb *strings.Builder, p *message.Printer, m types.InstrumentMetric) {
	title, ok := titles[m.Name]
	if !ok {
		title = m.Name.Key()
	}
	sb.WriteString(title + "\n")

	if tag, failed := statusTags[m.Status]; failed {
		sb.WriteString(fmt.Sprintf("قیمت: %s %s\n", NotAvailable, tag))
		return
	}
	if m.Unavailable {
		sb.WriteString(fmt.Sprintf("قیمت: %s %s\n", NotAvailable, unavailableTag))
		return
	}

	sb.WriteString("قیمت: " + amount(p, m.Quote.Market) + "\n")
	if m.Name == types.UsdFreeMarket {
		return
	}
	sb.WriteString("قیمت واقعی: " + amount(p, m.Quote.Fair) + "\n")
	sb.WriteString(fmt.Sprintf("حباب: %s (%s)\n", amount(p, m.Bubble.Amount), percent(m.Bubble.Percent)))
}

func amount(p *message.Printer, v *int64) string {
	if v == nil {
		return NotAvailable
	}
	return p.Sprintf("%d", *v) + " " + currency
}

func percent(d decimal.NullDecimal) string {
	if !d.Valid {
		return NotAvailable
	}
	return d.Decimal.StringFixed(2) + "%"
}
