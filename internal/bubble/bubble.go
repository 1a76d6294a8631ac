/*
Package bubble computes the premium of a market price over its fair value.
*/
package bubble

import (
	"github.com/shopspring/decimal"

	"github.com/shanehull/goldbot/internal/types"
)

var hundred = decimal.NewFromInt(100)

// Compute returns market-fair and its share of fair in percent. The bubble is
// absent when either input is absent or fair is zero.
func Compute(market, fair *int64) types.Bubble {
	if market == nil || fair == nil || *fair == 0 {
		return types.Bubble{}
	}

	amount := *market - *fair
	percent := decimal.NewFromInt(amount).Div(decimal.NewFromInt(*fair)).Mul(hundred)

	return types.Bubble{
		Amount:  &amount,
		Percent: decimal.NullDecimal{Decimal: percent, Valid: true},
	}
}

// ForQuote is Compute over a normalized quote.
func ForQuote(q types.NormalizedQuote) types.Bubble {
	return Compute(q.Market, q.Fair)
}
