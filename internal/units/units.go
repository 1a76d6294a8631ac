/*
Package units converts scraped amounts into the reporting subunit and derives
per-mesghal prices from per-gram prices.
*/
package units

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/shanehull/goldbot/internal/types"
)

const (
	DefaultRatio                   = 10
	DefaultGramsPerTraditionalUnit = 4.608
	DefaultFallbackThreshold       = 10_000_000
)

// Normalizer holds the fixed conversion constants. It is immutable after New
// and safe for concurrent use.
type Normalizer struct {
	ratio             decimal.Decimal
	gramsPerUnit      decimal.Decimal
	fallbackThreshold int64
}

// New builds a Normalizer. ratio is the number of source subunits (rials) per
// reporting subunit (toman).
func New(ratio int64, gramsPerTraditionalUnit float64, fallbackThreshold int64) (*Normalizer, error) {
	if ratio <= 0 {
		return nil, fmt.Errorf("subunit ratio must be positive, got %d", ratio)
	}
	if gramsPerTraditionalUnit <= 0 {
		return nil, fmt.Errorf("grams per traditional unit must be positive, got %v", gramsPerTraditionalUnit)
	}
	return &Normalizer{
		ratio:             decimal.NewFromInt(ratio),
		gramsPerUnit:      decimal.NewFromFloat(gramsPerTraditionalUnit),
		fallbackThreshold: fallbackThreshold,
	}, nil
}

// Default returns a Normalizer with the observed source constants.
func Default() *Normalizer {
	n, _ := New(DefaultRatio, DefaultGramsPerTraditionalUnit, DefaultFallbackThreshold)
	return n
}

// ToReportingSubunit converts a rial amount to tomans, rounding half away from zero.
func (n *Normalizer) ToReportingSubunit(amount *int64) *int64 {
	if amount == nil {
		return nil
	}
	v := decimal.NewFromInt(*amount).Div(n.ratio).Round(0).IntPart()
	return &v
}

func (n *Normalizer) convert(amount *int64, unit types.Unit) *int64 {
	if amount == nil {
		return nil
	}
	switch unit {
	case types.UnitRial:
		return n.ToReportingSubunit(amount)
	case types.UnitToman:
		v := *amount
		return &v
	default:
		// Unknown unit: large magnitudes are assumed to be rials.
		if *amount > n.fallbackThreshold {
			return n.ToReportingSubunit(amount)
		}
		v := *amount
		return &v
	}
}

// Normalize converts a RawQuote into the reporting subunit. It is the only way
// to obtain a NormalizedQuote from parsed data.
func (n *Normalizer) Normalize(raw types.RawQuote) types.NormalizedQuote {
	fairUnit := raw.Unit
	if raw.FairUnit != types.UnitUnknown {
		fairUnit = raw.FairUnit
	}
	return types.NormalizedQuote{
		Market: n.convert(raw.Market, raw.Unit),
		Fair:   n.convert(raw.Fair, fairUnit),
	}
}

// GramToTraditionalUnit scales a per-gram amount to a per-mesghal amount,
// rounding to the nearest integer.
func (n *Normalizer) GramToTraditionalUnit(amount *int64) (*int64, error) {
	if amount == nil {
		return nil, nil
	}
	scaled := decimal.NewFromInt(*amount).Mul(n.gramsPerUnit).Round(0)
	if !scaled.BigInt().IsInt64() {
		return nil, fmt.Errorf("%d per gram overflows per-mesghal amount: %w", *amount, types.ErrConversion)
	}
	v := scaled.IntPart()
	return &v, nil
}

// TraditionalQuote derives the per-mesghal quote from a normalized per-gram quote.
func (n *Normalizer) TraditionalQuote(gram types.NormalizedQuote) (types.NormalizedQuote, error) {
	market, err := n.GramToTraditionalUnit(gram.Market)
	if err != nil {
		return types.NormalizedQuote{}, err
	}
	fair, err := n.GramToTraditionalUnit(gram.Fair)
	if err != nil {
		return types.NormalizedQuote{}, err
	}
	return types.NormalizedQuote{Market: market, Fair: fair}, nil
}
