/*
Package types holds the request-scoped values that flow from a fetched page to the
rendered report.
*/
package types

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrFetch      = errors.New("fetch error")
	ErrParse      = errors.New("parse error")
	ErrConversion = errors.New("conversion error")
)

// Unit is the currency subunit a number was quoted in on the source page.
type Unit int

const (
	UnitUnknown Unit = iota
	UnitRial
	UnitToman
)

func (u Unit) String() string {
	switch u {
	case UnitRial:
		return "rial"
	case UnitToman:
		return "toman"
	default:
		return "unknown"
	}
}

type Instrument int

const (
	GoldGram Instrument = iota
	GoldTraditionalUnit
	UsdFreeMarket
	CoinFull
	CoinHalf
	CoinQuarter
	FundShare
)

// Instruments is the fixed report order.
var Instruments = []Instrument{
	GoldGram,
	GoldTraditionalUnit,
	UsdFreeMarket,
	CoinFull,
	CoinHalf,
	CoinQuarter,
	FundShare,
}

var instrumentKeys = map[Instrument]string{
	GoldGram:            "gold_gram",
	GoldTraditionalUnit: "gold_mesghal",
	UsdFreeMarket:       "usd",
	CoinFull:            "coin_full",
	CoinHalf:            "coin_half",
	CoinQuarter:         "coin_quarter",
	FundShare:           "fund_share",
}

// Key is the stable identifier used in configuration files and logs.
func (i Instrument) Key() string {
	if k, ok := instrumentKeys[i]; ok {
		return k
	}
	return "unknown"
}

func (i Instrument) String() string { return i.Key() }

// ParseInstrument maps a configuration key back to its Instrument.
func ParseInstrument(key string) (Instrument, bool) {
	for inst, k := range instrumentKeys {
		if k == key {
			return inst, true
		}
	}
	return 0, false
}

type Status int

const (
	StatusOk Status = iota
	StatusParseError
	StatusFetchError
	StatusConversionError
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusParseError:
		return "parse_error"
	case StatusFetchError:
		return "fetch_error"
	case StatusConversionError:
		return "conversion_error"
	default:
		return "unknown"
	}
}

// StatusFromError classifies an instrument pipeline error.
func StatusFromError(err error) Status {
	switch {
	case err == nil:
		return StatusOk
	case errors.Is(err, ErrFetch):
		return StatusFetchError
	case errors.Is(err, ErrConversion):
		return StatusConversionError
	default:
		return StatusParseError
	}
}

// PageBubble is a premium printed by the source page itself.
type PageBubble struct {
	Amount  *int64
	Percent decimal.NullDecimal
}

// RawQuote is a parsed quote in the unit it appeared in on the page.
// Market is never nil on a successful parse.
type RawQuote struct {
	Market *int64
	Fair   *int64
	Unit   Unit
	// FairUnit overrides Unit for Fair when the fair phrase names its own unit.
	FairUnit Unit
	Strategy string

	PageBubble    *PageBubble
	LowConfidence bool
}

// NormalizedQuote is a quote in the reporting subunit.
type NormalizedQuote struct {
	Market *int64
	Fair   *int64
}

// Bubble is the premium of market over fair. Amount and Percent are set together.
type Bubble struct {
	Amount  *int64
	Percent decimal.NullDecimal
}

// Present reports whether the bubble could be computed.
func (b Bubble) Present() bool {
	return b.Amount != nil && b.Percent.Valid
}

type InstrumentMetric struct {
	Name   Instrument
	Quote  NormalizedQuote
	Bubble Bubble
	Status Status
	// Unavailable marks an instrument with no configured source.
	Unavailable bool
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }
