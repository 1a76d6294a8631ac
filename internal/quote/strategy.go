package quote

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shanehull/goldbot/internal/numeric"
	"github.com/shanehull/goldbot/internal/types"
)

const (
	KindUnitPhrase = "unit_phrase"
	KindTable      = "table"
	KindSelector   = "selector"
	KindFallback   = "fallback"
)

// Strategy is one way of reading a quote off a page. The set of strategies is
// closed: UnitPhrase, Table, Selector and Fallback.
type Strategy interface {
	Kind() string
}

// UnitPhrase matches a sentence that names the unit of the price, e.g.
// "was 50,000,000 Iranian Rials". Pattern must define the named groups
// "number" and "unit". Fair, when set, is matched separately and merged as the
// fair price; it must define "number" and may define "unit".
type UnitPhrase struct {
	Pattern *regexp.Regexp
	Fair    *regexp.Regexp
}

func (UnitPhrase) Kind() string { return KindUnitPhrase }

// Table matches a labelled row of four numbers: market, change, fair and
// bubble with its percentage in parentheses.
type Table struct {
	Label   string
	Unit    types.Unit
	Pattern *regexp.Regexp
}

func (Table) Kind() string { return KindTable }

// Selector reads market and fair from the elements matched by CSS selectors.
type Selector struct {
	Market string
	Fair   string
	Unit   types.Unit
}

func (Selector) Kind() string { return KindSelector }

// Fallback takes the longest number on the page as the market price. It never
// yields a fair price and its result is tagged UnitUnknown.
type Fallback struct{}

func (Fallback) Kind() string { return KindFallback }

// NewUnitPhrase compiles a UnitPhrase. fairPattern may be empty.
func NewUnitPhrase(pattern, fairPattern string) (UnitPhrase, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return UnitPhrase{}, fmt.Errorf("compile unit phrase %q: %w", pattern, err)
	}
	if re.SubexpIndex("number") < 0 || re.SubexpIndex("unit") < 0 {
		return UnitPhrase{}, fmt.Errorf("unit phrase %q must define groups \"number\" and \"unit\"", pattern)
	}

	s := UnitPhrase{Pattern: re}
	if fairPattern == "" {
		return s, nil
	}

	fre, err := regexp.Compile(fairPattern)
	if err != nil {
		return UnitPhrase{}, fmt.Errorf("compile fair phrase %q: %w", fairPattern, err)
	}
	if fre.SubexpIndex("number") < 0 {
		return UnitPhrase{}, fmt.Errorf("fair phrase %q must define group \"number\"", fairPattern)
	}
	s.Fair = fre
	return s, nil
}

const (
	changePattern  = `[-+]?[0-9][0-9.,\x{066B}]*`
	percentPattern = `[-+]?[0-9]+(?:[.\x{066B}][0-9]+)?`
)

// NewTable builds the row pattern for label. Whitespace inside the label
// matches any run of whitespace on the page.
func NewTable(label string, unit types.Unit) (Table, error) {
	words := strings.Fields(numeric.NormalizeDigits(label))
	if len(words) == 0 {
		return Table{}, fmt.Errorf("table label must not be empty")
	}
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}

	expr := `(?i)` + strings.Join(words, `\s+`) +
		`\s*(` + numeric.NumberPattern + `)` +
		`\s+(` + changePattern + `)` +
		`\s+(` + numeric.NumberPattern + `)` +
		`\s+([-+]?` + numeric.NumberPattern + `)` +
		`\s*\(\s*(` + percentPattern + `)\s*%\s*\)`

	re, err := regexp.Compile(expr)
	if err != nil {
		return Table{}, fmt.Errorf("compile table label %q: %w", label, err)
	}
	return Table{Label: label, Unit: unit, Pattern: re}, nil
}

// NewSelector validates a Selector. fair may be empty.
func NewSelector(market, fair string, unit types.Unit) (Selector, error) {
	if strings.TrimSpace(market) == "" {
		return Selector{}, fmt.Errorf("selector strategy needs a market selector")
	}
	return Selector{Market: market, Fair: fair, Unit: unit}, nil
}

// unitAlternatives ends Latin names on a word boundary. RE2's \b is ASCII-only,
// so the Persian names are checked for a following letter in the parser.
const unitAlternatives = `(?:iranian\s+rials?|rials?|irr|tomans?)\b|ریال|تومان`

// DefaultPhrasePattern matches "... was 50,000,000 Iranian Rials".
const DefaultPhrasePattern = `(?i)\bwas\s+(?P<number>` + numeric.NumberPattern + `)\s*(?P<unit>` + unitAlternatives + `)`

// DefaultFairPattern matches a labelled real/fair price, in English or Persian.
const DefaultFairPattern = `(?i)(?:(?:real|fair)\s+price|قیمت\s+واقعی)\s*(?:was|is|:)?\s*(?P<number>` + numeric.NumberPattern + `)\s*(?P<unit>` + unitAlternatives + `)?`
