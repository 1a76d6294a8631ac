/*
Package quote reads market and fair prices off fetched pages using an ordered
list of extraction strategies per instrument.
*/
package quote

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/shanehull/goldbot/internal/numeric"
	"github.com/shanehull/goldbot/internal/types"
)

// DefaultUnitAliases maps unit names seen on source pages to units.
var DefaultUnitAliases = map[string]types.Unit{
	"iranian rials": types.UnitRial,
	"iranian rial":  types.UnitRial,
	"rials":         types.UnitRial,
	"rial":          types.UnitRial,
	"irr":           types.UnitRial,
	"ریال":          types.UnitRial,
	"tomans":        types.UnitToman,
	"toman":         types.UnitToman,
	"تومان":         types.UnitToman,
}

// Parser applies strategies to page bodies. It is immutable and safe for
// concurrent use.
type Parser struct {
	units map[string]types.Unit
}

// NewParser builds a Parser resolving unit names through aliases. A nil map
// selects DefaultUnitAliases.
func NewParser(aliases map[string]types.Unit) *Parser {
	if aliases == nil {
		aliases = DefaultUnitAliases
	}
	units := make(map[string]types.Unit, len(aliases))
	for name, u := range aliases {
		units[unitKey(name)] = u
	}
	return &Parser{units: units}
}

func unitKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func (p *Parser) unit(name string) (types.Unit, bool) {
	u, ok := p.units[unitKey(name)]
	return u, ok
}

// Parse runs strategies in order against body and returns the first match.
// Matches are never merged across strategies. It returns an error wrapping
// types.ErrParse when nothing matches.
func (p *Parser) Parse(body string, strategies []Strategy) (types.RawQuote, error) {
	pg := newPage(body)

	for _, s := range strategies {
		var (
			q  types.RawQuote
			ok bool
		)
		switch s := s.(type) {
		case UnitPhrase:
			q, ok = p.unitPhrase(pg, s)
		case Table:
			q, ok = p.table(pg, s)
		case Selector:
			q, ok = p.selector(pg, s)
		case Fallback:
			q, ok = p.fallback(pg)
		default:
			return types.RawQuote{}, fmt.Errorf("unsupported strategy %T: %w", s, types.ErrParse)
		}
		if ok {
			q.Strategy = s.Kind()
			return q, nil
		}
	}

	return types.RawQuote{}, fmt.Errorf("no price pattern matched (%d strategies tried): %w", len(strategies), types.ErrParse)
}

func group(re *regexp.Regexp, m []string, name string) string {
	i := re.SubexpIndex(name)
	if i < 0 || i >= len(m) {
		return ""
	}
	return m[i]
}

// firstMatch returns the submatches of the first occurrence of re whose "unit"
// group is not glued to a following letter, e.g. "تومانی".
func firstMatch(re *regexp.Regexp, text string) []string {
	unit := re.SubexpIndex("unit")
	for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
		if unit >= 0 && idx[2*unit+1] >= 0 {
			if r, _ := utf8.DecodeRuneInString(text[idx[2*unit+1]:]); unicode.IsLetter(r) {
				continue
			}
		}
		m := make([]string, len(idx)/2)
		for i := range m {
			if idx[2*i] >= 0 {
				m[i] = text[idx[2*i]:idx[2*i+1]]
			}
		}
		return m
	}
	return nil
}

func (p *Parser) unitPhrase(pg *page, s UnitPhrase) (types.RawQuote, bool) {
	text := pg.Text()

	m := firstMatch(s.Pattern, text)
	if m == nil {
		return types.RawQuote{}, false
	}
	market := numeric.ExtractIntegerPtr(group(s.Pattern, m, "number"))
	if market == nil {
		return types.RawQuote{}, false
	}
	unit, ok := p.unit(group(s.Pattern, m, "unit"))
	if !ok {
		return types.RawQuote{}, false
	}

	q := types.RawQuote{Market: market, Unit: unit}

	if s.Fair != nil {
		if fm := firstMatch(s.Fair, text); fm != nil {
			q.Fair = numeric.ExtractIntegerPtr(group(s.Fair, fm, "number"))
			if fu, ok := p.unit(group(s.Fair, fm, "unit")); ok && fu != unit {
				q.FairUnit = fu
			}
		}
	}
	return q, true
}

func signed(fragment string) *int64 {
	v := numeric.ExtractIntegerPtr(fragment)
	if v != nil && strings.HasPrefix(strings.TrimSpace(fragment), "-") {
		*v = -*v
	}
	return v
}

func (p *Parser) table(pg *page, s Table) (types.RawQuote, bool) {
	m := s.Pattern.FindStringSubmatch(pg.Text())
	if m == nil {
		return types.RawQuote{}, false
	}

	market := numeric.ExtractIntegerPtr(m[1])
	if market == nil {
		return types.RawQuote{}, false
	}

	pb := &types.PageBubble{Amount: signed(m[4])}
	if pct, err := decimal.NewFromString(strings.ReplaceAll(m[5], "٫", ".")); err == nil {
		pb.Percent = decimal.NullDecimal{Decimal: pct, Valid: true}
	}

	return types.RawQuote{
		Market:     market,
		Fair:       numeric.ExtractIntegerPtr(m[3]),
		Unit:       s.Unit,
		PageBubble: pb,
	}, true
}

func (p *Parser) selector(pg *page, s Selector) (types.RawQuote, bool) {
	doc, err := pg.Document()
	if err != nil {
		return types.RawQuote{}, false
	}

	market := numeric.ExtractIntegerPtr(doc.Find(s.Market).First().Text())
	if market == nil {
		return types.RawQuote{}, false
	}

	q := types.RawQuote{Market: market, Unit: s.Unit}
	if s.Fair != "" {
		q.Fair = numeric.ExtractIntegerPtr(doc.Find(s.Fair).First().Text())
	}
	return q, true
}

func (p *Parser) fallback(pg *page) (types.RawQuote, bool) {
	var (
		market *int64
		digits int
	)
	for _, tok := range numeric.Tokens(pg.Text()) {
		n := numeric.DigitCount(tok)
		if n <= digits {
			continue
		}
		// Reference numbers too long for int64 are not prices.
		if v := numeric.ExtractIntegerPtr(tok); v != nil {
			market, digits = v, n
		}
	}

	if market == nil {
		return types.RawQuote{}, false
	}
	return types.RawQuote{Market: market, Unit: types.UnitUnknown, LowConfidence: true}, true
}
