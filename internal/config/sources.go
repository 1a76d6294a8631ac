package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/shanehull/goldbot/internal/assemble"
	"github.com/shanehull/goldbot/internal/quote"
	"github.com/shanehull/goldbot/internal/types"
	"github.com/shanehull/goldbot/internal/units"
)

// Sources is the per-source extraction contract: fixed ratios, unit aliases
// and, for each instrument, a URL and an ordered strategy list.
type Sources struct {
	SubunitRatio            int64              `toml:"subunit_ratio"`
	GramsPerTraditionalUnit float64            `toml:"grams_per_traditional_unit"`
	FallbackThreshold       int64              `toml:"fallback_threshold"`
	Units                   map[string]string  `toml:"units"`
	Instruments             []InstrumentSource `toml:"instrument"`
}

type InstrumentSource struct {
	Name       string         `toml:"name"`
	URL        string         `toml:"url"`
	Strategies []StrategySpec `toml:"strategy"`
}

// StrategySpec is one entry of an instrument's strategy list. Which fields are
// read depends on Kind.
type StrategySpec struct {
	Kind        string `toml:"kind"`
	Pattern     string `toml:"pattern"`      // unit_phrase
	FairPattern string `toml:"fair_pattern"` // unit_phrase, optional
	Label       string `toml:"label"`        // table
	Market      string `toml:"market"`       // selector
	Fair        string `toml:"fair"`         // selector, optional
	Unit        string `toml:"unit"`         // table, selector
}

const tgju = "https://www.tgju.org/profile/"

// DefaultSources returns the built-in sources. The fund has no default URL
// and is reported as unavailable until one is configured.
//
// Table rows come before the unit phrase: a matched row carries market, fair
// and bubble together, while the phrase may only find the market price.
func DefaultSources() Sources {
	phrase := StrategySpec{
		Kind:        quote.KindUnitPhrase,
		Pattern:     quote.DefaultPhrasePattern,
		FairPattern: quote.DefaultFairPattern,
	}
	fallback := StrategySpec{Kind: quote.KindFallback}
	table := func(label string) StrategySpec {
		return StrategySpec{Kind: quote.KindTable, Label: label, Unit: "rial"}
	}
	coin := func(label string) []StrategySpec {
		return []StrategySpec{table(label), phrase, fallback}
	}

	return Sources{
		SubunitRatio:            units.DefaultRatio,
		GramsPerTraditionalUnit: units.DefaultGramsPerTraditionalUnit,
		FallbackThreshold:       units.DefaultFallbackThreshold,
		Units: map[string]string{
			"iranian rials": "rial",
			"iranian rial":  "rial",
			"rials":         "rial",
			"rial":          "rial",
			"irr":           "rial",
			"ریال":          "rial",
			"tomans":        "toman",
			"toman":         "toman",
			"تومان":         "toman",
		},
		Instruments: []InstrumentSource{
			{Name: types.GoldGram.Key(), URL: tgju + "geram18", Strategies: []StrategySpec{
				table("طلای ۱۸ عیار"),
				table("18K Gold per Gram"),
				phrase,
				fallback,
			}},
			{Name: types.UsdFreeMarket.Key(), URL: tgju + "price_dollar_rl", Strategies: []StrategySpec{
				{Kind: quote.KindUnitPhrase, Pattern: quote.DefaultPhrasePattern},
				fallback,
			}},
			{Name: types.CoinFull.Key(), URL: tgju + "sekee", Strategies: coin("سکه امامی")},
			{Name: types.CoinHalf.Key(), URL: tgju + "nim", Strategies: coin("نیم سکه")},
			{Name: types.CoinQuarter.Key(), URL: tgju + "rob", Strategies: coin("ربع سکه")},
			{Name: types.FundShare.Key()},
		},
	}
}

// sourcesFile mirrors Sources with optional scalars so an absent key keeps
// the default.
type sourcesFile struct {
	SubunitRatio            *int64             `toml:"subunit_ratio"`
	GramsPerTraditionalUnit *float64           `toml:"grams_per_traditional_unit"`
	FallbackThreshold       *int64             `toml:"fallback_threshold"`
	Units                   map[string]string  `toml:"units"`
	Instruments             []InstrumentSource `toml:"instrument"`
}

// LoadSources reads path on top of DefaultSources. An empty path or a missing
// file yields the defaults; a malformed file is an error. An instrument listed
// in the file replaces the default entry of the same name.
func LoadSources(path string) (Sources, error) {
	s := DefaultSources()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return Sources{}, fmt.Errorf("failed to read sources file %s: %w", path, err)
	}

	var f sourcesFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return Sources{}, fmt.Errorf("failed to parse sources file %s: %w", path, err)
	}

	if f.SubunitRatio != nil {
		s.SubunitRatio = *f.SubunitRatio
	}
	if f.GramsPerTraditionalUnit != nil {
		s.GramsPerTraditionalUnit = *f.GramsPerTraditionalUnit
	}
	if f.FallbackThreshold != nil {
		s.FallbackThreshold = *f.FallbackThreshold
	}
	for name, unit := range f.Units {
		s.Units[name] = unit
	}

	seen := make(map[string]bool, len(f.Instruments))
	for _, in := range f.Instruments {
		if seen[in.Name] {
			return Sources{}, fmt.Errorf("sources file %s: instrument %q listed twice", path, in.Name)
		}
		seen[in.Name] = true

		replaced := false
		for i := range s.Instruments {
			if s.Instruments[i].Name == in.Name {
				s.Instruments[i] = in
				replaced = true
				break
			}
		}
		if !replaced {
			s.Instruments = append(s.Instruments, in)
		}
	}

	return s, nil
}

// Compiled is the validated, ready-to-use form of Sources.
type Compiled struct {
	Sources     []assemble.Source
	UnitAliases map[string]types.Unit
	Normalizer  *units.Normalizer
}

// Validate reports the first problem Compile would hit.
func (s Sources) Validate() error {
	_, err := s.Compile()
	return err
}

// Compile checks every strategy and builds the assembler inputs.
func (s Sources) Compile() (Compiled, error) {
	n, err := units.New(s.SubunitRatio, s.GramsPerTraditionalUnit, s.FallbackThreshold)
	if err != nil {
		return Compiled{}, err
	}

	aliases := make(map[string]types.Unit, len(s.Units))
	for name, u := range s.Units {
		unit, err := parseUnit(u)
		if err != nil || unit == types.UnitUnknown {
			return Compiled{}, fmt.Errorf("unit alias %q: unknown unit %q", name, u)
		}
		aliases[name] = unit
	}

	out := make([]assemble.Source, 0, len(s.Instruments))
	for _, in := range s.Instruments {
		inst, ok := types.ParseInstrument(in.Name)
		if !ok {
			return Compiled{}, fmt.Errorf("unknown instrument %q", in.Name)
		}
		if inst == types.GoldTraditionalUnit {
			return Compiled{}, fmt.Errorf("instrument %q is derived from %s and takes no source", in.Name, types.GoldGram.Key())
		}
		if in.URL != "" && len(in.Strategies) == 0 {
			return Compiled{}, fmt.Errorf("instrument %q has a URL but no strategies", in.Name)
		}
		if in.URL == "" && inst != types.FundShare {
			return Compiled{}, fmt.Errorf("instrument %q needs a URL", in.Name)
		}

		strategies := make([]quote.Strategy, 0, len(in.Strategies))
		for i, spec := range in.Strategies {
			st, err := spec.compile()
			if err != nil {
				return Compiled{}, fmt.Errorf("instrument %q strategy %d: %w", in.Name, i+1, err)
			}
			strategies = append(strategies, st)
		}
		out = append(out, assemble.Source{Instrument: inst, URL: in.URL, Strategies: strategies})
	}

	return Compiled{Sources: out, UnitAliases: aliases, Normalizer: n}, nil
}

func (spec StrategySpec) compile() (quote.Strategy, error) {
	switch spec.Kind {
	case quote.KindUnitPhrase:
		return quote.NewUnitPhrase(spec.Pattern, spec.FairPattern)
	case quote.KindTable:
		unit, err := parseUnit(spec.Unit)
		if err != nil {
			return nil, err
		}
		return quote.NewTable(spec.Label, unit)
	case quote.KindSelector:
		unit, err := parseUnit(spec.Unit)
		if err != nil {
			return nil, err
		}
		return quote.NewSelector(spec.Market, spec.Fair, unit)
	case quote.KindFallback:
		return quote.Fallback{}, nil
	default:
		return nil, fmt.Errorf("unknown strategy kind %q", spec.Kind)
	}
}

func parseUnit(s string) (types.Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rial":
		return types.UnitRial, nil
	case "toman":
		return types.UnitToman, nil
	case "", "unknown":
		return types.UnitUnknown, nil
	default:
		return types.UnitUnknown, fmt.Errorf("unknown unit %q", s)
	}
}
