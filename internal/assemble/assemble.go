/*
Package assemble runs one fetch, parse, normalize and bubble pipeline per tracked
instrument and collects the results in report order.
*/
package assemble

//go:generate mockgen -destination=fetcher_mock_test.go -package=assemble_test . Fetcher

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shanehull/goldbot/internal/bubble"
	"github.com/shanehull/goldbot/internal/logging"
	"github.com/shanehull/goldbot/internal/quote"
	"github.com/shanehull/goldbot/internal/types"
	"github.com/shanehull/goldbot/internal/units"
)

const DefaultConcurrency = 4

// Fetcher returns the text of the page at url. Implementations bound each call
// with their own timeout.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Source describes where and how to read one instrument. An empty URL marks an
// instrument with no configured source.
type Source struct {
	Instrument types.Instrument
	URL        string
	Strategies []quote.Strategy
}

type Assembler struct {
	fetcher     Fetcher
	parser      *quote.Parser
	normalizer  *units.Normalizer
	sources     map[types.Instrument]Source
	concurrency int
	logger      *zap.Logger
}

type Option func(*Assembler)

// WithConcurrency bounds the number of fetches in flight.
func WithConcurrency(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

func New(f Fetcher, p *quote.Parser, n *units.Normalizer, sources []Source, opts ...Option) *Assembler {
	a := &Assembler{
		fetcher:     f,
		parser:      p,
		normalizer:  n,
		sources:     make(map[types.Instrument]Source, len(sources)),
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, s := range sources {
		a.sources[s.Instrument] = s
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble returns one metric per instrument in types.Instruments order. A
// failing instrument never affects the others and no error is returned.
func (a *Assembler) Assemble(ctx context.Context) []types.InstrumentMetric {
	log := logging.FromContext(ctx, a.logger)

	out := make([]types.InstrumentMetric, len(types.Instruments))
	g := new(errgroup.Group)
	g.SetLimit(a.concurrency)

	gramIdx := -1
	for i, inst := range types.Instruments {
		if inst == types.GoldTraditionalUnit {
			continue
		}
		if inst == types.GoldGram {
			gramIdx = i
		}

		g.Go(func() error {
			out[i] = a.collect(ctx, log, inst)
			return nil
		})
	}
	_ = g.Wait()

	for i, inst := range types.Instruments {
		if inst != types.GoldTraditionalUnit {
			continue
		}
		if gramIdx < 0 {
			out[i] = failed(inst, fmt.Errorf("gold gram not tracked: %w", types.ErrParse))
			continue
		}
		out[i] = a.traditional(log, out[gramIdx])
	}

	return out
}

func failed(inst types.Instrument, err error) types.InstrumentMetric {
	return types.InstrumentMetric{Name: inst, Status: types.StatusFromError(err)}
}

// collect isolates one instrument: errors and panics become its status.
func (a *Assembler) collect(ctx context.Context, log *zap.Logger, inst types.Instrument) (m types.InstrumentMetric) {
	log = log.With(zap.String("instrument", inst.Key()))

	defer func() {
		if r := recover(); r != nil {
			log.Error("instrument pipeline panicked", zap.Any("panic", r))
			m = failed(inst, fmt.Errorf("panic: %v: %w", r, types.ErrParse))
		}
	}()

	src, ok := a.sources[inst]
	if !ok || src.URL == "" {
		if inst == types.FundShare {
			return types.InstrumentMetric{Name: inst, Status: types.StatusOk, Unavailable: true}
		}
		log.Warn("no source configured")
		return failed(inst, fmt.Errorf("no source for %s: %w", inst, types.ErrFetch))
	}

	q, err := a.run(ctx, log, src)
	if err != nil {
		log.Warn("instrument failed", zap.String("url", src.URL), zap.Error(err))
		return failed(inst, err)
	}

	return types.InstrumentMetric{
		Name:   inst,
		Quote:  q,
		Bubble: bubble.ForQuote(q),
		Status: types.StatusOk,
	}
}

func (a *Assembler) run(ctx context.Context, log *zap.Logger, src Source) (types.NormalizedQuote, error) {
	body, err := a.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		if !errors.Is(err, types.ErrFetch) {
			err = fmt.Errorf("%v: %w", err, types.ErrFetch)
		}
		return types.NormalizedQuote{}, err
	}

	raw, err := a.parser.Parse(body, src.Strategies)
	if err != nil {
		return types.NormalizedQuote{}, err
	}
	if raw.LowConfidence {
		log.Debug("low-confidence quote from fallback strategy", zap.Int64("market", *raw.Market))
	}

	q := a.normalizer.Normalize(raw)

	if pb := raw.PageBubble; pb != nil && pb.Amount != nil {
		if b := bubble.ForQuote(q); b.Amount != nil && (*b.Amount < 0) != (*pb.Amount < 0) {
			log.Debug("page bubble disagrees with computed bubble",
				zap.Int64("page_amount", *pb.Amount),
				zap.Int64("computed_amount", *b.Amount),
			)
		}
	}
	return q, nil
}

func (a *Assembler) traditional(log *zap.Logger, gram types.InstrumentMetric) types.InstrumentMetric {
	inst := types.GoldTraditionalUnit
	if gram.Status != types.StatusOk {
		return types.InstrumentMetric{Name: inst, Status: gram.Status}
	}

	q, err := a.normalizer.TraditionalQuote(gram.Quote)
	if err != nil {
		log.Warn("instrument failed", zap.String("instrument", inst.Key()), zap.Error(err))
		return failed(inst, err)
	}

	return types.InstrumentMetric{
		Name:   inst,
		Quote:  q,
		Bubble: bubble.ForQuote(q),
		Status: types.StatusOk,
	}
}
