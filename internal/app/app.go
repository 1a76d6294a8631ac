/*
Package app wires configuration into a ready report service.
*/
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/shanehull/goldbot/internal/assemble"
	"github.com/shanehull/goldbot/internal/config"
	"github.com/shanehull/goldbot/internal/fetch"
	"github.com/shanehull/goldbot/internal/quote"
	"github.com/shanehull/goldbot/internal/report"
)

// App holds the components shared by the binaries.
type App struct {
	Config    config.Config
	Sources   config.Sources
	Assembler *assemble.Assembler
	Renderer  *report.Renderer
	Reports   *report.Service
	Logger    *zap.Logger
}

// New validates cfg, loads the sources file it names and builds the report
// pipeline. f may be nil to use the HTTP client from cfg.
func New(cfg config.Config, f assemble.Fetcher, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		return nil, err
	}
	compiled, err := sources.Compile()
	if err != nil {
		return nil, fmt.Errorf("invalid sources: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	renderer, err := report.NewRenderer(cfg.ReportLocale, loc)
	if err != nil {
		return nil, err
	}

	if f == nil {
		f = fetch.New(cfg.FetchTimeout, cfg.UserAgent, logger)
	}
	asm := assemble.New(f, quote.NewParser(compiled.UnitAliases), compiled.Normalizer, compiled.Sources,
		assemble.WithConcurrency(cfg.MaxConcurrency),
		assemble.WithLogger(logger),
	)

	return &App{
		Config:    cfg,
		Sources:   sources,
		Assembler: asm,
		Renderer:  renderer,
		Reports:   report.NewService(asm, renderer, logger),
		Logger:    logger,
	}, nil
}

// LogSources writes one line per configured instrument.
func (a *App) LogSources() {
	for _, in := range a.Sources.Instruments {
		kinds := make([]string, 0, len(in.Strategies))
		for _, s := range in.Strategies {
			kinds = append(kinds, s.Kind)
		}
		a.Logger.Info("source configured",
			zap.String("instrument", in.Name),
			zap.String("url", in.URL),
			zap.Strings("strategies", kinds),
		)
	}
}
