package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shanehull/goldbot/internal/logging"
	"github.com/shanehull/goldbot/internal/types"
)

// Assembler produces the metrics for one report.
type Assembler interface {
	Assemble(ctx context.Context) []types.InstrumentMetric
}

// Service builds complete reports on demand. Concurrent calls share nothing.
type Service struct {
	assembler Assembler
	renderer  *Renderer
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(a Assembler, r *Renderer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{assembler: a, renderer: r, logger: logger, now: time.Now}
}

// WithClock replaces the report timestamp source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// BuildReport assembles and renders one report. It always returns a complete
// report; failing instruments are marked inside it.
func (s *Service) BuildReport(ctx context.Context) string {
	requestID := uuid.NewString()
	log := s.logger.With(zap.String("request_id", requestID))
	ctx = logging.WithContext(ctx, log)

	start := s.now()
	metrics := s.assembler.Assemble(ctx)
	text := s.renderer.Render(metrics, start)

	counts := make(map[string]int, 4)
	for _, m := range metrics {
		counts[m.Status.String()]++
	}
	log.Info("report built",
		zap.Int("instruments", len(metrics)),
		zap.Int("ok", counts[types.StatusOk.String()]),
		zap.Int("fetch_errors", counts[types.StatusFetchError.String()]),
		zap.Int("parse_errors", counts[types.StatusParseError.String()]),
		zap.Int("conversion_errors", counts[types.StatusConversionError.String()]),
		zap.Duration("took", time.Since(start)),
	)
	return text
}
