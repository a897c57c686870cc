package signals

import (
	"context"
	"fmt"
	"time"

	"github.com/YoByron/trading-sub013/internal/domain/models"
	domrepo "github.com/YoByron/trading-sub013/internal/domain/repository"
	"github.com/YoByron/trading-sub013/internal/service/metrics"
	"github.com/YoByron/trading-sub013/pkg/config"
)

// HTTPSignalSource pulls one gate's signal from an upstream model service.
// The encoding comes back verbatim; normalization happens at the gate, so a
// bad payload surfaces there as a data error instead of being repaired here.
type HTTPSignalSource struct {
	name string
	path string
	base *HTTPServiceBase
}

// NewHTTPSignalSource creates a source named `name` backed by the upstream
// endpoint `source`.
func NewHTTPSignalSource(cfg *config.Config, name, source string) *HTTPSignalSource {
	metrics.Register()
	return &HTTPSignalSource{
		name: name,
		path: "/signals/" + source,
		base: NewHTTPServiceBase(cfg),
	}
}

func (s *HTTPSignalSource) Name() string { return s.name }

type signalReq struct {
	Symbol string    `json:"symbol"`
	AsOf   time.Time `json:"as_of"`
}

type signalResp struct {
	Value      float64 `json:"value"`
	Encoding   string  `json:"encoding"`
	Label      string  `json:"label"`
	Score      float64 `json:"score"`
	BullAbove  float64 `json:"bull_above"`
	BearBelow  float64 `json:"bear_below"`
	Confidence float64 `json:"confidence"`
}

func (s *HTTPSignalSource) GetSignal(ctx context.Context, ticker string, asOf time.Time) (models.Signal, error) {
	start := time.Now()
	defer func() { metrics.SignalLatency.WithLabelValues(s.name).Observe(time.Since(start).Seconds()) }()

	var sr signalResp
	if err := s.base.PostJSONWithRetry(ctx, s.path, signalReq{Symbol: ticker, AsOf: asOf}, &sr, 2); err != nil {
		metrics.SignalErrors.WithLabelValues(s.name).Inc()
		return models.Signal{}, fmt.Errorf("signal %s: %w", s.name, err)
	}
	return models.Signal{
		SourceID:   s.name,
		Ticker:     ticker,
		Timestamp:  asOf,
		RawValue:   sr.Value,
		Confidence: sr.Confidence,
		Encoding: models.SignalEncoding{
			Kind:      models.EncodingKind(sr.Encoding),
			Label:     sr.Label,
			Score:     sr.Score,
			BullAbove: sr.BullAbove,
			BearBelow: sr.BearBelow,
		},
	}, nil
}

var _ domrepo.SignalSource = (*HTTPSignalSource)(nil)
