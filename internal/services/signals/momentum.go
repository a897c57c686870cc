package signals

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/YoByron/trading-sub013/internal/domain/models"
	domrepo "github.com/YoByron/trading-sub013/internal/domain/repository"
	"github.com/YoByron/trading-sub013/internal/validation"
)

// Continuous-encoding thresholds for the momentum score.
const (
	momentumBullAbove = 0.25
	momentumBearBelow = -0.25
)

// MomentumSource computes a momentum signal locally from stored candles,
// so at least one gate keeps working when the model service is down. The
// score is the t-statistic of the trailing log returns squashed to [-1,1].
type MomentumSource struct {
	name     string
	history  domrepo.HistoryStore
	tf       domrepo.Timeframe
	lookback int
}

func NewMomentumSource(name string, history domrepo.HistoryStore, tf domrepo.Timeframe, lookback int) *MomentumSource {
	if lookback < 2 {
		lookback = 20
	}
	return &MomentumSource{name: name, history: history, tf: tf, lookback: lookback}
}

func (s *MomentumSource) Name() string { return s.name }

func (s *MomentumSource) GetSignal(ctx context.Context, ticker string, asOf time.Time) (models.Signal, error) {
	candles, err := s.history.GetLatestNCandles(ctx, ticker, s.lookback+1, s.tf)
	if err != nil {
		return models.Signal{}, fmt.Errorf("momentum %s: %w", ticker, err)
	}
	if len(candles) < s.lookback+1 {
		return models.Signal{}, fmt.Errorf("momentum %s: insufficient history, %d of %d candles", ticker, len(candles), s.lookback+1)
	}

	rets := validation.NewFrame(candles).LogReturns()
	n := float64(len(rets))
	var sum, sum2 float64
	for _, r := range rets {
		sum += r
		sum2 += r * r
	}
	m := sum / n
	variance := (sum2 - n*m*m) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	sd := math.Sqrt(variance)

	// Flat series carries no momentum information.
	var tstat float64
	if sd > 0 {
		tstat = m * math.Sqrt(n) / sd
	}
	score := math.Tanh(tstat)
	confidence := math.Min(1, math.Abs(tstat)/2)

	return models.Signal{
		SourceID:   s.name,
		Ticker:     ticker,
		Timestamp:  asOf,
		RawValue:   tstat,
		Confidence: confidence,
		Encoding:   models.ContinuousScore(score, momentumBullAbove, momentumBearBelow),
	}, nil
}

var _ domrepo.SignalSource = (*MomentumSource)(nil)
