package signals

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoByron/trading-sub013/internal/domain/models"
	domrepo "github.com/YoByron/trading-sub013/internal/domain/repository"
)

type fakeHistory struct {
	candles []models.Candle
	err     error
}

func (f *fakeHistory) GetCandles(context.Context, string, time.Time, time.Time, domrepo.Timeframe) ([]models.Candle, error) {
	return f.candles, f.err
}

func (f *fakeHistory) GetLatestNCandles(_ context.Context, _ string, n int, _ domrepo.Timeframe) ([]models.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.candles) <= n {
		return f.candles, nil
	}
	return f.candles[len(f.candles)-n:], nil
}

func seriesWithDrift(n int, start, drift float64) []models.Candle {
	out := make([]models.Candle, n)
	price := start
	bucket := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = models.Candle{Bucket: bucket, Symbol: "AAPL", Open: price, High: price, Low: price, Close: price, Volume: 1000}
		price *= 1 + drift
		bucket = bucket.Add(24 * time.Hour)
	}
	return out
}

func TestMomentumBullishOnSteadyUptrend(t *testing.T) {
	src := NewMomentumSource("momentum", &fakeHistory{candles: seriesWithDrift(40, 100, 0.01)}, domrepo.TF1d, 20)

	sig, err := src.GetSignal(context.Background(), "AAPL", time.Now())
	require.NoError(t, err)

	stance, err := sig.Encoding.Stance()
	require.NoError(t, err)
	assert.Equal(t, models.StanceBullish, stance)
	assert.Greater(t, sig.Confidence, 0.5)
}

func TestMomentumBearishOnSteadyDowntrend(t *testing.T) {
	src := NewMomentumSource("momentum", &fakeHistory{candles: seriesWithDrift(40, 100, -0.01)}, domrepo.TF1d, 20)

	sig, err := src.GetSignal(context.Background(), "AAPL", time.Now())
	require.NoError(t, err)

	stance, err := sig.Encoding.Stance()
	require.NoError(t, err)
	assert.Equal(t, models.StanceBearish, stance)
}

func TestMomentumFlatSeriesIsNeutralWithZeroConfidence(t *testing.T) {
	src := NewMomentumSource("momentum", &fakeHistory{candles: seriesWithDrift(40, 100, 0)}, domrepo.TF1d, 20)

	sig, err := src.GetSignal(context.Background(), "AAPL", time.Now())
	require.NoError(t, err)

	stance, err := sig.Encoding.Stance()
	require.NoError(t, err)
	assert.Equal(t, models.StanceNeutral, stance)
	assert.Zero(t, sig.Confidence)
}

func TestMomentumInsufficientHistoryIsAnError(t *testing.T) {
	src := NewMomentumSource("momentum", &fakeHistory{candles: seriesWithDrift(5, 100, 0.01)}, domrepo.TF1d, 20)

	_, err := src.GetSignal(context.Background(), "AAPL", time.Now())
	assert.ErrorContains(t, err, "insufficient history")
}
