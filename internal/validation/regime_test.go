package validation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/YoByron/trading-sub013/internal/domain/models"
)

func candleSeries(closes []float64) []models.Candle {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{
			Bucket: start.AddDate(0, 0, i),
			Symbol: "TEST",
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	return out
}

func driftCloses(n int, dailyFactor float64) []float64 {
	closes := make([]float64, n)
	price := 100.0
	for i := range closes {
		closes[i] = price
		price *= dailyFactor
	}
	return closes
}

func TestClassifyRegimeBullLowVol(t *testing.T) {
	t.Parallel()

	// A constant daily gain trends up with zero return deviation.
	f := NewFrame(candleSeries(driftCloses(60, 1.005)))
	got := ClassifyRegime(f, DefaultRegimeConfig(), 252)
	assert.Equal(t, models.RegimeBullLowVol, got)
}

func TestClassifyRegimeBullHighVol(t *testing.T) {
	t.Parallel()

	// Alternating +6%/-4% days still compound upward but swing hard.
	closes := make([]float64, 80)
	price := 100.0
	for i := range closes {
		closes[i] = price
		if i%2 == 0 {
			price *= 1.06
		} else {
			price *= 0.96
		}
	}
	f := NewFrame(candleSeries(closes))
	got := ClassifyRegime(f, DefaultRegimeConfig(), 252)
	assert.Equal(t, models.RegimeBullHighVol, got)
}

func TestClassifyRegimeBearLowVol(t *testing.T) {
	t.Parallel()

	f := NewFrame(candleSeries(driftCloses(60, 0.997)))
	got := ClassifyRegime(f, DefaultRegimeConfig(), 252)
	assert.Equal(t, models.RegimeBearLowVol, got)
}

func TestClassifyRegimeSidewaysBeatsVolatility(t *testing.T) {
	t.Parallel()

	// Wild swings that land back where they started are sideways, not a
	// high-vol trend.
	closes := make([]float64, 61)
	for i := range closes {
		closes[i] = 100 * (1 + 0.05*math.Sin(float64(i)))
	}
	closes[60] = closes[0]
	f := NewFrame(candleSeries(closes))
	got := ClassifyRegime(f, DefaultRegimeConfig(), 252)
	assert.Equal(t, models.RegimeSideways, got)
}

func TestClassifyRegimeShortWindow(t *testing.T) {
	t.Parallel()

	f := NewFrame(candleSeries([]float64{100}))
	assert.Equal(t, models.RegimeSideways, ClassifyRegime(f, DefaultRegimeConfig(), 252))
}

func TestRealizedVol(t *testing.T) {
	t.Parallel()

	assert.Zero(t, RealizedVol([]float64{0.01, 0.01, 0.01}, 252), "constant returns carry no vol")
	assert.Zero(t, RealizedVol([]float64{0.01}, 252))

	// Alternating ±1% log returns: sample std is sqrt(n/(n-1))*0.01.
	rets := make([]float64, 100)
	for i := range rets {
		if i%2 == 0 {
			rets[i] = 0.01
		} else {
			rets[i] = -0.01
		}
	}
	want := 0.01 * math.Sqrt(100.0/99.0) * math.Sqrt(252)
	assert.InDelta(t, want, RealizedVol(rets, 252), 1e-12)
}

func TestRegimeConfigValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, DefaultRegimeConfig().Validate())
	assert.Error(t, RegimeConfig{HighVol: 0, TrendMin: 0.03}.Validate())
	assert.Error(t, RegimeConfig{HighVol: 0.25, TrendMin: 0}.Validate())
	assert.Error(t, RegimeConfig{HighVol: 0.25, TrendMin: 1}.Validate())
}
