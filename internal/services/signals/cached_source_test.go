package signals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoByron/trading-sub013/internal/domain/models"
	icache "github.com/YoByron/trading-sub013/internal/service/cache"
)

type stubSource struct {
	name  string
	calls int
	sig   models.Signal
	err   error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) GetSignal(context.Context, string, time.Time) (models.Signal, error) {
	s.calls++
	if s.err != nil {
		return models.Signal{}, s.err
	}
	return s.sig, nil
}

func TestCachedSourceServesSecondCallFromCache(t *testing.T) {
	asOf := time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC)
	inner := &stubSource{
		name: "trend",
		sig: models.Signal{
			SourceID:   "trend",
			Ticker:     "AAPL",
			Timestamp:  asOf,
			Confidence: 0.7,
			Encoding:   models.BuyHoldSell("buy"),
		},
	}
	src := NewCachedSource(inner, icache.NewTTLCache(), 30*time.Second)

	first, err := src.GetSignal(context.Background(), "AAPL", asOf)
	require.NoError(t, err)
	second, err := src.GetSignal(context.Background(), "AAPL", asOf)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first, second)
}

func TestCachedSourceKeysByTickerAndTime(t *testing.T) {
	asOf := time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC)
	inner := &stubSource{name: "trend", sig: models.Signal{SourceID: "trend", Encoding: models.BuyHoldSell("hold")}}
	src := NewCachedSource(inner, icache.NewTTLCache(), 30*time.Second)

	_, err := src.GetSignal(context.Background(), "AAPL", asOf)
	require.NoError(t, err)
	_, err = src.GetSignal(context.Background(), "MSFT", asOf)
	require.NoError(t, err)
	_, err = src.GetSignal(context.Background(), "AAPL", asOf.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, 3, inner.calls)
}

func TestCachedSourceDoesNotCacheErrors(t *testing.T) {
	inner := &stubSource{name: "trend", err: errors.New("upstream down")}
	src := NewCachedSource(inner, icache.NewTTLCache(), 30*time.Second)

	asOf := time.Now()
	_, err := src.GetSignal(context.Background(), "AAPL", asOf)
	assert.Error(t, err)
	_, err = src.GetSignal(context.Background(), "AAPL", asOf)
	assert.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}
