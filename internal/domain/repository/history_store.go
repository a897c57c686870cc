package repository

import (
	"context"
	"time"

	"github.com/YoByron/trading-sub013/internal/domain/models"
)

// Timeframe represents candle resolution buckets.
type Timeframe string

const (
	TF1m Timeframe = "1m"
	TF5m Timeframe = "5m"
	TF1h Timeframe = "1h"
	TF1d Timeframe = "1d"
)

// HistoryStore provides read access to historical candles for validation.
type HistoryStore interface {
	GetCandles(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) ([]models.Candle, error)
	GetLatestNCandles(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.Candle, error)
}
