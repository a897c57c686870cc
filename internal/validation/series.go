package validation

import (
	"fmt"
	"math"
	"time"

	"github.com/YoByron/trading-sub013/internal/domain/models"
)

// Frame is a bounded window over a candle series. Strategies only ever
// receive the frames they are allowed to see, so look-ahead is a bounds
// panic rather than a discipline.
type Frame struct {
	candles []models.Candle
}

// NewFrame wraps a full candle series.
func NewFrame(candles []models.Candle) Frame {
	return Frame{candles: candles}
}

// Slice returns the [r.Start, r.End) view. The view's capacity is pinned to
// its length so it cannot be re-extended over neighbouring data.
func (f Frame) Slice(r models.IndexRange) (Frame, error) {
	if r.Start < 0 || r.End > len(f.candles) || r.Start > r.End {
		return Frame{}, fmt.Errorf("range [%d,%d) outside frame of %d candles", r.Start, r.End, len(f.candles))
	}
	return Frame{candles: f.candles[r.Start:r.End:r.End]}, nil
}

func (f Frame) Len() int { return len(f.candles) }

func (f Frame) Candle(i int) models.Candle { return f.candles[i] }

// Closes returns a copy of the close prices in the frame.
func (f Frame) Closes() []float64 {
	out := make([]float64, len(f.candles))
	for i, c := range f.candles {
		out[i] = c.Close
	}
	return out
}

// LogReturns computes r_t = ln(C_t / C_{t-1}) within the frame, one entry
// per bar transition. Non-positive closes contribute a zero return.
func (f Frame) LogReturns() []float64 {
	if len(f.candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(f.candles)-1)
	for i := 1; i < len(f.candles); i++ {
		prev := f.candles[i-1].Close
		cur := f.candles[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// SimpleReturns computes r_t = C_t/C_{t-1} - 1 within the frame.
func (f Frame) SimpleReturns() []float64 {
	if len(f.candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(f.candles)-1)
	for i := 1; i < len(f.candles); i++ {
		prev := f.candles[i-1].Close
		cur := f.candles[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, cur/prev-1)
	}
	return out
}

func (f Frame) From() time.Time {
	if len(f.candles) == 0 {
		return time.Time{}
	}
	return f.candles[0].Bucket
}

func (f Frame) To() time.Time {
	if len(f.candles) == 0 {
		return time.Time{}
	}
	return f.candles[len(f.candles)-1].Bucket
}

// ValidateSeries checks the candle series is usable for walk-forward work:
// strictly increasing timestamps and positive closes.
func ValidateSeries(candles []models.Candle) error {
	if len(candles) == 0 {
		return fmt.Errorf("empty candle series")
	}
	for i := range candles {
		if candles[i].Close <= 0 {
			return fmt.Errorf("candle %d (%s): non-positive close %.4f", i, candles[i].Bucket.Format(time.RFC3339), candles[i].Close)
		}
		if i > 0 && !candles[i].Bucket.After(candles[i-1].Bucket) {
			return fmt.Errorf("candle %d: timestamp %s not after %s", i,
				candles[i].Bucket.Format(time.RFC3339), candles[i-1].Bucket.Format(time.RFC3339))
		}
	}
	return nil
}

// PeriodsPerYear maps a timeframe to its bar count over a trading year
// (252 sessions, 390 regular-hours minutes each).
func PeriodsPerYear(tf string) float64 {
	switch tf {
	case "1m":
		return 252 * 390
	case "5m":
		return 252 * 78
	case "1h":
		return 252 * 6.5
	case "1d":
		return 252
	default:
		return 252
	}
}
