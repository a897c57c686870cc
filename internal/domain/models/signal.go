package models

import (
	"fmt"
	"time"
)

// Stance is the direction a signal implies once its encoding is normalized.
type Stance string

const (
	StanceBullish Stance = "bullish"
	StanceBearish Stance = "bearish"
	StanceNeutral Stance = "neutral"
)

// EncodingKind discriminates the signal encodings upstream sources emit.
type EncodingKind string

const (
	EncodingBuyHoldSell      EncodingKind = "buy_hold_sell"      // labels "buy" | "hold" | "sell"
	EncodingLongNeutralShort EncodingKind = "long_neutral_short" // labels "long" | "neutral" | "short"
	EncodingContinuous       EncodingKind = "continuous"         // score in [-1,1] with thresholds
)

// SignalEncoding is a tagged union over the supported encodings. Label is
// meaningful for the discrete kinds, Score/BullAbove/BearBelow for the
// continuous kind.
type SignalEncoding struct {
	Kind      EncodingKind
	Label     string
	Score     float64
	BullAbove float64 // continuous: Score > BullAbove reads bullish
	BearBelow float64 // continuous: Score < BearBelow reads bearish
}

func BuyHoldSell(label string) SignalEncoding {
	return SignalEncoding{Kind: EncodingBuyHoldSell, Label: label}
}

func LongNeutralShort(label string) SignalEncoding {
	return SignalEncoding{Kind: EncodingLongNeutralShort, Label: label}
}

func ContinuousScore(score, bullAbove, bearBelow float64) SignalEncoding {
	return SignalEncoding{Kind: EncodingContinuous, Score: score, BullAbove: bullAbove, BearBelow: bearBelow}
}

// Stance normalizes the encoding into a direction. Unknown kinds or labels
// are data errors, not neutral readings.
func (e SignalEncoding) Stance() (Stance, error) {
	switch e.Kind {
	case EncodingBuyHoldSell:
		switch e.Label {
		case "buy":
			return StanceBullish, nil
		case "sell":
			return StanceBearish, nil
		case "hold":
			return StanceNeutral, nil
		}
		return StanceNeutral, fmt.Errorf("unknown buy/hold/sell label %q", e.Label)
	case EncodingLongNeutralShort:
		switch e.Label {
		case "long":
			return StanceBullish, nil
		case "short":
			return StanceBearish, nil
		case "neutral":
			return StanceNeutral, nil
		}
		return StanceNeutral, fmt.Errorf("unknown long/neutral/short label %q", e.Label)
	case EncodingContinuous:
		if e.Score < -1 || e.Score > 1 {
			return StanceNeutral, fmt.Errorf("continuous score %.4f outside [-1,1]", e.Score)
		}
		if e.BullAbove < e.BearBelow {
			return StanceNeutral, fmt.Errorf("continuous thresholds inverted: bull_above=%.3f bear_below=%.3f", e.BullAbove, e.BearBelow)
		}
		if e.Score > e.BullAbove {
			return StanceBullish, nil
		}
		if e.Score < e.BearBelow {
			return StanceBearish, nil
		}
		return StanceNeutral, nil
	}
	return StanceNeutral, fmt.Errorf("unknown signal encoding %q", e.Kind)
}

// Signal is one source's reading for one ticker at a point in time.
// Immutable once emitted; consumed within a single decision tick.
type Signal struct {
	SourceID   string
	Ticker     string
	Timestamp  time.Time
	RawValue   float64 // source output before normalization
	Encoding   SignalEncoding
	Confidence float64 // [0,1]
}

// Candle represents an OHLCV record backing offline validation runs.
type Candle struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}
