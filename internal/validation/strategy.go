package validation

import (
	"fmt"
	"math"

	"github.com/YoByron/trading-sub013/internal/domain/models"
	"github.com/YoByron/trading-sub013/internal/ensemble"
	"github.com/YoByron/trading-sub013/internal/gates"
)

// Strategy is the unit under validation. Fit sees only the train frame and
// Evaluate only the test frame; returns come back aligned to the frame's
// bar transitions.
type Strategy interface {
	Name() string
	Fit(train Frame) error
	Evaluate(test Frame) (returns []float64, trades int, err error)
}

// Factory builds a fresh strategy per fold so parallel folds never share
// fitted state.
type Factory func() Strategy

// NewFactory returns the factory registered under name.
func NewFactory(name, tf string) (Factory, error) {
	switch name {
	case "momentum":
		return func() Strategy { return NewMomentum(tf) }, nil
	case "gated_ensemble":
		if _, err := NewGatedEnsemble(tf); err != nil {
			return nil, err
		}
		return func() Strategy {
			s, _ := NewGatedEnsemble(tf)
			return s
		}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// Momentum holds a long position while the fast moving average sits above
// the slow one. Fit picks the window pair with the best in-sample Sharpe
// from a small grid, which gives the validator a realistic in-sample to
// out-of-sample decay to measure.
type Momentum struct {
	tf    string
	pairs [][2]int
	fast  int
	slow  int
}

func NewMomentum(tf string) *Momentum {
	return &Momentum{
		tf:    tf,
		pairs: [][2]int{{5, 20}, {10, 30}, {10, 50}, {20, 50}},
		fast:  10,
		slow:  30,
	}
}

func (m *Momentum) Name() string { return "momentum" }

func (m *Momentum) Fit(train Frame) error {
	maxSlow := 0
	for _, p := range m.pairs {
		if p[1] > maxSlow {
			maxSlow = p[1]
		}
	}
	if train.Len() < maxSlow+2 {
		return fmt.Errorf("train window of %d bars is too short for a %d-bar average", train.Len(), maxSlow)
	}

	ppy := PeriodsPerYear(m.tf)
	best := math.Inf(-1)
	for _, p := range m.pairs {
		returns, _ := crossoverReturns(train, p[0], p[1])
		if s := AnnualizedSharpe(returns, ppy); s > best {
			best = s
			m.fast, m.slow = p[0], p[1]
		}
	}
	return nil
}

func (m *Momentum) Evaluate(test Frame) ([]float64, int, error) {
	if test.Len() < 2 {
		return nil, 0, fmt.Errorf("test window of %d bars is too short", test.Len())
	}
	returns, trades := crossoverReturns(test, m.fast, m.slow)
	return returns, trades, nil
}

// crossoverReturns applies the crossover rule bar by bar. The position
// decided at bar i earns the return from bar i to i+1, so the rule never
// reads ahead of itself; bars before the slow warm-up stay flat.
func crossoverReturns(f Frame, fast, slow int) ([]float64, int) {
	closes := f.Closes()
	rets := f.SimpleReturns()
	out := make([]float64, len(rets))
	trades := 0
	pos := 0
	for i := range rets {
		if i+1 >= slow {
			newPos := 0
			if sma(closes, i, fast) > sma(closes, i, slow) {
				newPos = 1
			}
			if newPos == 1 && pos == 0 {
				trades++
			}
			pos = newPos
		}
		if pos == 1 {
			out[i] = rets[i]
		}
	}
	return out, trades
}

// sma averages the window closes[end-window+1 .. end].
func sma(closes []float64, end, window int) float64 {
	sum := 0.0
	for i := end - window + 1; i <= end; i++ {
		sum += closes[i]
	}
	return sum / float64(window)
}

// rollingStd is the sample deviation of the window closes[end-window+1 .. end].
func rollingStd(closes []float64, end, window int) float64 {
	if window < 2 {
		return 0
	}
	m := sma(closes, end, window)
	sum2 := 0.0
	for i := end - window + 1; i <= end; i++ {
		d := closes[i] - m
		sum2 += d * d
	}
	return math.Sqrt(sum2 / float64(window-1))
}

// GatedEnsemble replays the online decision stack bar by bar: derived
// momentum, mean-reversion and trend signals vote through the real gate
// evaluator and voter, and the book holds exposure only while the ensemble
// says buy. It validates the consensus configuration itself, not just a
// raw indicator.
type GatedEnsemble struct {
	tf       string
	eval     *gates.Evaluator
	voter    *ensemble.Voter
	policies []models.GatePolicy
	mode     models.VoteMode
	lookback int
	scale    float64 // momentum score scale, calibrated on the train window
}

func NewGatedEnsemble(tf string) (*GatedEnsemble, error) {
	policies := []models.GatePolicy{
		{Name: "momentum", Source: "derived", ConfidenceFloor: 0.25, Weight: 0.4},
		{Name: "meanrev", Source: "derived", ConfidenceFloor: 0.25, Weight: 0.3},
		{Name: "trend", Source: "derived", ConfidenceFloor: 0.25, Weight: 0.3},
	}
	voter, err := ensemble.NewVoter(models.VotingPolicy{
		Mode:      models.ModeWeighted,
		Threshold: 0.35,
		Direction: models.DirectionLong,
	}, policies)
	if err != nil {
		return nil, err
	}
	return &GatedEnsemble{
		tf:       tf,
		eval:     gates.NewEvaluator(models.DirectionLong),
		voter:    voter,
		policies: policies,
		mode:     models.ModeWeighted,
		lookback: 20,
		scale:    0.02,
	}, nil
}

func (g *GatedEnsemble) Name() string { return "gated_ensemble" }

// Fit calibrates the momentum score scale to the train window's typical
// close-to-average spread so the continuous encoding saturates at roughly
// the same rate in quiet and wild markets.
func (g *GatedEnsemble) Fit(train Frame) error {
	if train.Len() < g.lookback+2 {
		return fmt.Errorf("train window of %d bars is too short for a %d-bar lookback", train.Len(), g.lookback)
	}
	closes := train.Closes()
	sd := rollingStd(closes, len(closes)-1, minInt(len(closes), 5*g.lookback))
	last := closes[len(closes)-1]
	if last > 0 && sd > 0 {
		g.scale = 2 * sd / last
	}
	return nil
}

func (g *GatedEnsemble) Evaluate(test Frame) ([]float64, int, error) {
	if test.Len() < 2 {
		return nil, 0, fmt.Errorf("test window of %d bars is too short", test.Len())
	}

	closes := test.Closes()
	rets := test.SimpleReturns()
	out := make([]float64, len(rets))
	trades := 0
	pos := 0

	for i := range rets {
		if i+1 >= g.lookback {
			votes, err := g.votesAt(closes, i)
			if err != nil {
				return nil, 0, err
			}
			dec, err := g.voter.Vote(votes, g.mode)
			if err != nil {
				return nil, 0, err
			}
			newPos := 0
			if dec.Action == models.ActionBuy {
				newPos = 1
			}
			if newPos == 1 && pos == 0 {
				trades++
			}
			pos = newPos
		}
		if pos == 1 {
			out[i] = rets[i]
		}
	}
	return out, trades, nil
}

// votesAt derives the three gate signals from data up to and including bar
// i and runs them through the evaluator.
func (g *GatedEnsemble) votesAt(closes []float64, i int) ([]models.GateVote, error) {
	w := g.lookback
	price := closes[i]
	ma := sma(closes, i, w)
	sd := rollingStd(closes, i, w)

	// Momentum: continuous score from the fast/slow average spread.
	spread := 0.0
	if slow := sma(closes, i, w); slow > 0 {
		spread = (sma(closes, i, w/4) - slow) / slow
	}
	momScore := clamp(spread/g.scale, -1, 1)
	momentum := models.Signal{
		SourceID:   "derived",
		Encoding:   models.ContinuousScore(momScore, 0.2, -0.2),
		Confidence: clamp(math.Abs(momScore), 0, 1),
	}

	// Mean reversion: fade stretched prices, sit out the middle.
	z := 0.0
	if sd > 0 {
		z = (price - ma) / sd
	}
	mrScore := clamp(-z/3, -1, 1)
	meanrev := models.Signal{
		SourceID:   "derived",
		Encoding:   models.ContinuousScore(mrScore, 0.5, -0.5),
		Confidence: clamp(math.Abs(z)/3, 0, 1),
	}

	// Trend: discrete long/neutral/short read on the average's slope.
	label := "neutral"
	slopeConf := 0.0
	if i >= w+5 {
		prevMA := sma(closes, i-5, w)
		if ma > 0 && prevMA > 0 {
			slope := (ma - prevMA) / prevMA
			slopeConf = clamp(math.Abs(slope)/(g.scale/2), 0, 1)
			if slope > 0 {
				label = "long"
			} else if slope < 0 {
				label = "short"
			}
		}
	}
	trend := models.Signal{
		SourceID:   "derived",
		Encoding:   models.LongNeutralShort(label),
		Confidence: slopeConf,
	}

	signals := []models.Signal{momentum, meanrev, trend}
	votes := make([]models.GateVote, 0, len(signals))
	for idx, sig := range signals {
		vote, err := g.eval.Evaluate(sig, g.policies[idx])
		if err != nil {
			return nil, fmt.Errorf("gate %s: %w", g.policies[idx].Name, err)
		}
		votes = append(votes, vote)
	}
	return votes, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
