package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoByron/trading-sub013/internal/domain/models"
)

func equalGates(names ...string) []models.GatePolicy {
	gates := make([]models.GatePolicy, 0, len(names))
	for _, n := range names {
		gates = append(gates, models.GatePolicy{Name: n, Source: n, ConfidenceFloor: 0.5, Weight: 1})
	}
	return gates
}

func newTestVoter(t *testing.T, mode models.VoteMode, threshold float64, gates []models.GatePolicy) *Voter {
	t.Helper()
	v, err := NewVoter(models.VotingPolicy{Mode: mode, Threshold: threshold, Direction: models.DirectionLong}, gates)
	require.NoError(t, err)
	return v
}

func vote(gate string, kind models.VoteKind, conf float64) models.GateVote {
	return models.GateVote{GateName: gate, Decision: kind, Confidence: conf}
}

func TestWeightedVoteThreeGates(t *testing.T) {
	t.Parallel()

	// Two supporters at 0.8 and 0.7 against one dissenter at 0.9, equal
	// weights: the for side carries (0.8+0.7)/3 = 0.5 of total weight and
	// clears a 0.5 threshold.
	v := newTestVoter(t, models.ModeWeighted, 0.5, equalGates("momentum", "policy", "sentiment"))
	dec, err := v.Vote([]models.GateVote{
		vote("momentum", models.VoteFor, 0.8),
		vote("policy", models.VoteFor, 0.7),
		vote("sentiment", models.VoteAgainst, 0.9),
	}, models.ModeWeighted)
	require.NoError(t, err)

	assert.Equal(t, models.ActionBuy, dec.Action)
	assert.InDelta(t, 0.5/0.8, dec.ConsensusScore, 1e-9) // winner share of decided mass
	assert.InDelta(t, 0.8, dec.WeightedConfidence, 1e-9)
	assert.False(t, dec.Unanimous)
	assert.Equal(t, 2, dec.Votes[models.VoteFor])
	assert.Equal(t, 1, dec.Votes[models.VoteAgainst])
}

func TestWeightedThresholdTotalVsParticipating(t *testing.T) {
	t.Parallel()

	// One gate votes for at 0.9, the other abstains. Against a share of
	// TOTAL weight the for side carries 0.45 and misses a 0.5 threshold;
	// a participating-weight reading would have scored it 0.9 and traded.
	// Abstainers are meant to dilute, so this stays a hold.
	v := newTestVoter(t, models.ModeWeighted, 0.5, equalGates("momentum", "sentiment"))
	dec, err := v.Vote([]models.GateVote{
		vote("momentum", models.VoteFor, 0.9),
		vote("sentiment", models.VoteAbstain, 0.2),
	}, models.ModeWeighted)
	require.NoError(t, err)

	assert.Equal(t, models.ActionHold, dec.Action)
	assert.InDelta(t, 1.0, dec.ConsensusScore, 1e-9) // only decided mass agrees
	participating := 0.9                             // what the rejected semantics would compare
	assert.Greater(t, participating, 0.5)

	// The same split with a threshold the diluted share does clear trades.
	v = newTestVoter(t, models.ModeWeighted, 0.4, equalGates("momentum", "sentiment"))
	dec, err = v.Vote([]models.GateVote{
		vote("momentum", models.VoteFor, 0.9),
		vote("sentiment", models.VoteAbstain, 0.2),
	}, models.ModeWeighted)
	require.NoError(t, err)
	assert.Equal(t, models.ActionBuy, dec.Action)
}

func TestWeightedAgainstWins(t *testing.T) {
	t.Parallel()

	v := newTestVoter(t, models.ModeWeighted, 0.5, equalGates("momentum", "policy"))
	dec, err := v.Vote([]models.GateVote{
		vote("momentum", models.VoteFor, 0.4),
		vote("policy", models.VoteAgainst, 0.9),
	}, models.ModeWeighted)
	require.NoError(t, err)

	assert.Equal(t, models.ActionHold, dec.Action)
	assert.InDelta(t, 0.45/0.65, dec.ConsensusScore, 1e-9)
}

func TestMajorityVote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		votes      []models.GateVote
		wantAction models.Action
		wantScore  float64
	}{
		{
			"two of three for",
			[]models.GateVote{
				vote("momentum", models.VoteFor, 0.9),
				vote("policy", models.VoteFor, 0.6),
				vote("sentiment", models.VoteAgainst, 0.8),
			},
			models.ActionBuy, 2.0 / 3.0,
		},
		{
			"tie stays flat",
			[]models.GateVote{
				vote("momentum", models.VoteFor, 0.9),
				vote("policy", models.VoteAgainst, 0.9),
				vote("sentiment", models.VoteAbstain, 0.1),
			},
			models.ActionHold, 0.5,
		},
		{
			"against majority stays flat",
			[]models.GateVote{
				vote("momentum", models.VoteAgainst, 0.9),
				vote("policy", models.VoteAgainst, 0.6),
				vote("sentiment", models.VoteFor, 0.8),
			},
			models.ActionHold, 2.0 / 3.0,
		},
		{
			"abstainers excluded from the base",
			[]models.GateVote{
				vote("momentum", models.VoteFor, 0.9),
				vote("policy", models.VoteFor, 0.8),
				vote("sentiment", models.VoteAbstain, 0.2),
			},
			models.ActionBuy, 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := newTestVoter(t, models.ModeMajority, 0.5, equalGates("momentum", "policy", "sentiment"))
			dec, err := v.Vote(tt.votes, models.ModeMajority)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAction, dec.Action)
			assert.InDelta(t, tt.wantScore, dec.ConsensusScore, 1e-9)
		})
	}
}

func TestMajorityNeedsStrictThreshold(t *testing.T) {
	t.Parallel()

	// Exactly half the non-abstaining votes does not exceed 0.5.
	v := newTestVoter(t, models.ModeMajority, 0.5, equalGates("a", "b", "c", "d"))
	dec, err := v.Vote([]models.GateVote{
		vote("a", models.VoteFor, 0.9),
		vote("b", models.VoteFor, 0.9),
		vote("c", models.VoteAgainst, 0.9),
		vote("d", models.VoteAgainst, 0.9),
	}, models.ModeMajority)
	require.NoError(t, err)
	assert.Equal(t, models.ActionHold, dec.Action)
}

func TestUnanimousMode(t *testing.T) {
	t.Parallel()

	gates := equalGates("momentum", "policy", "sentiment")

	v := newTestVoter(t, models.ModeUnanimous, 0.5, gates)
	dec, err := v.Vote([]models.GateVote{
		vote("momentum", models.VoteFor, 0.9),
		vote("policy", models.VoteFor, 0.7),
		vote("sentiment", models.VoteFor, 0.6),
	}, models.ModeUnanimous)
	require.NoError(t, err)
	assert.Equal(t, models.ActionBuy, dec.Action)
	assert.True(t, dec.Unanimous)
	assert.InDelta(t, 1.0, dec.ConsensusScore, 1e-12)

	// One dissenter forces a flat decision with zero consensus.
	dec, err = v.Vote([]models.GateVote{
		vote("momentum", models.VoteFor, 0.9),
		vote("policy", models.VoteAgainst, 0.7),
		vote("sentiment", models.VoteFor, 0.6),
	}, models.ModeUnanimous)
	require.NoError(t, err)
	assert.Equal(t, models.ActionHold, dec.Action)
	assert.False(t, dec.Unanimous)
	assert.InDelta(t, 0.0, dec.ConsensusScore, 1e-12)

	// Abstainers do not break unanimity of the voters that remain.
	dec, err = v.Vote([]models.GateVote{
		vote("momentum", models.VoteFor, 0.9),
		vote("policy", models.VoteAbstain, 0.1),
		vote("sentiment", models.VoteFor, 0.6),
	}, models.ModeUnanimous)
	require.NoError(t, err)
	assert.Equal(t, models.ActionBuy, dec.Action)
	assert.True(t, dec.Unanimous)
	assert.InDelta(t, 1.0, dec.ConsensusScore, 1e-12)
}

func TestAllAbstainHolds(t *testing.T) {
	t.Parallel()

	for _, mode := range []models.VoteMode{models.ModeMajority, models.ModeWeighted, models.ModeUnanimous} {
		v := newTestVoter(t, mode, 0.5, equalGates("momentum", "policy", "sentiment"))
		dec, err := v.Vote([]models.GateVote{
			vote("momentum", models.VoteAbstain, 0.1),
			vote("policy", models.VoteAbstain, 0.3),
			vote("sentiment", models.VoteAbstain, 0.0),
		}, mode)
		require.NoError(t, err)
		assert.Equal(t, models.ActionHold, dec.Action, "mode %s", mode)
		assert.InDelta(t, 0.0, dec.ConsensusScore, 1e-12, "mode %s", mode)
		assert.False(t, dec.Unanimous, "mode %s", mode)
		assert.Equal(t, 3, dec.Votes[models.VoteAbstain], "mode %s", mode)
	}
}

func TestSingleGateVerbatim(t *testing.T) {
	t.Parallel()

	v := newTestVoter(t, models.ModeWeighted, 0.5, equalGates("momentum"))

	// A lone gate decides even when its diluted weighted score would not
	// have cleared the threshold.
	dec, err := v.Vote([]models.GateVote{vote("momentum", models.VoteFor, 0.3)}, models.ModeWeighted)
	require.NoError(t, err)
	assert.Equal(t, models.ActionBuy, dec.Action)
	assert.InDelta(t, 1.0, dec.ConsensusScore, 1e-12)
	assert.True(t, dec.Unanimous)

	dec, err = v.Vote([]models.GateVote{vote("momentum", models.VoteAgainst, 0.9)}, models.ModeWeighted)
	require.NoError(t, err)
	assert.Equal(t, models.ActionHold, dec.Action)
	assert.InDelta(t, 1.0, dec.ConsensusScore, 1e-12)

	dec, err = v.Vote([]models.GateVote{vote("momentum", models.VoteAbstain, 0.1)}, models.ModeWeighted)
	require.NoError(t, err)
	assert.Equal(t, models.ActionHold, dec.Action)
	assert.InDelta(t, 0.0, dec.ConsensusScore, 1e-12)
}

func TestShortDirectionEntersSell(t *testing.T) {
	t.Parallel()

	v, err := NewVoter(models.VotingPolicy{
		Mode: models.ModeMajority, Threshold: 0.5, Direction: models.DirectionShort,
	}, equalGates("momentum", "policy"))
	require.NoError(t, err)

	dec, err := v.Vote([]models.GateVote{
		vote("momentum", models.VoteFor, 0.9),
		vote("policy", models.VoteFor, 0.8),
	}, models.ModeMajority)
	require.NoError(t, err)
	assert.Equal(t, models.ActionSell, dec.Action)
}

func TestConsensusBounds(t *testing.T) {
	t.Parallel()

	kinds := []models.VoteKind{models.VoteFor, models.VoteAgainst, models.VoteAbstain}
	confs := []float64{0, 0.25, 0.6, 1}
	for _, mode := range []models.VoteMode{models.ModeMajority, models.ModeWeighted, models.ModeUnanimous} {
		v := newTestVoter(t, mode, 0.5, equalGates("a", "b", "c"))
		for _, ka := range kinds {
			for _, kb := range kinds {
				for _, kc := range kinds {
					for _, conf := range confs {
						dec, err := v.Vote([]models.GateVote{
							vote("a", ka, conf),
							vote("b", kb, 0.7),
							vote("c", kc, 0.4),
						}, mode)
						require.NoError(t, err)
						assert.GreaterOrEqual(t, dec.ConsensusScore, 0.0)
						assert.LessOrEqual(t, dec.ConsensusScore, 1.0)
						assert.GreaterOrEqual(t, dec.WeightedConfidence, 0.0)
						assert.LessOrEqual(t, dec.WeightedConfidence, 1.0)
						if dec.Unanimous {
							assert.InDelta(t, 1.0, dec.ConsensusScore, 1e-9,
								"unanimity must carry full consensus (mode %s)", mode)
						}
					}
				}
			}
		}
	}
}

func TestVoteDeterminism(t *testing.T) {
	t.Parallel()

	v := newTestVoter(t, models.ModeWeighted, 0.5, equalGates("momentum", "policy", "sentiment"))
	votes := []models.GateVote{
		vote("momentum", models.VoteFor, 0.8),
		vote("policy", models.VoteAgainst, 0.7),
		vote("sentiment", models.VoteAbstain, 0.2),
	}

	first, err := v.Vote(votes, models.ModeWeighted)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := v.Vote(votes, models.ModeWeighted)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestVoteInputErrors(t *testing.T) {
	t.Parallel()

	v := newTestVoter(t, models.ModeMajority, 0.5, equalGates("momentum", "policy"))

	_, err := v.Vote(nil, models.ModeMajority)
	assert.Error(t, err)

	_, err = v.Vote([]models.GateVote{vote("mystery", models.VoteFor, 0.9)}, models.ModeMajority)
	assert.Error(t, err)

	_, err = v.Vote([]models.GateVote{
		vote("momentum", models.VoteFor, 0.9),
		vote("momentum", models.VoteFor, 0.9),
	}, models.ModeMajority)
	assert.Error(t, err)

	_, err = v.Vote([]models.GateVote{vote("momentum", models.VoteFor, 1.4)}, models.ModeMajority)
	assert.Error(t, err)

	_, err = v.Vote([]models.GateVote{vote("momentum", models.VoteFor, 0.9)}, models.VoteMode("quorum"))
	assert.Error(t, err)
}

func TestNewVoterConfigErrors(t *testing.T) {
	t.Parallel()

	good := models.VotingPolicy{Mode: models.ModeMajority, Threshold: 0.5, Direction: models.DirectionLong}

	_, err := NewVoter(good, nil)
	assert.Error(t, err)

	_, err = NewVoter(models.VotingPolicy{Mode: "plurality", Threshold: 0.5, Direction: models.DirectionLong}, equalGates("a"))
	assert.Error(t, err)

	_, err = NewVoter(good, []models.GatePolicy{
		{Name: "a", ConfidenceFloor: 0.5, Weight: 1},
		{Name: "a", ConfidenceFloor: 0.5, Weight: 1},
	})
	assert.Error(t, err)

	_, err = NewVoter(good, []models.GatePolicy{{Name: "a", ConfidenceFloor: 0.5, Weight: 0}})
	assert.Error(t, err)
}
