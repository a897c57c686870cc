package ensemble

import (
	"fmt"

	"github.com/YoByron/trading-sub013/internal/domain/models"
	domsvc "github.com/YoByron/trading-sub013/internal/domain/service"
)

// Voter combines gate votes under a voting policy. Stateless beyond its
// configuration; identical inputs always yield identical decisions.
//
// Threshold semantics in weighted mode: the winning side's summed
// weight×confidence is compared against the threshold as a share of TOTAL
// normalized weight, so abstaining gates dilute the winner. The consensus
// score is the winner's share of the decided (non-abstaining) mass, which
// keeps unanimity at exactly 1.0.
type Voter struct {
	policy  models.VotingPolicy
	weights map[string]float64 // per gate, normalized to sum to 1
}

// NewVoter validates the policy and normalizes gate weights up front so a
// bad configuration refuses to start instead of skewing votes at runtime.
func NewVoter(policy models.VotingPolicy, gates []models.GatePolicy) (*Voter, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("voting policy: %w", err)
	}
	if len(gates) == 0 {
		return nil, fmt.Errorf("at least one gate is required")
	}

	total := 0.0
	weights := make(map[string]float64, len(gates))
	for _, g := range gates {
		if err := g.Validate(); err != nil {
			return nil, fmt.Errorf("gate policy: %w", err)
		}
		if _, dup := weights[g.Name]; dup {
			return nil, fmt.Errorf("duplicate gate %q", g.Name)
		}
		weights[g.Name] = g.Weight
		total += g.Weight
	}
	if total <= 0 {
		return nil, fmt.Errorf("total gate weight must be positive, got %v", total)
	}
	for name := range weights {
		weights[name] /= total
	}

	return &Voter{policy: policy, weights: weights}, nil
}

var _ domsvc.EnsembleVoter = (*Voter)(nil)

// Mode returns the configured default voting mode.
func (v *Voter) Mode() models.VoteMode { return v.policy.Mode }

// Vote combines gate votes into one decision under the given mode.
func (v *Voter) Vote(votes []models.GateVote, mode models.VoteMode) (models.EnsembleDecision, error) {
	dec := models.EnsembleDecision{
		Action: models.ActionHold,
		Votes: map[models.VoteKind]int{
			models.VoteFor:     0,
			models.VoteAgainst: 0,
			models.VoteAbstain: 0,
		},
		PerGateVotes: make(map[string]models.GateVote, len(votes)),
	}
	if len(votes) == 0 {
		return dec, fmt.Errorf("no votes to combine")
	}
	switch mode {
	case models.ModeMajority, models.ModeWeighted, models.ModeUnanimous:
	default:
		return dec, fmt.Errorf("unknown voting mode %q", mode)
	}

	var forWeighted, againstWeighted, confWeighted, weightVoting float64
	for _, vote := range votes {
		w, ok := v.weights[vote.GateName]
		if !ok {
			return dec, fmt.Errorf("vote from unconfigured gate %q", vote.GateName)
		}
		if _, dup := dec.PerGateVotes[vote.GateName]; dup {
			return dec, fmt.Errorf("duplicate vote from gate %q", vote.GateName)
		}
		if vote.Confidence < 0 || vote.Confidence > 1 {
			return dec, fmt.Errorf("gate %q confidence %.4f outside [0,1]", vote.GateName, vote.Confidence)
		}
		dec.PerGateVotes[vote.GateName] = vote
		dec.Votes[vote.Decision]++
		switch vote.Decision {
		case models.VoteFor:
			forWeighted += w * vote.Confidence
		case models.VoteAgainst:
			againstWeighted += w * vote.Confidence
		case models.VoteAbstain:
		default:
			return dec, fmt.Errorf("gate %q has unknown vote kind %q", vote.GateName, vote.Decision)
		}
		if vote.Decision != models.VoteAbstain {
			confWeighted += w * vote.Confidence
			weightVoting += w
		}
	}

	voting := dec.Votes[models.VoteFor] + dec.Votes[models.VoteAgainst]
	if weightVoting > 0 {
		dec.WeightedConfidence = confWeighted / weightVoting
	}

	// Everyone abstained: hold with zero consensus.
	if voting == 0 {
		return dec, nil
	}

	dec.Unanimous = dec.Votes[models.VoteFor] == 0 || dec.Votes[models.VoteAgainst] == 0

	// A lone gate decides verbatim: its direction is the decision and
	// consensus is trivially full.
	if len(votes) == 1 {
		dec.ConsensusScore = 1
		if votes[0].Decision == models.VoteFor {
			dec.Action = v.policy.Direction.EntryAction()
		}
		return dec, nil
	}

	switch mode {
	case models.ModeMajority:
		forShare := float64(dec.Votes[models.VoteFor]) / float64(voting)
		againstShare := float64(dec.Votes[models.VoteAgainst]) / float64(voting)
		switch {
		case forShare > againstShare:
			dec.ConsensusScore = forShare
			if forShare > v.policy.Threshold {
				dec.Action = v.policy.Direction.EntryAction()
			}
		case againstShare > forShare:
			// Against winning is a consensus to stay flat.
			dec.ConsensusScore = againstShare
		default:
			dec.ConsensusScore = forShare // tie stays flat
		}

	case models.ModeWeighted:
		decided := forWeighted + againstWeighted
		if decided > 0 {
			winner := forWeighted
			if againstWeighted > winner {
				winner = againstWeighted
			}
			dec.ConsensusScore = winner / decided
		}
		if forWeighted > againstWeighted && forWeighted >= v.policy.Threshold {
			dec.Action = v.policy.Direction.EntryAction()
		}

	case models.ModeUnanimous:
		if dec.Unanimous {
			dec.ConsensusScore = 1
			if dec.Votes[models.VoteFor] > 0 {
				dec.Action = v.policy.Direction.EntryAction()
			}
		}
		// Any disagreement leaves the zero score and hold.
	}

	return dec, nil
}
