package triage

import (
	"medical-triage-agent/internal/classifier"
	"medical-triage-agent/internal/knowledge"
)

// RankerConfig holds the two independent finalization knobs: a candidate
// below ConfidenceThreshold, or within AmbiguityMargin of the runner-up,
// keeps the conversation in follow-up.
type RankerConfig struct {
	ConfidenceThreshold float64
	AmbiguityMargin     float64
}

func DefaultRankerConfig() RankerConfig {
	return RankerConfig{
		ConfidenceThreshold: 0.35,
		AmbiguityMargin:     0.05,
	}
}

// Ranker combines the classifier's base distribution with the knowledge
// base association weights into a ranked candidate list.
type Ranker struct {
	cfg RankerConfig
}

func NewRanker(cfg RankerConfig) *Ranker {
	return &Ranker{cfg: cfg}
}

// Rank scores every disease as classifier probability times a normalized
// association score: present symptoms boost, explicitly absent ones
// penalize in proportion to their weight for that disease. The result is
// renormalized and sorted descending, ties by disease ID. A belief state
// with no present symptom cannot be ranked at all.
func (r *Ranker) Rank(kb *knowledge.KnowledgeBase, model classifier.Predictor, belief BeliefState) (Ranking, error) {
	present := belief.PresentIDs()
	if len(present) == 0 {
		return Ranking{}, ErrInsufficientEvidence
	}
	presentSet := toSet(present)
	absentSet := toSet(belief.AbsentIDs())

	base := model.Predict(belief.PresentText())

	var candidates CandidateList
	var sum float64
	kb.EachDisease(func(d *knowledge.Disease) {
		score := base[d.ID] * associationScore(d, presentSet, absentSet)
		if score <= 0 {
			return
		}
		candidates = append(candidates, Candidate{DiseaseID: d.ID, Probability: score})
		sum += score
	})
	if sum > 0 {
		for i := range candidates {
			candidates[i].Probability /= sum
		}
	}
	candidates.sortCanonical()

	return Ranking{
		Candidates: candidates,
		Ambiguous:  r.isAmbiguous(candidates),
	}, nil
}

// associationScore maps the evidence overlap into (0,1]: 0.5 means no
// signal either way, 1.0 means every weighted symptom of the disease was
// confirmed, and explicit denials pull below 0.5.
func associationScore(d *knowledge.Disease, present, absent map[string]bool) float64 {
	total := d.WeightSum()
	if total == 0 {
		return 0.5
	}
	var balance float64
	for sid, w := range d.SymptomWeights {
		switch {
		case present[sid]:
			balance += w
		case absent[sid]:
			balance -= w
		}
	}
	score := 0.5 + 0.5*balance/total
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func (r *Ranker) isAmbiguous(candidates CandidateList) bool {
	top, ok := candidates.Top()
	if !ok {
		return true
	}
	if top.Probability < r.cfg.ConfidenceThreshold {
		return true
	}
	if len(candidates) > 1 && top.Probability-candidates[1].Probability < r.cfg.AmbiguityMargin {
		return true
	}
	return false
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
