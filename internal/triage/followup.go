package triage

import (
	"math"
	"sort"

	"medical-triage-agent/internal/knowledge"
)

// Selector picks the next clarifying question by expected information
// gain over the current candidate distribution. The disease/symptom
// association weights stand in as proxy likelihoods; this is not a full
// Bayesian update, just enough signal to order the questions well.
type Selector struct {
	TopK int
}

func NewSelector(topK int) *Selector {
	return &Selector{TopK: topK}
}

// SelectNext returns the unasked, unobserved symptom whose confirmation
// or denial would shrink the candidate entropy the most, or "" when the
// ranking is no longer ambiguous or no informative symptom remains.
// Ties break by symptom ID. The caller commits the ID to the asked set
// only once the question was actually delivered.
func (s *Selector) SelectNext(kb *knowledge.KnowledgeBase, ranking Ranking, belief BeliefState, asked map[string]bool) string {
	if !ranking.Ambiguous {
		return ""
	}
	top := ranking.Candidates.TopK(s.TopK)
	if len(top) == 0 {
		return ""
	}

	// Renormalize the top-K slice so entropy is computed over a proper
	// distribution of the remaining hypotheses.
	probs := make(map[string]float64, len(top))
	var mass float64
	for _, c := range top {
		mass += c.Probability
	}
	if mass == 0 {
		return ""
	}
	for _, c := range top {
		probs[c.DiseaseID] = c.Probability / mass
	}

	candidates := s.candidateSymptoms(kb, top, belief, asked)
	if len(candidates) == 0 {
		return ""
	}

	baseEntropy := entropy(probs)
	bestID, bestGain := "", 0.0
	for _, sid := range candidates {
		gain := expectedGain(kb, probs, sid, baseEntropy)
		if gain > bestGain {
			bestID, bestGain = sid, gain
		}
	}
	if bestGain <= 1e-9 {
		return ""
	}
	return bestID
}

// candidateSymptoms collects, in lexical order, every symptom with a
// nonzero weight for any top candidate that was neither asked nor
// already observed.
func (s *Selector) candidateSymptoms(kb *knowledge.KnowledgeBase, top CandidateList, belief BeliefState, asked map[string]bool) []string {
	seen := map[string]bool{}
	for _, c := range top {
		d, ok := kb.Disease(c.DiseaseID)
		if !ok {
			continue
		}
		for sid, w := range d.SymptomWeights {
			if w <= 0 || asked[sid] || belief.Has(sid) {
				continue
			}
			seen[sid] = true
		}
	}
	ids := make([]string, 0, len(seen))
	for sid := range seen {
		ids = append(ids, sid)
	}
	sort.Strings(ids)
	return ids
}

// expectedGain is the entropy reduction expected from asking about one
// symptom, weighted by its marginal probability of being present under
// the current candidate distribution.
func expectedGain(kb *knowledge.KnowledgeBase, probs map[string]float64, symptomID string, baseEntropy float64) float64 {
	var pPresent float64
	likelihood := make(map[string]float64, len(probs))
	for diseaseID, p := range probs {
		var w float64
		if d, ok := kb.Disease(diseaseID); ok {
			w = d.SymptomWeights[symptomID]
		}
		likelihood[diseaseID] = w
		pPresent += p * w
	}
	if pPresent <= 0 || pPresent >= 1 {
		// The answer is already determined under the model; asking
		// cannot move the distribution.
		return 0
	}

	presentPost := posterior(probs, likelihood, false)
	absentPost := posterior(probs, likelihood, true)
	expected := pPresent*entropy(presentPost) + (1-pPresent)*entropy(absentPost)
	return baseEntropy - expected
}

// posterior reweights the candidate distribution by the symptom
// likelihood (or its complement for a denial) and renormalizes.
func posterior(probs, likelihood map[string]float64, complement bool) map[string]float64 {
	post := make(map[string]float64, len(probs))
	var sum float64
	for id, p := range probs {
		l := likelihood[id]
		if complement {
			l = 1 - l
		}
		post[id] = p * l
		sum += post[id]
	}
	if sum == 0 {
		return probs
	}
	for id := range post {
		post[id] /= sum
	}
	return post
}

func entropy(dist map[string]float64) float64 {
	var h float64
	for _, p := range dist {
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	return h
}
