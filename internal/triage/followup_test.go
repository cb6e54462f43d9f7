package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-triage-agent/internal/knowledge"
)

func evenRanking() Ranking {
	return Ranking{
		Candidates: CandidateList{
			{DiseaseID: "common_cold", Probability: 0.5},
			{DiseaseID: "influenza", Probability: 0.5},
		},
		Ambiguous: true,
	}
}

func TestSelectNextPicksMostInformativeSymptom(t *testing.T) {
	kb := sampleKB(t)
	s := NewSelector(5)

	belief := beliefWith(Observation{SymptomID: "cough", Polarity: Present, Confidence: 1.0})
	next := s.SelectNext(kb, evenRanking(), belief, map[string]bool{})

	// fever (0.8 for influenza, 0 for the cold) separates the two far
	// better than headache (0.3 vs 0).
	assert.Equal(t, "fever", next)
}

func TestSelectNextSkipsAskedAndObserved(t *testing.T) {
	kb := sampleKB(t)
	s := NewSelector(5)

	belief := beliefWith(Observation{SymptomID: "cough", Polarity: Present, Confidence: 1.0})

	next := s.SelectNext(kb, evenRanking(), belief, map[string]bool{"fever": true})
	assert.NotEqual(t, "fever", next)
	assert.NotEqual(t, "cough", next, "observed symptoms must never be asked")
	assert.Equal(t, "headache", next)

	// Everything informative exhausted.
	next = s.SelectNext(kb, evenRanking(), belief, map[string]bool{"fever": true, "headache": true})
	assert.Empty(t, next)
}

func TestSelectNextNotAmbiguous(t *testing.T) {
	kb := sampleKB(t)
	s := NewSelector(5)

	ranking := evenRanking()
	ranking.Ambiguous = false
	next := s.SelectNext(kb, ranking, NewBeliefState(), map[string]bool{})
	assert.Empty(t, next)
}

func TestSelectNextDeterministicTies(t *testing.T) {
	// Two diseases with mirror-image weights: both candidate symptoms
	// carry identical information, so the lexically smaller one wins.
	kb, err := knowledge.New(
		[]knowledge.Symptom{{ID: "alpha"}, {ID: "beta"}, {ID: "shared"}},
		[]knowledge.Disease{
			{ID: "one", SymptomWeights: map[string]float64{"alpha": 0.7, "shared": 0.5}},
			{ID: "two", SymptomWeights: map[string]float64{"beta": 0.7, "shared": 0.5}},
		},
	)
	require.NoError(t, err)

	s := NewSelector(5)
	belief := beliefWith(Observation{SymptomID: "shared", Polarity: Present, Confidence: 1.0})
	ranking := Ranking{
		Candidates: CandidateList{
			{DiseaseID: "one", Probability: 0.5},
			{DiseaseID: "two", Probability: 0.5},
		},
		Ambiguous: true,
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, "alpha", s.SelectNext(kb, ranking, belief, map[string]bool{}))
	}
}

func TestSelectNextHonorsTopK(t *testing.T) {
	kb := sampleKB(t)
	s := NewSelector(1)

	// Only the leading candidate's symptoms are considered with K=1.
	ranking := Ranking{
		Candidates: CandidateList{
			{DiseaseID: "common_cold", Probability: 0.6},
			{DiseaseID: "influenza", Probability: 0.4},
		},
		Ambiguous: true,
	}
	belief := beliefWith(Observation{SymptomID: "cough", Polarity: Present, Confidence: 1.0})
	next := s.SelectNext(kb, ranking, belief, map[string]bool{})
	// With a single hypothesis no question can move the distribution.
	assert.Empty(t, next)
}
