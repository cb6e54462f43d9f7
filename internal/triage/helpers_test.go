package triage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"medical-triage-agent/internal/knowledge"
)

// sampleKB mirrors the canonical two-disease example: influenza keyed on
// fever+cough, common cold on cough+headache.
func sampleKB(t *testing.T) *knowledge.KnowledgeBase {
	t.Helper()
	kb, err := knowledge.New(
		[]knowledge.Symptom{
			{ID: "fever", Synonyms: map[string][]string{"en": {"high fever", "high temperature"}, "ar": {"حمى"}}},
			{ID: "cough", Synonyms: map[string][]string{"en": {"coughing"}, "ar": {"سعال"}}},
			{ID: "headache", Synonyms: map[string][]string{"ar": {"صداع"}}},
			{ID: "sore_throat", Synonyms: map[string][]string{"en": {"throat pain"}}},
		},
		[]knowledge.Disease{
			{
				ID:             "influenza",
				Description:    "Viral respiratory infection.",
				Precautions:    []string{"Rest", "Fluids"},
				Tests:          []string{"Rapid antigen test"},
				SymptomWeights: map[string]float64{"fever": 0.8, "cough": 0.6},
			},
			{
				ID:             "common_cold",
				Description:    "Mild viral infection.",
				SymptomWeights: map[string]float64{"cough": 0.5, "headache": 0.3},
			},
		},
	)
	require.NoError(t, err)
	return kb
}

// fakePredictor returns a fixed distribution, ignoring the text.
type fakePredictor struct {
	dist map[string]float64
}

func (f fakePredictor) Version() string { return "fake" }

func (f fakePredictor) Predict(string) map[string]float64 { return f.dist }

func uniformPredictor() fakePredictor {
	return fakePredictor{dist: map[string]float64{"influenza": 0.5, "common_cold": 0.5}}
}

func beliefWith(observations ...Observation) BeliefState {
	b := NewBeliefState()
	b.ApplyAll(observations)
	return b
}
