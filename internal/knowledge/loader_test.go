package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadValid(t *testing.T) {
	kb, err := Load("testdata/kb_valid.json")
	require.NoError(t, err)

	assert.Equal(t, []string{"cough", "fever", "headache"}, kb.SymptomIDs())
	assert.Equal(t, []string{"common_cold", "influenza"}, kb.DiseaseIDs())

	flu, ok := kb.Disease("influenza")
	require.True(t, ok)
	assert.Equal(t, 0.8, flu.SymptomWeights["fever"])
	assert.InDelta(t, 1.4, flu.WeightSum(), 1e-9)
	assert.Equal(t, []string{"Rest", "Fluids"}, flu.Precautions)
}

func TestLoadRejectsDanglingSymptomRef(t *testing.T) {
	_, err := Load("testdata/kb_dangling.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown symptom")
	assert.Contains(t, err.Error(), "cough")
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	_, err := Load("testdata/kb_duplicate.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate symptom id")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/does_not_exist.json")
	require.Error(t, err)
}

func TestNewRejectsWeightOutOfRange(t *testing.T) {
	_, err := New(
		[]Symptom{{ID: "fever"}},
		[]Disease{{ID: "influenza", SymptomWeights: map[string]float64{"fever": 1.5}}},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside [0,1]")
}

func TestSynonymPhrases(t *testing.T) {
	kb, err := Load("testdata/kb_valid.json")
	require.NoError(t, err)

	assert.Equal(t, []string{"fever", "high temperature"}, kb.SynonymPhrases("fever", "en"))
	assert.Equal(t, []string{"fever", "حمى"}, kb.SynonymPhrases("fever", "ar"))
	// Empty language tag matches every language.
	assert.Equal(t, []string{"fever", "حمى", "high temperature"}, kb.SynonymPhrases("fever", ""))
	assert.Empty(t, kb.SynonymPhrases("unknown", "en"))
}

func TestStoreSwapsAtomically(t *testing.T) {
	store, err := OpenStore("testdata/kb_valid.json")
	require.NoError(t, err)
	first := store.Current()

	// A failed reload must keep the previous knowledge base active.
	require.Error(t, store.Reload("testdata/kb_dangling.json"))
	assert.Same(t, first, store.Current())

	require.NoError(t, store.Reload("testdata/kb_valid.json"))
	assert.NotSame(t, first, store.Current())
}
