package knowledge

import "sort"

// Symptom is one entry of the canonical symptom vocabulary. Synonyms are
// keyed by language tag ("en", "ar"); the canonical ID itself is always
// matchable regardless of language.
type Symptom struct {
	ID       string              `json:"id"`
	Synonyms map[string][]string `json:"synonyms,omitempty"`
	Severity float64             `json:"severity,omitempty"`
}

// Disease holds the metadata the engine needs to rank, explain and
// recommend: a description, ordered precautions and tests, and a map of
// symptom ID to association weight in [0,1].
type Disease struct {
	ID             string             `json:"id"`
	Description    string             `json:"description"`
	Precautions    []string           `json:"precautions,omitempty"`
	Tests          []string           `json:"tests,omitempty"`
	SymptomWeights map[string]float64 `json:"symptom_weights"`
}

// WeightSum is the total association mass of the disease, used to
// normalize rule-match scores.
func (d *Disease) WeightSum() float64 {
	var sum float64
	for _, w := range d.SymptomWeights {
		sum += w
	}
	return sum
}

// KnowledgeBase is the immutable vocabulary + disease metadata shared by
// all sessions. It is built once by Load (or New) and never mutated;
// hot reloads go through Store.Swap.
type KnowledgeBase struct {
	symptoms map[string]*Symptom
	diseases map[string]*Disease
}

func (kb *KnowledgeBase) Symptom(id string) (*Symptom, bool) {
	s, ok := kb.symptoms[id]
	return s, ok
}

func (kb *KnowledgeBase) Disease(id string) (*Disease, bool) {
	d, ok := kb.diseases[id]
	return d, ok
}

// SymptomIDs returns all vocabulary IDs in lexical order.
func (kb *KnowledgeBase) SymptomIDs() []string {
	ids := make([]string, 0, len(kb.symptoms))
	for id := range kb.symptoms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DiseaseIDs returns all disease IDs in lexical order.
func (kb *KnowledgeBase) DiseaseIDs() []string {
	ids := make([]string, 0, len(kb.diseases))
	for id := range kb.diseases {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EachDisease visits diseases in lexical ID order so that downstream
// computations are deterministic.
func (kb *KnowledgeBase) EachDisease(fn func(*Disease)) {
	for _, id := range kb.DiseaseIDs() {
		fn(kb.diseases[id])
	}
}

// SynonymPhrases returns every phrase that should match the symptom in
// the given language: the canonical ID plus the language's synonym list.
// An empty language tag matches synonyms of every language.
func (kb *KnowledgeBase) SynonymPhrases(id, language string) []string {
	s, ok := kb.symptoms[id]
	if !ok {
		return nil
	}
	phrases := []string{s.ID}
	if language == "" {
		for _, lang := range sortedKeys(s.Synonyms) {
			phrases = append(phrases, s.Synonyms[lang]...)
		}
		return phrases
	}
	return append(phrases, s.Synonyms[language]...)
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
