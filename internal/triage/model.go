// Package triage contains the pure diagnostic components: symptom
// extraction, disease ranking, follow-up question selection and
// recommendation composition. Each is a function over its inputs plus
// the read-only knowledge base; session state lives elsewhere.
package triage

import (
	"sort"
	"strings"
)

// Polarity says whether an utterance asserted, denied or was unsure
// about a symptom.
type Polarity string

const (
	Present   Polarity = "present"
	Absent    Polarity = "absent"
	Uncertain Polarity = "uncertain"
)

// Observation is one symptom judgment extracted from one utterance.
type Observation struct {
	SymptomID  string   `json:"symptom_id"`
	Polarity   Polarity `json:"polarity"`
	Confidence float64  `json:"confidence"`
}

// BeliefState accumulates at most one Observation per symptom across the
// whole session.
type BeliefState struct {
	Observations map[string]Observation `json:"observations"`
}

func NewBeliefState() BeliefState {
	return BeliefState{Observations: map[string]Observation{}}
}

// Apply merges one turn's observation into the state. Last writer wins,
// with one exception: an earlier "present" is never downgraded to
// "uncertain"; only an explicit "absent" flips it.
func (b *BeliefState) Apply(obs Observation) {
	if b.Observations == nil {
		b.Observations = map[string]Observation{}
	}
	prev, seen := b.Observations[obs.SymptomID]
	if seen && prev.Polarity == Present && obs.Polarity == Uncertain {
		return
	}
	b.Observations[obs.SymptomID] = obs
}

// ApplyAll merges a full extraction result in order.
func (b *BeliefState) ApplyAll(observations []Observation) {
	for _, obs := range observations {
		b.Apply(obs)
	}
}

func (b *BeliefState) Has(symptomID string) bool {
	_, ok := b.Observations[symptomID]
	return ok
}

// PresentIDs returns the IDs observed present, in lexical order.
func (b *BeliefState) PresentIDs() []string {
	return b.idsWith(Present)
}

// AbsentIDs returns the IDs explicitly denied, in lexical order.
func (b *BeliefState) AbsentIDs() []string {
	return b.idsWith(Absent)
}

func (b *BeliefState) idsWith(p Polarity) []string {
	var ids []string
	for id, obs := range b.Observations {
		if obs.Polarity == p {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// PresentText renders the present symptoms as the space-separated text
// the classifier was trained on (underscores become spaces).
func (b *BeliefState) PresentText() string {
	ids := b.PresentIDs()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strings.ReplaceAll(id, "_", " ")
	}
	return strings.Join(parts, " ")
}

// Candidate is one ranked diagnosis hypothesis.
type Candidate struct {
	DiseaseID   string  `json:"disease_id"`
	Probability float64 `json:"probability"`
}

// CandidateList is ordered strictly descending by probability, ties
// broken by disease ID so equal inputs always rank identically.
type CandidateList []Candidate

func (cl CandidateList) sortCanonical() {
	sort.Slice(cl, func(i, j int) bool {
		if cl[i].Probability != cl[j].Probability {
			return cl[i].Probability > cl[j].Probability
		}
		return cl[i].DiseaseID < cl[j].DiseaseID
	})
}

// Top returns the leading candidate, or false for an empty list.
func (cl CandidateList) Top() (Candidate, bool) {
	if len(cl) == 0 {
		return Candidate{}, false
	}
	return cl[0], true
}

// TopK returns at most k leading candidates.
func (cl CandidateList) TopK(k int) CandidateList {
	if k > len(cl) {
		k = len(cl)
	}
	return cl[:k]
}

// Ranking is the DiagnosisRanker output: the candidate list plus the
// ambiguity verdict that drives follow-up questioning.
type Ranking struct {
	Candidates CandidateList `json:"candidates"`
	Ambiguous  bool          `json:"ambiguous"`
}

// Recommendation is the terminal answer handed to the user. When
// Conclusive is false it carries no single diagnosis, only reference
// candidates and the advice to consult a professional.
type Recommendation struct {
	Conclusive  bool          `json:"conclusive"`
	DiseaseID   string        `json:"disease_id,omitempty"`
	Description string        `json:"description,omitempty"`
	Precautions []string      `json:"precautions,omitempty"`
	Tests       []string      `json:"tests,omitempty"`
	Probability float64       `json:"probability,omitempty"`
	Candidates  CandidateList `json:"candidates"`
	Advice      string        `json:"advice"`
}
