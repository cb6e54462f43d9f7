package triage

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"medical-triage-agent/internal/knowledge"
)

// negators flip a following symptom mention to "absent". Tokens are
// post-normalization, so contractions arrive split ("don t").
var negators = map[string]bool{
	"no": true, "not": true, "never": true, "without": true,
	"deny": true, "denies": true, "dont": true, "don": true,
	"doesn": true, "didn": true, "isn": true, "aren": true,
	"neither": true, "nor": true, "none": true,
	// Arabic
	"لا": true, "ما": true, "ليس": true, "ليست": true,
	"بدون": true, "بلا": true, "مافي": true,
}

// Extractor maps free-form utterances to symptom observations. It is a
// pure function over the knowledge base vocabulary: same text, same
// vocabulary, same result.
type Extractor struct {
	MaxNgram       int
	FuzzyCutoff    float64
	NegationWindow int
}

func NewExtractor() *Extractor {
	return &Extractor{
		MaxNgram:       3,
		FuzzyCutoff:    0.8,
		NegationWindow: 3,
	}
}

// Extract normalizes the text, matches n-grams against the symptom
// synonym table (exact first, then fuzzy single tokens) and applies
// negation within a bounded window before each match. Unmatched tokens
// are dropped; if nothing at all matches, ErrNoSymptomRecognized is
// returned so the caller can ask for a rephrase instead of advancing.
func (e *Extractor) Extract(kb *knowledge.KnowledgeBase, text, language string) ([]Observation, error) {
	normalized := normalizeText(text)
	if normalized == "" {
		return nil, ErrNoSymptomRecognized
	}

	vocab, singles := e.buildVocabulary(kb, language)
	tokens := strings.Fields(normalized)
	covered := make([]bool, len(tokens))
	found := map[string]Observation{}

	maxN := e.MaxNgram
	if maxN > len(tokens) {
		maxN = len(tokens)
	}
	for n := maxN; n >= 1; n-- {
		for i := 0; i+n <= len(tokens); i++ {
			if anyCovered(covered, i, n) {
				continue
			}
			phrase := strings.Join(tokens[i:i+n], " ")
			id, ok := vocab[phrase]
			if !ok {
				continue
			}
			record(found, Observation{
				SymptomID:  id,
				Polarity:   e.polarityAt(tokens, i),
				Confidence: 1.0,
			})
			for j := i; j < i+n; j++ {
				covered[j] = true
			}
		}
	}

	// Fuzzy pass over leftover single tokens, e.g. "feverr" or "caugh".
	for i, tok := range tokens {
		if covered[i] || negators[tok] {
			continue
		}
		id, score := e.closestSingle(singles, tok)
		if id == "" {
			continue
		}
		record(found, Observation{
			SymptomID:  id,
			Polarity:   e.polarityAt(tokens, i),
			Confidence: score,
		})
	}

	if len(found) == 0 {
		return nil, ErrNoSymptomRecognized
	}

	ids := make([]string, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	observations := make([]Observation, len(ids))
	for i, id := range ids {
		observations[i] = found[id]
	}
	return observations, nil
}

type singleEntry struct {
	phrase string
	id     string
}

// buildVocabulary maps every normalized synonym phrase (plus the
// canonical ID itself) to its symptom ID. Single-word phrases are also
// collected for the fuzzy pass.
func (e *Extractor) buildVocabulary(kb *knowledge.KnowledgeBase, language string) (map[string]string, []singleEntry) {
	vocab := map[string]string{}
	var singles []singleEntry
	for _, id := range kb.SymptomIDs() {
		for _, phrase := range kb.SynonymPhrases(id, language) {
			np := normalizeText(phrase)
			if np == "" {
				continue
			}
			if _, taken := vocab[np]; taken {
				continue
			}
			vocab[np] = id
			if !strings.Contains(np, " ") {
				singles = append(singles, singleEntry{phrase: np, id: id})
			}
		}
	}
	sort.Slice(singles, func(i, j int) bool { return singles[i].phrase < singles[j].phrase })
	return vocab, singles
}

func (e *Extractor) closestSingle(singles []singleEntry, tok string) (string, float64) {
	bestID, bestScore := "", 0.0
	for _, entry := range singles {
		score := levenshtein.Match(tok, entry.phrase, nil)
		if score >= e.FuzzyCutoff && score > bestScore {
			bestID, bestScore = entry.id, score
		}
	}
	return bestID, bestScore
}

func (e *Extractor) polarityAt(tokens []string, i int) Polarity {
	lo := i - e.NegationWindow
	if lo < 0 {
		lo = 0
	}
	for j := i - 1; j >= lo; j-- {
		if negators[tokens[j]] {
			return Absent
		}
	}
	return Present
}

// record keeps one observation per symptom: an explicit denial beats a
// mention, otherwise the higher-confidence match wins.
func record(found map[string]Observation, obs Observation) {
	prev, seen := found[obs.SymptomID]
	if !seen {
		found[obs.SymptomID] = obs
		return
	}
	if prev.Polarity != obs.Polarity {
		if obs.Polarity == Absent {
			found[obs.SymptomID] = obs
		}
		return
	}
	if obs.Confidence > prev.Confidence {
		found[obs.SymptomID] = obs
	}
}

func anyCovered(covered []bool, i, n int) bool {
	for j := i; j < i+n; j++ {
		if covered[j] {
			return true
		}
	}
	return false
}
