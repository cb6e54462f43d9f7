// Package classifier loads the pre-trained diagnosis model artifact
// produced by the offline training job. The core only depends on the
// Predictor contract, so tests can inject a fake with known
// probabilities.
package classifier

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"

	"medical-triage-agent/internal/knowledge"
)

// Predictor turns the accumulated symptom text into a probability
// distribution over disease IDs. Implementations must be safe for
// concurrent use and must never mutate after load.
type Predictor interface {
	Version() string
	Predict(text string) map[string]float64
}

// Artifact is the versioned bag-of-words model: a prior per disease plus
// additive token weights. It is a deliberately simple linear scorer; the
// heavy lifting happened offline.
type Artifact struct {
	ArtifactVersion string                        `json:"version"`
	Priors          map[string]float64            `json:"priors"`
	TokenWeights    map[string]map[string]float64 `json:"token_weights"`
}

func (a *Artifact) Version() string { return a.ArtifactVersion }

// Predict scores every disease as prior + sum of weights for tokens seen
// in the text, clamps at zero and normalizes to a distribution. An
// all-zero score falls back to the uniform distribution so downstream
// re-weighting still has something to work with.
func (a *Artifact) Predict(text string) map[string]float64 {
	tokens := strings.Fields(text)
	scores := make(map[string]float64, len(a.Priors))
	var sum float64
	for disease, prior := range a.Priors {
		score := prior
		weights := a.TokenWeights[disease]
		for _, tok := range tokens {
			score += weights[tok]
		}
		if score < 0 {
			score = 0
		}
		scores[disease] = score
		sum += score
	}
	if sum == 0 {
		uniform := 1.0 / float64(len(scores))
		for disease := range scores {
			scores[disease] = uniform
		}
		return scores
	}
	for disease := range scores {
		scores[disease] /= sum
	}
	return scores
}

// Load reads the artifact blob and validates its schema against the
// knowledge base: every disease the model knows must exist there.
// Failures are fatal at startup.
func Load(path string, kb *knowledge.KnowledgeBase) (*Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read classifier artifact %s", path)
	}

	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, errors.Wrapf(err, "parse classifier artifact %s", path)
	}
	if a.ArtifactVersion == "" {
		return nil, errors.Errorf("classifier artifact %s has no version", path)
	}
	if len(a.Priors) == 0 {
		return nil, errors.Errorf("classifier artifact %s has no disease priors", path)
	}

	for disease, prior := range a.Priors {
		if _, ok := kb.Disease(disease); !ok {
			return nil, errors.Errorf("artifact %s (version %s): disease %q not present in knowledge base", path, a.ArtifactVersion, disease)
		}
		if prior < 0 {
			return nil, errors.Errorf("artifact %s: negative prior %v for disease %q", path, prior, disease)
		}
	}
	for disease := range a.TokenWeights {
		if _, ok := a.Priors[disease]; !ok {
			return nil, errors.Errorf("artifact %s: token weights for disease %q without a prior", path, disease)
		}
	}

	return &a, nil
}
