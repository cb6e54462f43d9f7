package triage

import "medical-triage-agent/internal/knowledge"

// Sensible fallbacks when a disease entry carries no test list.
var defaultTests = []string{"General blood test", "Physical examination"}

const inconclusiveAdvice = "We could not reach a confident diagnosis from the reported symptoms. " +
	"Please consult a medical professional. The candidates below are listed for reference only."

// ComposerConfig: FinalizeThreshold gates a conclusive answer; TopN caps
// the reference candidates attached to an inconclusive one.
type ComposerConfig struct {
	FinalizeThreshold float64
	TopN              int
}

func DefaultComposerConfig() ComposerConfig {
	return ComposerConfig{FinalizeThreshold: 0.35, TopN: 3}
}

// Composer turns a final ranking into the user-facing recommendation.
type Composer struct {
	cfg ComposerConfig
}

func NewComposer(cfg ComposerConfig) *Composer {
	return &Composer{cfg: cfg}
}

// Compose returns the top diagnosis with its precautions and tests when
// it clears the finalize threshold, and an explicit "consult a
// professional" result otherwise, never a forced single guess. The full
// candidate list rides along either way for transparency.
func (c *Composer) Compose(kb *knowledge.KnowledgeBase, ranking Ranking) Recommendation {
	top, ok := ranking.Candidates.Top()
	if !ok || top.Probability < c.cfg.FinalizeThreshold {
		return Recommendation{
			Conclusive: false,
			Candidates: ranking.Candidates.TopK(c.cfg.TopN),
			Advice:     inconclusiveAdvice,
		}
	}

	rec := Recommendation{
		Conclusive:  true,
		DiseaseID:   top.DiseaseID,
		Probability: top.Probability,
		Candidates:  ranking.Candidates,
		Tests:       defaultTests,
		Advice:      "This is an automated assessment, not a medical diagnosis. Confirm with a professional.",
	}
	if d, found := kb.Disease(top.DiseaseID); found {
		rec.Description = d.Description
		rec.Precautions = d.Precautions
		if len(d.Tests) > 0 {
			rec.Tests = d.Tests
		}
	}
	return rec
}

// Inconclusive builds the escalation result: reference candidates only,
// regardless of how the top one scored.
func (c *Composer) Inconclusive(ranking Ranking) Recommendation {
	return Recommendation{
		Conclusive: false,
		Candidates: ranking.Candidates.TopK(c.cfg.TopN),
		Advice:     inconclusiveAdvice,
	}
}
