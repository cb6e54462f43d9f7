package triage

import "github.com/pkg/errors"

var (
	// ErrNoSymptomRecognized means non-empty input produced zero
	// observations. Recoverable: the orchestrator asks for a rephrase.
	ErrNoSymptomRecognized = errors.New("no symptom recognized in input")

	// ErrInsufficientEvidence means the belief state has no "present"
	// observation to rank on. Recoverable: keep collecting.
	ErrInsufficientEvidence = errors.New("insufficient evidence: no present symptom observed")
)
