package knowledge

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// kbFile is the on-disk shape of the knowledge base. Symptoms and
// diseases are lists so duplicate IDs are representable and can be
// rejected instead of silently collapsed.
type kbFile struct {
	Symptoms []Symptom `json:"symptoms"`
	Diseases []Disease `json:"diseases"`
}

// New builds a validated KnowledgeBase from in-memory entries. It is the
// single validation point for both file loads and test fixtures.
// Malformed input (duplicate IDs, dangling symptom references, weights
// outside [0,1]) returns a descriptive error and no partial structure.
func New(symptoms []Symptom, diseases []Disease) (*KnowledgeBase, error) {
	kb := &KnowledgeBase{
		symptoms: make(map[string]*Symptom, len(symptoms)),
		diseases: make(map[string]*Disease, len(diseases)),
	}

	for i := range symptoms {
		s := symptoms[i]
		if s.ID == "" {
			return nil, errors.Errorf("symptom #%d has an empty id", i)
		}
		if _, dup := kb.symptoms[s.ID]; dup {
			return nil, errors.Errorf("duplicate symptom id %q", s.ID)
		}
		kb.symptoms[s.ID] = &s
	}

	for i := range diseases {
		d := diseases[i]
		if d.ID == "" {
			return nil, errors.Errorf("disease #%d has an empty id", i)
		}
		if _, dup := kb.diseases[d.ID]; dup {
			return nil, errors.Errorf("duplicate disease id %q", d.ID)
		}
		if len(d.SymptomWeights) == 0 {
			return nil, errors.Errorf("disease %q has no symptom weights", d.ID)
		}
		for sid, w := range d.SymptomWeights {
			if _, ok := kb.symptoms[sid]; !ok {
				return nil, errors.Errorf("disease %q references unknown symptom %q", d.ID, sid)
			}
			if w < 0 || w > 1 {
				return nil, errors.Errorf("disease %q: weight %v for symptom %q outside [0,1]", d.ID, w, sid)
			}
		}
		kb.diseases[d.ID] = &d
	}

	return kb, nil
}

// Load reads and validates the knowledge base file. Any defect fails the
// whole load; callers must treat this as fatal at startup.
func Load(path string) (*KnowledgeBase, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read knowledge base %s", path)
	}

	var file kbFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, errors.Wrapf(err, "parse knowledge base %s", path)
	}
	if len(file.Symptoms) == 0 {
		return nil, errors.Errorf("knowledge base %s contains no symptoms", path)
	}
	if len(file.Diseases) == 0 {
		return nil, errors.Errorf("knowledge base %s contains no diseases", path)
	}

	kb, err := New(file.Symptoms, file.Diseases)
	if err != nil {
		return nil, errors.Wrapf(err, "validate knowledge base %s", path)
	}
	return kb, nil
}
