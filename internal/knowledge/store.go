package knowledge

import "sync/atomic"

// Store holds the current KnowledgeBase behind an atomic pointer so a
// reload swaps the whole structure at once: in-flight sessions see either
// the old or the new vocabulary, never a mix.
type Store struct {
	current atomic.Pointer[KnowledgeBase]
}

func NewStore(kb *KnowledgeBase) *Store {
	s := &Store{}
	s.current.Store(kb)
	return s
}

// OpenStore loads the knowledge base file and wraps it in a Store.
func OpenStore(path string) (*Store, error) {
	kb, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewStore(kb), nil
}

func (s *Store) Current() *KnowledgeBase {
	return s.current.Load()
}

// Reload loads a new file and swaps it in atomically. On error the
// previous knowledge base stays active.
func (s *Store) Reload(path string) error {
	kb, err := Load(path)
	if err != nil {
		return err
	}
	s.current.Store(kb)
	return nil
}
