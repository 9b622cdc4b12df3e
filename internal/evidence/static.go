package evidence

import "context"

// StaticStore serves canned extraction results from memory for tests and
// local development.
type StaticStore struct {
	entities map[string]Entities
	pending  map[string]int // remaining ErrNotReady responses per ref
	invalid  map[string]bool
}

// NewStaticStore returns an empty store.
func NewStaticStore() *StaticStore {
	return &StaticStore{
		entities: make(map[string]Entities),
		pending:  make(map[string]int),
		invalid:  make(map[string]bool),
	}
}

// Put registers extraction output for a reference.
func (s *StaticStore) Put(ref string, ents Entities) {
	s.entities[ref] = ents
}

// PutPending makes the next n lookups for ref return ErrNotReady before the
// registered entities become available.
func (s *StaticStore) PutPending(ref string, n int, ents Entities) {
	s.pending[ref] = n
	s.entities[ref] = ents
}

// PutInvalid marks a reference as unprocessable.
func (s *StaticStore) PutInvalid(ref string) {
	s.invalid[ref] = true
}

// GetExtractedEntities implements Store.
func (s *StaticStore) GetExtractedEntities(_ context.Context, ref string) (Entities, error) {
	if s.invalid[ref] {
		return nil, ErrInvalid
	}
	if n := s.pending[ref]; n > 0 {
		s.pending[ref] = n - 1
		return nil, ErrNotReady
	}
	ents, ok := s.entities[ref]
	if !ok {
		return nil, ErrInvalid
	}
	return ents, nil
}
