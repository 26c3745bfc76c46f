package index

import (
	"slices"
	"strconv"
)

// DocumentStore keeps the stored fields of every document, the number of
// terms each field contributed, and the insertion order used to break score
// ties.
type DocumentStore struct {
	save     bool
	order    []string
	position map[string]int
	docs     map[string]map[string]string
	docInfo  map[string]map[string]int
}

func NewDocumentStore(save bool) *DocumentStore {
	return &DocumentStore{
		save:     save,
		position: make(map[string]int),
		docs:     make(map[string]map[string]string),
		docInfo:  make(map[string]map[string]int),
	}
}

// AddDoc stores doc under ref, appending ref to the insertion order the first
// time it is seen.
func (s *DocumentStore) AddDoc(ref string, doc map[string]string) {
	if _, ok := s.position[ref]; !ok {
		s.position[ref] = len(s.order)
		s.order = append(s.order, ref)
	}
	if !s.save {
		doc = nil
	}
	s.docs[ref] = doc
}

func (s *DocumentStore) Has(ref string) bool {
	_, ok := s.position[ref]
	return ok
}

// Get returns the stored fields of ref; callers must not modify the map.
func (s *DocumentStore) Get(ref string) (map[string]string, bool) {
	doc, ok := s.docs[ref]
	return doc, ok
}

// Field returns one stored field, or "" when absent.
func (s *DocumentStore) Field(ref, field string) string {
	return s.docs[ref][field]
}

func (s *DocumentStore) SetFieldLength(ref, field string, length int) {
	info, ok := s.docInfo[ref]
	if !ok {
		info = make(map[string]int)
		s.docInfo[ref] = info
	}
	info[field] = length
}

// FieldLength is the number of terms field of ref produced after analysis.
func (s *DocumentStore) FieldLength(ref, field string) int {
	return s.docInfo[ref][field]
}

func (s *DocumentStore) Len() int {
	return len(s.order)
}

// Refs returns refs in insertion order.
func (s *DocumentStore) Refs() []string {
	return slices.Clone(s.order)
}

// Position is the insertion index of ref, or -1.
func (s *DocumentStore) Position(ref string) int {
	if p, ok := s.position[ref]; ok {
		return p
	}
	return -1
}

// restoreOrder rebuilds insertion order for a decoded store. Serialized
// stores are keyed maps, so order is recovered by natural ref order: numeric
// refs by value, then the rest lexicographically. Bundles carry positional
// refs (see Bundle.Validate), which round-trip exactly.
func (s *DocumentStore) restoreOrder() {
	refs := make([]string, 0, len(s.docs))
	for ref := range s.docs {
		refs = append(refs, ref)
	}
	slices.SortFunc(refs, compareRefs)
	s.order = refs
	s.position = make(map[string]int, len(refs))
	for i, ref := range refs {
		s.position[ref] = i
	}
}

func compareRefs(a, b string) int {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
