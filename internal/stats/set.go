package stats

import (
	"container/list"
)

// boundedSet tracks unique string keys up to a hard cap. When full, adding
// a new key evicts the least recently touched one, so the cap holds at
// every instant.
type boundedSet struct {
	cap       int
	elems     map[string]*list.Element
	order     *list.List
	evictions int64
}

func newBoundedSet(cap int) *boundedSet {
	return &boundedSet{
		cap:   cap,
		elems: make(map[string]*list.Element),
		order: list.New(),
	}
}

// Touch inserts or refreshes a key.
func (s *boundedSet) Touch(key string) {
	if elem, ok := s.elems[key]; ok {
		s.order.MoveToFront(elem)
		return
	}

	s.elems[key] = s.order.PushFront(key)
	if s.order.Len() > s.cap {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.elems, oldest.Value.(string))
		s.evictions++
	}
}

func (s *boundedSet) Len() int {
	return s.order.Len()
}
