package queue

// ShownSet tracks already-delivered item IDs so they are withheld from
// redelivery until aged out. Eviction always drops the oldest 70%,
// keeping the most recently shown 30%.
type ShownSet struct {
	capacity int
	order    []string
	present  map[string]struct{}
}

func NewShownSet(capacity int) *ShownSet {
	if capacity <= 0 {
		capacity = 500
	}
	return &ShownSet{
		capacity: capacity,
		present:  map[string]struct{}{},
	}
}

func (s *ShownSet) Contains(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.present[id]
	return ok
}

func (s *ShownSet) Add(id string) {
	if s == nil || id == "" {
		return
	}
	if _, ok := s.present[id]; ok {
		return
	}
	if len(s.order) >= s.capacity {
		s.AgeOut()
	}
	s.present[id] = struct{}{}
	s.order = append(s.order, id)
}

// AgeOut evicts the oldest 70% of tracked IDs.
func (s *ShownSet) AgeOut() {
	if s == nil || len(s.order) == 0 {
		return
	}
	keep := len(s.order) * 3 / 10
	cut := len(s.order) - keep
	for _, id := range s.order[:cut] {
		delete(s.present, id)
	}
	s.order = append([]string(nil), s.order[cut:]...)
}

func (s *ShownSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}
