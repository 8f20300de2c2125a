package utils

// SeenSet tracks keys observed during a single pass, preserving first-seen order.
type SeenSet struct {
	seen  map[string]int
	order []string
}

// NewSeenSet creates an empty SeenSet.
func NewSeenSet() *SeenSet {
	return &SeenSet{seen: make(map[string]int)}
}

// Add returns true if the key was newly added, false if already present.
// Repeated adds are counted.
func (s *SeenSet) Add(key string) bool {
	if n, exists := s.seen[key]; exists {
		s.seen[key] = n + 1
		return false
	}
	s.seen[key] = 1
	s.order = append(s.order, key)
	return true
}

// Duplicates returns keys added more than once, in first-seen order.
func (s *SeenSet) Duplicates() []string {
	var dups []string
	for _, k := range s.order {
		if s.seen[k] > 1 {
			dups = append(dups, k)
		}
	}
	return dups
}
