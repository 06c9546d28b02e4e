package crawler

// URLSet is an insertion-ordered set of URLs with a fixed capacity.
type URLSet struct {
	capacity int
	order    []string
	index    map[string]struct{}
}

// NewURLSet returns an empty set that accepts at most capacity URLs.
func NewURLSet(capacity int) *URLSet {
	if capacity < 0 {
		capacity = 0
	}
	return &URLSet{
		capacity: capacity,
		index:    make(map[string]struct{}),
	}
}

// Add appends url unless it is empty, already present, or the set is full.
func (s *URLSet) Add(url string) bool {
	if url == "" || s.Full() {
		return false
	}
	if _, ok := s.index[url]; ok {
		return false
	}
	s.index[url] = struct{}{}
	s.order = append(s.order, url)
	return true
}

// Contains reports whether url was added.
func (s *URLSet) Contains(url string) bool {
	_, ok := s.index[url]
	return ok
}

// Len is the number of URLs held.
func (s *URLSet) Len() int { return len(s.order) }

// Cap is the maximum number of URLs the set accepts.
func (s *URLSet) Cap() int { return s.capacity }

// Full reports whether no more URLs will be accepted.
func (s *URLSet) Full() bool { return len(s.order) >= s.capacity }

// URLs returns the URLs in insertion order.
func (s *URLSet) URLs() []string {
	return append([]string(nil), s.order...)
}
