package route

// Entry binds a pattern to a handler reference.
type Entry struct {
	Pattern string
	Handler Handler
}

// Spec is an ordered set of relative patterns. Setting a pattern that is
// already present replaces its handler and keeps its position.
//
// A Spec is a value: With and Clone never share storage with the receiver.
type Spec struct {
	entries []Entry
	index   map[string]int
}

// NewSpec builds a spec from entries in order.
func NewSpec(entries ...Entry) Spec {
	s := Spec{}
	for _, e := range entries {
		s.set(e.Pattern, e.Handler)
	}
	return s
}

// With returns a copy of s with pattern bound to h.
func (s Spec) With(pattern string, h Handler) Spec {
	out := s.Clone()
	out.set(pattern, h)
	return out
}

// Clone returns an independent copy of s.
func (s Spec) Clone() Spec {
	if len(s.entries) == 0 {
		return Spec{}
	}
	out := Spec{
		entries: make([]Entry, len(s.entries)),
		index:   make(map[string]int, len(s.entries)),
	}
	copy(out.entries, s.entries)
	for k, v := range s.index {
		out.index[k] = v
	}
	return out
}

// Len returns the number of patterns.
func (s Spec) Len() int {
	return len(s.entries)
}

// Entries returns the entries in declaration order.
func (s Spec) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Lookup returns the handler bound to pattern.
func (s Spec) Lookup(pattern string) (Handler, bool) {
	i, ok := s.index[pattern]
	if !ok {
		return Handler{}, false
	}
	return s.entries[i].Handler, true
}

func (s *Spec) set(pattern string, h Handler) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[pattern]; ok {
		s.entries[i].Handler = h
		return
	}
	s.index[pattern] = len(s.entries)
	s.entries = append(s.entries, Entry{Pattern: pattern, Handler: h})
}
