package route

// Table is a compiled route table: absolute patterns bound to handler
// references, in insertion order. A rebound pattern keeps its first position.
type Table struct {
	entries []Entry
	index   map[string]int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// Set binds pattern to h.
func (t *Table) Set(pattern string, h Handler) {
	if i, ok := t.index[pattern]; ok {
		t.entries[i].Handler = h
		return
	}
	t.index[pattern] = len(t.entries)
	t.entries = append(t.entries, Entry{Pattern: pattern, Handler: h})
}

// Get returns the handler bound to pattern.
func (t *Table) Get(pattern string) (Handler, bool) {
	if t == nil {
		return Handler{}, false
	}
	i, ok := t.index[pattern]
	if !ok {
		return Handler{}, false
	}
	return t.entries[i].Handler, true
}

// Len returns the number of compiled patterns.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns the compiled entries in table order.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Patterns returns the compiled patterns in table order.
func (t *Table) Patterns() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Pattern
	}
	return out
}

// Clone returns an independent copy of t.
func (t *Table) Clone() *Table {
	out := NewTable()
	if t == nil {
		return out
	}
	for _, e := range t.entries {
		out.Set(e.Pattern, e.Handler)
	}
	return out
}
