package model

import "slices"

// Walk visits every element reachable from the root in pre-order.
// Returning false from fn stops the walk; Walk reports whether it ran to the end.
func (m *Model) Walk(fn func(el *Element) bool) bool {
	return m.WalkFrom(m.Root, fn)
}

// WalkFrom is like Walk but starts at id.
func (m *Model) WalkFrom(id string, fn func(el *Element) bool) bool {
	el, ok := m.Elements[id]
	if !ok {
		return true
	}
	if !fn(el) {
		return false
	}
	for _, cid := range el.Children {
		if !m.WalkFrom(cid, fn) {
			return false
		}
	}
	return true
}

// Find returns the first element in walk order satisfying pred, or nil.
func (m *Model) Find(pred func(el *Element) bool) *Element {
	var found *Element
	m.Walk(func(el *Element) bool {
		if pred(el) {
			found = el
			return false
		}
		return true
	})
	return found
}

// FindAll returns every element in walk order satisfying pred.
func (m *Model) FindAll(pred func(el *Element) bool) []*Element {
	var out []*Element
	m.Walk(func(el *Element) bool {
		if pred(el) {
			out = append(out, el)
		}
		return true
	})
	return out
}

// Path returns the names from the root down to id, inclusive.
// It returns nil when id is unknown.
func (m *Model) Path(id string) []string {
	var names []string
	for cur, ok := m.Elements[id]; ok; cur, ok = m.Elements[cur.Owner] {
		names = append(names, cur.Name)
		if cur.Owner == "" {
			break
		}
	}
	slices.Reverse(names)
	return names
}

// Lookup resolves a slash-separated path of element names below the root,
// returning the first match at each level.
func (m *Model) Lookup(path ...string) (*Element, bool) {
	cur, ok := m.Elements[m.Root]
	if !ok {
		return nil, false
	}
	for _, name := range path {
		var next *Element
		for _, c := range m.Children(cur.ID) {
			if c.Name == name {
				next = c
				break
			}
		}
		if next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Count returns the number of elements of the given kind.
func (m *Model) Count(kind Kind) int {
	n := 0
	for _, el := range m.Elements {
		if el.Kind == kind {
			n++
		}
	}
	return n
}
