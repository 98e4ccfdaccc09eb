// Package registry resolves imported row names against actions already
// present in a model.
//
// Resolution decides between creating a node and reusing one. A hit extends
// the existing action with exactly the pins it is missing, so resolving the
// same name twice with the same pins is a no-op the second time, and
// resolving with more pins only ever adds.
//
// # Move on reuse
//
// [Registry.Resolve] searches the whole model, not only the import target.
// When the match lives in another container it is moved into the target.
// Callers that do not want actions pulled across activities should import
// into a dedicated model or use [Registry.ResolveChild] with an explicit scope.
package registry

import (
	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/model"
)

// Stats counts registry decisions since the registry was created.
type Stats struct {
	Hits      int `json:"hits"`
	Misses    int `json:"misses"`
	Moves     int `json:"moves"`
	PinsAdded int `json:"pins_added"`
}

// Registry resolves names for one import target.
type Registry struct {
	model    *model.Model
	target   string
	stats    Stats
	reserved map[string]bool
}

// New returns a registry that moves reused top-level actions into target.
func New(m *model.Model, target string) *Registry {
	return &Registry{model: m, target: target}
}

// Target returns the ID reused actions are moved into.
func (r *Registry) Target() string { return r.target }

// Stats returns the counters accumulated so far.
func (r *Registry) Stats() Stats { return r.stats }

// Reserve keeps the action with the given ID out of later Resolve results.
// A sub-action placed under its parent is reserved so a top-level row of
// the same name cannot pull it out again.
func (r *Registry) Reserve(id string) {
	if r.reserved == nil {
		r.reserved = make(map[string]bool)
	}
	r.reserved[id] = true
}

// Resolve finds the first action named name in pre-order over the whole
// model, skipping reserved actions. On a hit it adds missing pins, moves the
// action into the target when it lives elsewhere, and reports reused=true.
// A miss returns nil, false and no error.
func (r *Registry) Resolve(name string, inputs, outputs []string) (*model.Element, bool, error) {
	el := r.model.Find(func(e *model.Element) bool {
		return e.Kind.IsAction() && e.Name == name && !r.reserved[e.ID]
	})
	if el == nil {
		r.stats.Misses++
		return nil, false, nil
	}

	if el.Owner != r.target {
		if err := r.model.Move(el.ID, r.target); err != nil {
			return nil, false, errors.Wrap(errors.ErrCodeStore, err, "move reused action %q", name)
		}
		r.stats.Moves++
	}
	if err := r.extend(el, inputs, outputs); err != nil {
		return nil, false, err
	}
	r.stats.Hits++
	return el, true, nil
}

// ResolveChild is Resolve restricted to the direct children of parent.
// Matches are never moved.
func (r *Registry) ResolveChild(parent *model.Element, name string, inputs, outputs []string) (*model.Element, bool, error) {
	var el *model.Element
	for _, c := range r.model.Children(parent.ID) {
		if c.Kind.IsAction() && c.Name == name {
			el = c
			break
		}
	}
	if el == nil {
		r.stats.Misses++
		return nil, false, nil
	}
	if err := r.extend(el, inputs, outputs); err != nil {
		return nil, false, err
	}
	r.stats.Hits++
	return el, true, nil
}

// EnsurePins adds the pins of el that are missing and counts them in Stats.
func (r *Registry) EnsurePins(el *model.Element, inputs, outputs []string) (int, error) {
	n, err := EnsurePins(r.model, el, inputs, outputs)
	r.stats.PinsAdded += n
	return n, err
}

func (r *Registry) extend(el *model.Element, inputs, outputs []string) error {
	_, err := r.EnsurePins(el, inputs, outputs)
	return err
}

// EnsurePins adds an input pin for every name in inputs and an output pin for
// every name in outputs that el does not already have. Existing pins and
// their order are kept. It returns the number of pins added.
func EnsurePins(m *model.Model, el *model.Element, inputs, outputs []string) (int, error) {
	added := 0
	for _, side := range []struct {
		kind  model.Kind
		names []string
	}{
		{model.KindInputPin, inputs},
		{model.KindOutputPin, outputs},
	} {
		have := make(map[string]bool)
		for _, p := range m.ChildrenOfKind(el.ID, side.kind) {
			have[p.Name] = true
		}
		for _, name := range side.names {
			if have[name] {
				continue
			}
			if _, err := m.Add(el.ID, &model.Element{Kind: side.kind, Name: name}); err != nil {
				return added, errors.Wrap(errors.ErrCodeStore, err, "add %s %q to %q", side.kind, name, el.Name)
			}
			have[name] = true
			added++
		}
	}
	return added, nil
}

// Pins returns the input and output pins of el in creation order.
func Pins(m *model.Model, el *model.Element) (inputs, outputs []*model.Element) {
	for _, c := range m.Children(el.ID) {
		switch c.Kind {
		case model.KindInputPin:
			inputs = append(inputs, c)
		case model.KindOutputPin:
			outputs = append(outputs, c)
		}
	}
	return inputs, outputs
}
