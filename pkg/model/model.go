// Package model is the element store lanegrid imports into.
//
// A [Model] is a tree of [Element] values rooted at a package. Activities own
// partitions (swim lanes), nodes, control flows and, through their actions,
// input and output pins. Every element has a stable string ID (a UUID unless
// the caller supplies one) and an optional [Rect] describing where it is drawn.
//
// The store is deliberately small: it knows nothing about rows, graphs or
// layout, and only enforces structural rules:
//
//   - Owners must exist before children are added
//   - Read-only elements reject writes and new children ([ErrReadOnly])
//   - Moves never create cycles
//
// # Traversal
//
// [Model.Walk] visits elements in pre-order: an element, then its children in
// insertion order, then its next sibling. The callback can stop the walk early.
// Name lookups built on top of it are therefore deterministic for a given store.
//
// # Concurrency
//
// A Model is not safe for concurrent mutation. Sessions work on a [Model.Clone]
// and hand the clone back to the store on commit.
package model

import (
	"slices"

	"github.com/google/uuid"

	"github.com/matzehuels/lanegrid/pkg/errors"
)

// Kind identifies the type of a model element.
type Kind string

// Element kinds.
const (
	KindPackage            Kind = "Package"
	KindActivity           Kind = "Activity"
	KindPartition          Kind = "Partition"
	KindInitialNode        Kind = "InitialNode"
	KindFinalNode          Kind = "FinalNode"
	KindStructuredAction   Kind = "StructuredAction"
	KindCallBehaviorAction Kind = "CallBehaviorAction"
	KindInputPin           Kind = "InputPin"
	KindOutputPin          Kind = "OutputPin"
	KindControlFlow        Kind = "ControlFlow"
)

// IsAction reports whether k is one of the action kinds rows are imported as.
func (k Kind) IsAction() bool {
	return k == KindStructuredAction || k == KindCallBehaviorAction
}

// IsPin reports whether k is an input or output pin.
func (k Kind) IsPin() bool {
	return k == KindInputPin || k == KindOutputPin
}

// IsControlNode reports whether k is an initial or final node.
func (k Kind) IsControlNode() bool {
	return k == KindInitialNode || k == KindFinalNode
}

// ErrReadOnly is returned (wrapped) when a write targets a read-only element.
var ErrReadOnly = errors.New(errors.ErrCodeStore, "element is read-only")

// Element is a single node of the model tree.
//
// Source and Target are only set on control flows. Partition is set on nodes
// assigned to a swim lane; Members is the inverse list kept on the partition.
type Element struct {
	ID            string   `json:"id" bson:"id"`
	Kind          Kind     `json:"kind" bson:"kind"`
	Name          string   `json:"name,omitempty" bson:"name,omitempty"`
	Documentation string   `json:"documentation,omitempty" bson:"documentation,omitempty"`
	Owner         string   `json:"owner,omitempty" bson:"owner,omitempty"`
	Children      []string `json:"children,omitempty" bson:"children,omitempty"`
	Source        string   `json:"source,omitempty" bson:"source,omitempty"`
	Target        string   `json:"target,omitempty" bson:"target,omitempty"`
	Partition     string   `json:"partition,omitempty" bson:"partition,omitempty"`
	Members       []string `json:"members,omitempty" bson:"members,omitempty"`
	ReadOnly      bool     `json:"read_only,omitempty" bson:"read_only,omitempty"`
	Bounds        Rect     `json:"bounds" bson:"bounds"`
}

// Model is an element tree addressed by ID.
type Model struct {
	Root     string              `json:"root" bson:"root"`
	Elements map[string]*Element `json:"elements" bson:"elements"`
}

// New returns a model containing only a root package with the given name.
func New(rootName string) *Model {
	root := &Element{ID: uuid.NewString(), Kind: KindPackage, Name: rootName}
	return &Model{
		Root:     root.ID,
		Elements: map[string]*Element{root.ID: root},
	}
}

// Get returns the element with the given ID.
func (m *Model) Get(id string) (*Element, bool) {
	el, ok := m.Elements[id]
	return el, ok
}

// Len returns the number of elements, including the root.
func (m *Model) Len() int { return len(m.Elements) }

// Children returns the direct children of id in insertion order.
func (m *Model) Children(id string) []*Element {
	el, ok := m.Elements[id]
	if !ok {
		return nil
	}
	out := make([]*Element, 0, len(el.Children))
	for _, cid := range el.Children {
		if c, ok := m.Elements[cid]; ok {
			out = append(out, c)
		}
	}
	return out
}

// ChildrenOfKind returns the direct children of id with the given kind.
func (m *Model) ChildrenOfKind(id string, kind Kind) []*Element {
	var out []*Element
	for _, c := range m.Children(id) {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Add inserts el as the last child of owner and returns it.
// An empty el.ID is replaced with a fresh UUID.
func (m *Model) Add(owner string, el *Element) (*Element, error) {
	parent, ok := m.Elements[owner]
	if !ok {
		return nil, errors.New(errors.ErrCodeStore, "owner %q not found", owner)
	}
	if parent.ReadOnly {
		return nil, errors.Wrap(errors.ErrCodeStore, ErrReadOnly, "add %s %q under %q", el.Kind, el.Name, parent.Name)
	}
	if el.ID == "" {
		el.ID = uuid.NewString()
	}
	if _, dup := m.Elements[el.ID]; dup {
		return nil, errors.New(errors.ErrCodeStore, "element %q already exists", el.ID)
	}
	el.Owner = owner
	m.Elements[el.ID] = el
	parent.Children = append(parent.Children, el.ID)
	return el, nil
}

// AddFlow adds a control flow from source to target under owner.
func (m *Model) AddFlow(owner, source, target string) (*Element, error) {
	if _, ok := m.Elements[source]; !ok {
		return nil, errors.New(errors.ErrCodeStore, "flow source %q not found", source)
	}
	if _, ok := m.Elements[target]; !ok {
		return nil, errors.New(errors.ErrCodeStore, "flow target %q not found", target)
	}
	return m.Add(owner, &Element{Kind: KindControlFlow, Source: source, Target: target})
}

// Move re-parents id under newOwner, appending it to the new owner's children.
// Moving an element into its own subtree is rejected.
func (m *Model) Move(id, newOwner string) error {
	el, ok := m.Elements[id]
	if !ok {
		return errors.New(errors.ErrCodeStore, "element %q not found", id)
	}
	dst, ok := m.Elements[newOwner]
	if !ok {
		return errors.New(errors.ErrCodeStore, "owner %q not found", newOwner)
	}
	if el.Owner == newOwner {
		return nil
	}
	if el.ReadOnly || dst.ReadOnly {
		return errors.Wrap(errors.ErrCodeStore, ErrReadOnly, "move %q into %q", el.Name, dst.Name)
	}
	for cur := dst; cur != nil; cur = m.Elements[cur.Owner] {
		if cur.ID == id {
			return errors.New(errors.ErrCodeStore, "cannot move %q into its own subtree", el.Name)
		}
	}
	if src, ok := m.Elements[el.Owner]; ok {
		if src.ReadOnly {
			return errors.Wrap(errors.ErrCodeStore, ErrReadOnly, "move %q out of %q", el.Name, src.Name)
		}
		src.Children = slices.DeleteFunc(src.Children, func(c string) bool { return c == id })
	}
	el.Owner = newOwner
	dst.Children = append(dst.Children, id)
	return nil
}

// Remove deletes id and its subtree. Each removed node is also dropped from
// its owner's children and from its partition's members.
func (m *Model) Remove(id string) error {
	el, ok := m.Elements[id]
	if !ok {
		return errors.New(errors.ErrCodeStore, "element %q not found", id)
	}
	if id == m.Root {
		return errors.New(errors.ErrCodeStore, "cannot remove the root")
	}
	owner := m.Elements[el.Owner]
	if el.ReadOnly || (owner != nil && owner.ReadOnly) {
		return errors.Wrap(errors.ErrCodeStore, ErrReadOnly, "remove %s %q", el.Kind, el.Name)
	}
	for _, cid := range slices.Clone(el.Children) {
		if err := m.Remove(cid); err != nil {
			return err
		}
	}
	if owner != nil {
		owner.Children = slices.DeleteFunc(owner.Children, func(c string) bool { return c == id })
	}
	if p, ok := m.Elements[el.Partition]; ok {
		p.Members = slices.DeleteFunc(p.Members, func(c string) bool { return c == id })
	}
	delete(m.Elements, id)
	return nil
}

// Assign places node in partition, removing it from any previous partition.
func (m *Model) Assign(node, partition string) error {
	el, ok := m.Elements[node]
	if !ok {
		return errors.New(errors.ErrCodeStore, "element %q not found", node)
	}
	p, ok := m.Elements[partition]
	if !ok || p.Kind != KindPartition {
		return errors.New(errors.ErrCodeStore, "partition %q not found", partition)
	}
	if el.Partition == partition {
		return nil
	}
	if el.ReadOnly || p.ReadOnly {
		return errors.Wrap(errors.ErrCodeStore, ErrReadOnly, "assign %q to lane %q", el.Name, p.Name)
	}
	if prev, ok := m.Elements[el.Partition]; ok {
		prev.Members = slices.DeleteFunc(prev.Members, func(c string) bool { return c == node })
	}
	el.Partition = partition
	p.Members = append(p.Members, node)
	return nil
}

// Reshape sets the bounds of id.
func (m *Model) Reshape(id string, r Rect) error {
	el, ok := m.Elements[id]
	if !ok {
		return errors.New(errors.ErrCodeStore, "element %q not found", id)
	}
	if el.ReadOnly {
		return errors.Wrap(errors.ErrCodeStore, ErrReadOnly, "reshape %q", el.Name)
	}
	el.Bounds = r
	return nil
}

// Bounds returns the bounds of id.
func (m *Model) Bounds(id string) (Rect, bool) {
	el, ok := m.Elements[id]
	if !ok {
		return Rect{}, false
	}
	return el.Bounds, true
}

// Clone returns a deep copy of the model.
func (m *Model) Clone() *Model {
	out := &Model{Root: m.Root, Elements: make(map[string]*Element, len(m.Elements))}
	for id, el := range m.Elements {
		cp := *el
		cp.Children = slices.Clone(el.Children)
		cp.Members = slices.Clone(el.Members)
		out.Elements[id] = &cp
	}
	return out
}
