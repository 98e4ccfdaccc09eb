package graph

import (
	"github.com/matzehuels/lanegrid/pkg/model"
)

// =============================================================================
// Kinds
// =============================================================================

// NodeKind is the role of a node in the flow.
type NodeKind string

// Node kinds.
const (
	KindStart     NodeKind = "start"
	KindEnd       NodeKind = "end"
	KindAction    NodeKind = "action"
	KindSubAction NodeKind = "sub_action"
)

// ActionType is the model element type an action is created as.
type ActionType string

// Action types.
const (
	StructuredAction   ActionType = "StructuredAction"
	CallBehaviorAction ActionType = "CallBehaviorAction"
)

// ModelKind maps t to its model element kind. Unknown types map to
// StructuredAction.
func (t ActionType) ModelKind() model.Kind {
	if t == CallBehaviorAction {
		return model.KindCallBehaviorAction
	}
	return model.KindStructuredAction
}

// ParseActionType accepts the type names case-sensitively plus the short
// forms "structured" and "call-behavior".
func ParseActionType(s string) (ActionType, bool) {
	switch s {
	case string(StructuredAction), "structured":
		return StructuredAction, true
	case string(CallBehaviorAction), "call-behavior", "callbehavior":
		return CallBehaviorAction, true
	}
	return "", false
}

func actionTypeOf(k model.Kind) ActionType {
	if k == model.KindCallBehaviorAction {
		return CallBehaviorAction
	}
	return StructuredAction
}

// Direction is the side of a node a port sits on.
type Direction string

// Port directions.
const (
	In  Direction = "in"
	Out Direction = "out"
)

// =============================================================================
// Graph elements
// =============================================================================

// PortHolder is implemented by anything exposing ordered ports.
type PortHolder interface {
	InputPorts() []*Port
	OutputPorts() []*Port
}

// Port is a named input or output pin on a node.
type Port struct {
	ID        string
	Name      string
	Direction Direction
	Owner     *Node
	Rect      model.Rect
}

// Node is a flow node: a sentinel, a top-level action or a sub-action.
type Node struct {
	ID            string
	Name          string
	Kind          NodeKind
	Type          ActionType // empty for sentinels
	Documentation string
	Inputs        []*Port
	Outputs       []*Port
	Lane          *Lane // nil for sub-actions
	Parent        *Node // set for sub-actions
	Children      []*Node
	Reused        bool
	Rect          model.Rect
}

// InputPorts implements PortHolder.
func (n *Node) InputPorts() []*Port { return n.Inputs }

// OutputPorts implements PortHolder.
func (n *Node) OutputPorts() []*Port { return n.Outputs }

// IsSentinel reports whether n is the Start or End node.
func (n *Node) IsSentinel() bool { return n.Kind == KindStart || n.Kind == KindEnd }

// Port returns the port with the given name and direction, or nil.
func (n *Node) Port(dir Direction, name string) *Port {
	ports := n.Inputs
	if dir == Out {
		ports = n.Outputs
	}
	for _, p := range ports {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// MaxPorts returns the larger of the input and output port counts.
func MaxPorts(h PortHolder) int {
	return max(len(h.InputPorts()), len(h.OutputPorts()))
}

// Edge is a sequential control flow between two nodes.
type Edge struct {
	ID     string
	Source *Node
	Target *Node
}

// Lane groups top-level nodes by actor.
type Lane struct {
	ID      string
	Key     string
	Members []*Node
	Rect    model.Rect
}

// BuildStats summarizes one Build call. PortsAdded counts every pin the
// build created, on new and reused actions alike.
type BuildStats struct {
	TopLevel   int `json:"top_level" bson:"top_level"`
	SubActions int `json:"sub_actions" bson:"sub_actions"`
	Reused     int `json:"reused" bson:"reused"`
	Orphans    int `json:"orphans" bson:"orphans"`
	PortsAdded int `json:"ports_added" bson:"ports_added"`
	Lanes      int `json:"lanes" bson:"lanes"`
}

// Imported returns the number of rows that produced a node.
func (s BuildStats) Imported() int { return s.TopLevel + s.SubActions }

// Graph is the result of one import.
type Graph struct {
	ActivityID string
	Name       string
	Nodes      []*Node // creation order: Start, rows, End
	Edges      []*Edge
	Lanes      []*Lane // first-seen order
	stats      BuildStats
}

// Stats returns the statistics recorded while building g.
func (g *Graph) Stats() BuildStats { return g.stats }

// Start returns the first Start sentinel, or nil.
func (g *Graph) Start() *Node { return g.firstOfKind(KindStart) }

// End returns the last End sentinel, or nil.
func (g *Graph) End() *Node {
	for i := len(g.Nodes) - 1; i >= 0; i-- {
		if g.Nodes[i].Kind == KindEnd {
			return g.Nodes[i]
		}
	}
	return nil
}

func (g *Graph) firstOfKind(k NodeKind) *Node {
	for _, n := range g.Nodes {
		if n.Kind == k {
			return n
		}
	}
	return nil
}

// TopLevel returns the top-level action nodes in order.
func (g *Graph) TopLevel() []*Node { return g.ofKind(KindAction) }

// SubActions returns the sub-action nodes in order.
func (g *Graph) SubActions() []*Node { return g.ofKind(KindSubAction) }

// FlowNodes returns the nodes on the sequential path: sentinels and
// top-level actions.
func (g *Graph) FlowNodes() []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if n.Kind != KindSubAction {
			out = append(out, n)
		}
	}
	return out
}

func (g *Graph) ofKind(k NodeKind) []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

// Node returns the first top-level or sub-action node with the given name.
func (g *Graph) Node(name string) *Node {
	for _, n := range g.Nodes {
		if !n.IsSentinel() && n.Name == name {
			return n
		}
	}
	return nil
}

// NodeByID returns the node with the given ID, or nil.
func (g *Graph) NodeByID(id string) *Node {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Lane returns the lane with the given key, or nil.
func (g *Graph) Lane(key string) *Lane {
	for _, l := range g.Lanes {
		if l.Key == key {
			return l
		}
	}
	return nil
}

// Ports returns every port of every node, inputs before outputs per node.
func (g *Graph) Ports() []*Port {
	var out []*Port
	for _, n := range g.Nodes {
		out = append(out, n.Inputs...)
		out = append(out, n.Outputs...)
	}
	return out
}
