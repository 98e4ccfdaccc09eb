package graph

import (
	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/model"
	"github.com/matzehuels/lanegrid/pkg/registry"
)

// FromModel rebuilds the graph of a stored activity.
//
// Node order follows the control flow from each initial node in turn,
// taking the first unvisited successor at every step. Sub-actions follow
// their parent. Nodes not reachable from an initial node are appended in
// model order. The returned graph carries no BuildStats.
func FromModel(m *model.Model, activityID string) (*Graph, error) {
	act, ok := m.Get(activityID)
	if !ok || act.Kind != model.KindActivity {
		return nil, errors.New(errors.ErrCodeNotFound, "activity %q not found", activityID)
	}

	g := &Graph{ActivityID: activityID, Name: act.Name}
	byID := make(map[string]*Node)
	laneByID := make(map[string]*Lane)
	for _, p := range m.ChildrenOfKind(activityID, model.KindPartition) {
		l := &Lane{ID: p.ID, Key: p.Name, Rect: p.Bounds}
		g.Lanes = append(g.Lanes, l)
		laneByID[p.ID] = l
	}

	var flows []*model.Element
	successors := make(map[string][]string)
	for _, f := range m.ChildrenOfKind(activityID, model.KindControlFlow) {
		flows = append(flows, f)
		successors[f.Source] = append(successors[f.Source], f.Target)
	}

	var add func(el *model.Element, parent *Node)
	add = func(el *model.Element, parent *Node) {
		if _, seen := byID[el.ID]; seen {
			return
		}
		n := nodeFromElement(m, el, parent)
		if n == nil {
			return
		}
		byID[el.ID] = n
		g.Nodes = append(g.Nodes, n)
		if parent != nil {
			parent.Children = append(parent.Children, n)
		}
		for _, c := range m.Children(el.ID) {
			if c.Kind.IsAction() {
				add(c, n)
			}
		}
	}

	for _, start := range m.ChildrenOfKind(activityID, model.KindInitialNode) {
		cur := start
		for cur != nil {
			add(cur, nil)
			var next *model.Element
			for _, id := range successors[cur.ID] {
				if _, seen := byID[id]; !seen {
					next, _ = m.Get(id)
					break
				}
			}
			cur = next
		}
	}
	for _, c := range m.Children(activityID) {
		if c.Kind.IsAction() || c.Kind.IsControlNode() {
			add(c, nil)
		}
	}

	for _, f := range flows {
		src, dst := byID[f.Source], byID[f.Target]
		if src == nil || dst == nil {
			continue
		}
		g.Edges = append(g.Edges, &Edge{ID: f.ID, Source: src, Target: dst})
	}

	for _, p := range m.ChildrenOfKind(activityID, model.KindPartition) {
		lane := laneByID[p.ID]
		for _, id := range p.Members {
			if n := byID[id]; n != nil && n.Kind != KindSubAction {
				n.Lane = lane
				lane.Members = append(lane.Members, n)
			}
		}
	}
	return g, nil
}

func nodeFromElement(m *model.Model, el *model.Element, parent *Node) *Node {
	n := &Node{ID: el.ID, Name: el.Name, Documentation: el.Documentation, Rect: el.Bounds, Parent: parent}
	switch {
	case el.Kind == model.KindInitialNode:
		n.Kind = KindStart
	case el.Kind == model.KindFinalNode:
		n.Kind = KindEnd
	case el.Kind.IsAction() && parent != nil:
		n.Kind, n.Type = KindSubAction, actionTypeOf(el.Kind)
	case el.Kind.IsAction():
		n.Kind, n.Type = KindAction, actionTypeOf(el.Kind)
	default:
		return nil
	}
	ins, outs := registry.Pins(m, el)
	n.Inputs = portsOf(n, ins, In)
	n.Outputs = portsOf(n, outs, Out)
	return n
}
