package graph

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/model"
	"github.com/matzehuels/lanegrid/pkg/registry"
	"github.com/matzehuels/lanegrid/pkg/rows"
)

// Sentinel names.
const (
	StartName = "Start"
	EndName   = "End"
)

// Builder turns rows into a Graph, writing every element into Model.
type Builder struct {
	// Model receives the created elements. Required.
	Model *model.Model

	// Registry resolves names. Nil creates one targeting the activity.
	Registry *registry.Registry

	// Logger receives orphan and reuse diagnostics. Nil discards them.
	Logger *log.Logger

	// ActionTypeOf chooses the element type of sub-actions.
	// Nil creates every sub-action as a StructuredAction.
	ActionTypeOf func(name string) ActionType
}

// buildState is the per-Build bookkeeping.
type buildState struct {
	g        *Graph
	activity *model.Element
	reg      *registry.Registry
	lanes    map[string]*Lane
	byName   map[string]*Node // top-level nodes built in this batch
	children map[string]*Node // parent ID + name
	prev     *Node
}

// Build imports rows into the activity with the given ID and returns the
// resulting graph. Any model failure aborts the build; the caller is
// expected to discard the model (see package session).
//
// An activity holds one flow. Building into an activity that already has
// one reuses its Start and End nodes and replaces its control flows, so the
// stored flow is always the path of the latest batch. Actions left over from
// earlier batches stay in the activity, outside the flow.
func (b *Builder) Build(activityID string, in []rows.ActivityRow) (*Graph, error) {
	logger := b.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if b.Model == nil {
		return nil, errors.New(errors.ErrCodeInternal, "builder has no model")
	}
	act, ok := b.Model.Get(activityID)
	if !ok || act.Kind != model.KindActivity {
		return nil, errors.New(errors.ErrCodeStore, "activity %q not found", activityID)
	}

	reg := b.Registry
	if reg == nil {
		reg = registry.New(b.Model, activityID)
	}
	pinsBefore := reg.Stats().PinsAdded
	st := &buildState{
		g:        &Graph{ActivityID: activityID, Name: act.Name},
		activity: act,
		reg:      reg,
		lanes:    make(map[string]*Lane),
		byName:   make(map[string]*Node),
		children: make(map[string]*Node),
	}

	if err := b.createLanes(st, in); err != nil {
		return nil, err
	}
	if err := b.clearFlows(st); err != nil {
		return nil, err
	}

	start, err := b.sentinel(st, model.KindInitialNode, KindStart, StartName, st.g.Lanes[0])
	if err != nil {
		return nil, err
	}
	st.prev = start

	for _, row := range in {
		if row.IsSubAction {
			if err := b.addSubAction(st, row, logger); err != nil {
				return nil, err
			}
			continue
		}
		if err := b.addTopLevel(st, row, logger); err != nil {
			return nil, err
		}
	}

	end, err := b.sentinel(st, model.KindFinalNode, KindEnd, EndName, start.Lane)
	if err != nil {
		return nil, err
	}
	if err := b.link(st, st.prev, end); err != nil {
		return nil, err
	}

	st.g.stats.Lanes = len(st.g.Lanes)
	st.g.stats.PortsAdded = reg.Stats().PinsAdded - pinsBefore
	logger.Debug("graph built",
		"activity", act.Name,
		"nodes", len(st.g.Nodes),
		"edges", len(st.g.Edges),
		"lanes", len(st.g.Lanes),
		"reused", st.g.stats.Reused,
		"orphans", st.g.stats.Orphans)
	return st.g, nil
}

// createLanes creates one lane per distinct actor among top-level rows, in
// first-seen order. Partitions already in the activity are reused by name.
func (b *Builder) createLanes(st *buildState, in []rows.ActivityRow) error {
	var keys []string
	for _, row := range in {
		if row.IsSubAction {
			continue
		}
		if k := row.LaneKey(); st.lanes[k] == nil {
			st.lanes[k] = &Lane{Key: k}
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		st.lanes[rows.UnassignedLane] = &Lane{Key: rows.UnassignedLane}
		keys = append(keys, rows.UnassignedLane)
	}

	existing := make(map[string]*model.Element)
	for _, p := range b.Model.ChildrenOfKind(st.activity.ID, model.KindPartition) {
		if _, dup := existing[p.Name]; !dup {
			existing[p.Name] = p
		}
	}
	for _, k := range keys {
		lane := st.lanes[k]
		if p, ok := existing[k]; ok {
			lane.ID = p.ID
			lane.Rect = p.Bounds
		} else {
			p, err := b.Model.Add(st.activity.ID, &model.Element{Kind: model.KindPartition, Name: k})
			if err != nil {
				return errors.Wrap(errors.ErrCodeStore, err, "create lane %q", k)
			}
			lane.ID = p.ID
		}
		st.g.Lanes = append(st.g.Lanes, lane)
	}
	return nil
}

// clearFlows removes the control flows of an earlier batch.
func (b *Builder) clearFlows(st *buildState) error {
	for _, f := range b.Model.ChildrenOfKind(st.activity.ID, model.KindControlFlow) {
		if err := b.Model.Remove(f.ID); err != nil {
			return errors.Wrap(errors.ErrCodeStore, err, "replace flow of %q", st.activity.Name)
		}
	}
	return nil
}

// sentinel returns the activity's first node of kind, creating it if the
// activity has none.
func (b *Builder) sentinel(st *buildState, kind model.Kind, nk NodeKind, name string, lane *Lane) (*Node, error) {
	var el *model.Element
	if existing := b.Model.ChildrenOfKind(st.activity.ID, kind); len(existing) > 0 {
		el = existing[0]
	} else {
		var err error
		el, err = b.Model.Add(st.activity.ID, &model.Element{Kind: kind, Name: name})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "create %s node", name)
		}
	}
	n := &Node{ID: el.ID, Name: el.Name, Kind: nk, Rect: el.Bounds}
	if err := b.assign(n, lane); err != nil {
		return nil, err
	}
	st.g.Nodes = append(st.g.Nodes, n)
	return n, nil
}

func (b *Builder) addTopLevel(st *buildState, row rows.ActivityRow, logger *log.Logger) error {
	st.g.stats.TopLevel++

	if n, ok := st.byName[row.Name]; ok {
		// Repeated name in this batch: same node, one more step in the flow.
		el, _ := b.Model.Get(n.ID)
		if _, err := st.reg.EnsurePins(el, row.Inputs, row.Outputs); err != nil {
			return err
		}
		b.syncPorts(n, el)
		logger.Debug("repeated action in batch", "name", row.Name, "line", row.Line)
		if err := b.link(st, st.prev, n); err != nil {
			return err
		}
		st.prev = n
		return nil
	}

	el, reused, err := st.reg.Resolve(row.Name, row.Inputs, row.Outputs)
	if err != nil {
		return err
	}
	if reused {
		// Top-level actions are always structured; a reused call-behavior
		// action keeps its type.
		st.g.stats.Reused++
		logger.Debug("reusing action", "name", row.Name, "line", row.Line)
		if err := b.fillDocumentation(el, row.Documentation); err != nil {
			return err
		}
	} else {
		el, err = b.create(st, st.activity, model.KindStructuredAction, row)
		if err != nil {
			return err
		}
	}

	n := &Node{
		ID:            el.ID,
		Name:          row.Name,
		Kind:          KindAction,
		Type:          actionTypeOf(el.Kind),
		Documentation: el.Documentation,
		Reused:        reused,
	}
	b.syncPorts(n, el)
	if err := b.assign(n, st.lanes[row.LaneKey()]); err != nil {
		return err
	}
	st.g.Nodes = append(st.g.Nodes, n)
	st.byName[row.Name] = n

	if err := b.link(st, st.prev, n); err != nil {
		return err
	}
	st.prev = n
	return nil
}

func (b *Builder) addSubAction(st *buildState, row rows.ActivityRow, logger *log.Logger) error {
	parent, ok := st.byName[row.ParentName]
	if !ok {
		st.g.stats.Orphans++
		logger.Debug("dropping sub-action",
			"code", errors.ErrCodeOrphan,
			"name", row.Name,
			"parent", row.ParentName,
			"line", row.Line)
		return nil
	}
	parentEl, _ := b.Model.Get(parent.ID)

	key := parent.ID + "\x00" + row.Name
	if n, ok := st.children[key]; ok {
		el, _ := b.Model.Get(n.ID)
		if _, err := st.reg.EnsurePins(el, row.Inputs, row.Outputs); err != nil {
			return err
		}
		b.syncPorts(n, el)
		return nil
	}

	st.g.stats.SubActions++
	el, reused, err := st.reg.ResolveChild(parentEl, row.Name, row.Inputs, row.Outputs)
	if err != nil {
		return err
	}
	if reused {
		st.g.stats.Reused++
		if err := b.fillDocumentation(el, row.Documentation); err != nil {
			return err
		}
	} else {
		typ := StructuredAction
		if b.ActionTypeOf != nil {
			typ = b.ActionTypeOf(row.Name)
		}
		el, err = b.create(st, parentEl, typ.ModelKind(), row)
		if err != nil {
			return err
		}
	}

	n := &Node{
		ID:            el.ID,
		Name:          row.Name,
		Kind:          KindSubAction,
		Type:          actionTypeOf(el.Kind),
		Documentation: el.Documentation,
		Parent:        parent,
		Reused:        reused,
	}
	b.syncPorts(n, el)
	st.reg.Reserve(el.ID)
	parent.Children = append(parent.Children, n)
	st.children[key] = n
	st.g.Nodes = append(st.g.Nodes, n)
	return nil
}

// create adds a fresh action with exactly the row's pins under owner.
func (b *Builder) create(st *buildState, owner *model.Element, kind model.Kind, row rows.ActivityRow) (*model.Element, error) {
	el, err := b.Model.Add(owner.ID, &model.Element{
		Kind:          kind,
		Name:          row.Name,
		Documentation: row.Documentation,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "create action %q (line %d)", row.Name, row.Line)
	}
	if _, err := st.reg.EnsurePins(el, row.Inputs, row.Outputs); err != nil {
		return nil, err
	}
	return el, nil
}

func (b *Builder) fillDocumentation(el *model.Element, doc string) error {
	if doc == "" || el.Documentation != "" {
		return nil
	}
	if el.ReadOnly {
		return errors.Wrap(errors.ErrCodeStore, model.ErrReadOnly, "document %q", el.Name)
	}
	el.Documentation = doc
	return nil
}

// syncPorts rebuilds n's ports from the pins el owns.
func (b *Builder) syncPorts(n *Node, el *model.Element) {
	ins, outs := registry.Pins(b.Model, el)
	n.Inputs = portsOf(n, ins, In)
	n.Outputs = portsOf(n, outs, Out)
}

func portsOf(owner *Node, pins []*model.Element, dir Direction) []*Port {
	out := make([]*Port, 0, len(pins))
	for _, p := range pins {
		out = append(out, &Port{ID: p.ID, Name: p.Name, Direction: dir, Owner: owner, Rect: p.Bounds})
	}
	return out
}

func (b *Builder) assign(n *Node, lane *Lane) error {
	if err := b.Model.Assign(n.ID, lane.ID); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "assign %q to lane %q", n.Name, lane.Key)
	}
	n.Lane = lane
	lane.Members = append(lane.Members, n)
	return nil
}

func (b *Builder) link(st *buildState, from, to *Node) error {
	el, err := b.Model.AddFlow(st.activity.ID, from.ID, to.ID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "link %q to %q", from.Name, to.Name)
	}
	st.g.Edges = append(st.g.Edges, &Edge{ID: el.ID, Source: from, Target: to})
	return nil
}
