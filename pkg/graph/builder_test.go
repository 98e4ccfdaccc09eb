package graph

import (
	stderrors "errors"
	"fmt"
	"slices"
	"testing"

	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/model"
	"github.com/matzehuels/lanegrid/pkg/rows"
)

func newActivity(t *testing.T) (*model.Model, string) {
	t.Helper()
	m := model.New("Data")
	act, err := m.Add(m.Root, &model.Element{Kind: model.KindActivity, Name: "Import"})
	if err != nil {
		t.Fatal(err)
	}
	return m, act.ID
}

func build(t *testing.T, m *model.Model, activityID string, in []rows.ActivityRow) *Graph {
	t.Helper()
	g, err := (&Builder{Model: m}).Build(activityID, in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func names(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}

func portNames(ports []*Port) []string {
	var out []string
	for _, p := range ports {
		out = append(out, p.Name)
	}
	return out
}

func edgeStrings(g *Graph) []string {
	out := make([]string, len(g.Edges))
	for i, e := range g.Edges {
		out[i] = e.Source.Name + "->" + e.Target.Name
	}
	return out
}

var initProcess = []rows.ActivityRow{
	{Name: "Init", Outputs: []string{"OK"}},
	{Name: "Process", Actor: "Worker", Inputs: []string{"OK"}, Outputs: []string{"Done"}},
}

func TestBuildInitProcess(t *testing.T) {
	m, act := newActivity(t)
	g := build(t, m, act, initProcess)

	if got := names(g.Nodes); !slices.Equal(got, []string{"Start", "Init", "Process", "End"}) {
		t.Errorf("nodes = %v", got)
	}
	if got := edgeStrings(g); !slices.Equal(got, []string{"Start->Init", "Init->Process", "Process->End"}) {
		t.Errorf("edges = %v", got)
	}

	if len(g.Lanes) != 2 || g.Lanes[0].Key != rows.UnassignedLane || g.Lanes[1].Key != "Worker" {
		t.Fatalf("lanes = %+v", g.Lanes)
	}
	if got := names(g.Lanes[0].Members); !slices.Equal(got, []string{"Start", "Init", "End"}) {
		t.Errorf("unassigned lane members = %v", got)
	}
	if got := names(g.Lanes[1].Members); !slices.Equal(got, []string{"Process"}) {
		t.Errorf("worker lane members = %v", got)
	}
	if g.Start().Lane != g.Lanes[0] || g.End().Lane != g.Lanes[0] {
		t.Error("sentinels are not in the first lane")
	}

	initNode, proc := g.Node("Init"), g.Node("Process")
	if got := portNames(initNode.Outputs); !slices.Equal(got, []string{"OK"}) || len(initNode.Inputs) != 0 {
		t.Errorf("Init ports = %v / %v", portNames(initNode.Inputs), got)
	}
	if !slices.Equal(portNames(proc.Inputs), []string{"OK"}) || !slices.Equal(portNames(proc.Outputs), []string{"Done"}) {
		t.Errorf("Process ports = %v / %v", portNames(proc.Inputs), portNames(proc.Outputs))
	}
	for _, n := range g.TopLevel() {
		if n.Type != StructuredAction {
			t.Errorf("%s Type = %s, want StructuredAction", n.Name, n.Type)
		}
	}

	// Everything the graph names exists in the model.
	if got := m.Count(model.KindControlFlow); got != 3 {
		t.Errorf("model control flows = %d, want 3", got)
	}
	if got := m.Count(model.KindPartition); got != 2 {
		t.Errorf("model partitions = %d, want 2", got)
	}
	for _, n := range g.Nodes {
		el, ok := m.Get(n.ID)
		if !ok || el.Owner != act {
			t.Errorf("%s not owned by the activity", n.Name)
		}
	}

	s := g.Stats()
	if s.TopLevel != 2 || s.Reused != 0 || s.PortsAdded != 3 || s.Lanes != 2 {
		t.Errorf("stats = %+v", s)
	}
}

func TestBuildReimportReuses(t *testing.T) {
	m, act := newActivity(t)
	build(t, m, act, initProcess)
	actions := m.Count(model.KindStructuredAction)
	pins := m.Count(model.KindInputPin) + m.Count(model.KindOutputPin)
	partitions := m.Count(model.KindPartition)

	g := build(t, m, act, initProcess)
	for _, n := range g.TopLevel() {
		if !n.Reused {
			t.Errorf("%s not reported as reused", n.Name)
		}
	}
	if s := g.Stats(); s.Reused != 2 || s.PortsAdded != 0 {
		t.Errorf("stats = %+v, want 2 reused and 0 ports added", s)
	}
	if got := m.Count(model.KindStructuredAction); got != actions {
		t.Errorf("actions = %d after re-import, want %d", got, actions)
	}
	if got := m.Count(model.KindInputPin) + m.Count(model.KindOutputPin); got != pins {
		t.Errorf("pins = %d after re-import, want %d", got, pins)
	}
	if got := m.Count(model.KindPartition); got != partitions {
		t.Errorf("partitions = %d after re-import, want %d", got, partitions)
	}
}

func TestBuildReimportKeepsOneFlow(t *testing.T) {
	m, act := newActivity(t)
	first := build(t, m, act, initProcess)
	second := build(t, m, act, initProcess)

	if second.Start().ID != first.Start().ID || second.End().ID != first.End().ID {
		t.Error("re-import created new Start/End nodes")
	}
	counts := map[model.Kind]int{
		model.KindInitialNode: 1,
		model.KindFinalNode:   1,
		model.KindControlFlow: 3,
	}
	for kind, want := range counts {
		if got := m.Count(kind); got != want {
			t.Errorf("%s count = %d, want %d", kind, got, want)
		}
	}

	g, err := FromModel(m, act)
	if err != nil {
		t.Fatal(err)
	}
	if got := names(g.Nodes); !slices.Equal(got, []string{"Start", "Init", "Process", "End"}) {
		t.Errorf("stored nodes = %v", got)
	}
	if got := edgeStrings(g); !slices.Equal(got, []string{"Start->Init", "Init->Process", "Process->End"}) {
		t.Errorf("stored edges = %v", got)
	}
}

func TestBuildReimportReplacesFlow(t *testing.T) {
	m, act := newActivity(t)
	build(t, m, act, initProcess)
	g := build(t, m, act, []rows.ActivityRow{{Name: "Init"}, {Name: "Other"}})

	want := []string{"Start->Init", "Init->Other", "Other->End"}
	if got := edgeStrings(g); !slices.Equal(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
	stored, err := FromModel(m, act)
	if err != nil {
		t.Fatal(err)
	}
	if got := edgeStrings(stored); !slices.Equal(got, want) {
		t.Errorf("stored edges = %v, want %v", got, want)
	}
	// Process stays in the activity but is no longer on the path.
	if stored.Node("Process") == nil {
		t.Error("earlier action was removed")
	}
}

func TestBuildPathShape(t *testing.T) {
	for n := range 6 {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			var in []rows.ActivityRow
			for i := range n {
				in = append(in, rows.ActivityRow{Name: fmt.Sprintf("A%d", i), Actor: fmt.Sprintf("L%d", i%3)})
			}
			m, act := newActivity(t)
			g := build(t, m, act, in)

			flow := g.FlowNodes()
			if len(flow) != n+2 {
				t.Fatalf("flow nodes = %d, want %d", len(flow), n+2)
			}
			if len(g.Edges) != n+1 {
				t.Fatalf("edges = %d, want %d", len(g.Edges), n+1)
			}
			// One simple path: edge i joins flow node i to i+1.
			for i, e := range g.Edges {
				if e.Source != flow[i] || e.Target != flow[i+1] {
					t.Errorf("edge %d = %s->%s", i, e.Source.Name, e.Target.Name)
				}
			}
		})
	}
}

func TestBuildLanesPartitionTopLevel(t *testing.T) {
	in := []rows.ActivityRow{
		{Name: "a", Actor: "X"},
		{Name: "b", Actor: ""},
		{Name: "c", Actor: "Y"},
		{Name: "d", Actor: "X"},
		{Name: "d1", IsSubAction: true, ParentName: "d", Actor: "Z"},
		{Name: "e"},
	}
	m, act := newActivity(t)
	g := build(t, m, act, in)

	if got := len(g.Lanes); got != 3 {
		t.Fatalf("lanes = %d, want 3 (X, <Unassigned>, Y)", got)
	}
	if g.Lanes[0].Key != "X" || g.Lanes[1].Key != rows.UnassignedLane || g.Lanes[2].Key != "Y" {
		t.Errorf("lane order = %s, %s, %s", g.Lanes[0].Key, g.Lanes[1].Key, g.Lanes[2].Key)
	}

	seen := make(map[*Node]int)
	for _, l := range g.Lanes {
		for _, n := range l.Members {
			seen[n]++
			if n.Lane != l {
				t.Errorf("%s.Lane = %v, listed in %s", n.Name, n.Lane, l.Key)
			}
		}
	}
	for _, n := range g.TopLevel() {
		if seen[n] != 1 {
			t.Errorf("%s appears in %d lanes", n.Name, seen[n])
		}
	}
	for _, n := range g.SubActions() {
		if seen[n] != 0 || n.Lane != nil {
			t.Errorf("sub-action %s placed in a lane", n.Name)
		}
	}
}

func TestBuildNoTopLevelRows(t *testing.T) {
	m, act := newActivity(t)
	g := build(t, m, act, nil)

	if got := names(g.Nodes); !slices.Equal(got, []string{"Start", "End"}) {
		t.Errorf("nodes = %v", got)
	}
	if len(g.Lanes) != 1 || g.Lanes[0].Key != rows.UnassignedLane {
		t.Errorf("lanes = %+v, want one synthetic lane", g.Lanes)
	}
	if got := edgeStrings(g); !slices.Equal(got, []string{"Start->End"}) {
		t.Errorf("edges = %v", got)
	}
}

func TestBuildSubActions(t *testing.T) {
	in := []rows.ActivityRow{
		{Name: "Parent", Outputs: []string{"x"}},
		{Name: "Child", IsSubAction: true, ParentName: "Parent", Inputs: []string{"x"}},
		{Name: "Call", IsSubAction: true, ParentName: "Parent"},
		{Name: "Next"},
	}
	m, act := newActivity(t)
	b := &Builder{
		Model: m,
		ActionTypeOf: func(name string) ActionType {
			if name == "Call" {
				return CallBehaviorAction
			}
			return StructuredAction
		},
	}
	g, err := b.Build(act, in)
	if err != nil {
		t.Fatal(err)
	}

	if got := names(g.Nodes); !slices.Equal(got, []string{"Start", "Parent", "Child", "Call", "Next", "End"}) {
		t.Errorf("nodes = %v", got)
	}
	if got := edgeStrings(g); !slices.Equal(got, []string{"Start->Parent", "Parent->Next", "Next->End"}) {
		t.Errorf("edges = %v (sub-actions must not join the flow)", got)
	}

	parent := g.Node("Parent")
	if got := names(parent.Children); !slices.Equal(got, []string{"Child", "Call"}) {
		t.Errorf("children = %v", got)
	}
	call := g.Node("Call")
	if call.Kind != KindSubAction || call.Parent != parent || call.Type != CallBehaviorAction {
		t.Errorf("Call = %+v", call)
	}
	el, _ := m.Get(call.ID)
	if el.Kind != model.KindCallBehaviorAction || el.Owner != parent.ID {
		t.Errorf("Call element = %s owned by %q", el.Kind, el.Owner)
	}
	if s := g.Stats(); s.SubActions != 2 || s.TopLevel != 2 {
		t.Errorf("stats = %+v", s)
	}
}

func TestBuildOrphansDoNotChangeFlow(t *testing.T) {
	base := []rows.ActivityRow{{Name: "A"}, {Name: "B", Actor: "L"}}
	withOrphans := []rows.ActivityRow{
		{Name: "early", IsSubAction: true, ParentName: "B"}, // B not yet processed
		{Name: "A"},
		{Name: "ghost", IsSubAction: true, ParentName: "Nobody"},
		{Name: "B", Actor: "L"},
	}

	m1, a1 := newActivity(t)
	g1 := build(t, m1, a1, base)
	m2, a2 := newActivity(t)
	g2 := build(t, m2, a2, withOrphans)

	if !slices.Equal(names(g1.Nodes), names(g2.Nodes)) {
		t.Errorf("nodes %v vs %v", names(g1.Nodes), names(g2.Nodes))
	}
	if !slices.Equal(edgeStrings(g1), edgeStrings(g2)) {
		t.Errorf("edges %v vs %v", edgeStrings(g1), edgeStrings(g2))
	}
	if g2.Stats().Orphans != 2 {
		t.Errorf("Orphans = %d, want 2", g2.Stats().Orphans)
	}
	if m1.Len() != m2.Len() {
		t.Errorf("model sizes differ: %d vs %d", m1.Len(), m2.Len())
	}
}

func TestBuildRepeatedNameInBatch(t *testing.T) {
	in := []rows.ActivityRow{
		{Name: "Loop", Outputs: []string{"a"}},
		{Name: "Other"},
		{Name: "Loop", Outputs: []string{"b"}},
	}
	m, act := newActivity(t)
	g := build(t, m, act, in)

	if got := names(g.Nodes); !slices.Equal(got, []string{"Start", "Loop", "Other", "End"}) {
		t.Errorf("nodes = %v", got)
	}
	if got := edgeStrings(g); !slices.Equal(got, []string{"Start->Loop", "Loop->Other", "Other->Loop", "Loop->End"}) {
		t.Errorf("edges = %v", got)
	}
	if got := portNames(g.Node("Loop").Outputs); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Loop outputs = %v, want union", got)
	}
	if m.Count(model.KindStructuredAction) != 2 {
		t.Errorf("actions = %d, want 2", m.Count(model.KindStructuredAction))
	}
}

func TestBuildSubActionNameAtTopLevel(t *testing.T) {
	in := []rows.ActivityRow{
		{Name: "A"},
		{Name: "B", IsSubAction: true, ParentName: "A"},
		{Name: "B"},
	}
	m, act := newActivity(t)
	g := build(t, m, act, in)

	seen := make(map[string]bool)
	for _, n := range g.Nodes {
		if seen[n.ID] {
			t.Errorf("%s appears twice in the graph", n.Name)
		}
		seen[n.ID] = true
	}

	a := g.Node("A")
	if len(a.Children) != 1 {
		t.Fatalf("A has %d children, want 1", len(a.Children))
	}
	sub := a.Children[0]
	if el, _ := m.Get(sub.ID); el.Owner != a.ID {
		t.Errorf("sub-action B owned by %q, want A", el.Owner)
	}
	if sub.Lane != nil {
		t.Errorf("sub-action B is in lane %q", sub.Lane.Key)
	}

	var top *Node
	for _, n := range g.TopLevel() {
		if n.Name == "B" {
			top = n
		}
	}
	if top == nil || top.ID == sub.ID {
		t.Fatalf("top-level B = %+v, want a separate action", top)
	}
	if el, _ := m.Get(top.ID); el.Owner != act {
		t.Errorf("top-level B owned by %q, want the activity", el.Owner)
	}
	if got := edgeStrings(g); !slices.Equal(got, []string{"Start->A", "A->B", "B->End"}) {
		t.Errorf("edges = %v", got)
	}
	if got := m.Count(model.KindStructuredAction); got != 3 {
		t.Errorf("actions = %d, want 3", got)
	}
}

func TestBuildStoreErrorPropagates(t *testing.T) {
	m, act := newActivity(t)
	build(t, m, act, initProcess)
	el := m.Find(func(e *model.Element) bool { return e.Name == "Process" && e.Kind.IsAction() })
	el.ReadOnly = true

	_, err := (&Builder{Model: m}).Build(act, []rows.ActivityRow{
		{Name: "Process", Inputs: []string{"new"}},
	})
	if !errors.Is(err, errors.ErrCodeStore) || !stderrors.Is(err, model.ErrReadOnly) {
		t.Errorf("err = %v, want STORE_ERROR wrapping ErrReadOnly", err)
	}
}

func TestBuildUnknownActivity(t *testing.T) {
	m, _ := newActivity(t)
	if _, err := (&Builder{Model: m}).Build(m.Root, nil); !errors.Is(err, errors.ErrCodeStore) {
		t.Errorf("err = %v, want STORE_ERROR for non-activity target", err)
	}
}

func TestFromModelRoundTrip(t *testing.T) {
	in := []rows.ActivityRow{
		{Name: "Init", Outputs: []string{"OK"}},
		{Name: "Sub", IsSubAction: true, ParentName: "Init"},
		{Name: "Process", Actor: "Worker", Inputs: []string{"OK"}},
	}
	m, act := newActivity(t)
	built := build(t, m, act, in)

	g, err := FromModel(m, act)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(names(g.Nodes), names(built.Nodes)) {
		t.Errorf("nodes = %v, want %v", names(g.Nodes), names(built.Nodes))
	}
	if !slices.Equal(edgeStrings(g), edgeStrings(built)) {
		t.Errorf("edges = %v, want %v", edgeStrings(g), edgeStrings(built))
	}
	if len(g.Lanes) != 2 || !slices.Equal(names(g.Lane("Worker").Members), []string{"Process"}) {
		t.Errorf("lanes = %+v", g.Lanes)
	}
	if sub := g.Node("Sub"); sub == nil || sub.Parent == nil || sub.Parent.Name != "Init" {
		t.Errorf("Sub = %+v", sub)
	}

	if _, err := FromModel(m, "missing"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestExport(t *testing.T) {
	m, act := newActivity(t)
	g := build(t, m, act, initProcess)
	doc := Export(g)

	if doc.ActivityID != act || len(doc.Nodes) != 4 || len(doc.Edges) != 3 || len(doc.Lanes) != 2 {
		t.Fatalf("doc = %+v", doc)
	}
	if doc.Stats == nil || doc.Stats.TopLevel != 2 {
		t.Errorf("Stats = %+v", doc.Stats)
	}
	proc := doc.Nodes[2]
	if proc.Name != "Process" || proc.Lane != "Worker" || len(proc.Inputs) != 1 || proc.Inputs[0].Name != "OK" {
		t.Errorf("Process doc = %+v", proc)
	}
	if doc.Edges[0].Source != g.Start().ID {
		t.Errorf("first edge source = %q, want Start", doc.Edges[0].Source)
	}

	data, err := MarshalDocument(g)
	if err != nil {
		t.Fatal(err)
	}
	back, err := UnmarshalDocument(data)
	if err != nil {
		t.Fatal(err)
	}
	if back.Name != "Import" || len(back.Nodes) != 4 {
		t.Errorf("decoded = %+v", back)
	}
	if _, err := UnmarshalDocument([]byte(`{}`)); err == nil {
		t.Error("document without activity_id accepted")
	}
}

func TestParseActionType(t *testing.T) {
	tests := []struct {
		in   string
		want ActionType
		ok   bool
	}{
		{"StructuredAction", StructuredAction, true},
		{"structured", StructuredAction, true},
		{"CallBehaviorAction", CallBehaviorAction, true},
		{"call-behavior", CallBehaviorAction, true},
		{"bogus", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseActionType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseActionType(%q) = %q, %v", tt.in, got, ok)
		}
	}
}
