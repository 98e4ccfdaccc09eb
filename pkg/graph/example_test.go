package graph_test

import (
	"fmt"

	"github.com/matzehuels/lanegrid/pkg/graph"
	"github.com/matzehuels/lanegrid/pkg/model"
	"github.com/matzehuels/lanegrid/pkg/rows"
)

func ExampleBuilder_Build() {
	m := model.New("Data")
	act, _ := m.Add(m.Root, &model.Element{Kind: model.KindActivity, Name: "Orders"})

	g, err := (&graph.Builder{Model: m}).Build(act.ID, []rows.ActivityRow{
		{Name: "Init", Outputs: []string{"OK"}},
		{Name: "Process", Actor: "Worker", Inputs: []string{"OK"}, Outputs: []string{"Done"}},
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	for _, e := range g.Edges {
		fmt.Printf("%s -> %s\n", e.Source.Name, e.Target.Name)
	}
	for _, l := range g.Lanes {
		fmt.Printf("lane %s: %d member(s)\n", l.Key, len(l.Members))
	}
	// Output:
	// Start -> Init
	// Init -> Process
	// Process -> End
	// lane <Unassigned>: 3 member(s)
	// lane Worker: 1 member(s)
}
