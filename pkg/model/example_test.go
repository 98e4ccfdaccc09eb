package model_test

import (
	"fmt"
	"strings"

	"github.com/matzehuels/lanegrid/pkg/model"
)

func ExampleModel_Walk() {
	m := model.New("Data")
	act, _ := m.Add(m.Root, &model.Element{Kind: model.KindActivity, Name: "Order"})
	recv, _ := m.Add(act.ID, &model.Element{Kind: model.KindStructuredAction, Name: "Receive"})
	m.Add(recv.ID, &model.Element{Kind: model.KindOutputPin, Name: "order"})
	m.Add(act.ID, &model.Element{Kind: model.KindStructuredAction, Name: "Ship"})

	m.Walk(func(el *model.Element) bool {
		depth := len(m.Path(el.ID)) - 1
		fmt.Printf("%s%s %s\n", strings.Repeat("  ", depth), el.Kind, el.Name)
		return true
	})
	// Output:
	// Package Data
	//   Activity Order
	//     StructuredAction Receive
	//       OutputPin order
	//     StructuredAction Ship
}
