package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/lanegrid/pkg/model"
)

// =============================================================================
// Document - Wire Format
// =============================================================================

// Document is the serialized form of a Graph.
// References between elements are by ID.
type Document struct {
	ActivityID string      `json:"activity_id" bson:"activity_id"`
	Name       string      `json:"name" bson:"name"`
	Nodes      []NodeDoc   `json:"nodes" bson:"nodes"`
	Edges      []EdgeDoc   `json:"edges" bson:"edges"`
	Lanes      []LaneDoc   `json:"lanes" bson:"lanes"`
	Stats      *BuildStats `json:"stats,omitempty" bson:"stats,omitempty"`
}

// NodeDoc is a serialized Node.
type NodeDoc struct {
	ID            string     `json:"id" bson:"id"`
	Name          string     `json:"name" bson:"name"`
	Kind          NodeKind   `json:"kind" bson:"kind"`
	Type          ActionType `json:"type,omitempty" bson:"type,omitempty"`
	Documentation string     `json:"documentation,omitempty" bson:"documentation,omitempty"`
	Lane          string     `json:"lane,omitempty" bson:"lane,omitempty"`     // lane key
	Parent        string     `json:"parent,omitempty" bson:"parent,omitempty"` // parent node ID
	Reused        bool       `json:"reused,omitempty" bson:"reused,omitempty"`
	Rect          model.Rect `json:"rect" bson:"rect"`
	Inputs        []PortDoc  `json:"inputs,omitempty" bson:"inputs,omitempty"`
	Outputs       []PortDoc  `json:"outputs,omitempty" bson:"outputs,omitempty"`
}

// PortDoc is a serialized Port.
type PortDoc struct {
	ID   string     `json:"id" bson:"id"`
	Name string     `json:"name" bson:"name"`
	Rect model.Rect `json:"rect" bson:"rect"`
}

// EdgeDoc is a serialized Edge.
type EdgeDoc struct {
	ID     string `json:"id" bson:"id"`
	Source string `json:"source" bson:"source"`
	Target string `json:"target" bson:"target"`
}

// LaneDoc is a serialized Lane.
type LaneDoc struct {
	ID      string     `json:"id" bson:"id"`
	Key     string     `json:"key" bson:"key"`
	Members []string   `json:"members" bson:"members"`
	Rect    model.Rect `json:"rect" bson:"rect"`
}

// Export converts g to its wire form. Stats are included when g was built
// by a Builder.
func Export(g *Graph) Document {
	doc := Document{
		ActivityID: g.ActivityID,
		Name:       g.Name,
		Nodes:      make([]NodeDoc, 0, len(g.Nodes)),
		Edges:      make([]EdgeDoc, 0, len(g.Edges)),
		Lanes:      make([]LaneDoc, 0, len(g.Lanes)),
	}
	if g.stats != (BuildStats{}) {
		s := g.stats
		doc.Stats = &s
	}

	for _, n := range g.Nodes {
		nd := NodeDoc{
			ID:            n.ID,
			Name:          n.Name,
			Kind:          n.Kind,
			Type:          n.Type,
			Documentation: n.Documentation,
			Reused:        n.Reused,
			Rect:          n.Rect,
			Inputs:        exportPorts(n.Inputs),
			Outputs:       exportPorts(n.Outputs),
		}
		if n.Lane != nil {
			nd.Lane = n.Lane.Key
		}
		if n.Parent != nil {
			nd.Parent = n.Parent.ID
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	for _, e := range g.Edges {
		doc.Edges = append(doc.Edges, EdgeDoc{ID: e.ID, Source: e.Source.ID, Target: e.Target.ID})
	}
	for _, l := range g.Lanes {
		ld := LaneDoc{ID: l.ID, Key: l.Key, Members: make([]string, 0, len(l.Members)), Rect: l.Rect}
		for _, m := range l.Members {
			ld.Members = append(ld.Members, m.ID)
		}
		doc.Lanes = append(doc.Lanes, ld)
	}
	return doc
}

func exportPorts(ports []*Port) []PortDoc {
	if len(ports) == 0 {
		return nil
	}
	out := make([]PortDoc, len(ports))
	for i, p := range ports {
		out[i] = PortDoc{ID: p.ID, Name: p.Name, Rect: p.Rect}
	}
	return out
}

// =============================================================================
// Document Serialization API
// =============================================================================

// MarshalDocument converts a graph to indented JSON bytes.
func MarshalDocument(g *Graph) ([]byte, error) {
	return json.MarshalIndent(Export(g), "", "  ")
}

// WriteDocument writes a graph as JSON to w.
func WriteDocument(g *Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Export(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteDocumentFile writes a graph as JSON to path.
func WriteDocumentFile(g *Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteDocument(g, f)
}

// UnmarshalDocument decodes a Document from JSON.
func UnmarshalDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("unmarshal document: %w", err)
	}
	if doc.ActivityID == "" {
		return Document{}, fmt.Errorf("document has no activity_id")
	}
	return doc, nil
}
