package services

import (
	"reflect"
	"testing"

	types "github.com/nlp-tlp/quickgraph-sub000/internal/domain"
)

func sampleTree() []*types.OntologyNode {
	return []*types.OntologyNode{
		{
			Name:  "Item",
			Color: "#112233",
			Children: []*types.OntologyNode{
				{Name: "RotatingEquipment", Children: []*types.OntologyNode{
					{Name: "Pump"},
				}},
			},
		},
		{Name: "Activity"},
	}
}

func TestInitializeOntologyAssignsPathIDs(t *testing.T) {
	out := InitializeOntology(sampleTree())

	if out[0].ID != "1" || out[1].ID != "2" {
		t.Fatalf("root ids: got %q %q", out[0].ID, out[1].ID)
	}
	rotating := out[0].Children[0]
	pump := rotating.Children[0]
	if rotating.ID != "1.1" || pump.ID != "1.1.1" {
		t.Fatalf("child ids: got %q %q", rotating.ID, pump.ID)
	}
	if pump.FullName != "Item/RotatingEquipment/Pump" {
		t.Fatalf("fullname: got %q", pump.FullName)
	}
}

func TestInitializeOntologyColors(t *testing.T) {
	out := InitializeOntology(sampleTree())

	// Children inherit the explicit parent color.
	if got := out[0].Children[0].Children[0].Color; got != "#112233" {
		t.Fatalf("inherited color: got %q", got)
	}
	// Roots without a color draw from the palette by position.
	if got := out[1].Color; got != defaultPalette[1] {
		t.Fatalf("palette color: want=%q got=%q", defaultPalette[1], got)
	}
}

func TestInitializeOntologyIsPure(t *testing.T) {
	in := sampleTree()
	first := InitializeOntology(in)
	second := InitializeOntology(in)

	if in[0].ID != "" || in[0].Children[0].ID != "" {
		t.Fatalf("input tree was mutated: %+v", in[0])
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("two runs over the same input differ")
	}
}

func TestFlattenOntology(t *testing.T) {
	flat := FlattenOntology(InitializeOntology(sampleTree()))

	if len(flat) != 4 {
		t.Fatalf("flat size: want=4 got=%d", len(flat))
	}
	meta, ok := flat["1.1.1"]
	if !ok {
		t.Fatalf("missing leaf id")
	}
	if meta.Name != "Pump" || meta.FullName != "Item/RotatingEquipment/Pump" {
		t.Fatalf("leaf meta: %+v", meta)
	}
}

func TestDecodeOntology(t *testing.T) {
	nodes, err := DecodeOntology([]byte(`[{"name":"Item","children":[{"name":"Pump"}]}]`))
	if err != nil {
		t.Fatalf("DecodeOntology: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Name != "Item" || len(nodes[0].Children) != 1 {
		t.Fatalf("decoded tree: %+v", nodes)
	}

	if _, err := DecodeOntology([]byte(`{broken`)); err == nil {
		t.Fatalf("malformed input must error")
	}
	nodes, err = DecodeOntology(nil)
	if err != nil || nodes != nil {
		t.Fatalf("empty input: want nil,nil got %v,%v", nodes, err)
	}
}
