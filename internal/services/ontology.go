package services

import (
	"encoding/json"
	"fmt"

	types "github.com/nlp-tlp/quickgraph-sub000/internal/domain"
)

// defaultPalette colors top-level ontology branches; children inherit their
// parent's color unless one was provided.
var defaultPalette = []string{
	"#ef4444", "#f97316", "#eab308", "#22c55e", "#14b8a6",
	"#3b82f6", "#8b5cf6", "#ec4899", "#64748b", "#a16207",
}

// InitializeOntology assigns ids, fullnames and colors to an ontology tree.
// It never mutates the input: the returned tree is a deep copy, and calling
// it twice on the same input yields equal results.
func InitializeOntology(nodes []*types.OntologyNode) []*types.OntologyNode {
	return initializeLevel(nodes, "", "", "")
}

func initializeLevel(nodes []*types.OntologyNode, parentID, parentFullName, parentColor string) []*types.OntologyNode {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]*types.OntologyNode, 0, len(nodes))
	for i, n := range nodes {
		if n == nil {
			continue
		}
		cp := &types.OntologyNode{
			Name:        n.Name,
			Description: n.Description,
			Domain:      append([]string(nil), n.Domain...),
			Range:       append([]string(nil), n.Range...),
		}

		if parentID == "" {
			cp.ID = fmt.Sprintf("%d", i+1)
			cp.FullName = n.Name
		} else {
			cp.ID = fmt.Sprintf("%s.%d", parentID, i+1)
			cp.FullName = parentFullName + "/" + n.Name
		}

		cp.Color = n.Color
		if cp.Color == "" {
			if parentColor != "" {
				cp.Color = parentColor
			} else {
				cp.Color = defaultPalette[i%len(defaultPalette)]
			}
		}

		cp.Children = initializeLevel(n.Children, cp.ID, cp.FullName, cp.Color)
		out = append(out, cp)
	}
	return out
}

// FlattenOntology builds the id -> display metadata lookup used to enrich
// markup output records.
func FlattenOntology(nodes []*types.OntologyNode) map[string]types.OntologyMeta {
	flat := make(map[string]types.OntologyMeta)
	flattenInto(nodes, flat)
	return flat
}

func flattenInto(nodes []*types.OntologyNode, flat map[string]types.OntologyMeta) {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		flat[n.ID] = types.OntologyMeta{Name: n.Name, FullName: n.FullName, Color: n.Color}
		flattenInto(n.Children, flat)
	}
}

// DecodeOntology parses a project's jsonb ontology column.
func DecodeOntology(raw []byte) ([]*types.OntologyNode, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var nodes []*types.OntologyNode
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return nil, fmt.Errorf("decode ontology: %w", err)
	}
	return nodes, nil
}
