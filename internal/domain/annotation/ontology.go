package annotation

// OntologyNode is one node of a hierarchical label taxonomy. IDs, fullnames
// and colors are assigned by ontology initialization; relation trees may
// additionally carry domain/range constraints.
type OntologyNode struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	FullName    string          `json:"fullname"`
	Color       string          `json:"color"`
	Description string          `json:"description,omitempty"`
	Domain      []string        `json:"domain,omitempty"`
	Range       []string        `json:"range,omitempty"`
	Children    []*OntologyNode `json:"children,omitempty"`
}

// OntologyMeta is the denormalized display record embedded into markup
// output payloads.
type OntologyMeta struct {
	Name     string `json:"name"`
	FullName string `json:"fullname"`
	Color    string `json:"color"`
}
