// Package viz renders neighbourhoods of the knowledge graph as interactive
// Cytoscape.js pages.
package viz

// GraphData contains all data needed to render the visualization.
type GraphData struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node represents a product or promoted attribute node.
type Node struct {
	ID   string `json:"id"`   // numeric node id as a string
	Type string `json:"type"` // node-type label ("product", "brand", ...)

	// Display
	Label string `json:"label"`

	// Product-specific fields (for tooltips)
	Key      string `json:"key,omitempty"`
	Title    string `json:"title,omitempty"`
	Brand    string `json:"brand,omitempty"`
	Price    string `json:"price,omitempty"`
	Category string `json:"category,omitempty"`
	Reviews  int    `json:"reviews,omitempty"`

	// Hops from the centre node
	Depth int  `json:"depth"`
	Focus bool `json:"focus,omitempty"`

	// Sizing
	ConnectionCount int `json:"connectionCount"`
}

// Edge represents a typed relation between two nodes.
type Edge struct {
	Source           string `json:"source"`
	Target           string `json:"target"`
	RelationshipType string `json:"relationshipType"`
}

// IsEmpty returns true if the graph has no nodes.
func (g *GraphData) IsEmpty() bool {
	return len(g.Nodes) == 0
}
