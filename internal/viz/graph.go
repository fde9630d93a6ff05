package viz

import (
	"fmt"
	"strconv"

	"github.com/matsen/semikb/internal/kg"
	"github.com/matsen/semikb/internal/node"
)

// Defaults for neighbourhood extraction.
const (
	DefaultDepth    = 1
	DefaultMaxNodes = 200
	labelMaxLen     = 40
)

// NeighborhoodOptions bounds the subgraph drawn around a node.
type NeighborhoodOptions struct {
	Depth     int      // hops from the centre
	MaxNodes  int      // stop expanding once this many nodes are collected
	Relations []string // edge labels to follow; empty follows all
}

// BuildNeighborhood collects the nodes within opts.Depth hops of center and
// every edge among them. Expansion is breadth-first in neighbour order, so
// the result is deterministic.
func BuildNeighborhood(g *kg.Graph, center int, opts NeighborhoodOptions) (*GraphData, error) {
	if _, err := g.Node(center); err != nil {
		return nil, err
	}
	if opts.Depth < 0 {
		return nil, fmt.Errorf("depth must be >= 0, got %d", opts.Depth)
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}
	relations := opts.Relations
	if len(relations) == 0 {
		relations = g.EdgeTypes()
	}

	depth := map[int]int{center: 0}
	order := []int{center}
	frontier := []int{center}

expand:
	for d := 1; d <= opts.Depth && len(frontier) > 0; d++ {
		var next []int
		for _, id := range frontier {
			for _, rel := range relations {
				ns, err := g.Neighbors(id, rel)
				if err != nil {
					return nil, err
				}
				for _, n := range ns {
					if _, seen := depth[n]; seen {
						continue
					}
					if len(order) >= opts.MaxNodes {
						break expand
					}
					depth[n] = d
					order = append(order, n)
					next = append(next, n)
				}
			}
		}
		frontier = next
	}

	follow := make(map[string]bool, len(relations))
	for _, r := range relations {
		follow[r] = true
	}

	data := g.Data()
	counts := make(map[int]int, len(order))
	var edges []Edge
	for _, e := range data.Edges {
		label := data.EdgeTypeDict[e.Type]
		if !follow[label] {
			continue
		}
		if _, ok := depth[e.Source]; !ok {
			continue
		}
		if _, ok := depth[e.Target]; !ok {
			continue
		}
		counts[e.Source]++
		counts[e.Target]++
		edges = append(edges, Edge{
			Source:           strconv.Itoa(e.Source),
			Target:           strconv.Itoa(e.Target),
			RelationshipType: label,
		})
	}

	nodes := make([]Node, 0, len(order))
	for _, id := range order {
		n, err := newNode(g, id)
		if err != nil {
			return nil, err
		}
		n.Depth = depth[id]
		n.Focus = id == center
		n.ConnectionCount = counts[id]
		nodes = append(nodes, n)
	}

	return &GraphData{Nodes: nodes, Edges: edges}, nil
}

// newNode creates a visualization node from a graph node.
func newNode(g *kg.Graph, id int) (Node, error) {
	rec, err := g.Node(id)
	if err != nil {
		return Node{}, err
	}
	typ, err := g.NodeType(id)
	if err != nil {
		return Node{}, err
	}
	key, _ := g.Key(id)

	n := Node{ID: strconv.Itoa(id), Type: typ, Key: key}
	if typ != node.TypeProduct {
		n.Label = rec.Text(node.NameAttr(typ))
		return n, nil
	}

	n.Title = rec.Text(node.AttrTitle)
	n.Brand = rec.Text(node.AttrBrand)
	n.Price = rec.Text(node.AttrPrice)
	n.Category = rec.Text(node.AttrGlobalCategory)
	n.Reviews = rec[node.AttrReview].Len()
	n.Label = shortLabel(n.Title, key)
	return n, nil
}

// shortLabel truncates a title for display, falling back to the key.
func shortLabel(title, key string) string {
	if title == "" {
		return key
	}
	r := []rune(title)
	if len(r) <= labelMaxLen {
		return title
	}
	return string(r[:labelMaxLen-3]) + "..."
}
