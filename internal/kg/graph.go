// Package kg builds and serves the semi-structured product knowledge graph.
package kg

import (
	"sort"

	"github.com/matsen/semikb/internal/catalog"
	"github.com/matsen/semikb/internal/edge"
	"github.com/matsen/semikb/internal/node"
)

// Data is the persisted content of a graph.
type Data struct {
	Nodes        []node.Record
	NodeTypes    []int
	NodeTypeDict map[int]string
	Edges        []edge.Edge
	EdgeTypeDict map[int]string
	// Keys maps product ids to natural keys; synthetic nodes have "".
	Keys []string
	// Selection records the archives the graph was built from.
	Selection catalog.Selection
}

// Validate checks that node types, edges and keys agree with the node count
// and the type dictionaries.
func (d Data) Validate() error {
	n := len(d.Nodes)
	if len(d.NodeTypes) != n {
		return invalidf("%d node types for %d nodes", len(d.NodeTypes), n)
	}
	if len(d.Keys) > n {
		return invalidf("%d keys for %d nodes", len(d.Keys), n)
	}
	if err := contiguous("node type", d.NodeTypeDict); err != nil {
		return err
	}
	if err := contiguous("edge type", d.EdgeTypeDict); err != nil {
		return err
	}
	for i, t := range d.NodeTypes {
		if _, ok := d.NodeTypeDict[t]; !ok {
			return invalidf("node %d has unknown type %d", i, t)
		}
	}
	for i, e := range d.Edges {
		if err := e.Validate(n, len(d.EdgeTypeDict)); err != nil {
			return invalidf("edge %d: %v", i, err)
		}
	}
	return nil
}

func contiguous(what string, dict map[int]string) error {
	for i := 0; i < len(dict); i++ {
		if _, ok := dict[i]; !ok {
			return invalidf("%s ids are not contiguous: missing %d", what, i)
		}
	}
	return nil
}

type halfEdge struct {
	other int
	typ   int
}

// Graph is an immutable, indexed view of Data. It is safe for concurrent
// readers.
type Graph struct {
	data       Data
	undirected bool
	out        [][]halfEdge
	in         [][]halfEdge
	keyIndex   map[string]int
	edgeLabels map[string]int
	nodeLabels map[string]int
}

// New validates d and indexes it. When undirected is set, Neighbors also
// follows edges backwards.
func New(d Data, undirected bool) (*Graph, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	g := &Graph{
		data:       d,
		undirected: undirected,
		out:        make([][]halfEdge, len(d.Nodes)),
		in:         make([][]halfEdge, len(d.Nodes)),
		keyIndex:   make(map[string]int, len(d.Keys)),
		edgeLabels: invert(d.EdgeTypeDict),
		nodeLabels: invert(d.NodeTypeDict),
	}
	for _, e := range d.Edges {
		g.out[e.Source] = append(g.out[e.Source], halfEdge{other: e.Target, typ: e.Type})
		r := e.Reverse()
		g.in[r.Source] = append(g.in[r.Source], halfEdge{other: r.Target, typ: r.Type})
	}
	for id, k := range d.Keys {
		if k == "" {
			continue
		}
		if _, dup := g.keyIndex[k]; dup {
			return nil, invalidf("duplicate natural key %q", k)
		}
		g.keyIndex[k] = id
	}
	return g, nil
}

func invert(dict map[int]string) map[string]int {
	out := make(map[string]int, len(dict))
	for id, label := range dict {
		out[label] = id
	}
	return out
}

// Data returns the graph content. Callers must not modify it.
func (g *Graph) Data() Data { return g.data }

// Len returns the number of entities.
func (g *Graph) Len() int { return len(g.data.Nodes) }

// Undirected reports whether neighbour lookups follow edges both ways.
func (g *Graph) Undirected() bool { return g.undirected }

func (g *Graph) check(id int) error {
	if id < 0 || id >= len(g.data.Nodes) {
		return &IndexError{ID: id, Len: len(g.data.Nodes)}
	}
	return nil
}

// Node returns the record of entity id.
func (g *Graph) Node(id int) (node.Record, error) {
	if err := g.check(id); err != nil {
		return nil, err
	}
	return g.data.Nodes[id], nil
}

// NodeType returns the node-type label of entity id.
func (g *Graph) NodeType(id int) (string, error) {
	if err := g.check(id); err != nil {
		return "", err
	}
	return g.data.NodeTypeDict[g.data.NodeTypes[id]], nil
}

// Key returns the natural key of entity id, "" for synthetic nodes.
func (g *Graph) Key(id int) (string, error) {
	if err := g.check(id); err != nil {
		return "", err
	}
	if id < len(g.data.Keys) {
		return g.data.Keys[id], nil
	}
	return "", nil
}

// LookupID resolves a natural key.
func (g *Graph) LookupID(key string) (int, error) {
	id, ok := g.keyIndex[key]
	if !ok {
		return 0, &UnknownKeyError{Key: key}
	}
	return id, nil
}

// EdgeTypes returns the edge-type labels ordered by id.
func (g *Graph) EdgeTypes() []string {
	return labels(g.data.EdgeTypeDict)
}

// NodeTypes returns the node-type labels ordered by id.
func (g *Graph) NodeTypes() []string {
	return labels(g.data.NodeTypeDict)
}

func labels(dict map[int]string) []string {
	out := make([]string, len(dict))
	for id, label := range dict {
		out[id] = label
	}
	return out
}

// Neighbors returns the entities related to id by edges labelled label:
// targets of outgoing edges in edge order, then, for undirected graphs,
// sources of incoming edges. Each neighbour appears once. An unknown label
// yields no neighbours.
func (g *Graph) Neighbors(id int, label string) ([]int, error) {
	if err := g.check(id); err != nil {
		return nil, err
	}
	typ, ok := g.edgeLabels[label]
	if !ok {
		return nil, nil
	}

	seen := make(map[int]bool)
	var out []int
	collect := func(hs []halfEdge) {
		for _, h := range hs {
			if h.typ != typ || seen[h.other] {
				continue
			}
			seen[h.other] = true
			out = append(out, h.other)
		}
	}
	collect(g.out[id])
	if g.undirected {
		collect(g.in[id])
	}
	return out, nil
}

// HasRelation reports whether other is a label-neighbour of id. Invalid ids
// report false.
func (g *Graph) HasRelation(id int, label string, other int) bool {
	ns, err := g.Neighbors(id, label)
	if err != nil {
		return false
	}
	for _, n := range ns {
		if n == other {
			return true
		}
	}
	return false
}

// BrandMatches reports whether entity id carries brand, compared with
// SameBrand. Entities without a brand report false.
func (g *Graph) BrandMatches(id int, brand string) bool {
	rec, err := g.Node(id)
	if err != nil {
		return false
	}
	b, ok := rec[node.AttrBrand].Str()
	if !ok {
		return false
	}
	return SameBrand(b, brand)
}

// Stats summarises a graph.
type Stats struct {
	Nodes      int            `json:"nodes"`
	Edges      int            `json:"edges"`
	NodeTypes  map[string]int `json:"node_types"`
	EdgeTypes  map[string]int `json:"edge_types"`
	Reviews    int            `json:"reviews"`
	QA         int            `json:"qa"`
	Undirected bool           `json:"undirected"`
}

// Stats counts nodes and edges per type.
func (g *Graph) Stats() Stats {
	s := Stats{
		Nodes:      len(g.data.Nodes),
		Edges:      len(g.data.Edges),
		NodeTypes:  make(map[string]int, len(g.data.NodeTypeDict)),
		EdgeTypes:  make(map[string]int, len(g.data.EdgeTypeDict)),
		Undirected: g.undirected,
	}
	for _, label := range g.data.NodeTypeDict {
		s.NodeTypes[label] = 0
	}
	for _, label := range g.data.EdgeTypeDict {
		s.EdgeTypes[label] = 0
	}
	for i, t := range g.data.NodeTypes {
		s.NodeTypes[g.data.NodeTypeDict[t]]++
		rec := g.data.Nodes[i]
		s.Reviews += len(rec.Items(node.AttrReview))
		s.QA += len(rec.Items(node.AttrQA))
	}
	for _, e := range g.data.Edges {
		s.EdgeTypes[g.data.EdgeTypeDict[e.Type]]++
	}
	return s
}

// SortedLabels returns the keys of a count map in sorted order.
func SortedLabels(counts map[string]int) []string {
	out := make([]string, 0, len(counts))
	for k := range counts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
