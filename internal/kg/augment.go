package kg

import (
	"sort"

	"github.com/charmbracelet/log"

	"github.com/matsen/semikb/internal/catalog"
	"github.com/matsen/semikb/internal/edge"
	"github.com/matsen/semikb/internal/logging"
	"github.com/matsen/semikb/internal/node"
)

// EdgeLabel returns the edge-type label linking entities to synthetic nodes
// promoted from attribute kind.
func EdgeLabel(kind string) string {
	return "has_" + kind
}

// Augmenter promotes attribute values to first-class nodes. Each added kind
// gets node type baseNodeTypes+i and edge type baseEdgeTypes+i, where i is the
// order in which the kind was added.
type Augmenter struct {
	data          Data
	baseNodeTypes int
	baseEdgeTypes int
	added         int
	logger        *log.Logger
}

// NewAugmenter starts from a copy of base; base itself is never modified.
func NewAugmenter(base Data, logger *log.Logger) *Augmenter {
	d := Data{
		Nodes:        append([]node.Record(nil), base.Nodes...),
		NodeTypes:    append([]int(nil), base.NodeTypes...),
		NodeTypeDict: make(map[int]string, len(base.NodeTypeDict)),
		Edges:        append([]edge.Edge(nil), base.Edges...),
		EdgeTypeDict: make(map[int]string, len(base.EdgeTypeDict)),
		Keys:         append([]string(nil), base.Keys...),
		Selection: catalog.Selection{
			Review: append([]string(nil), base.Selection.Review...),
			QA:     append([]string(nil), base.Selection.QA...),
		},
	}
	for k, v := range base.NodeTypeDict {
		d.NodeTypeDict[k] = v
	}
	for k, v := range base.EdgeTypeDict {
		d.EdgeTypeDict[k] = v
	}
	return &Augmenter{
		data:          d,
		baseNodeTypes: len(base.NodeTypeDict),
		baseEdgeTypes: len(base.EdgeTypeDict),
		logger:        logging.OrDiscard(logger),
	}
}

// Add promotes every distinct value of attribute kind to a node carrying a
// single kind+"_name" attribute, and links each entity holding the value to
// it with a "has_"+kind edge. Synthetic nodes are appended in sorted value
// order. Brand values are normalised first. Only string and number values
// are promoted. It returns the number of nodes added.
func (a *Augmenter) Add(kind string) (int, error) {
	for _, label := range a.data.NodeTypeDict {
		if label == kind {
			return 0, invalidf("node type %q already present", kind)
		}
	}

	groups := make(map[string][]int)
	for id, rec := range a.data.Nodes {
		v, ok := rec.Get(kind)
		if !ok {
			continue
		}
		var value string
		switch v.Kind() {
		case node.KindString, node.KindNumber:
			value = v.Text()
		default:
			a.logger.Debug("skipping non-scalar attribute value", "kind", kind, "id", id, "type", v.Kind())
			continue
		}
		if kind == node.AttrBrand {
			value = NormalizeBrand(value)
		}
		if value == "" {
			continue
		}
		groups[value] = append(groups[value], id)
	}

	values := make([]string, 0, len(groups))
	for v := range groups {
		values = append(values, v)
	}
	sort.Strings(values)

	nodeType := a.baseNodeTypes + a.added
	edgeType := a.baseEdgeTypes + a.added
	a.data.NodeTypeDict[nodeType] = kind
	a.data.EdgeTypeDict[edgeType] = EdgeLabel(kind)
	a.added++

	attr := node.NameAttr(kind)
	for _, v := range values {
		id := len(a.data.Nodes)
		a.data.Nodes = append(a.data.Nodes, node.Record{attr: node.String(v)})
		a.data.NodeTypes = append(a.data.NodeTypes, nodeType)
		for _, member := range groups[v] {
			a.data.Edges = append(a.data.Edges, edge.Edge{Source: member, Target: id, Type: edgeType})
		}
	}

	a.logger.Debug("promoted attribute", "kind", kind, "nodes", len(values))
	return len(values), nil
}

// Data returns the augmented graph data.
func (a *Augmenter) Data() Data { return a.data }

// Augment applies Add for each kind in order.
func Augment(base Data, kinds []string, logger *log.Logger) (Data, error) {
	a := NewAugmenter(base, logger)
	for _, k := range kinds {
		if _, err := a.Add(k); err != nil {
			return Data{}, err
		}
	}
	return a.Data(), nil
}
