package kg

import (
	"unicode/utf8"

	"github.com/matsen/semikb/internal/catalog"
	"github.com/matsen/semikb/internal/edge"
	"github.com/matsen/semikb/internal/linker"
	"github.com/matsen/semikb/internal/node"
	"github.com/matsen/semikb/internal/source"
)

// Schema names the natural key, the columns copied into node records and the
// cross-reference columns that become edges.
type Schema struct {
	Key    string
	Meta   []string
	Review []string
	QA     []string
	Links  []string
}

// DefaultSchema returns the product catalog schema.
func DefaultSchema() Schema {
	return Schema{
		Key:    catalog.KeyColumn,
		Meta:   append([]string(nil), catalog.MetaColumns...),
		Review: append([]string(nil), catalog.ReviewColumns...),
		QA:     append([]string(nil), catalog.QAColumns...),
		Links:  append([]string(nil), catalog.LinkColumns...),
	}
}

// LinkerColumns returns the columns the linker must find in each collection.
func (s Schema) LinkerColumns() linker.Columns {
	meta := append([]string(nil), s.Meta...)
	meta = append(meta, s.Links...)
	return linker.Columns{
		Key:    s.Key,
		Meta:   meta,
		Review: append([]string(nil), s.Review...),
		QA:     append([]string(nil), s.QA...),
	}
}

// BuildNodeInfo builds one record per linked entity. Metadata columns are
// cleaned and copied; null values are omitted. Brands are normalised and kept
// only when longer than one character. Reviews and Q&A entries are appended
// in input order.
func BuildNodeInfo(l *linker.Linked, s Schema) []node.Record {
	records := make([]node.Record, l.Len())
	for i := range records {
		records[i] = node.NewProduct()
	}

	for _, m := range l.Meta {
		id, ok := l.ID(m.Key(s.Key))
		if !ok {
			continue
		}
		rec := records[id]
		for _, col := range s.Meta {
			v := node.FromAny(m[col]).Clean()
			if col == node.AttrBrand {
				brand := NormalizeBrand(v.Text())
				if utf8.RuneCountInString(brand) > 1 {
					rec[col] = node.String(brand)
				}
				continue
			}
			if v.IsNull() {
				continue
			}
			rec[col] = v
		}
	}

	appendEntries(records, l, s.Key, node.AttrReview, l.Review, s.Review)
	appendEntries(records, l, s.Key, node.AttrQA, l.QA, s.QA)
	return records
}

func appendEntries(records []node.Record, l *linker.Linked, key, attr string, recs []source.RawRecord, cols []string) {
	for _, r := range recs {
		id, ok := l.ID(r.Key(key))
		if !ok {
			continue
		}
		e := make(node.Entry, len(cols))
		for _, col := range cols {
			e[col] = node.FromAny(r[col]).Clean()
		}
		records[id].Append(attr, e)
	}
}

// BuildEdges emits one edge per cross-reference from an entity to another
// linked entity. Edge type i corresponds to links[i]. Unknown references and
// non-list link values are skipped.
func BuildEdges(l *linker.Linked, key string, links []string) ([]edge.Edge, map[int]string) {
	types := make(map[int]string, len(links))
	for i, col := range links {
		types[i] = col
	}

	var edges []edge.Edge
	for _, m := range l.Meta {
		src, ok := l.ID(m.Key(key))
		if !ok {
			continue
		}
		for typ, col := range links {
			for _, ref := range linkRefs(m[col]) {
				if dst, ok := l.ID(ref); ok {
					edges = append(edges, edge.Edge{Source: src, Target: dst, Type: typ})
				}
			}
		}
	}
	return edges, types
}

// linkRefs returns the string references of a decoded list value.
func linkRefs(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		refs := make([]string, 0, len(t))
		for _, ref := range t {
			if s, ok := ref.(string); ok {
				refs = append(refs, s)
			}
		}
		return refs
	}
	return nil
}

// BuildBase assembles the base product graph data: every entity is a product
// and the edge types are the link columns.
func BuildBase(l *linker.Linked, s Schema) Data {
	nodes := BuildNodeInfo(l, s)
	edges, edgeTypes := BuildEdges(l, s.Key, s.Links)
	return Data{
		Nodes:        nodes,
		NodeTypes:    make([]int, len(nodes)),
		NodeTypeDict: map[int]string{0: node.TypeProduct},
		Edges:        edges,
		EdgeTypeDict: edgeTypes,
		Keys:         append([]string(nil), l.Keys...),
	}
}
