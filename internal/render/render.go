// Package render turns graph nodes into bounded natural-language documents.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/matsen/semikb/internal/kg"
	"github.com/matsen/semikb/internal/node"
	"github.com/matsen/semikb/internal/textclean"
)

// DefaultMaxEntries bounds the reviews and Q&A shown per document.
const DefaultMaxEntries = 25

// Graph is the read-only view the renderer needs.
type Graph interface {
	Node(id int) (node.Record, error)
	NodeType(id int) (string, error)
	Neighbors(id int, label string) ([]int, error)
	EdgeTypes() []string
}

// Options controls Document output.
type Options struct {
	Relations bool // append the relations section
	Compact   bool // collapse redundant whitespace
}

// DefaultOptions renders relations without compaction.
func DefaultOptions() Options {
	return Options{Relations: true}
}

// Relation labels with a numbered list of neighbour titles, in output order.
var titledRelations = []struct {
	label   string
	heading string
}{
	{"also_buy", "products also purchased"},
	{"also_view", "products also viewed"},
}

// Renderer renders documents and chunks. It holds no mutable state and is
// safe for concurrent use.
type Renderer struct {
	g          Graph
	maxEntries int
}

// New creates a Renderer. Review and Q&A loops stop after the entry whose
// zero-based index exceeds maxEntries, so up to maxEntries+2 entries are
// shown.
func New(g Graph, maxEntries int) *Renderer {
	return &Renderer{g: g, maxEntries: maxEntries}
}

// capped reports whether a loop should stop after emitting index i.
func (r *Renderer) capped(i int) bool {
	return i > r.maxEntries
}

// Document renders node id. Synthetic nodes render as a single
// "<kind> name: <value>" line.
func (r *Renderer) Document(id int, opts Options) (string, error) {
	rec, err := r.g.Node(id)
	if err != nil {
		return "", err
	}
	typ, err := r.g.NodeType(id)
	if err != nil {
		return "", err
	}
	if typ != node.TypeProduct {
		return fmt.Sprintf("%s name: %s", typ, rec.Text(node.NameAttr(typ))), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "- product: %s\n", rec.Text(node.AttrTitle))
	if brand, ok := rec.Get(node.AttrBrand); ok {
		fmt.Fprintf(&b, "- brand: %s\n", brand.Text())
	}
	if dims, weight, ok := TryParseDimensions(rec); ok {
		fmt.Fprintf(&b, "- dimensions: %s\n- weight: %s\n", dims, weight)
	}
	if desc := strings.Trim(description(rec), " "); desc != "" {
		fmt.Fprintf(&b, "- description: %s\n", desc)
	}

	if features := filteredFeatures(rec); len(features) > 0 {
		b.WriteString("- features: \n")
		for _, f := range features {
			fmt.Fprintf(&b, "#%d: %s\n", f.index+1, f.text)
		}
	}

	if reviews := rec.Items(node.AttrReview); len(reviews) > 0 {
		b.WriteString("- reviews: \n")
		for i, idx := range rankByVote(reviews) {
			rv := reviews[idx]
			fmt.Fprintf(&b, "#%d:\nsummary: %s\ntext: \"%s\"\n", idx+1, rv.Text("summary"), rv.Text("reviewText"))
			if r.capped(i) {
				break
			}
		}
	}

	if qas := rec.Items(node.AttrQA); len(qas) > 0 {
		b.WriteString("- Q&A: \n")
		for i, qa := range qas {
			fmt.Fprintf(&b, "#%d:\nquestion: \"%s\"\nanswer: \"%s\"\n", i+1, qa.Text("question"), qa.Text("answer"))
			if r.capped(i) {
				break
			}
		}
	}

	if opts.Relations {
		rel, err := r.Relations(id)
		if err != nil {
			return "", err
		}
		b.WriteString(rel)
	}

	doc := b.String()
	if opts.Compact {
		doc = textclean.Compact(doc)
	}
	return doc, nil
}

// Relations renders the relations section of node id, or "" when it has no
// relations. Also-purchased and also-viewed neighbours are listed by title
// in discovery order; each promoted kind adds a "<kind>: <name>" line from
// its first neighbour.
func (r *Renderer) Relations(id int) (string, error) {
	var b strings.Builder

	for _, rel := range titledRelations {
		ns, err := r.g.Neighbors(id, rel.label)
		if err != nil {
			return "", err
		}
		if len(ns) == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %s: \n", rel.heading)
		for i, n := range ns {
			title, err := r.Title(n)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "#%d: %s\n", i+1, title)
		}
	}

	for _, label := range r.g.EdgeTypes() {
		kind, ok := strings.CutPrefix(label, "has_")
		if !ok {
			continue
		}
		ns, err := r.g.Neighbors(id, label)
		if err != nil {
			return "", err
		}
		if len(ns) == 0 {
			continue
		}
		rec, err := r.g.Node(ns[0])
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "  %s: %s\n", kind, rec.Text(node.NameAttr(kind)))
	}

	if b.Len() == 0 {
		return "", nil
	}
	return "- relations:\n" + b.String(), nil
}

// Title returns the title of node id, or its name for promoted nodes.
func (r *Renderer) Title(id int) (string, error) {
	rec, err := r.g.Node(id)
	if err != nil {
		return "", err
	}
	if t, ok := rec.Get(node.AttrTitle); ok {
		return t.Text(), nil
	}
	typ, err := r.g.NodeType(id)
	if err != nil {
		return "", err
	}
	return rec.Text(node.NameAttr(typ)), nil
}

// Chunk renders a single attribute of node id without labels. It returns ""
// when the node lacks the attribute.
func (r *Renderer) Chunk(id int, attr string) (string, error) {
	rec, err := r.g.Node(id)
	if err != nil {
		return "", err
	}

	switch attr {
	case node.AttrDimensions, node.AttrWeight:
		dims, weight, ok := TryParseDimensions(rec)
		if !ok {
			return "", nil
		}
		if attr == node.AttrDimensions {
			return dims, nil
		}
		return weight, nil
	}

	v, ok := rec.Get(attr)
	if !ok {
		return "", nil
	}

	switch attr {
	case node.AttrFeature:
		features := filteredFeatures(rec)
		texts := make([]string, len(features))
		for i, f := range features {
			texts[i] = f.text
		}
		return strings.Join(texts, " "), nil

	case node.AttrReview:
		reviews := v.Items()
		var b strings.Builder
		for i, idx := range rankByVote(reviews) {
			rv := reviews[idx]
			fmt.Fprintf(&b, "The review \"%s\" states that \"%s\". ", rv.Text("summary"), rv.Text("reviewText"))
			if r.capped(i) {
				break
			}
		}
		return b.String(), nil

	case node.AttrQA:
		var b strings.Builder
		for i, qa := range v.Items() {
			fmt.Fprintf(&b, "The question is \"%s\", and the answer is \"%s\". ", qa.Text("question"), qa.Text("answer"))
			if r.capped(i) {
				break
			}
		}
		return b.String(), nil

	case node.AttrDescription:
		return description(rec), nil
	}

	return v.Text(), nil
}

func description(rec node.Record) string {
	return strings.Join(rec[node.AttrDescription].Strings(), " ")
}

type feature struct {
	index int
	text  string
}

// filteredFeatures drops empty features and those mentioning "asin",
// keeping each survivor's original position.
func filteredFeatures(rec node.Record) []feature {
	var out []feature
	for i, f := range rec[node.AttrFeature].Strings() {
		if f == "" || strings.Contains(strings.ToLower(f), "asin") {
			continue
		}
		out = append(out, feature{index: i, text: f})
	}
	return out
}

// rankByVote returns review indices ordered by vote, highest first. Ties keep
// input order.
func rankByVote(reviews []node.Entry) []int {
	votes := make([]int, len(reviews))
	order := make([]int, len(reviews))
	for i, rv := range reviews {
		votes[i] = voteOf(rv)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return votes[order[a]] > votes[order[b]]
	})
	return order
}

var _ Graph = (*kg.Graph)(nil)
