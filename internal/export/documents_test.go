package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/matsen/semikb/internal/edge"
	"github.com/matsen/semikb/internal/kg"
	"github.com/matsen/semikb/internal/node"
	"github.com/matsen/semikb/internal/render"
)

func testGraph(t *testing.T, products int) *kg.Graph {
	t.Helper()
	d := kg.Data{
		NodeTypeDict: map[int]string{0: node.TypeProduct, 1: node.TypeBrand},
		EdgeTypeDict: map[int]string{0: "has_brand"},
	}
	for i := 0; i < products; i++ {
		p := node.NewProduct()
		p[node.AttrTitle] = node.String(fmt.Sprintf("Product %d", i))
		if i == 0 {
			p[node.AttrBrand] = node.String("Acme")
			p.Append(node.AttrReview, node.Entry{"summary": node.String("ok"), "reviewText": node.String("<fine>")})
		}
		d.Nodes = append(d.Nodes, p)
		d.NodeTypes = append(d.NodeTypes, 0)
		d.Keys = append(d.Keys, fmt.Sprintf("P%d", i))
	}
	d.Nodes = append(d.Nodes, node.Record{node.NameAttr(node.TypeBrand): node.String("Acme")})
	d.NodeTypes = append(d.NodeTypes, 1)
	d.Edges = []edge.Edge{{Source: 0, Target: products, Type: 0}}

	g, err := kg.New(d, true)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestWrite_Documents(t *testing.T) {
	g := testGraph(t, 3)
	r := render.New(g, render.DefaultMaxEntries)

	tests := []struct {
		name      string
		opts      Options
		wantLines int
		lastType  string
	}{
		{"all nodes", Options{Render: render.DefaultOptions()}, 4, node.TypeBrand},
		{"products only", Options{Products: true}, 3, node.TypeProduct},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := Write(context.Background(), &buf, g, r, tt.opts)
			if err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			lines := decodeLines(t, buf.Bytes())
			if n != tt.wantLines || len(lines) != tt.wantLines {
				t.Fatalf("Write() = %d lines (%d decoded), want %d", n, len(lines), tt.wantLines)
			}
			for i, l := range lines {
				if int(l["id"].(float64)) != i {
					t.Errorf("line %d has id %v, want id order", i, l["id"])
				}
			}
			if got := lines[len(lines)-1]["type"]; got != tt.lastType {
				t.Errorf("last type = %v, want %s", got, tt.lastType)
			}
		})
	}
}

func TestWrite_DocumentMatchesRenderer(t *testing.T) {
	g := testGraph(t, 1)
	r := render.New(g, render.DefaultMaxEntries)

	var buf bytes.Buffer
	if _, err := Write(context.Background(), &buf, g, r, Options{Render: render.DefaultOptions()}); err != nil {
		t.Fatal(err)
	}
	want, err := r.Document(0, render.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if got := decodeLines(t, buf.Bytes())[0]["document"]; got != want {
		t.Errorf("document = %q, want %q", got, want)
	}
	if !strings.Contains(buf.String(), "<fine>") {
		t.Error("HTML characters should be written unescaped")
	}
}

func TestWrite_Chunks(t *testing.T) {
	g := testGraph(t, 2)
	r := render.New(g, render.DefaultMaxEntries)

	var buf bytes.Buffer
	n, err := Write(context.Background(), &buf, g, r, Options{Chunks: true})
	if err != nil {
		t.Fatal(err)
	}

	// P0: title, brand, review. P1: title. Brand nodes have no chunks.
	lines := decodeLines(t, buf.Bytes())
	if n != 4 || len(lines) != 4 {
		t.Fatalf("Write() = %d lines, want 4", n)
	}
	var attrs []string
	for _, l := range lines {
		attrs = append(attrs, fmt.Sprintf("%s/%s", l["key"], l["attribute"]))
	}
	if got := strings.Join(attrs, ","); got != "P0/title,P0/brand,P0/review,P1/title" {
		t.Errorf("chunks = %s", got)
	}
}

func TestChunkAttributes(t *testing.T) {
	for _, attr := range ChunkAttributes {
		if !node.IsProductAttribute(attr) {
			t.Errorf("chunk attribute %q is not a product attribute", attr)
		}
	}
}

func TestWrite_ManyBatches(t *testing.T) {
	g := testGraph(t, batchSize*2+7)
	r := render.New(g, render.DefaultMaxEntries)

	var buf bytes.Buffer
	n, err := Write(context.Background(), &buf, g, r, Options{Products: true, Concurrency: 8})
	if err != nil {
		t.Fatal(err)
	}
	if n != batchSize*2+7 {
		t.Fatalf("Write() = %d lines, want %d", n, batchSize*2+7)
	}
	lines := decodeLines(t, buf.Bytes())
	if last := lines[len(lines)-1]["key"]; last != fmt.Sprintf("P%d", batchSize*2+6) {
		t.Errorf("last key = %v", last)
	}
}

func TestWrite_Cancelled(t *testing.T) {
	g := testGraph(t, 3)
	r := render.New(g, render.DefaultMaxEntries)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Write(ctx, &bytes.Buffer{}, g, r, Options{}); err == nil {
		t.Error("Write() with cancelled context should fail")
	}
}
