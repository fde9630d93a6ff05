package storage

import (
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/matsen/semikb/internal/catalog"
	"github.com/matsen/semikb/internal/edge"
	"github.com/matsen/semikb/internal/kg"
	"github.com/matsen/semikb/internal/node"
)

func testData() kg.Data {
	widget := node.NewProduct()
	widget[node.AttrASIN] = node.String("A1")
	widget[node.AttrTitle] = node.String("Widget")
	widget[node.AttrBrand] = node.String("Acme")
	widget[node.AttrPrice] = node.Number(9.5)
	widget[node.AttrFeature] = node.List("sturdy", "blue")
	widget[node.AttrDetails] = node.Dict(map[string]string{"Product Dimensions:": "1 x 2 x 3 inches ; 4 ounces"})
	widget.Append(node.AttrReview, node.Entry{"summary": node.String("great"), "vote": node.String("1,024")})

	gadget := node.NewProduct()
	gadget[node.AttrASIN] = node.String("B2")
	gadget[node.AttrTitle] = node.String("Gadget <deluxe>")
	gadget.Append(node.AttrQA, node.Entry{"question": node.String("Waterproof?"), "answer": node.Null()})

	return kg.Data{
		Nodes:        []node.Record{widget, gadget, {"brand_name": node.String("Acme")}},
		NodeTypes:    []int{0, 0, 1},
		NodeTypeDict: map[int]string{0: "product", 1: "brand"},
		Edges: []edge.Edge{
			{Source: 0, Target: 1, Type: 0},
			{Source: 1, Target: 0, Type: 1},
			{Source: 0, Target: 2, Type: 2},
		},
		EdgeTypeDict: map[int]string{0: "also_buy", 1: "also_view", 2: "has_brand"},
		Keys:         []string{"A1", "B2"},
		Selection:    catalog.Selection{Review: []string{"Appliances"}, QA: []string{"Appliances"}},
	}
}

func TestBundle_RoundTrip(t *testing.T) {
	d := testData()

	data, err := EncodeBundle(d)
	if err != nil {
		t.Fatalf("EncodeBundle() error = %v", err)
	}

	got, err := DecodeBundle(data)
	if err != nil {
		t.Fatalf("DecodeBundle() error = %v", err)
	}

	if len(got.Nodes) != 3 || len(got.Edges) != 3 {
		t.Fatalf("decoded %d nodes, %d edges", len(got.Nodes), len(got.Edges))
	}
	if got.Nodes[0].Text(node.AttrTitle) != "Widget" {
		t.Errorf("title = %q", got.Nodes[0].Text(node.AttrTitle))
	}
	if got.Nodes[1].Text(node.AttrTitle) != "Gadget <deluxe>" {
		t.Errorf("title = %q", got.Nodes[1].Text(node.AttrTitle))
	}
	if got.Nodes[0].Items(node.AttrReview)[0].Text("vote") != "1,024" {
		t.Errorf("review vote lost")
	}
	if len(got.Keys) != 2 || got.Keys[1] != "B2" {
		t.Errorf("Keys = %v", got.Keys)
	}
	if got.EdgeTypeDict[2] != "has_brand" || got.NodeTypes[2] != 1 {
		t.Errorf("dicts not preserved: %v %v", got.EdgeTypeDict, got.NodeTypes)
	}
	if !got.Selection.Equal(d.Selection) {
		t.Errorf("Selection = %+v, want %+v", got.Selection, d.Selection)
	}
	if got.Edges[2] != d.Edges[2] {
		t.Errorf("edge = %+v, want %+v", got.Edges[2], d.Edges[2])
	}

	again, err := EncodeBundle(got)
	if err != nil {
		t.Fatalf("EncodeBundle() second pass error = %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Error("re-encoding a decoded bundle is not byte-identical")
	}
}

func TestBundle_Deterministic(t *testing.T) {
	first, err := EncodeBundle(testData())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		next, err := EncodeBundle(testData())
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first, next) {
			t.Fatalf("encoding %d differs from the first", i)
		}
	}
}

func TestBundle_Empty(t *testing.T) {
	d := kg.Data{NodeTypeDict: map[int]string{}, EdgeTypeDict: map[int]string{}}
	data, err := EncodeBundle(d)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeBundle(data)
	if err != nil {
		t.Fatalf("DecodeBundle() error = %v", err)
	}
	if len(got.Nodes) != 0 || len(got.Edges) != 0 || got.Keys != nil {
		t.Errorf("got %+v", got)
	}
}

func TestBundle_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not zstd", []byte("plain text")},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeBundle(tt.data); !errors.Is(err, ErrCorrupt) {
				t.Errorf("DecodeBundle() error = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestBundle_Truncated(t *testing.T) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	zw.Write([]byte(`{"format":"semikb-bundle","version":1,"nodes":2,"edges":0,"node_type_dict":{"0":"product"},"edge_type_dict":{}}` + "\n"))
	zw.Write([]byte(`{"id":0,"type":0,"attrs":{}}` + "\n"))
	zw.Close()

	if _, err := DecodeBundle(buf.Bytes()); !errors.Is(err, ErrCorrupt) {
		t.Errorf("DecodeBundle() error = %v, want ErrCorrupt", err)
	}
}

func TestBundle_UnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	zw.Write([]byte(`{"format":"semikb-bundle","version":99,"nodes":0,"edges":0}` + "\n"))
	zw.Close()

	if _, err := DecodeBundle(buf.Bytes()); !errors.Is(err, ErrCorrupt) {
		t.Errorf("DecodeBundle() error = %v, want ErrCorrupt", err)
	}
}
