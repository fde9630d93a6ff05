package node

import (
	"encoding/json"
	"testing"
)

func TestFromAny(t *testing.T) {
	tests := []struct {
		name     string
		in       any
		wantKind Kind
		wantText string
	}{
		{"nil", nil, KindNull, ""},
		{"string", "Tent", KindString, "Tent"},
		{"number", float64(4.5), KindNumber, "4.5"},
		{"integral number", float64(12), KindNumber, "12"},
		{"bool", true, KindString, "true"},
		{"list", []any{"a", "b"}, KindList, "a, b"},
		{"mixed list", []any{"a", float64(2)}, KindList, "a, 2"},
		{"dict", map[string]any{"b": "2", "a": "1"}, KindDict, "a: 1; b: 2"},
		{"entries", []any{map[string]any{"vote": "3"}}, KindEntries, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := FromAny(tt.in)
			if v.Kind() != tt.wantKind {
				t.Errorf("Kind() = %v, want %v", v.Kind(), tt.wantKind)
			}
			if got := v.Text(); got != tt.wantText {
				t.Errorf("Text() = %q, want %q", got, tt.wantText)
			}
		})
	}
}

func TestValue_Clean(t *testing.T) {
	v := FromAny(map[string]any{"\n  Product Dimensions: \n": " 10 x 2 inches ; 3 pounds "})
	got := v.Clean().Map()
	if got["Product Dimensions:"] != "10 x 2 inches ; 3 pounds" {
		t.Errorf("Clean() dict = %#v", got)
	}

	entries := Entries(Entry{"summary": String("  ok  "), "vote": Null()}).Clean()
	if s := entries.Items()[0].Text("summary"); s != "ok" {
		t.Errorf("cleaned entry summary = %q, want ok", s)
	}
	if !entries.Items()[0]["vote"].IsNull() {
		t.Error("null field should stay null after Clean")
	}
}

func TestIsProductAttribute(t *testing.T) {
	for _, attr := range []string{AttrTitle, AttrReview, AttrDimensions, AttrWeight} {
		if !IsProductAttribute(attr) {
			t.Errorf("IsProductAttribute(%q) = false", attr)
		}
	}
	for _, attr := range []string{"", "brand_name", "Title"} {
		if IsProductAttribute(attr) {
			t.Errorf("IsProductAttribute(%q) = true", attr)
		}
	}
}

func TestValue_Len(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want int
	}{
		{"string", String("héllo"), 5},
		{"list", List("a", "b"), 2},
		{"entries", Entries(Entry{}, Entry{}, Entry{}), 3},
		{"dict", Dict(map[string]string{"a": "1"}), 1},
		{"number", Number(3), 0},
		{"missing", Record{}[AttrReview], 0},
	}
	for _, tt := range tests {
		if got := tt.v.Len(); got != tt.want {
			t.Errorf("%s: Len() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestValue_CleanCollidingKeys(t *testing.T) {
	v := Dict(map[string]string{"Weight ": "2 pounds", "Weight": "3 pounds", " Color": "red"})
	for i := 0; i < 20; i++ {
		got := v.Clean().Map()
		if len(got) != 2 || got["Weight"] != "3 pounds" || got["Color"] != "red" {
			t.Fatalf("Clean() dict = %#v", got)
		}
	}
}

func TestRecord_JSONRoundTrip(t *testing.T) {
	r := NewProduct()
	r[AttrTitle] = String("Tent")
	r[AttrFeature] = List("Waterproof", "Light")
	r[AttrDetails] = Dict(map[string]string{"Product Dimensions:": "1 x 2 ; 3 pounds"})
	r[AttrPrice] = Number(19.99)
	r.Append(AttrReview, Entry{"summary": String("Great"), "vote": Null()})

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got Record
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got.Text(AttrTitle) != "Tent" {
		t.Errorf("title = %q", got.Text(AttrTitle))
	}
	if len(got[AttrFeature].Strings()) != 2 {
		t.Errorf("feature = %v", got[AttrFeature].Strings())
	}
	if n, ok := got[AttrPrice].Num(); !ok || n != 19.99 {
		t.Errorf("price = %v, %v", n, ok)
	}
	if reviews := got.Items(AttrReview); len(reviews) != 1 || reviews[0].Text("summary") != "Great" {
		t.Errorf("review = %#v", reviews)
	}
	if !got.Has(AttrQA) || got[AttrQA].Len() != 0 {
		t.Errorf("qa should be present and empty, got %#v", got[AttrQA])
	}

	again, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(again) != string(data) {
		t.Errorf("re-encoding differs:\n%s\n%s", data, again)
	}
}

func TestRecord_Get(t *testing.T) {
	r := Record{AttrTitle: String("Tent")}
	if _, ok := r.Get(AttrBrand); ok {
		t.Error("Get(brand) reported present on record without brand")
	}
	if v, ok := r.Get(AttrTitle); !ok || v.Text() != "Tent" {
		t.Errorf("Get(title) = %v, %v", v, ok)
	}
	if NameAttr("brand") != "brand_name" {
		t.Errorf("NameAttr(brand) = %q", NameAttr("brand"))
	}
}
