package node

import "slices"

// Known attribute names of product nodes.
const (
	AttrASIN           = "asin"
	AttrTitle          = "title"
	AttrGlobalCategory = "global_category"
	AttrCategory       = "category"
	AttrPrice          = "price"
	AttrBrand          = "brand"
	AttrFeature        = "feature"
	AttrRank           = "rank"
	AttrDetails        = "details"
	AttrDescription    = "description"
	AttrReview         = "review"
	AttrQA             = "qa"

	// Derived from details at render time, never stored.
	AttrDimensions = "dimensions"
	AttrWeight     = "weight"
)

// Node type labels.
const (
	TypeProduct = "product"
	TypeBrand   = "brand"
)

// ProductAttributes lists the attributes a product record may carry.
var ProductAttributes = []string{
	AttrASIN, AttrTitle, AttrGlobalCategory, AttrCategory, AttrPrice, AttrBrand,
	AttrFeature, AttrRank, AttrDetails, AttrDescription, AttrReview, AttrQA,
	AttrDimensions, AttrWeight,
}

// IsProductAttribute reports whether attr is one of ProductAttributes.
func IsProductAttribute(attr string) bool {
	return slices.Contains(ProductAttributes, attr)
}

// NameAttr returns the single attribute carried by a synthetic node promoted
// from attribute kind, e.g. "brand" -> "brand_name".
func NameAttr(kind string) string {
	return kind + "_name"
}

// Record maps attribute names to values. Optional attributes are simply absent.
type Record map[string]Value

// NewProduct returns a record with the always-present review and qa lists.
func NewProduct() Record {
	return Record{
		AttrReview: Entries(),
		AttrQA:     Entries(),
	}
}

// Get returns the value of attr and whether it is present.
func (r Record) Get(attr string) (Value, bool) {
	v, ok := r[attr]
	return v, ok
}

// Has reports whether attr is present.
func (r Record) Has(attr string) bool {
	_, ok := r[attr]
	return ok
}

// Text returns the plain text of attr, or "" when absent.
func (r Record) Text(attr string) string {
	return r[attr].Text()
}

// Items returns the entries of attr, nil when absent or not an entries value.
func (r Record) Items(attr string) []Entry {
	return r[attr].Items()
}

// Append adds an entry to the entries attribute attr.
func (r Record) Append(attr string, e Entry) {
	cur := r[attr].Items()
	r[attr] = Entries(append(cur, e)...)
}
