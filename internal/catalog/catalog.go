// Package catalog defines the supported product categories and the columns
// each raw record collection must provide.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// All selects every supported category.
const All = "all"

// ReviewCategories have review and metadata archives.
var ReviewCategories = []string{
	"All_Beauty",
	"Amazon_Fashion",
	"Appliances",
	"Arts_Crafts_and_Sewing",
	"Automotive",
	"Books",
	"CDs_and_Vinyl",
	"Cell_Phones_and_Accessories",
	"Clothing_Shoes_and_Jewelry",
	"Digital_Music",
	"Electronics",
	"Gift_Cards",
	"Grocery_and_Gourmet_Food",
	"Home_and_Kitchen",
	"Industrial_and_Scientific",
	"Kindle_Store",
	"Luxury_Beauty",
	"Magazine_Subscriptions",
	"Movies_and_TV",
	"Musical_Instruments",
	"Office_Products",
	"Patio_Lawn_and_Garden",
	"Pet_Supplies",
	"Prime_Pantry",
	"Software",
	"Sports_and_Outdoors",
	"Tools_and_Home_Improvement",
	"Toys_and_Games",
	"Video_Games",
}

// QACategories have question/answer archives.
var QACategories = []string{
	"Appliances",
	"Arts_Crafts_and_Sewing",
	"Automotive",
	"Baby",
	"Beauty",
	"Cell_Phones_and_Accessories",
	"Clothing_Shoes_and_Jewelry",
	"Electronics",
	"Grocery_and_Gourmet_Food",
	"Health_and_Personal_Care",
	"Home_and_Kitchen",
	"Musical_Instruments",
	"Office_Products",
	"Patio_Lawn_and_Garden",
	"Pet_Supplies",
	"Sports_and_Outdoors",
	"Tools_and_Home_Improvement",
	"Toys_and_Games",
	"Video_Games",
}

// CommonCategories are the categories that can be selected individually:
// those with review, metadata and Q&A archives.
var CommonCategories = []string{
	"Appliances",
	"Arts_Crafts_and_Sewing",
	"Automotive",
	"Cell_Phones_and_Accessories",
	"Clothing_Shoes_and_Jewelry",
	"Electronics",
	"Grocery_and_Gourmet_Food",
	"Home_and_Kitchen",
	"Musical_Instruments",
	"Office_Products",
	"Patio_Lawn_and_Garden",
	"Pet_Supplies",
	"Sports_and_Outdoors",
	"Tools_and_Home_Improvement",
	"Toys_and_Games",
	"Video_Games",
}

// Natural key shared by all three collections.
const KeyColumn = "asin"

// Declared columns per collection.
var (
	LinkColumns   = []string{"also_buy", "also_view"}
	ReviewColumns = []string{"reviewerID", "summary", "reviewText", "vote", "overall", "verified", "reviewTime"}
	QAColumns     = []string{"questionType", "answerType", "question", "answer", "answerTime"}
	MetaColumns   = []string{"asin", "title", "global_category", "category", "price", "brand", "feature", "rank", "details", "description"}
)

// ErrInvalidCategory is returned when a requested category is not supported.
var ErrInvalidCategory = errors.New("invalid category")

// InvalidCategoryError names the unsupported categories of a request.
type InvalidCategoryError struct {
	Categories []string
}

func (e *InvalidCategoryError) Error() string {
	if len(e.Categories) == 0 {
		return "invalid category: no categories requested"
	}
	return fmt.Sprintf("invalid category: %s (supported: %s or %q)",
		strings.Join(e.Categories, ", "), strings.Join(CommonCategories, ", "), All)
}

// Unwrap lets errors.Is match ErrInvalidCategory.
func (e *InvalidCategoryError) Unwrap() error { return ErrInvalidCategory }

// Selection is the resolved set of archives to read.
type Selection struct {
	Review []string `json:"review,omitempty"` // categories whose metadata and reviews are read
	QA     []string `json:"qa,omitempty"`     // categories whose Q&A is read
}

// Equal reports whether s and o select the same archives in the same order.
func (s Selection) Equal(o Selection) bool {
	return slices.Equal(s.Review, o.Review) && slices.Equal(s.QA, o.QA)
}

// Resolve validates requested categories against the allow-list.
// The literal "all" selects every review category and every Q&A category.
func Resolve(categories []string) (Selection, error) {
	if len(categories) == 0 {
		return Selection{}, &InvalidCategoryError{}
	}

	for _, c := range categories {
		if c == All {
			return Selection{
				Review: append([]string(nil), ReviewCategories...),
				QA:     append([]string(nil), QACategories...),
			}, nil
		}
	}

	var invalid []string
	for _, c := range categories {
		if !IsCommon(c) {
			invalid = append(invalid, c)
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return Selection{}, &InvalidCategoryError{Categories: invalid}
	}

	sel := dedupe(categories)
	return Selection{Review: sel, QA: append([]string(nil), sel...)}, nil
}

// IsCommon reports whether category can be selected individually.
func IsCommon(category string) bool {
	return contains(CommonCategories, category)
}

// HasQA reports whether category has a Q&A archive.
func HasQA(category string) bool {
	return contains(QACategories, category)
}

// HasReviews reports whether category has review and metadata archives.
func HasReviews(category string) bool {
	return contains(ReviewCategories, category)
}

// DisplayName converts a category id to the label stored in global_category.
func DisplayName(category string) string {
	return strings.ReplaceAll(category, "_", " ")
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// dedupe keeps the first occurrence of each category in request order.
func dedupe(categories []string) []string {
	seen := make(map[string]bool, len(categories))
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
