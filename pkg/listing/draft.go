// Package listing drafts marketplace listings for identified items and
// posts them through the listing automation service.
package listing

import (
	"fmt"

	"github.com/declutter-ai/declutter/pkg/recognize"
)

// maxTitleLen is the longest title marketplaces reliably accept.
const maxTitleLen = 75

// Draft is a listing ready to post.
type Draft struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Condition   string  `json:"condition"`
	Category    string  `json:"category"`
}

// BuildDraft turns an identified product and its computed price into a
// postable draft. The description is a serviceable fallback; the listing
// service may replace it with generated copy.
func BuildDraft(product *recognize.Product, price float64) Draft {
	condition := product.Condition
	if condition == "" {
		condition = "used"
	}

	return Draft{
		Title:       truncate(product.ProductName, maxTitleLen),
		Description: fmt.Sprintf("%s in good used condition. Great value!", product.ProductName),
		Price:       price,
		Condition:   condition,
		Category:    "Electronics",
	}
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
