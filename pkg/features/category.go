package features

import (
	"strings"

	"clv-segments/pkg/models"
)

// CategoryRule maps description keywords to a category label.
type CategoryRule struct {
	Label    string
	Keywords []string
}

// Categories is evaluated top to bottom; the first rule with a keyword contained in the
// lower-cased description wins. Descriptions matching nothing fall into models.CategoryOther.
var Categories = []CategoryRule{
	{Label: models.CategoryBags, Keywords: []string{"bag", "wallet", "purse"}},
	{Label: models.CategoryKitchen, Keywords: []string{"mug", "cup", "plate", "bowl"}},
	{Label: models.CategoryHomeDecor, Keywords: []string{"lamp", "candle", "lantern", "light"}},
	{Label: models.CategoryToys, Keywords: []string{"toy", "party", "game"}},
}

// Categorize returns the category label for a product description.
func Categorize(description string) string {
	desc := strings.ToLower(description)
	for _, rule := range Categories {
		for _, kw := range rule.Keywords {
			if strings.Contains(desc, kw) {
				return rule.Label
			}
		}
	}
	return models.CategoryOther
}
