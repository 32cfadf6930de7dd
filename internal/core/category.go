package core

import "strings"

// Category is a fixed expense label with the icon tag shown next to it.
type Category struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Categories lists the selectable categories in display order.
var Categories = []Category{
	{Name: "Breakfast", Icon: "breakfast"},
	{Name: "Lunch", Icon: "lunch"},
	{Name: "Dinner", Icon: "dinner"},
	{Name: "Transport", Icon: "car"},
	{Name: "Shopping", Icon: "shopping-bag"},
	{Name: "Housing", Icon: "home"},
	{Name: "Other things", Icon: "other-things"},
}

// DefaultCategory is preselected when the user does not pick one.
func DefaultCategory() Category {
	return Categories[0]
}

// LookupCategory finds a category by name, ignoring case and surrounding space.
func LookupCategory(name string) (Category, bool) {
	name = strings.TrimSpace(name)
	for _, c := range Categories {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Category{}, false
}

// iconGlyphs maps icon tags to the glyph rendered by clients.
var iconGlyphs = map[string]string{
	"home":            "home",
	"breakfast":       "coffee",
	"coffee":          "coffee",
	"lunch":           "utensils",
	"dinner":          "utensils-crossed",
	"gift":            "gift",
	"music":           "music",
	"car":             "car",
	"shopping-bag":    "shopping-bag",
	"other-things":    "more-horizontal",
	"more-horizontal": "more-horizontal",
}

// IconGlyph resolves an icon tag; unknown tags render as a shopping bag.
func IconGlyph(tag string) string {
	if g, ok := iconGlyphs[tag]; ok {
		return g
	}
	return "shopping-bag"
}
