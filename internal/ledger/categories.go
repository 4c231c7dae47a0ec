package ledger

import (
	"sort"
	"strings"
)

// DefaultSavingsCategories are the category names that route a RECEIVE
// transaction to a goal when no rules are configured.
var DefaultSavingsCategories = []string{"savings", "goal", "goals"}

// Rules configures the ledger's category handling.
type Rules struct {
	// Categories is the optional catalog of allowed categories. Empty means
	// any category is accepted.
	Categories []string

	// SavingsCategories mark RECEIVE transactions as goal contributions.
	SavingsCategories []string
}

// CategoryCatalog validates categories and recognises savings markers.
type CategoryCatalog struct {
	allowed map[string]bool
	savings map[string]bool
}

// NewCategoryCatalog builds a catalog from rules. Savings categories are
// always allowed.
func NewCategoryCatalog(rules Rules) *CategoryCatalog {
	c := &CategoryCatalog{
		allowed: make(map[string]bool),
		savings: make(map[string]bool),
	}

	savings := rules.SavingsCategories
	if len(savings) == 0 {
		savings = DefaultSavingsCategories
	}
	for _, s := range savings {
		c.savings[normalizeCategory(s)] = true
	}

	for _, name := range rules.Categories {
		c.allowed[normalizeCategory(name)] = true
	}
	if len(c.allowed) > 0 {
		for s := range c.savings {
			c.allowed[s] = true
		}
	}

	return c
}

// ValidateCategory checks a category against the catalog.
// Returns nil if valid, error if invalid.
func (c *CategoryCatalog) ValidateCategory(category string) error {
	norm := normalizeCategory(category)
	if norm == "" {
		return invalid(ErrInvalidInput, "category", "is required")
	}
	if len(c.allowed) == 0 {
		return nil
	}
	if !c.allowed[norm] {
		return invalid(ErrInvalidInput, "category", "unknown category %q, valid categories: %v", category, c.Allowed())
	}
	return nil
}

// IsSavings reports whether the category marks a goal contribution.
func (c *CategoryCatalog) IsSavings(category string) bool {
	return c.savings[normalizeCategory(category)]
}

// Allowed returns the normalized catalog, sorted.
func (c *CategoryCatalog) Allowed() []string {
	out := make([]string, 0, len(c.allowed))
	for name := range c.allowed {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// normalizeCategory normalizes a category name for comparison.
// Converts to uppercase and trims whitespace for case-insensitive comparison.
func normalizeCategory(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
