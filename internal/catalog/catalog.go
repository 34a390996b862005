// Package catalog is the reference table of standard operating-cost
// categories. Each category carries its default apportionment key, whether
// it may be passed on to tenants at all, and its statutory citation.
package catalog

import (
	"errors"
	"fmt"

	"github.com/fkhayef/nebenkosten/internal/apportion"
	"github.com/fkhayef/nebenkosten/internal/calcerr"
	"github.com/fkhayef/nebenkosten/internal/rules"
)

// CO2Category is the synthetic category under which the tenant-borne
// carbon cost appears on a statement.
const CO2Category = "co2_costs"

// ErrUnknownCategory is returned for codes not present in the catalog
var ErrUnknownCategory = errors.New("unknown cost category")

// Category is one catalog entry
type Category struct {
	Code          string        `json:"code"`
	Name          string        `json:"name"`
	DefaultKey    apportion.Key `json:"default_key"`
	Apportionable bool          `json:"apportionable"`
	Citation      string        `json:"citation"`
}

// Catalog is an immutable lookup table of categories
type Catalog struct {
	version    string
	categories []Category
	byCode     map[string]Category
}

// New builds a catalog from a rule set
func New(rs *rules.RuleSet) (*Catalog, error) {
	c := &Catalog{
		version:    rs.Version,
		categories: make([]Category, 0, len(rs.Categories)),
		byCode:     make(map[string]Category, len(rs.Categories)),
	}
	for _, r := range rs.Categories {
		key, err := apportion.ParseKey(r.DefaultKey)
		if err != nil {
			return nil, fmt.Errorf("catalog: category %s: %w", r.Code, err)
		}
		if r.Code == CO2Category {
			return nil, fmt.Errorf("catalog: category code %s is reserved", CO2Category)
		}
		cat := Category{
			Code:          r.Code,
			Name:          r.Name,
			DefaultKey:    key,
			Apportionable: r.Apportionable,
			Citation:      r.Citation,
		}
		c.categories = append(c.categories, cat)
		c.byCode[cat.Code] = cat
	}
	return c, nil
}

// Version returns the rule-set version the catalog was built from
func (c *Catalog) Version() string {
	return c.version
}

// Lookup returns the category for code
func (c *Catalog) Lookup(code string) (Category, bool) {
	cat, ok := c.byCode[code]
	return cat, ok
}

// All returns the categories in rule-set order
func (c *Catalog) All() []Category {
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// DefaultKey returns the legally permitted default key for code
func (c *Catalog) DefaultKey(code string) (apportion.Key, error) {
	cat, ok := c.byCode[code]
	if !ok {
		return "", &calcerr.InvalidInputError{Field: "category", Reason: fmt.Sprintf("%s: %q", ErrUnknownCategory, code)}
	}
	return cat.DefaultKey, nil
}
