// Package rules loads the regulatory tables the settlement engines run on:
// the cost catalog, the fuel emission factors and the CO2 tier table.
//
// A rule set is loaded once at startup and never mutated afterwards. A change
// in law is a new YAML version, not a code change.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

var (
	ErrMissingVersion    = errors.New("rules: missing version")
	ErrNoCategories      = errors.New("rules: no cost categories")
	ErrDuplicateCategory = errors.New("rules: duplicate category code")
	ErrNoTiers           = errors.New("rules: no emission tiers")
	ErrNoFuelFactors     = errors.New("rules: no fuel factors")
)

// CategoryRule is one catalog entry as stored in YAML
type CategoryRule struct {
	Code          string `yaml:"code" json:"code"`
	Name          string `yaml:"name" json:"name"`
	DefaultKey    string `yaml:"default_key" json:"default_key"`
	Apportionable bool   `yaml:"apportionable" json:"apportionable"`
	Citation      string `yaml:"citation" json:"citation"`
}

// TierRule is one band of the CO2 split table.
// UpTo is the inclusive upper bound in kg CO2/m²/a; nil means unbounded.
type TierRule struct {
	UpTo            *float64 `yaml:"up_to" json:"up_to"`
	TenantPercent   int      `yaml:"tenant_percent" json:"tenant_percent"`
	LandlordPercent int      `yaml:"landlord_percent" json:"landlord_percent"`
}

// RuleSet is an immutable, versioned set of regulatory tables
type RuleSet struct {
	Version     string             `yaml:"version" json:"version"`
	Categories  []CategoryRule     `yaml:"categories" json:"categories"`
	FuelFactors map[string]float64 `yaml:"fuel_factors" json:"fuel_factors"`
	Tiers       []TierRule         `yaml:"tiers" json:"tiers"`
}

// Default returns the rule set compiled into the binary
func Default() (*RuleSet, error) {
	return Parse(defaultYAML)
}

// Load reads a rule set from path, or the built-in default when path is empty
func Load(path string) (*RuleSet, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML rule set
func Parse(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Validate checks the structural invariants of the tables.
// Key names, fuel factors and tier ordering are checked by the packages
// that own their semantics.
func (rs *RuleSet) Validate() error {
	if rs.Version == "" {
		return ErrMissingVersion
	}
	if len(rs.Categories) == 0 {
		return ErrNoCategories
	}
	seen := make(map[string]struct{}, len(rs.Categories))
	for _, c := range rs.Categories {
		if c.Code == "" {
			return fmt.Errorf("rules: category %q has no code", c.Name)
		}
		if _, dup := seen[c.Code]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateCategory, c.Code)
		}
		seen[c.Code] = struct{}{}
	}
	if len(rs.FuelFactors) == 0 {
		return ErrNoFuelFactors
	}
	if len(rs.Tiers) == 0 {
		return ErrNoTiers
	}
	return nil
}
