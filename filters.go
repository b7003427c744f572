package main

import (
	"fmt"
	"regexp"
	"strings"
)

// FilterConfig narrows a crawl: which compartments to scan, which categories
// to run, and a display-name pattern for the records themselves. Include
// lists win over exclude lists when both name the same entry.
type FilterConfig struct {
	IncludeCompartments []string `yaml:"include_compartments"` // Compartment OCIDs or names to include
	ExcludeCompartments []string `yaml:"exclude_compartments"` // Compartment OCIDs or names to exclude
	IncludeCategories   []string `yaml:"include_categories"`   // Collector categories to include
	ExcludeCategories   []string `yaml:"exclude_categories"`   // Collector categories to exclude
	NamePattern         string   `yaml:"name_pattern"`         // Regex resources must match
	ExcludeNamePattern  string   `yaml:"exclude_name_pattern"` // Regex resources must not match
}

// CompiledFilters holds the pre-compiled regex patterns.
type CompiledFilters struct {
	namePattern        *regexp.Regexp
	excludeNamePattern *regexp.Regexp
}

// CompileFilters compiles the name patterns once per crawl.
func CompileFilters(filter FilterConfig) (*CompiledFilters, error) {
	compiled := &CompiledFilters{}

	if filter.NamePattern != "" {
		re, err := regexp.Compile(filter.NamePattern)
		if err != nil {
			return nil, fmt.Errorf("invalid name_pattern %q: %w", filter.NamePattern, err)
		}
		compiled.namePattern = re
	}

	if filter.ExcludeNamePattern != "" {
		re, err := regexp.Compile(filter.ExcludeNamePattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude_name_pattern %q: %w", filter.ExcludeNamePattern, err)
		}
		compiled.excludeNamePattern = re
	}

	return compiled, nil
}

// ApplyCompartmentFilter returns the compartments that pass the include and
// exclude lists. Entries match by OCID or by name.
func ApplyCompartmentFilter(compartments []Compartment, filter FilterConfig) []Compartment {
	if len(filter.IncludeCompartments) == 0 && len(filter.ExcludeCompartments) == 0 {
		return compartments
	}

	matches := func(c Compartment, list []string) bool {
		for _, entry := range list {
			if entry == c.ID || strings.EqualFold(entry, c.Name) {
				return true
			}
		}
		return false
	}

	filtered := make([]Compartment, 0, len(compartments))
	for _, c := range compartments {
		if len(filter.IncludeCompartments) > 0 {
			if matches(c, filter.IncludeCompartments) {
				filtered = append(filtered, c)
			}
			continue
		}
		if !matches(c, filter.ExcludeCompartments) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// ApplyCategoryFilter reports whether a collector category should run.
func ApplyCategoryFilter(category string, filter FilterConfig) bool {
	if len(filter.IncludeCategories) > 0 {
		return contains(filter.IncludeCategories, category)
	}
	if len(filter.ExcludeCategories) > 0 {
		return !contains(filter.ExcludeCategories, category)
	}
	return true
}

// FilterRegistry builds a sub-registry containing only the categories the
// filter admits, preserving registration order.
func FilterRegistry(registry *Registry, filter FilterConfig) *Registry {
	if len(filter.IncludeCategories) == 0 && len(filter.ExcludeCategories) == 0 {
		return registry
	}
	filtered := NewRegistry()
	for _, c := range registry.Collectors() {
		if ApplyCategoryFilter(c.Category(), filter) {
			filtered.Register(c)
		}
	}
	return filtered
}

// ApplyNameFilter reports whether a resource display name passes the
// compiled patterns. An empty filter admits everything.
func ApplyNameFilter(name string, compiled *CompiledFilters) bool {
	if compiled == nil {
		return true
	}
	if compiled.namePattern != nil && !compiled.namePattern.MatchString(name) {
		return false
	}
	if compiled.excludeNamePattern != nil && compiled.excludeNamePattern.MatchString(name) {
		return false
	}
	return true
}

// ValidateFilterConfig checks a filter configuration for conflicts before a
// crawl starts.
func ValidateFilterConfig(filter FilterConfig) error {
	for _, inc := range filter.IncludeCategories {
		if contains(filter.ExcludeCategories, inc) {
			return fmt.Errorf("category %q is both included and excluded", inc)
		}
	}
	for _, inc := range filter.IncludeCompartments {
		if contains(filter.ExcludeCompartments, inc) {
			return fmt.Errorf("compartment %q is both included and excluded", inc)
		}
	}
	if _, err := CompileFilters(filter); err != nil {
		return err
	}
	return nil
}

// ParseCSVList splits a comma-separated CLI value into trimmed entries.
func ParseCSVList(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
