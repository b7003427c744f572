package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oracle/oci-go-sdk/v65/common"
)

// Collector is one unit of the inventory: it enumerates a single resource
// category in one compartment and normalizes the results. Category is the
// stable key the records land under in the report; Service names the
// external client the collector depends on and selects its circuit breaker.
type Collector interface {
	Category() string
	Service() string
	Collect(ctx context.Context, compartment Compartment) ([]ResourceRecord, error)
}

// collectorFunc adapts a plain function into a Collector.
type collectorFunc struct {
	category string
	service  string
	fn       func(ctx context.Context, compartment Compartment) ([]ResourceRecord, error)
}

func (c *collectorFunc) Category() string { return c.category }
func (c *collectorFunc) Service() string  { return c.service }
func (c *collectorFunc) Collect(ctx context.Context, compartment Compartment) ([]ResourceRecord, error) {
	return c.fn(ctx, compartment)
}

// NewCollector wraps a collect function with its category and service tags.
func NewCollector(category, service string, fn func(ctx context.Context, compartment Compartment) ([]ResourceRecord, error)) Collector {
	return &collectorFunc{category: category, service: service, fn: fn}
}

// Registry is the static, ordered list of collectors for a crawl. Order
// matters only for deterministic output.
type Registry struct {
	collectors []Collector
	byCategory map[string]Collector
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byCategory: make(map[string]Collector)}
}

// Register appends a collector. A duplicate category replaces nothing and is
// ignored; the first registration wins to keep output deterministic.
func (r *Registry) Register(c Collector) {
	if _, ok := r.byCategory[c.Category()]; ok {
		logger.Error("Duplicate collector registration ignored for category %s", c.Category())
		return
	}
	r.byCategory[c.Category()] = c
	r.collectors = append(r.collectors, c)
}

// Collectors returns the collectors in registration order.
func (r *Registry) Collectors() []Collector {
	return r.collectors
}

// Categories returns every registered category in registration order.
func (r *Registry) Categories() []string {
	out := make([]string, 0, len(r.collectors))
	for _, c := range r.collectors {
		out = append(out, c.Category())
	}
	return out
}

// Len returns the number of registered collectors.
func (r *Registry) Len() int {
	return len(r.collectors)
}

// sdkTimeString converts an SDK timestamp to its canonical RFC 3339 textual
// form, or nil when absent.
func sdkTimeString(t *common.SDKTime) *string {
	if t == nil {
		return nil
	}
	s := t.Time.UTC().Format(time.RFC3339)
	return &s
}

// flattenValue converts an SDK model (nested structs, enum types, pointer
// fields) into plain JSON-representable values via a JSON round-trip, so no
// provider types leak into the report.
func flattenValue(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// deref returns the pointed-to string or "".
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// setField stores a non-nil, non-empty value in a record's field map.
func setField(fields map[string]any, key string, v any) {
	switch t := v.(type) {
	case nil:
		return
	case *string:
		if t == nil {
			return
		}
		fields[key] = *t
	case *int:
		if t == nil {
			return
		}
		fields[key] = *t
	case *int64:
		if t == nil {
			return
		}
		fields[key] = *t
	case *bool:
		if t == nil {
			return
		}
		fields[key] = *t
	case *float32:
		if t == nil {
			return
		}
		fields[key] = *t
	case string:
		if t == "" {
			return
		}
		fields[key] = t
	default:
		fields[key] = v
	}
}
