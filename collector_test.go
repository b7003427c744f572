package main

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/oracle/oci-go-sdk/v65/common"
)

func noopCollector(category, service string) Collector {
	return NewCollector(category, service, func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		return nil, nil
	})
}

func TestRegistry_OrderAndDuplicates(t *testing.T) {
	r := NewRegistry()
	r.Register(noopCollector("vcns", "virtualnetwork"))
	r.Register(noopCollector("compute_instances", "compute"))
	r.Register(noopCollector("vcns", "virtualnetwork")) // duplicate, ignored

	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
	want := []string{"vcns", "compute_instances"}
	if got := r.Categories(); !reflect.DeepEqual(got, want) {
		t.Errorf("Categories() = %v, want %v (registration order)", got, want)
	}
	if got := r.Collectors()[0].Category(); got != "vcns" {
		t.Errorf("first collector = %s, want vcns", got)
	}
}

func TestDefaultRegistryCategories(t *testing.T) {
	// All collectors register even when every optional client is nil; the
	// nil-client collectors fail at collect time, not registration time.
	registry := NewDefaultRegistry(&ServiceClients{})

	categories := registry.Categories()
	if len(categories) != 25 {
		t.Fatalf("default registry has %d categories, want 25: %v", len(categories), categories)
	}
	seen := map[string]bool{}
	for _, c := range categories {
		if seen[c] {
			t.Errorf("duplicate category %s", c)
		}
		seen[c] = true
	}
	for _, c := range []string{"compute_instances", "vcns", "object_storage_buckets", "budgets"} {
		if !seen[c] {
			t.Errorf("category %s missing from default registry", c)
		}
	}
	if categories[0] != "compute_instances" {
		t.Errorf("first category = %s, want compute_instances", categories[0])
	}
}

func TestSdkTimeString(t *testing.T) {
	if got := sdkTimeString(nil); got != nil {
		t.Errorf("sdkTimeString(nil) = %v, want nil", got)
	}

	stamp := time.Date(2024, 3, 15, 10, 30, 0, 0, time.FixedZone("CET", 3600))
	got := sdkTimeString(&common.SDKTime{Time: stamp})
	if got == nil {
		t.Fatal("sdkTimeString() = nil for a present timestamp")
	}
	if *got != "2024-03-15T09:30:00Z" {
		t.Errorf("sdkTimeString() = %s, want 2024-03-15T09:30:00Z (UTC, RFC 3339)", *got)
	}
}

func TestFlattenValue(t *testing.T) {
	type rule struct {
		Protocol *string `json:"protocol,omitempty"`
		Port     int     `json:"port"`
	}
	in := []rule{{Protocol: common.String("6"), Port: 22}}

	out := flattenValue(in)
	list, ok := out.([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("flattenValue() = %#v, want one-element []any", out)
	}
	m, ok := list[0].(map[string]any)
	if !ok {
		t.Fatalf("flattened element = %#v, want map[string]any", list[0])
	}
	if m["protocol"] != "6" {
		t.Errorf("protocol = %v, want 6", m["protocol"])
	}
	if m["port"] != float64(22) {
		t.Errorf("port = %v, want 22", m["port"])
	}
}

func TestSetField(t *testing.T) {
	fields := map[string]any{}

	setField(fields, "nilAny", nil)
	setField(fields, "nilString", (*string)(nil))
	setField(fields, "emptyString", "")
	setField(fields, "shape", common.String("VM.Standard3.Flex"))
	setField(fields, "count", 3)
	setField(fields, "flag", common.Bool(true))

	want := map[string]any{
		"shape": "VM.Standard3.Flex",
		"count": 3,
		"flag":  true,
	}
	if !reflect.DeepEqual(fields, want) {
		t.Errorf("fields = %#v, want %#v", fields, want)
	}
}

func TestNamespaceCache_DoesNotCacheFailure(t *testing.T) {
	// A transient resolution failure must not poison the cache: the next
	// call resolves again, and only success is memoized.
	var calls int
	resolve := func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errTooManyRequests()
		}
		return "acme-ns", nil
	}

	var cache namespaceCache
	if _, err := cache.get(context.Background(), resolve); err == nil {
		t.Fatal("get() error = nil on failed resolution")
	}
	ns, err := cache.get(context.Background(), resolve)
	if err != nil {
		t.Fatalf("get() error = %v after resolver recovered", err)
	}
	if ns != "acme-ns" {
		t.Errorf("namespace = %q, want acme-ns", ns)
	}

	// Cached from here on.
	if _, err := cache.get(context.Background(), resolve); err != nil {
		t.Fatalf("get() error = %v on cached value", err)
	}
	if calls != 2 {
		t.Errorf("resolver called %d times, want 2 (failure retried, success cached)", calls)
	}
}

func errTooManyRequests() error {
	return errors.New("TooManyRequests: rate limit exceeded")
}

func TestDeref(t *testing.T) {
	if got := deref(nil); got != "" {
		t.Errorf("deref(nil) = %q, want empty", got)
	}
	if got := deref(common.String("x")); got != "x" {
		t.Errorf("deref() = %q, want x", got)
	}
}
