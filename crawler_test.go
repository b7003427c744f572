package main

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

// staticScope is a fake scope source returning fixed compartments.
type staticScope struct {
	compartments []Compartment
	failure      *CollectorFailure
	err          error
}

func (s *staticScope) Enumerate(ctx context.Context, rootID string) ([]Compartment, *CollectorFailure, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.compartments, s.failure, nil
}

func fakeRecord(category string, comp Compartment, id string) ResourceRecord {
	return ResourceRecord{
		Category:        category,
		CompartmentID:   comp.ID,
		CompartmentName: comp.Name,
		ID:              id,
		DisplayName:     id,
		State:           "AVAILABLE",
	}
}

func newTestCrawler(scope *staticScope, registry *Registry) *Crawler {
	return &Crawler{
		Enumerator: scope,
		Registry:   registry,
		Options: CrawlOptions{
			MaxWorkers:      3,
			CallTimeout:     5 * time.Second,
			ThrottleRetries: 0,
			RetryBaseDelay:  time.Millisecond,
		},
	}
}

func TestCrawl_NoCollectorsRegistered(t *testing.T) {
	// Scenario: root exists, nothing registered. Nothing attempted is not
	// a failure.
	scope := &staticScope{compartments: []Compartment{{ID: "root", Name: "root"}}}
	crawler := newTestCrawler(scope, NewRegistry())

	report, err := crawler.Crawl(context.Background(), "root")
	if err != nil {
		t.Fatalf("Crawl() error = %v, want nil", err)
	}
	if report.CompartmentsScanned != 1 {
		t.Errorf("CompartmentsScanned = %d, want 1", report.CompartmentsScanned)
	}
	if len(report.Resources) != 0 {
		t.Errorf("Resources has %d categories, want 0", len(report.Resources))
	}
	if len(report.Failures) != 0 {
		t.Errorf("Failures = %v, want empty", report.Failures)
	}
}

func TestCrawl_RecordsGroupedByCategory(t *testing.T) {
	// Scenario: root + 2 sub-compartments, one collector returning 3
	// records in A and 0 in B.
	compA := Compartment{ID: "ocid.comp.a", Name: "A", ParentID: "root"}
	compB := Compartment{ID: "ocid.comp.b", Name: "B", ParentID: "root"}
	scope := &staticScope{compartments: []Compartment{{ID: "root", Name: "root"}, compA, compB}}

	registry := NewRegistry()
	registry.Register(NewCollector("compute_instances", "compute", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if comp.Name != "A" {
			return nil, nil
		}
		return []ResourceRecord{
			fakeRecord("compute_instances", comp, "inst-1"),
			fakeRecord("compute_instances", comp, "inst-2"),
			fakeRecord("compute_instances", comp, "inst-3"),
		}, nil
	}))

	report, err := newTestCrawler(scope, registry).Crawl(context.Background(), "root")
	if err != nil {
		t.Fatalf("Crawl() error = %v, want nil", err)
	}
	if report.CompartmentsScanned != 3 {
		t.Errorf("CompartmentsScanned = %d, want 3", report.CompartmentsScanned)
	}
	records := report.Resources["compute_instances"]
	if len(records) != 3 {
		t.Fatalf("got %d compute_instances records, want 3", len(records))
	}
	for _, r := range records {
		if r.CompartmentName != "A" {
			t.Errorf("record %s has CompartmentName %q, want A", r.ID, r.CompartmentName)
		}
	}
	if len(report.Failures) != 0 {
		t.Errorf("Failures = %v, want empty", report.Failures)
	}
}

func TestCrawl_DegradedScopeIsNotFatal(t *testing.T) {
	// Scenario: subtree listing failed, enumerator degraded to root only.
	scope := &staticScope{
		compartments: []Compartment{{ID: "root", Name: "root"}},
		failure: &CollectorFailure{
			Category:      ScopeCategory,
			CompartmentID: "root",
			Kind:          KindUnknown,
			Message:       "subtree listing failed",
		},
	}
	registry := NewRegistry()
	registry.Register(NewCollector("vcns", "virtualnetwork", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		return []ResourceRecord{fakeRecord("vcns", comp, "vcn-1")}, nil
	}))

	report, err := newTestCrawler(scope, registry).Crawl(context.Background(), "root")
	if err != nil {
		t.Fatalf("Crawl() error = %v, want nil (degraded scope is not fatal)", err)
	}
	if report.CompartmentsScanned != 1 {
		t.Errorf("CompartmentsScanned = %d, want 1", report.CompartmentsScanned)
	}
	scopeFailures := report.FailuresFor(ScopeCategory)
	if len(scopeFailures) != 1 {
		t.Fatalf("got %d scope failures, want 1", len(scopeFailures))
	}
	if len(report.Resources["vcns"]) != 1 {
		t.Errorf("vcns records = %d, want 1 (crawl must proceed on degraded scope)", len(report.Resources["vcns"]))
	}
}

func TestCrawl_ScopeErrorIsFatal(t *testing.T) {
	scope := &staticScope{err: &ScopeError{RootID: "root", Err: errors.New("NotAuthenticated")}}
	crawler := newTestCrawler(scope, NewRegistry())

	report, err := crawler.Crawl(context.Background(), "root")
	if report != nil {
		t.Errorf("Crawl() report = %v, want nil on scope failure", report)
	}
	var scopeErr *ScopeError
	if !errors.As(err, &scopeErr) {
		t.Fatalf("Crawl() error = %v, want *ScopeError", err)
	}
}

func TestCrawl_FaultIsolation(t *testing.T) {
	// Exactly one (compartment, collector) pair fails; every other pair
	// must still contribute records.
	compA := Compartment{ID: "ocid.comp.a", Name: "A"}
	compB := Compartment{ID: "ocid.comp.b", Name: "B"}
	scope := &staticScope{compartments: []Compartment{compA, compB}}

	registry := NewRegistry()
	registry.Register(NewCollector("compute_instances", "compute", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if comp.Name == "B" {
			return nil, errors.New("NotAuthorizedOrNotFound: authorization failed")
		}
		return []ResourceRecord{fakeRecord("compute_instances", comp, "inst-a")}, nil
	}))
	registry.Register(NewCollector("vcns", "virtualnetwork", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		return []ResourceRecord{fakeRecord("vcns", comp, "vcn-"+comp.Name)}, nil
	}))

	report, err := newTestCrawler(scope, registry).Crawl(context.Background(), "root")
	if err != nil {
		t.Fatalf("Crawl() error = %v, want nil", err)
	}

	if len(report.Failures) != 1 {
		t.Fatalf("got %d failures, want exactly 1: %v", len(report.Failures), report.Failures)
	}
	failure := report.Failures[0]
	if failure.Category != "compute_instances" || failure.CompartmentID != compB.ID {
		t.Errorf("failure = %+v, want compute_instances in %s", failure, compB.ID)
	}
	if failure.Kind != KindAuthFailure {
		t.Errorf("failure.Kind = %s, want %s", failure.Kind, KindAuthFailure)
	}
	if len(report.Resources["compute_instances"]) != 1 {
		t.Errorf("compute_instances records = %d, want 1", len(report.Resources["compute_instances"]))
	}
	if len(report.Resources["vcns"]) != 2 {
		t.Errorf("vcns records = %d, want 2 (unaffected by the compute failure)", len(report.Resources["vcns"]))
	}
}

func TestCrawl_EmptyCategoryKeysPreserved(t *testing.T) {
	// A failing collector keeps its category key with zero records; the
	// failure entry is what distinguishes "failed" from "none exist".
	comp := Compartment{ID: "root", Name: "root"}
	scope := &staticScope{compartments: []Compartment{comp}}

	registry := NewRegistry()
	registry.Register(NewCollector("alarms", "monitoring", func(ctx context.Context, c Compartment) ([]ResourceRecord, error) {
		return nil, fmt.Errorf("monitoring: %w", errServiceUnavailable)
	}))
	registry.Register(NewCollector("vcns", "virtualnetwork", func(ctx context.Context, c Compartment) ([]ResourceRecord, error) {
		return nil, nil
	}))

	report, err := newTestCrawler(scope, registry).Crawl(context.Background(), "root")
	if err != nil {
		t.Fatalf("Crawl() error = %v, want nil", err)
	}

	for _, category := range []string{"alarms", "vcns"} {
		records, ok := report.Resources[category]
		if !ok {
			t.Errorf("category %q key missing from resources", category)
		}
		if len(records) != 0 {
			t.Errorf("category %q has %d records, want 0", category, len(records))
		}
	}
	if len(report.FailuresFor("alarms")) != 1 {
		t.Errorf("alarms failures = %d, want 1", len(report.FailuresFor("alarms")))
	}
	if report.FailuresFor("alarms")[0].Kind != KindUnsupported {
		t.Errorf("alarms failure kind = %s, want %s", report.FailuresFor("alarms")[0].Kind, KindUnsupported)
	}
	if len(report.FailuresFor("vcns")) != 0 {
		t.Errorf("vcns failures = %d, want 0 (empty result is not a failure)", len(report.FailuresFor("vcns")))
	}
}

func TestCrawl_Idempotence(t *testing.T) {
	build := func() *Crawler {
		compA := Compartment{ID: "ocid.comp.a", Name: "A"}
		compB := Compartment{ID: "ocid.comp.b", Name: "B"}
		scope := &staticScope{compartments: []Compartment{compA, compB}}
		registry := NewRegistry()
		registry.Register(NewCollector("subnets", "virtualnetwork", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
			return []ResourceRecord{
				fakeRecord("subnets", comp, "sub-2-"+comp.Name),
				fakeRecord("subnets", comp, "sub-1-"+comp.Name),
			}, nil
		}))
		registry.Register(NewCollector("vcns", "virtualnetwork", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
			return nil, errors.New("Forbidden")
		}))
		c := newTestCrawler(scope, registry)
		c.Options.MaxWorkers = 4
		return c
	}

	first, err := build().Crawl(context.Background(), "root")
	if err != nil {
		t.Fatalf("first Crawl() error = %v", err)
	}
	second, err := build().Crawl(context.Background(), "root")
	if err != nil {
		t.Fatalf("second Crawl() error = %v", err)
	}

	if !reflect.DeepEqual(first.Resources, second.Resources) {
		t.Errorf("resources differ between identical crawls:\n%v\n%v", first.Resources, second.Resources)
	}
	if !reflect.DeepEqual(first.Failures, second.Failures) {
		t.Errorf("failures differ between identical crawls:\n%v\n%v", first.Failures, second.Failures)
	}
}

func TestCrawl_ThrottleRetryThenSuccess(t *testing.T) {
	comp := Compartment{ID: "root", Name: "root"}
	scope := &staticScope{compartments: []Compartment{comp}}

	var calls int32
	registry := NewRegistry()
	registry.Register(NewCollector("streams", "streaming", func(ctx context.Context, c Compartment) ([]ResourceRecord, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return nil, errors.New("TooManyRequests: rate limit exceeded")
		}
		return []ResourceRecord{fakeRecord("streams", c, "stream-1")}, nil
	}))

	crawler := newTestCrawler(scope, registry)
	crawler.Options.ThrottleRetries = 3

	report, err := crawler.Crawl(context.Background(), "root")
	if err != nil {
		t.Fatalf("Crawl() error = %v, want nil", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("collector called %d times, want 3 (two throttled attempts then success)", got)
	}
	if len(report.Resources["streams"]) != 1 {
		t.Errorf("streams records = %d, want 1", len(report.Resources["streams"]))
	}
	if len(report.Failures) != 0 {
		t.Errorf("failures = %v, want empty after successful retry", report.Failures)
	}
}

func TestCrawl_ThrottleRetriesExhausted(t *testing.T) {
	comp := Compartment{ID: "root", Name: "root"}
	scope := &staticScope{compartments: []Compartment{comp}}

	var calls int32
	registry := NewRegistry()
	registry.Register(NewCollector("streams", "streaming", func(ctx context.Context, c Compartment) ([]ResourceRecord, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("TooManyRequests: rate limit exceeded")
	}))

	crawler := newTestCrawler(scope, registry)
	crawler.Options.ThrottleRetries = 2

	report, err := crawler.Crawl(context.Background(), "root")
	if err != nil {
		t.Fatalf("Crawl() error = %v, want nil", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("collector called %d times, want 3 (initial + 2 retries)", got)
	}
	if len(report.Failures) != 1 {
		t.Fatalf("failures = %d, want 1 terminal failure", len(report.Failures))
	}
	if report.Failures[0].Kind != KindThrottled {
		t.Errorf("failure kind = %s, want %s", report.Failures[0].Kind, KindThrottled)
	}
}

func TestCrawl_NonRetriableFailureIsNotRetried(t *testing.T) {
	comp := Compartment{ID: "root", Name: "root"}
	scope := &staticScope{compartments: []Compartment{comp}}

	var calls int32
	registry := NewRegistry()
	registry.Register(NewCollector("vcns", "virtualnetwork", func(ctx context.Context, c Compartment) ([]ResourceRecord, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("NotAuthorizedOrNotFound: authorization failed")
	}))

	crawler := newTestCrawler(scope, registry)
	crawler.Options.ThrottleRetries = 5

	if _, err := crawler.Crawl(context.Background(), "root"); err != nil {
		t.Fatalf("Crawl() error = %v, want nil", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("collector called %d times, want 1 (auth failures are terminal)", got)
	}
}

func TestCrawl_CancellationReturnsPartialReport(t *testing.T) {
	compA := Compartment{ID: "ocid.comp.a", Name: "A"}
	compB := Compartment{ID: "ocid.comp.b", Name: "B"}
	scope := &staticScope{compartments: []Compartment{compA, compB}}

	ctx, cancel := context.WithCancel(context.Background())
	registry := NewRegistry()
	registry.Register(NewCollector("compute_instances", "compute", func(cctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		if comp.Name == "B" {
			cancel()
			<-cctx.Done()
			return nil, cctx.Err()
		}
		return []ResourceRecord{fakeRecord("compute_instances", comp, "inst-a")}, nil
	}))

	crawler := newTestCrawler(scope, registry)
	crawler.Options.MaxWorkers = 1

	report, err := crawler.Crawl(ctx, "root")
	if err != nil {
		t.Fatalf("Crawl() error = %v, want partial report on cancellation", err)
	}
	if !report.Cancelled {
		t.Error("report.Cancelled = false, want true")
	}
	if report.CompletedAt.IsZero() {
		t.Error("report.CompletedAt not set on cancelled crawl")
	}
	if len(report.Resources["compute_instances"]) != 1 {
		t.Errorf("partial records = %d, want 1 from compartment A", len(report.Resources["compute_instances"]))
	}
}

func TestCrawl_SingleUse(t *testing.T) {
	scope := &staticScope{compartments: []Compartment{{ID: "root", Name: "root"}}}
	crawler := newTestCrawler(scope, NewRegistry())

	if _, err := crawler.Crawl(context.Background(), "root"); err != nil {
		t.Fatalf("first Crawl() error = %v", err)
	}
	if _, err := crawler.Crawl(context.Background(), "root"); err == nil {
		t.Error("second Crawl() error = nil, want error (crawler is single-use)")
	}
}

func TestCrawl_InvalidFilterPatternDoesNotConsumeCrawler(t *testing.T) {
	scope := &staticScope{compartments: []Compartment{{ID: "root", Name: "root"}}}
	crawler := newTestCrawler(scope, NewRegistry())
	crawler.Filters = FilterConfig{NamePattern: "["}

	if _, err := crawler.Crawl(context.Background(), "root"); err == nil {
		t.Fatal("Crawl() error = nil for invalid name pattern")
	}

	// The pattern is rejected before the single-use state flips, so the
	// same crawler runs fine once the filter is corrected.
	crawler.Filters = FilterConfig{}
	report, err := crawler.Crawl(context.Background(), "root")
	if err != nil {
		t.Fatalf("Crawl() error = %v after correcting the filter", err)
	}
	if report.CompartmentsScanned != 1 {
		t.Errorf("CompartmentsScanned = %d, want 1", report.CompartmentsScanned)
	}
}

func TestCrawl_DeterministicRecordOrder(t *testing.T) {
	compA := Compartment{ID: "ocid.comp.a", Name: "A"}
	compB := Compartment{ID: "ocid.comp.b", Name: "B"}
	scope := &staticScope{compartments: []Compartment{compB, compA}}

	registry := NewRegistry()
	registry.Register(NewCollector("vcns", "virtualnetwork", func(ctx context.Context, comp Compartment) ([]ResourceRecord, error) {
		return []ResourceRecord{
			fakeRecord("vcns", comp, "vcn-2"),
			fakeRecord("vcns", comp, "vcn-1"),
		}, nil
	}))

	c := newTestCrawler(scope, registry)
	c.Options.MaxWorkers = 4
	report, err := c.Crawl(context.Background(), "root")
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}

	records := report.Resources["vcns"]
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		if prev.CompartmentID > cur.CompartmentID ||
			(prev.CompartmentID == cur.CompartmentID && prev.ID > cur.ID) {
			t.Errorf("records out of order at %d: %s/%s after %s/%s",
				i, cur.CompartmentID, cur.ID, prev.CompartmentID, prev.ID)
		}
	}
}
