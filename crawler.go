package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
)

// CrawlOptions bound the crawl's concurrency and retry behavior. Every
// external call runs under CallTimeout; Throttled failures are retried up to
// ThrottleRetries times with exponential backoff before being recorded as
// terminal.
type CrawlOptions struct {
	MaxWorkers      int
	CallTimeout     time.Duration
	ThrottleRetries int
	RetryBaseDelay  time.Duration
}

// DefaultCrawlOptions mirror the configuration defaults.
func DefaultCrawlOptions() CrawlOptions {
	return CrawlOptions{
		MaxWorkers:      5,
		CallTimeout:     60 * time.Second,
		ThrottleRetries: 3,
		RetryBaseDelay:  time.Second,
	}
}

// scopeSource is what the crawler needs from the scope enumerator.
type scopeSource interface {
	Enumerate(ctx context.Context, rootID string) ([]Compartment, *CollectorFailure, error)
}

// BreakerSource supplies a circuit breaker per external service. A nil
// source disables breaking.
type BreakerSource interface {
	Breaker(service string) *gobreaker.CircuitBreaker
}

// Crawl state machine: NotStarted -> Running -> Completed. A Crawler is
// single-use.
const (
	crawlNotStarted int32 = iota
	crawlRunning
	crawlCompleted
)

// Crawler drives one inventory crawl: the cross product of every enumerated
// compartment and every registered collector, fanned out over a bounded
// worker pool. Failure is local: a collector failing in one compartment is
// classified and recorded, never fatal.
type Crawler struct {
	Enumerator scopeSource
	Registry   *Registry
	Breakers   BreakerSource
	Filters    FilterConfig
	Progress   *ProgressTracker
	Options    CrawlOptions

	state int32
}

type crawlTask struct {
	compartment Compartment
	collector   Collector
}

// Crawl runs the full crawl and returns the report. Once running, the only
// error it returns is a *ScopeError: anything short of total scope resolution
// failure produces a (possibly partial) report. Cancelling the context stops
// new dispatch, lets in-flight calls finish or time out, and returns the
// partial report with Cancelled set.
func (c *Crawler) Crawl(ctx context.Context, rootID string) (*InventoryReport, error) {
	// Invalid filter patterns are rejected before the single-use state
	// flips, so a bad pattern does not consume the crawler.
	compiled, err := CompileFilters(c.Filters)
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter patterns: %w", err)
	}

	if !atomic.CompareAndSwapInt32(&c.state, crawlNotStarted, crawlRunning) {
		return nil, errors.New("crawler is single-use: crawl already started")
	}
	defer atomic.StoreInt32(&c.state, crawlCompleted)

	opts := c.Options
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 1
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 60 * time.Second
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = time.Second
	}

	report := NewInventoryReport(c.Registry.Categories())

	compartments, scopeFailure, err := c.Enumerator.Enumerate(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if scopeFailure != nil {
		report.Failures = append(report.Failures, *scopeFailure)
	}

	compartments = ApplyCompartmentFilter(compartments, c.Filters)
	report.CompartmentsScanned = len(compartments)

	collectors := c.Registry.Collectors()
	logger.Info("Crawling %d compartments x %d collectors", len(compartments), len(collectors))

	c.Progress.Start(len(compartments) * len(collectors))
	defer c.Progress.Stop()

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		cancelled atomic.Bool
	)

	tasks := make(chan crawlTask)
	for i := 0; i < opts.MaxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				c.runTask(ctx, t, opts, compiled, report, &mu)
			}
		}()
	}

dispatch:
	for _, comp := range compartments {
		for _, col := range collectors {
			select {
			case <-ctx.Done():
				cancelled.Store(true)
				break dispatch
			case tasks <- crawlTask{compartment: comp, collector: col}:
			}
		}
	}
	close(tasks)
	wg.Wait()

	report.Cancelled = cancelled.Load() || ctx.Err() != nil
	c.finalize(report)
	logger.Info("Crawl completed: %d compartments, %d failures", report.CompartmentsScanned, len(report.Failures))
	return report, nil
}

// runTask executes one (compartment, collector) pair, retrying throttled
// failures with backoff, and merges the outcome into the report under the
// single append lock.
func (c *Crawler) runTask(ctx context.Context, t crawlTask, opts CrawlOptions, compiled *CompiledFilters, report *InventoryReport, mu *sync.Mutex) {
	category := t.collector.Category()

	var records []ResourceRecord
	var err error
	for attempt := 0; ; attempt++ {
		records, err = c.invoke(ctx, t, opts.CallTimeout)
		if err == nil || !isRetriable(ClassifyError(err)) || attempt >= opts.ThrottleRetries {
			break
		}

		c.Progress.Retry()
		backoff := opts.RetryBaseDelay * time.Duration(math.Min(math.Pow(2, float64(attempt)), 30))
		jitter := time.Duration(float64(backoff) * 0.1 * (2*rand.Float64() - 1))
		logger.Verbose("Retrying %s in %s after throttle (attempt %d/%d): %v", category, t.compartment.Name, attempt+1, opts.ThrottleRetries, err)

		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(backoff + jitter):
			continue
		}
		break
	}

	if err != nil {
		c.Progress.Step(t.compartment.Name, category, 0, true)
		// A call abandoned because the whole crawl was cancelled is not a
		// collector failure; the partial report already says Cancelled.
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return
		}
		kind := ClassifyError(err)
		logger.Verbose("Collector %s failed in compartment %s (%s): %v", category, t.compartment.Name, kind, err)
		mu.Lock()
		report.Failures = append(report.Failures, CollectorFailure{
			Category:      category,
			CompartmentID: t.compartment.ID,
			Kind:          kind,
			Message:       err.Error(),
		})
		mu.Unlock()
		return
	}

	kept := records[:0:0]
	for _, rec := range records {
		if ApplyNameFilter(rec.DisplayName, compiled) {
			kept = append(kept, rec)
		}
	}

	c.Progress.Step(t.compartment.Name, category, len(kept), false)
	if len(kept) == 0 {
		return
	}
	mu.Lock()
	report.Resources[category] = append(report.Resources[category], kept...)
	mu.Unlock()
}

// invoke runs one collect call under the per-call timeout and the service's
// circuit breaker. Errors that do not trip the breaker (Unsupported,
// NotFound, AuthFailure) are passed through without counting against it.
func (c *Crawler) invoke(ctx context.Context, t crawlTask, callTimeout time.Duration) ([]ResourceRecord, error) {
	cctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	var cb *gobreaker.CircuitBreaker
	if c.Breakers != nil {
		cb = c.Breakers.Breaker(t.collector.Service())
	}
	if cb == nil {
		return t.collector.Collect(cctx, t.compartment)
	}

	var records []ResourceRecord
	var softErr error
	_, err := cb.Execute(func() (any, error) {
		recs, cerr := t.collector.Collect(cctx, t.compartment)
		if cerr != nil {
			if tripsBreaker(ClassifyError(cerr)) {
				return nil, cerr
			}
			softErr = cerr
			return nil, nil
		}
		records = recs
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	if softErr != nil {
		return nil, softErr
	}
	return records, nil
}

// finalize orders records within each category so reports are reproducible
// regardless of worker interleaving, and stamps the completion time.
func (c *Crawler) finalize(report *InventoryReport) {
	for category, records := range report.Resources {
		sort.SliceStable(records, func(i, j int) bool {
			if records[i].CompartmentID != records[j].CompartmentID {
				return records[i].CompartmentID < records[j].CompartmentID
			}
			return records[i].ID < records[j].ID
		})
		report.Resources[category] = records
	}
	sort.SliceStable(report.Failures, func(i, j int) bool {
		if report.Failures[i].Category != report.Failures[j].Category {
			return report.Failures[i].Category < report.Failures[j].Category
		}
		return report.Failures[i].CompartmentID < report.Failures[j].CompartmentID
	})
	report.CompletedAt = time.Now().UTC()
}
