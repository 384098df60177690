package syncer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MoovFleet/MoovFleet/internal/common/logger"
	"github.com/MoovFleet/MoovFleet/internal/fleet"
	"github.com/MoovFleet/MoovFleet/internal/platform"
	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
)

// PlatformFetcher is the slice of the platform client the orchestrator uses.
type PlatformFetcher interface {
	FetchDrivers(ctx context.Context) ([]platform.DriverProfile, error)
	FetchOrders(ctx context.Context, from, to time.Time) ([]platform.Order, error)
	FetchTransactions(ctx context.Context, from, to time.Time) ([]platform.Transaction, error)
}

// SettingsStore reads the fleet settings row (nil when absent).
type SettingsStore interface {
	Get(ctx context.Context) (*fleet.FleetSettings, error)
}

// WorkRuleSource yields the platform's work-rule list, normally the TTL cache
// in the platform package.
type WorkRuleSource interface {
	Get(ctx context.Context, now time.Time) ([]platform.WorkRule, error)
}

// Orchestrator coordinates one full reconciliation run:
// fetch -> match -> aggregate -> score -> reconcile -> summary.
type Orchestrator struct {
	fetcher    PlatformFetcher
	drivers    DriverStore
	reconciler *Reconciler
	settings   SettingsStore
	log        logger.Logger

	// Preflight fails the run before any fetch (missing credentials).
	Preflight func() error

	// WorkRules + WorkRuleName restrict the external roster to one work rule
	// when both are set. Leaving either unset disables the filter.
	WorkRules    WorkRuleSource
	WorkRuleName string

	loc              *time.Location
	objectiveMinutes int // config default, overridable by fleet settings
	workers          int
}

// NewOrchestrator wires a run coordinator. loc is the fleet's civil
// timezone; the default date "yesterday" is computed in it.
func NewOrchestrator(fetcher PlatformFetcher, drivers DriverStore, activities ActivityStore, settings SettingsStore, log logger.Logger, loc *time.Location, objectiveMinutes, workers int) *Orchestrator {
	if loc == nil {
		loc = time.Local
	}
	if workers <= 0 {
		workers = 4
	}
	return &Orchestrator{
		fetcher:          fetcher,
		drivers:          drivers,
		reconciler:       NewReconciler(drivers, activities),
		settings:         settings,
		log:              log,
		loc:              loc,
		objectiveMinutes: objectiveMinutes,
		workers:          workers,
	}
}

type fetchResult struct {
	drivers      []platform.DriverProfile
	orders       []platform.Order
	transactions []platform.Transaction
}

// Run executes one sync for the given calendar date (YYYY-MM-DD), or for
// yesterday when date is empty. A fetch failure fails the run; a single
// driver's failure only marks that driver's outcome.
func (o *Orchestrator) Run(ctx context.Context, date string) (*Summary, error) {
	if o == nil || o.fetcher == nil || o.drivers == nil || o.reconciler == nil {
		return nil, fmt.Errorf("orchestrator not initialized")
	}

	if o.Preflight != nil {
		if err := o.Preflight(); err != nil {
			return nil, fmt.Errorf("configuration: %w", err)
		}
	}

	day, err := o.resolveDate(date)
	if err != nil {
		return nil, err
	}
	from := day
	to := day.AddDate(0, 0, 1)

	span, ctx := opentracing.StartSpanFromContext(ctx, "sync.run")
	span.SetTag("date", from.Format(fleet.DateLayout))
	defer span.Finish()

	summary := &Summary{
		RunID:        uuid.NewString(),
		Date:         from.Format(fleet.DateLayout),
		MatchMethods: make(map[string]int),
		Unmatched:    []UnmatchedDriver{},
		Outcomes:     []DriverOutcome{},
		StartedAt:    time.Now(),
	}

	fetched, err := o.fetchAll(ctx, from, to)
	if err != nil {
		return nil, err
	}
	fetched.drivers, err = o.filterByWorkRule(ctx, fetched.drivers)
	if err != nil {
		return nil, err
	}
	summary.ExternalDrivers = len(fetched.drivers)
	summary.OrdersProcessed = len(fetched.orders)
	summary.TransactionsProcessed = len(fetched.transactions)

	internals, err := o.drivers.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list internal drivers: %w", err)
	}
	summary.InternalDrivers = len(internals)

	matches, unmatched := MatchDrivers(fetched.drivers, internals)
	summary.Matched = len(matches)
	summary.UnmatchedTotal = len(unmatched)
	for _, m := range matches {
		summary.MatchMethods[string(m.Method)]++
	}
	for i, u := range unmatched {
		if i >= maxUnmatchedSample {
			break
		}
		summary.Unmatched = append(summary.Unmatched, UnmatchedDriver{
			ExternalID: u.ID,
			Name:       u.FirstName + " " + u.LastName,
			Phone:      u.Phone,
		})
	}

	objective := o.resolveObjective(ctx)
	o.processMatches(ctx, matches, fetched, summary, objective)
	summary.FinishedAt = time.Now()

	sort.Slice(summary.Outcomes, func(i, j int) bool {
		return summary.Outcomes[i].DriverID < summary.Outcomes[j].DriverID
	})

	if o.log != nil {
		o.log.WithFields(map[string]interface{}{
			"run_id":    summary.RunID,
			"date":      summary.Date,
			"matched":   summary.Matched,
			"unmatched": summary.UnmatchedTotal,
			"created":   summary.RecordsCreated,
			"updated":   summary.RecordsUpdated,
		}).Info("sync run finished")
	}
	return summary, nil
}

func (o *Orchestrator) resolveDate(date string) (time.Time, error) {
	if date == "" {
		// the job runs overnight and summarizes the prior civil day
		now := time.Now().In(o.loc)
		y, m, d := now.AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, o.loc), nil
	}
	day, err := time.ParseInLocation(fleet.DateLayout, date, o.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return day, nil
}

func (o *Orchestrator) resolveObjective(ctx context.Context) int {
	objective := o.objectiveMinutes
	if o.settings == nil {
		return objective
	}
	s, err := o.settings.Get(ctx)
	if err != nil {
		if o.log != nil {
			o.log.Warnf("failed to load fleet settings, using configured objective: %v", err)
		}
		return objective
	}
	if s != nil && s.ObjectiveMinutes > 0 {
		objective = s.ObjectiveMinutes
	}
	return objective
}

// filterByWorkRule narrows the external roster to the configured work rule.
// An unknown rule name keeps the full roster with a warning; a failed lookup
// with no cached value fails the run.
func (o *Orchestrator) filterByWorkRule(ctx context.Context, externals []platform.DriverProfile) ([]platform.DriverProfile, error) {
	if o.WorkRules == nil || o.WorkRuleName == "" {
		return externals, nil
	}

	rules, err := o.WorkRules.Get(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("work rule lookup: %w", err)
	}

	ruleID := ""
	for _, r := range rules {
		if r.Name == o.WorkRuleName {
			ruleID = r.ID
			break
		}
	}
	if ruleID == "" {
		if o.log != nil {
			o.log.Warnf("work rule %q not found on platform, roster left unfiltered", o.WorkRuleName)
		}
		return externals, nil
	}

	filtered := externals[:0]
	for _, d := range externals {
		if d.WorkRuleID == ruleID {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

// fetchAll runs the three independent fetches concurrently, each with its
// own error slot. Any single failure fails the whole run: matching cannot
// proceed without all three inputs.
func (o *Orchestrator) fetchAll(ctx context.Context, from, to time.Time) (fetchResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "sync.fetch")
	defer span.Finish()

	var (
		res  fetchResult
		errs [3]error
		wg   sync.WaitGroup
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		res.drivers, errs[0] = o.fetcher.FetchDrivers(ctx)
	}()
	go func() {
		defer wg.Done()
		res.orders, errs[1] = o.fetcher.FetchOrders(ctx, from, to)
	}()
	go func() {
		defer wg.Done()
		res.transactions, errs[2] = o.fetcher.FetchTransactions(ctx, from, to)
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return fetchResult{}, fmt.Errorf("fetch failed: %w", err)
		}
	}
	return res, nil
}

// processMatches runs each matched driver's pipeline on a small worker pool.
// Each driver's aggregate -> score -> reconcile sequence stays ordered; only
// distinct drivers run in parallel.
func (o *Orchestrator) processMatches(ctx context.Context, matches []Match, fetched fetchResult, summary *Summary, objective int) {
	jobs := make(chan Match)
	var mu sync.Mutex
	var wg sync.WaitGroup

	record := func(out DriverOutcome, created bool) {
		mu.Lock()
		defer mu.Unlock()
		summary.Outcomes = append(summary.Outcomes, out)
		if out.Status == OutcomeOK {
			if created {
				summary.RecordsCreated++
			} else {
				summary.RecordsUpdated++
			}
		}
	}

	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				out, created := o.processDriver(ctx, m, fetched, summary.Date, objective)
				record(out, created)
			}
		}()
	}

	for _, m := range matches {
		jobs <- m
	}
	close(jobs)
	wg.Wait()
}

// processDriver isolates one driver's pipeline: any error or panic becomes
// that driver's outcome and never aborts the run.
func (o *Orchestrator) processDriver(ctx context.Context, m Match, fetched fetchResult, date string, objective int) (out DriverOutcome, created bool) {
	out = DriverOutcome{DriverID: m.Driver.ID, ExternalID: m.External.ID}

	defer func() {
		if r := recover(); r != nil {
			out.Status = OutcomeError
			out.Reason = fmt.Sprintf("panic: %v", r)
			created = false
			if o.log != nil {
				o.log.Errorf("panic processing driver %s: %v", m.Driver.ID, r)
			}
		}
	}()

	metrics, err := Aggregate(fetched.orders, fetched.transactions, m.External.ID)
	if err == ErrNoCompletedActivity {
		out.Status = OutcomeSkip
		out.Reason = "no completed activity"
		return out, false
	}
	if err != nil {
		out.Status = OutcomeError
		out.Reason = err.Error()
		return out, false
	}

	result, err := o.reconciler.Reconcile(ctx, m.Driver, m.External.ID, date, metrics, objective)
	if err != nil {
		out.Status = OutcomeError
		out.Reason = err.Error()
		return out, false
	}

	out.Status = OutcomeOK
	out.Created = result.Created
	return out, result.Created
}
