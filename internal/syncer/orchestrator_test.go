package syncer

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/MoovFleet/MoovFleet/internal/fleet"
	"github.com/MoovFleet/MoovFleet/internal/platform"
)

type fakeFetcher struct {
	drivers    []platform.DriverProfile
	orders     []platform.Order
	txns       []platform.Transaction
	errDrivers error
	errOrders  error
	errTxns    error
}

func (f *fakeFetcher) FetchDrivers(ctx context.Context) ([]platform.DriverProfile, error) {
	return f.drivers, f.errDrivers
}

func (f *fakeFetcher) FetchOrders(ctx context.Context, from, to time.Time) ([]platform.Order, error) {
	return f.orders, f.errOrders
}

func (f *fakeFetcher) FetchTransactions(ctx context.Context, from, to time.Time) ([]platform.Transaction, error) {
	return f.txns, f.errTxns
}

type memDriverStore struct {
	mu      sync.Mutex
	drivers map[string]fleet.Driver
}

func newMemDriverStore(drivers ...fleet.Driver) *memDriverStore {
	s := &memDriverStore{drivers: make(map[string]fleet.Driver)}
	for _, d := range drivers {
		s.drivers[d.ID] = d
	}
	return s
}

func (s *memDriverStore) ListActive(ctx context.Context) ([]fleet.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []fleet.Driver
	for _, d := range s.drivers {
		if d.Status != fleet.DriverStatusInactive {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memDriverStore) LinkExternalID(ctx context.Context, driverID, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.drivers[driverID]
	d.ExternalDriverID = externalID
	s.drivers[driverID] = d
	return nil
}

func (s *memDriverStore) UpdateGlobalScore(ctx context.Context, driverID string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.drivers[driverID]
	d.GlobalScore = score
	s.drivers[driverID] = d
	return nil
}

type memActivityStore struct {
	mu      sync.Mutex
	records map[string]fleet.ActivityRecord
}

func newMemActivityStore() *memActivityStore {
	return &memActivityStore{records: make(map[string]fleet.ActivityRecord)}
}

func (s *memActivityStore) Get(ctx context.Context, id string) (*fleet.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	copied := rec
	return &copied, nil
}

func (s *memActivityStore) Save(ctx context.Context, rec *fleet.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = *rec
	return nil
}

func (s *memActivityStore) LatestForDriver(ctx context.Context, driverID string) (*fleet.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *fleet.ActivityRecord
	for id := range s.records {
		rec := s.records[id]
		if rec.DriverID != driverID {
			continue
		}
		if latest == nil || rec.Date > latest.Date {
			copied := rec
			latest = &copied
		}
	}
	return latest, nil
}

func testOrchestrator(fetcher PlatformFetcher, drivers *memDriverStore, activities *memActivityStore) *Orchestrator {
	return NewOrchestrator(fetcher, drivers, activities, nil, nil, time.UTC, 480, 2)
}

func TestRunIsIdempotent(t *testing.T) {
	fetcher := &fakeFetcher{
		drivers: []platform.DriverProfile{
			{ID: "ext-1", FirstName: "Jean", LastName: "Koné", Phone: "0708091011"},
		},
		orders: []platform.Order{
			completedOrder("o1", "ext-1", "2026-03-02T08:00:00Z", "2026-03-02T12:00:00Z", 60000),
		},
		txns: []platform.Transaction{
			{DriverID: "ext-1", Category: "cash_collected", Amount: 15000},
		},
	}
	drivers := newMemDriverStore(fleet.Driver{ID: "d1", FirstName: "Jean", LastName: "Koné", Status: fleet.DriverStatusActive})
	activities := newMemActivityStore()
	orch := testOrchestrator(fetcher, drivers, activities)

	first, err := orch.Run(context.Background(), "2026-03-02")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.RecordsCreated != 1 || first.RecordsUpdated != 0 {
		t.Fatalf("first run: created=%d updated=%d", first.RecordsCreated, first.RecordsUpdated)
	}

	recID := fleet.ActivityRecordID("d1", "2026-03-02")
	afterFirst := activities.records[recID]

	second, err := orch.Run(context.Background(), "2026-03-02")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.RecordsCreated != 0 {
		t.Fatalf("second run must create nothing, created=%d", second.RecordsCreated)
	}
	if second.RecordsUpdated != first.RecordsCreated {
		t.Fatalf("second run updated=%d, want %d", second.RecordsUpdated, first.RecordsCreated)
	}

	afterSecond := activities.records[recID]
	if !reflect.DeepEqual(afterFirst, afterSecond) {
		t.Fatalf("record changed across identical runs:\nfirst:  %+v\nsecond: %+v", afterFirst, afterSecond)
	}
}

func TestRunLinksExternalIDOnce(t *testing.T) {
	fetcher := &fakeFetcher{
		drivers: []platform.DriverProfile{
			{ID: "ext-1", FirstName: "Jean", LastName: "Koné"},
		},
		orders: []platform.Order{
			completedOrder("o1", "ext-1", "2026-03-02T08:00:00Z", "2026-03-02T09:00:00Z", 10000),
		},
	}
	drivers := newMemDriverStore(fleet.Driver{ID: "d1", FirstName: "Jean", LastName: "Koné", Status: fleet.DriverStatusActive})
	activities := newMemActivityStore()
	orch := testOrchestrator(fetcher, drivers, activities)

	first, err := orch.Run(context.Background(), "2026-03-02")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.MatchMethods[string(MethodNameExact)] != 1 {
		t.Fatalf("expected name_exact on first run, got %v", first.MatchMethods)
	}
	if drivers.drivers["d1"].ExternalDriverID != "ext-1" {
		t.Fatalf("external link not written")
	}

	// second run fast-paths through the stored link even though the
	// platform now reports a different name
	fetcher.drivers[0].FirstName = "J."
	second, err := orch.Run(context.Background(), "2026-03-02")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.MatchMethods[string(MethodExternalID)] != 1 {
		t.Fatalf("expected external_id on second run, got %v", second.MatchMethods)
	}
}

func TestRunIsolatesPerDriverErrors(t *testing.T) {
	fetcher := &fakeFetcher{
		drivers: []platform.DriverProfile{
			{ID: "ext-1", FirstName: "Jean", LastName: "Koné"},
			{ID: "ext-2", FirstName: "Awa", LastName: "Diabaté"},
			{ID: "ext-3", FirstName: "Issa", LastName: "Traoré"},
		},
		orders: []platform.Order{
			completedOrder("o1", "ext-1", "2026-03-02T08:00:00Z", "2026-03-02T09:00:00Z", 10000),
			completedOrder("o2", "ext-2", "garbage", "2026-03-02T09:00:00Z", 10000),
			// ext-3 has no completed orders at all
			{ID: "o3", DriverID: "ext-3", Status: platform.OrderStatusCancelled},
		},
	}
	drivers := newMemDriverStore(
		fleet.Driver{ID: "d1", FirstName: "Jean", LastName: "Koné", Status: fleet.DriverStatusActive},
		fleet.Driver{ID: "d2", FirstName: "Awa", LastName: "Diabaté", Status: fleet.DriverStatusActive},
		fleet.Driver{ID: "d3", FirstName: "Issa", LastName: "Traoré", Status: fleet.DriverStatusActive},
	)
	activities := newMemActivityStore()
	orch := testOrchestrator(fetcher, drivers, activities)

	summary, err := orch.Run(context.Background(), "2026-03-02")
	if err != nil {
		t.Fatalf("run must survive per-driver errors: %v", err)
	}

	byDriver := make(map[string]DriverOutcome)
	for _, out := range summary.Outcomes {
		byDriver[out.DriverID] = out
	}
	if byDriver["d1"].Status != OutcomeOK {
		t.Fatalf("d1 expected ok, got %+v", byDriver["d1"])
	}
	if byDriver["d2"].Status != OutcomeError {
		t.Fatalf("d2 expected error, got %+v", byDriver["d2"])
	}
	if byDriver["d3"].Status != OutcomeSkip || byDriver["d3"].Reason != "no completed activity" {
		t.Fatalf("d3 expected skip, got %+v", byDriver["d3"])
	}
	if summary.RecordsCreated != 1 {
		t.Fatalf("expected 1 record created, got %d", summary.RecordsCreated)
	}
}

type fakeWorkRules struct {
	rules []platform.WorkRule
	err   error
}

func (f *fakeWorkRules) Get(ctx context.Context, now time.Time) ([]platform.WorkRule, error) {
	return f.rules, f.err
}

func TestRunFiltersRosterByWorkRule(t *testing.T) {
	fetcher := &fakeFetcher{
		drivers: []platform.DriverProfile{
			{ID: "ext-1", FirstName: "Jean", LastName: "Koné", WorkRuleID: "wr-std"},
			{ID: "ext-2", FirstName: "Awa", LastName: "Diabaté", WorkRuleID: "wr-vip"},
		},
		orders: []platform.Order{
			completedOrder("o1", "ext-1", "2026-03-02T08:00:00Z", "2026-03-02T09:00:00Z", 10000),
			completedOrder("o2", "ext-2", "2026-03-02T08:00:00Z", "2026-03-02T09:00:00Z", 10000),
		},
	}
	drivers := newMemDriverStore(
		fleet.Driver{ID: "d1", FirstName: "Jean", LastName: "Koné", Status: fleet.DriverStatusActive},
		fleet.Driver{ID: "d2", FirstName: "Awa", LastName: "Diabaté", Status: fleet.DriverStatusActive},
	)
	orch := testOrchestrator(fetcher, drivers, newMemActivityStore())
	orch.WorkRules = &fakeWorkRules{rules: []platform.WorkRule{
		{ID: "wr-std", Name: "Standard"},
		{ID: "wr-vip", Name: "VIP"},
	}}
	orch.WorkRuleName = "Standard"

	summary, err := orch.Run(context.Background(), "2026-03-02")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.ExternalDrivers != 1 || summary.Matched != 1 {
		t.Fatalf("expected only the Standard driver, got external=%d matched=%d",
			summary.ExternalDrivers, summary.Matched)
	}
	if summary.Outcomes[0].ExternalID != "ext-1" {
		t.Fatalf("wrong driver processed: %+v", summary.Outcomes)
	}

	// unknown rule name leaves the roster unfiltered
	orch2 := testOrchestrator(fetcher, newMemDriverStore(
		fleet.Driver{ID: "d1", FirstName: "Jean", LastName: "Koné", Status: fleet.DriverStatusActive},
		fleet.Driver{ID: "d2", FirstName: "Awa", LastName: "Diabaté", Status: fleet.DriverStatusActive},
	), newMemActivityStore())
	orch2.WorkRules = &fakeWorkRules{rules: []platform.WorkRule{{ID: "wr-std", Name: "Standard"}}}
	orch2.WorkRuleName = "Nope"
	summary, err = orch2.Run(context.Background(), "2026-03-02")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.ExternalDrivers != 2 {
		t.Fatalf("unknown rule must not filter, got %d externals", summary.ExternalDrivers)
	}

	// a lookup failure with nothing cached fails the run
	orch3 := testOrchestrator(fetcher, newMemDriverStore(), newMemActivityStore())
	orch3.WorkRules = &fakeWorkRules{err: errors.New("never primed")}
	orch3.WorkRuleName = "Standard"
	if _, err := orch3.Run(context.Background(), "2026-03-02"); err == nil {
		t.Fatalf("expected run failure on work rule lookup error")
	}
}

func TestRunFailsWhenAnyFetchFails(t *testing.T) {
	fetcher := &fakeFetcher{
		drivers: []platform.DriverProfile{{ID: "ext-1"}},
		errTxns: errors.New("boom"),
	}
	orch := testOrchestrator(fetcher, newMemDriverStore(), newMemActivityStore())

	if _, err := orch.Run(context.Background(), "2026-03-02"); err == nil {
		t.Fatalf("expected run failure on fetch error")
	}
}

func TestRunPreflightAbortsBeforeFetch(t *testing.T) {
	fetcher := &fakeFetcher{}
	orch := testOrchestrator(fetcher, newMemDriverStore(), newMemActivityStore())
	orch.Preflight = func() error { return errors.New("missing credentials") }

	if _, err := orch.Run(context.Background(), "2026-03-02"); err == nil {
		t.Fatalf("expected configuration error")
	}
}

func TestRunBoundsUnmatchedSample(t *testing.T) {
	fetcher := &fakeFetcher{}
	for i := 0; i < 50; i++ {
		fetcher.drivers = append(fetcher.drivers, platform.DriverProfile{
			ID:        string(rune('a' + i%26)),
			FirstName: "Nobody",
			LastName:  "Here",
		})
	}
	orch := testOrchestrator(fetcher, newMemDriverStore(), newMemActivityStore())

	summary, err := orch.Run(context.Background(), "2026-03-02")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.UnmatchedTotal != 50 {
		t.Fatalf("expected 50 unmatched total, got %d", summary.UnmatchedTotal)
	}
	if len(summary.Unmatched) != 30 {
		t.Fatalf("unmatched sample must be capped at 30, got %d", len(summary.Unmatched))
	}
}
