package platform

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWorkRuleCacheServesWithinTTL(t *testing.T) {
	calls := 0
	cache := NewWorkRuleCache(func(ctx context.Context) ([]WorkRule, error) {
		calls++
		return []WorkRule{{ID: "wr1", Name: "Standard"}}, nil
	}, time.Hour)

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rules, err := cache.Get(ctx, now.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if len(rules) != 1 || rules[0].ID != "wr1" {
			t.Fatalf("unexpected rules %+v", rules)
		}
	}
	if calls != 1 {
		t.Fatalf("expected single fetch within ttl, got %d", calls)
	}
}

func TestWorkRuleCacheRefreshesAfterTTL(t *testing.T) {
	calls := 0
	cache := NewWorkRuleCache(func(ctx context.Context) ([]WorkRule, error) {
		calls++
		return []WorkRule{{ID: "wr1"}}, nil
	}, time.Hour)

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if _, err := cache.Get(ctx, now); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := cache.Get(ctx, now.Add(2*time.Hour)); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected refresh after ttl, got %d fetches", calls)
	}
}

func TestWorkRuleCacheFallsBackToLastGood(t *testing.T) {
	calls := 0
	cache := NewWorkRuleCache(func(ctx context.Context) ([]WorkRule, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("platform down")
		}
		return []WorkRule{{ID: "wr1"}}, nil
	}, time.Hour)

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if _, err := cache.Get(ctx, now); err != nil {
		t.Fatalf("Get: %v", err)
	}
	rules, err := cache.Get(ctx, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("expected stale fallback, got error %v", err)
	}
	if len(rules) != 1 || rules[0].ID != "wr1" {
		t.Fatalf("expected last good value, got %+v", rules)
	}
}

func TestWorkRuleCacheNeverPrimedPropagatesError(t *testing.T) {
	cache := NewWorkRuleCache(func(ctx context.Context) ([]WorkRule, error) {
		return nil, errors.New("platform down")
	}, time.Hour)

	if _, err := cache.Get(context.Background(), time.Now()); err == nil {
		t.Fatalf("expected error when never primed")
	}
}
