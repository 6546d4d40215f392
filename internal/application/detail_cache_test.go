package application

import (
	"context"
	"testing"
	"time"
)

func TestMemoryDetailCache_StoreAndExpire(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := newMemoryDetailCache(time.Minute, 10, func() time.Time { return now })
	ctx := context.Background()

	cache.StoreVisitDetail(ctx, completedDetail())
	got, ok := cache.GetVisitDetail(ctx, 1)
	if !ok || got.Visit.ID != 1 {
		t.Fatalf("expected cached detail, got %+v (ok=%v)", got, ok)
	}

	got.Visit.Registration.Observations = "mutated"
	again, _ := cache.GetVisitDetail(ctx, 1)
	if again.Visit.Registration.Observations != "Sin novedades" {
		t.Fatalf("expected cached registration to be isolated from callers")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := cache.GetVisitDetail(ctx, 1); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestMemoryDetailCache_InvalidateAndEvict(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := newMemoryDetailCache(time.Minute, 2, func() time.Time { return now })
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		cache.StoreVisitDetail(ctx, VisitDetail{Visit: Visit{ID: id}})
		now = now.Add(time.Second)
	}
	if _, ok := cache.GetVisitDetail(ctx, 1); ok {
		t.Fatalf("expected the oldest entry to be evicted")
	}
	if _, ok := cache.GetVisitDetail(ctx, 3); !ok {
		t.Fatalf("expected the newest entry to be kept")
	}

	cache.InvalidateVisit(ctx, 3)
	if _, ok := cache.GetVisitDetail(ctx, 3); ok {
		t.Fatalf("expected invalidated entry to be gone")
	}

	cache.StoreVisitDetail(ctx, VisitDetail{})
	if len(cache.entries) != 1 {
		t.Fatalf("expected zero id details to be ignored, got %d entries", len(cache.entries))
	}
}
