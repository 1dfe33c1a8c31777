package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/app-catalog/services/catalog/internal/rating"
)

func seed(t *testing.T, s *InMemoryStore, a App) App {
	t.Helper()
	created, err := s.Create(context.Background(), a)
	if err != nil {
		t.Fatalf("create %s: %v", a.Slug, err)
	}
	return created
}

func TestInMemoryStore_CreateAndLookup(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	a := seed(t, s, App{Slug: "notes", Name: "Notes"})

	if a.ID == "" {
		t.Fatal("expected generated id")
	}
	byID, err := s.GetByID(ctx, a.ID)
	if err != nil || byID.Slug != "notes" {
		t.Fatalf("get by id: %+v, %v", byID, err)
	}
	bySlug, err := s.GetBySlug(ctx, "notes")
	if err != nil || bySlug.ID != a.ID {
		t.Fatalf("get by slug: %+v, %v", bySlug, err)
	}
	if _, err := s.GetBySlug(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Create(ctx, App{Slug: "notes"}); !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
}

func TestInMemoryStore_ListFilterAndOrder(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	now := time.Now()
	seed(t, s, App{Slug: "a", Name: "Alpha Notes", Category: "tools", CreatedAt: now.Add(-3 * time.Hour),
		Aggregate: rating.Aggregate{Average: 4, Count: 2}})
	seed(t, s, App{Slug: "b", Name: "Beta", Description: "offline NOTES", Category: "tools", CreatedAt: now.Add(-2 * time.Hour),
		Aggregate: rating.Aggregate{Average: 4, Count: 9}})
	seed(t, s, App{Slug: "c", Name: "Gamma", Category: "games", CreatedAt: now.Add(-1 * time.Hour),
		Aggregate: rating.Aggregate{Average: 5, Count: 1}})
	seed(t, s, App{Slug: "d", Name: "Delta", Category: "tools", CreatedAt: now})

	all, _ := s.List(ctx, ListFilter{Category: "all"})
	got := ""
	for _, a := range all {
		got += a.Slug
	}
	if got != "cbad" {
		t.Fatalf("expected order cbad, got %s", got)
	}

	tools, _ := s.List(ctx, ListFilter{Category: "tools", Query: "notes"})
	if len(tools) != 2 || tools[0].Slug != "b" || tools[1].Slug != "a" {
		t.Fatalf("unexpected filtered list: %+v", tools)
	}
}

func TestInMemoryStore_Increments(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	a := seed(t, s, App{Slug: "x", Likes: 10, Downloads: 500})

	if err := s.IncrementLikes(ctx, a.ID); err != nil {
		t.Fatalf("increment likes: %v", err)
	}
	if err := s.IncrementDownloads(ctx, a.ID); err != nil {
		t.Fatalf("increment downloads: %v", err)
	}
	got, _ := s.GetByID(ctx, a.ID)
	if got.Likes != 11 {
		t.Fatalf("expected 11 likes, got %d", got.Likes)
	}
	// tracked downloads start from zero, the editorial count is not carried over
	if got.DownloadCount() != 1 {
		t.Fatalf("expected 1 tracked download, got %d", got.DownloadCount())
	}
	if err := s.IncrementLikes(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryStore_CommitReview(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	a := seed(t, s, App{Slug: "x"})

	agg, err := s.CommitReview(ctx, a.ID, Review{Stars: 4, Comment: "great app"}, rating.ApplyFunc(4))
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if agg.Count != 1 || agg.Average != 4 {
		t.Fatalf("unexpected aggregate: %+v", agg)
	}
	got, _ := s.GetByID(ctx, a.ID)
	if got.Aggregate != agg {
		t.Fatalf("stored aggregate %+v != returned %+v", got.Aggregate, agg)
	}
	reviews, _ := s.ListReviews(ctx, a.ID, 0)
	if len(reviews) != 1 || reviews[0].ID == "" || reviews[0].AppID != a.ID {
		t.Fatalf("unexpected reviews: %+v", reviews)
	}
}

func TestInMemoryStore_CommitReviewApplyErrorLeavesNothing(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	a := seed(t, s, App{Slug: "x"})

	_, err := s.CommitReview(ctx, a.ID, Review{Stars: 9}, rating.ApplyFunc(9))
	if !errors.Is(err, rating.ErrInvalidStars) {
		t.Fatalf("expected ErrInvalidStars, got %v", err)
	}
	reviews, _ := s.ListReviews(ctx, a.ID, 0)
	if len(reviews) != 0 {
		t.Fatalf("expected no reviews, got %d", len(reviews))
	}
	got, _ := s.GetByID(ctx, a.ID)
	if got.Aggregate != (rating.Aggregate{}) {
		t.Fatalf("expected untouched aggregate, got %+v", got.Aggregate)
	}
}

func TestInMemoryStore_ConcurrentCommitsLoseNothing(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	a := seed(t, s, App{Slug: "x"})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(stars int) {
			defer wg.Done()
			_, _ = s.CommitReview(ctx, a.ID, Review{Stars: stars, Comment: "hello"}, rating.ApplyFunc(stars))
		}(1 + i%5)
	}
	wg.Wait()

	got, _ := s.GetByID(ctx, a.ID)
	if got.Aggregate.Count != 100 || got.Aggregate.Histogram.Sum() != 100 {
		t.Fatalf("expected 100 counted reviews, got %+v", got.Aggregate)
	}
	if got.Aggregate.Average < 2.999 || got.Aggregate.Average > 3.001 {
		t.Fatalf("expected average 3, got %f", got.Aggregate.Average)
	}
}

func TestInMemoryStore_ListReviewsNewestFirstAndLimit(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	a := seed(t, s, App{Slug: "x"})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		r := Review{Stars: 5, Comment: fmt.Sprintf("review %d", i), Timestamp: base.Add(time.Duration(i) * time.Minute)}
		if _, err := s.CommitReview(ctx, a.ID, r, rating.ApplyFunc(5)); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}

	page, _ := s.ListReviews(ctx, a.ID, 0)
	if len(page) != DefaultReviewLimit {
		t.Fatalf("expected default page of %d, got %d", DefaultReviewLimit, len(page))
	}
	if page[0].Comment != "review 24" {
		t.Fatalf("expected newest first, got %q", page[0].Comment)
	}
	small, _ := s.ListReviews(ctx, a.ID, 3)
	if len(small) != 3 || small[2].Comment != "review 22" {
		t.Fatalf("unexpected limited page: %+v", small)
	}
}

func TestInMemoryStore_RepairHistogram(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	a := seed(t, s, App{Slug: "legacy", Aggregate: rating.Aggregate{Average: 4.1, Count: 12}})

	agg, err := s.RepairHistogram(ctx, a.ID)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if agg.Histogram.Get(5) != 12 {
		t.Fatalf("expected 12 in 5-star bucket, got %v", agg.Histogram)
	}
	got, _ := s.GetByID(ctx, a.ID)
	if got.Aggregate.Histogram.Sum() != 12 {
		t.Fatalf("expected persisted repair, got %v", got.Aggregate.Histogram)
	}
}

func TestInMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	a := seed(t, s, App{Slug: "x", Screenshots: []string{"one.png"}})

	got, _ := s.GetByID(ctx, a.ID)
	got.Screenshots[0] = "changed.png"
	again, _ := s.GetByID(ctx, a.ID)
	if again.Screenshots[0] != "one.png" {
		t.Fatal("store state leaked through returned slice")
	}
}

func TestStoreInterface(t *testing.T) {
	var _ Store = (*InMemoryStore)(nil)
	var _ Store = (*PostgresStore)(nil)
}
