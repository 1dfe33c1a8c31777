package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/app-catalog/services/catalog/internal/rating"
)

// InMemoryStore is a development-only implementation. A single mutex makes
// every operation, including CommitReview, atomic.
type InMemoryStore struct {
	mu      sync.RWMutex
	apps    map[string]App      // id -> app
	slugs   map[string]string   // slug -> id
	reviews map[string][]Review // app id -> reviews, oldest first
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		apps:    make(map[string]App),
		slugs:   make(map[string]string),
		reviews: make(map[string][]Review),
	}
}

func (s *InMemoryStore) GetByID(_ context.Context, id string) (App, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.apps[id]
	if !ok {
		return App{}, ErrNotFound
	}
	return cloneApp(a), nil
}

func (s *InMemoryStore) GetBySlug(_ context.Context, slug string) (App, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.slugs[slug]
	if !ok {
		return App{}, ErrNotFound
	}
	return cloneApp(s.apps[id]), nil
}

func (s *InMemoryStore) List(_ context.Context, f ListFilter) ([]App, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]App, 0, len(s.apps))
	for _, a := range s.apps {
		if !matchesCategory(f, a.Category) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(a.Name), q) &&
			!strings.Contains(strings.ToLower(a.Description), q) {
			continue
		}
		out = append(out, cloneApp(a))
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := out[i].Aggregate, out[j].Aggregate
		if ai.Average != aj.Average {
			return ai.Average > aj.Average
		}
		if ai.Count != aj.Count {
			return ai.Count > aj.Count
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *InMemoryStore) Create(_ context.Context, a App) (App, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.slugs[a.Slug]; taken {
		return App{}, ErrSlugTaken
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a = cloneApp(a)
	s.apps[a.ID] = a
	s.slugs[a.Slug] = a.ID
	return cloneApp(a), nil
}

func (s *InMemoryStore) IncrementLikes(_ context.Context, appID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[appID]
	if !ok {
		return ErrNotFound
	}
	a.Likes++
	s.apps[appID] = a
	return nil
}

func (s *InMemoryStore) IncrementDownloads(_ context.Context, appID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[appID]
	if !ok {
		return ErrNotFound
	}
	n := 1
	if a.RealDownloads != nil {
		n = *a.RealDownloads + 1
	}
	a.RealDownloads = &n
	s.apps[appID] = a
	return nil
}

func (s *InMemoryStore) RepairHistogram(_ context.Context, appID string) (rating.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[appID]
	if !ok {
		return rating.Aggregate{}, ErrNotFound
	}
	a.Aggregate = rating.Repaired(a.Aggregate)
	s.apps[appID] = a
	return a.Aggregate, nil
}

func (s *InMemoryStore) ListReviews(_ context.Context, appID string, limit int) ([]Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.reviews[appID]
	out := make([]Review, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) CommitReview(_ context.Context, appID string, r Review, apply func(rating.Aggregate) (rating.Aggregate, error)) (rating.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.apps[appID]
	if !ok {
		return rating.Aggregate{}, ErrNotFound
	}
	next, err := apply(a.Aggregate)
	if err != nil {
		return rating.Aggregate{}, err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	r.AppID = appID
	s.reviews[appID] = append(s.reviews[appID], r)
	a.Aggregate = next
	s.apps[appID] = a
	return next, nil
}

func cloneApp(a App) App {
	if a.Screenshots != nil {
		a.Screenshots = append([]string(nil), a.Screenshots...)
	}
	if a.RealDownloads != nil {
		n := *a.RealDownloads
		a.RealDownloads = &n
	}
	return a
}
