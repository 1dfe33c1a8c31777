package store

import (
	"context"
	"errors"
	"time"

	"github.com/example/app-catalog/services/catalog/internal/rating"
)

// DefaultReviewLimit is the feed page size used when a caller passes no
// usable limit.
const (
	DefaultReviewLimit = 20
	MaxReviewLimit     = 100
)

// AnonymousAuthor is the author tag stored on every review.
const AnonymousAuthor = "anonymous"

var (
	ErrNotFound  = errors.New("app not found")
	ErrSlugTaken = errors.New("slug already in use")
)

// App is a catalog entry.
type App struct {
	ID          string   `json:"id" yaml:"id"`
	Slug        string   `json:"slug" yaml:"slug"`
	Name        string   `json:"name" yaml:"name"`
	Category    string   `json:"category" yaml:"category"`
	Description string   `json:"description" yaml:"description"`
	Size        string   `json:"size" yaml:"size"`
	Internet    string   `json:"internet" yaml:"internet"` // online | offline
	IconURL     string   `json:"icon_url" yaml:"icon_url"`
	Screenshots []string `json:"screenshots" yaml:"screenshots"`

	Links DownloadLinks `json:"links" yaml:"links"`

	Aggregate rating.Aggregate `json:"rating" yaml:"-"`
	Likes     int              `json:"likes" yaml:"likes"`
	// Downloads is the editorial count shown until RealDownloads is tracked.
	Downloads     int       `json:"-" yaml:"downloads"`
	RealDownloads *int      `json:"-" yaml:"-"`
	CreatedAt     time.Time `json:"created_at" yaml:"-"`
}

// DownloadLinks are the channels an app can be fetched from. Only APK
// downloads are counted.
type DownloadLinks struct {
	APK       string `json:"apk,omitempty" yaml:"apk"`
	PlayStore string `json:"playstore,omitempty" yaml:"playstore"`
	Uptodown  string `json:"uptodown,omitempty" yaml:"uptodown"`
	Mega      string `json:"mega,omitempty" yaml:"mega"`
	Mediafire string `json:"mediafire,omitempty" yaml:"mediafire"`
}

// DownloadCount is the count to display: tracked downloads once any exist,
// the editorial figure otherwise.
func (a App) DownloadCount() int {
	if a.RealDownloads != nil {
		return *a.RealDownloads
	}
	return a.Downloads
}

// Review is an immutable star rating with a comment.
type Review struct {
	ID        string    `json:"id"`
	AppID     string    `json:"app_id"`
	Stars     int       `json:"stars"`
	Comment   string    `json:"comment"`
	AuthorTag string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

// ListFilter narrows List. Empty fields match everything; Category "all"
// is the same as empty.
type ListFilter struct {
	Category string
	Query    string
}

// AppStore is the app document collection.
type AppStore interface {
	GetByID(ctx context.Context, id string) (App, error)
	GetBySlug(ctx context.Context, slug string) (App, error)
	// List returns matching apps ordered by average desc, count desc,
	// newest first.
	List(ctx context.Context, f ListFilter) ([]App, error)
	Create(ctx context.Context, a App) (App, error)

	IncrementLikes(ctx context.Context, appID string) error
	IncrementDownloads(ctx context.Context, appID string) error

	// RepairHistogram persists rating.Repaired for one app. It is a no-op
	// once any bucket is non-zero, so legacy apps must be repaired before
	// they receive new reviews.
	RepairHistogram(ctx context.Context, appID string) (rating.Aggregate, error)
}

// ReviewStore is the per-app review sub-collection.
type ReviewStore interface {
	// ListReviews returns at most limit reviews, newest first.
	ListReviews(ctx context.Context, appID string, limit int) ([]Review, error)
	// CommitReview inserts r and replaces the app's aggregate with
	// apply(current) in one transaction. Either both are visible or neither.
	CommitReview(ctx context.Context, appID string, r Review, apply func(rating.Aggregate) (rating.Aggregate, error)) (rating.Aggregate, error)
}

type Store interface {
	AppStore
	ReviewStore
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxReviewLimit {
		return DefaultReviewLimit
	}
	return limit
}

func matchesCategory(f ListFilter, category string) bool {
	return f.Category == "" || f.Category == "all" || f.Category == category
}
