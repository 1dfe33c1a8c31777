package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/app-catalog/internal/platform/analytics"
	"github.com/example/app-catalog/internal/platform/metrics"
	"github.com/example/app-catalog/services/catalog/internal/rating"
	"github.com/example/app-catalog/services/catalog/internal/store"
)

const (
	MinCommentLen = 5
	MaxCommentLen = 280
)

type RatingService struct {
	Reviews store.ReviewStore
	Log     *zap.Logger
	Events  EventPublisher
	Now     func() time.Time
}

func NewRatingService(reviews store.ReviewStore, log *zap.Logger, events EventPublisher) *RatingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RatingService{Reviews: reviews, Log: log, Events: publisherOrNop(events), Now: time.Now}
}

// ReviewResult is what a caller needs to re-render: the committed aggregate
// and the review to prepend to the feed.
type ReviewResult struct {
	Aggregate rating.Aggregate `json:"aggregate"`
	Review    store.Review     `json:"review"`
}

// ValidateDraft checks a draft without touching any store.
func ValidateDraft(d Draft) error {
	if d.Stars == 0 {
		return invalid("stars", "rating required")
	}
	if d.Stars < rating.MinStars || d.Stars > rating.MaxStars {
		return invalid("stars", "rating must be between 1 and 5")
	}
	n := utf8.RuneCountInString(strings.TrimSpace(d.Text))
	if n < MinCommentLen {
		return invalid("comment", "comment too short")
	}
	if n > MaxCommentLen {
		return invalid("comment", "comment too long")
	}
	return nil
}

// SubmitReview validates the session draft, then commits the review and the
// new aggregate in one store transaction. On success the session app adopts
// the committed aggregate and the draft is cleared. On failure the session is
// left exactly as it was.
func (s *RatingService) SubmitReview(ctx context.Context, sess *Session) (ReviewResult, error) {
	if err := ValidateDraft(sess.Draft); err != nil {
		metrics.RecordAction(metrics.ActionReview, metrics.ResultRejected)
		return ReviewResult{}, err
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	review := store.Review{
		ID:        uuid.NewString(),
		AppID:     sess.App.ID,
		Stars:     sess.Draft.Stars,
		Comment:   strings.TrimSpace(sess.Draft.Text),
		AuthorTag: store.AnonymousAuthor,
		Timestamp: now().UTC(),
	}

	agg, err := s.Reviews.CommitReview(ctx, sess.App.ID, review, rating.ApplyFunc(review.Stars))
	if err != nil {
		metrics.RecordAction(metrics.ActionReview, metrics.ResultFailed)
		s.log().Warn("review commit failed",
			zap.String("app_id", sess.App.ID),
			zap.Error(err),
		)
		return ReviewResult{}, &PersistenceError{Op: "commit review", Err: err}
	}

	sess.App.Aggregate = agg
	sess.Draft = Draft{}
	metrics.RecordAction(metrics.ActionReview, metrics.ResultOK)
	publisherOrNop(s.Events).Publish(analytics.SubjectReviewSubmitted, "review_submitted", sess.DeviceID, sess.App.ID, map[string]any{
		"stars":        review.Stars,
		"rating_count": agg.Count,
	})
	return ReviewResult{Aggregate: agg, Review: review}, nil
}

// ListReviews returns the newest reviews of an app.
func (s *RatingService) ListReviews(ctx context.Context, appID string, limit int) ([]store.Review, error) {
	out, err := s.Reviews.ListReviews(ctx, appID, limit)
	if err != nil {
		return nil, &PersistenceError{Op: "list reviews", Err: err}
	}
	return out, nil
}

func (s *RatingService) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
