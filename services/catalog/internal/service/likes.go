package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/example/app-catalog/internal/platform/analytics"
	"github.com/example/app-catalog/internal/platform/metrics"
	"github.com/example/app-catalog/services/catalog/internal/store"
)

type LikeService struct {
	Apps   store.AppStore
	Log    *zap.Logger
	Events EventPublisher
}

func NewLikeService(apps store.AppStore, log *zap.Logger, events EventPublisher) *LikeService {
	if log == nil {
		log = zap.NewNop()
	}
	return &LikeService{Apps: apps, Log: log, Events: publisherOrNop(events)}
}

// HasLiked reports the device guard state. Guard read errors count as not
// liked.
func (s *LikeService) HasLiked(ctx context.Context, sess *Session) bool {
	if sess.Guard == nil {
		return false
	}
	liked, err := sess.Guard.HasLiked(ctx, sess.App.ID)
	if err != nil {
		s.log().Warn("vote guard read failed", zap.String("app_id", sess.App.ID), zap.Error(err))
		return false
	}
	return liked
}

// Like increments the app's like counter once per device. A second call from
// the same device returns ErrAlreadyLiked without reaching the store.
func (s *LikeService) Like(ctx context.Context, sess *Session) (int, error) {
	if s.HasLiked(ctx, sess) {
		metrics.RecordAction(metrics.ActionLike, metrics.ResultRejected)
		return sess.App.Likes, ErrAlreadyLiked
	}

	if err := s.Apps.IncrementLikes(ctx, sess.App.ID); err != nil {
		metrics.RecordAction(metrics.ActionLike, metrics.ResultFailed)
		if errors.Is(err, store.ErrNotFound) {
			return sess.App.Likes, err
		}
		s.log().Warn("like increment failed", zap.String("app_id", sess.App.ID), zap.Error(err))
		return sess.App.Likes, &PersistenceError{Op: "increment likes", Err: err}
	}

	if sess.Guard != nil {
		if err := sess.Guard.MarkLiked(ctx, sess.App.ID); err != nil {
			s.log().Warn("vote guard write failed", zap.String("app_id", sess.App.ID), zap.Error(err))
		}
	}
	sess.App.Likes++
	metrics.RecordAction(metrics.ActionLike, metrics.ResultOK)
	publisherOrNop(s.Events).Publish(analytics.SubjectAppLiked, "app_liked", sess.DeviceID, sess.App.ID, map[string]any{
		"likes": sess.App.Likes,
	})
	return sess.App.Likes, nil
}

func (s *LikeService) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
