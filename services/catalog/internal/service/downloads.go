package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/example/app-catalog/internal/platform/analytics"
	"github.com/example/app-catalog/internal/platform/metrics"
	"github.com/example/app-catalog/services/catalog/internal/store"
)

type DownloadService struct {
	Apps   store.AppStore
	Log    *zap.Logger
	Events EventPublisher
}

func NewDownloadService(apps store.AppStore, log *zap.Logger, events EventPublisher) *DownloadService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DownloadService{Apps: apps, Log: log, Events: publisherOrNop(events)}
}

// Download counts one APK download and returns the APK URL. Apps listed only
// on external stores have nothing to count.
func (s *DownloadService) Download(ctx context.Context, sess *Session) (string, error) {
	url := strings.TrimSpace(sess.App.Links.APK)
	if url == "" {
		metrics.RecordAction(metrics.ActionDownload, metrics.ResultRejected)
		return "", ErrNoDownload
	}

	if err := s.Apps.IncrementDownloads(ctx, sess.App.ID); err != nil {
		metrics.RecordAction(metrics.ActionDownload, metrics.ResultFailed)
		if errors.Is(err, store.ErrNotFound) {
			return "", err
		}
		if s.Log != nil {
			s.Log.Warn("download increment failed", zap.String("app_id", sess.App.ID), zap.Error(err))
		}
		return "", &PersistenceError{Op: "increment downloads", Err: err}
	}

	n := 1
	if sess.App.RealDownloads != nil {
		n = *sess.App.RealDownloads + 1
	}
	sess.App.RealDownloads = &n
	metrics.RecordAction(metrics.ActionDownload, metrics.ResultOK)
	publisherOrNop(s.Events).Publish(analytics.SubjectAppDownloaded, "app_downloaded", sess.DeviceID, sess.App.ID, map[string]any{
		"downloads": n,
	})
	return url, nil
}
