// Package handlers exposes the catalog over HTTP/JSON.
package handlers

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/app-catalog/internal/platform/auth"
	"github.com/example/app-catalog/services/catalog/internal/service"
	"github.com/example/app-catalog/services/catalog/internal/store"
	"github.com/example/app-catalog/services/catalog/internal/votes"
)

type Deps struct {
	Apps      store.AppStore
	Ratings   *service.RatingService
	Likes     *service.LikeService
	Downloads *service.DownloadService
	// Votes backs the per-device like guards.
	Votes  votes.Storage
	Events service.EventPublisher
	Log    *zap.Logger

	ReviewPageSize int
}

// NewDeps wires the services around one store.
func NewDeps(st store.Store, vs votes.Storage, events service.EventPublisher, log *zap.Logger) Deps {
	if log == nil {
		log = zap.NewNop()
	}
	return Deps{
		Apps:           st,
		Ratings:        service.NewRatingService(st, log, events),
		Likes:          service.NewLikeService(st, log, events),
		Downloads:      service.NewDownloadService(st, log, events),
		Votes:          vs,
		Events:         events,
		Log:            log,
		ReviewPageSize: store.DefaultReviewLimit,
	}
}

// Mount registers the public and admin routes on r.
func Mount(r chi.Router, d Deps, verifier auth.JWTVerifier) {
	r.Group(func(r chi.Router) {
		r.Use(DeviceID)
		r.Get("/v1/apps", ListApps(d))
		r.Get("/v1/apps/{slug}", GetApp(d))
		r.Get("/v1/apps/{slug}/reviews", ListReviews(d))
		r.Post("/v1/apps/{slug}/reviews", PostReview(d))
		r.Post("/v1/apps/{slug}/like", PostLike(d))
		r.Post("/v1/apps/{slug}/download", PostDownload(d))
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Use(auth.RequireAdmin)
		r.Post("/v1/admin/apps/{slug}/repair-histogram", RepairHistogram(d))
	})
}
