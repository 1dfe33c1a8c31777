package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/example/app-catalog/internal/platform/analytics"
	"github.com/example/app-catalog/internal/platform/api"
	"github.com/example/app-catalog/internal/platform/httpserver"
	"github.com/example/app-catalog/services/catalog/internal/rating"
	"github.com/example/app-catalog/services/catalog/internal/service"
	"github.com/example/app-catalog/services/catalog/internal/store"
)

// appCard is the list view of an app.
type appCard struct {
	ID          string  `json:"id"`
	Slug        string  `json:"slug"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	IconURL     string  `json:"icon_url"`
	Average     float64 `json:"rating_avg"`
	RatingLabel string  `json:"rating_label"`
	RatingCount int     `json:"rating_count"`
	Likes       int     `json:"likes"`
	Size        string  `json:"size"`
	Downloads   int     `json:"downloads"`
	Internet    string  `json:"internet"`
}

type listAppsResponse struct {
	Items []appCard `json:"items"`
}

type appDetailResponse struct {
	store.App
	Downloads int         `json:"downloads"`
	Rating    rating.View `json:"rating_view"`
	Liked     bool        `json:"liked"`
}

func toCard(a store.App) appCard {
	return appCard{
		ID:          a.ID,
		Slug:        a.Slug,
		Name:        a.Name,
		Category:    a.Category,
		IconURL:     a.IconURL,
		Average:     a.Aggregate.Average,
		RatingLabel: rating.FormatAverage(a.Aggregate.Average),
		RatingCount: a.Aggregate.Count,
		Likes:       a.Likes,
		Size:        a.Size,
		Downloads:   a.DownloadCount(),
		Internet:    a.Internet,
	}
}

// ListApps returns app cards filtered by ?category= and ?q=.
func ListApps(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		f := store.ListFilter{
			Category: strings.TrimSpace(r.URL.Query().Get("category")),
			Query:    strings.TrimSpace(r.URL.Query().Get("q")),
		}
		apps, err := d.Apps.List(r.Context(), f)
		if err != nil {
			d.Log.Error("list apps", zap.String("request_id", rid), zap.Error(err))
			api.ServiceUnavailable(w, "PERSISTENCE_FAILED", "catalog unavailable", rid, nil)
			return
		}
		resp := listAppsResponse{Items: make([]appCard, 0, len(apps))}
		for _, a := range apps {
			resp.Items = append(resp.Items, toCard(a))
		}
		if f.Query != "" && d.Events != nil {
			d.Events.Publish(analytics.SubjectSearchPerformed, "search_performed", DeviceIDFromContext(r.Context()), "", map[string]any{
				"query":    f.Query,
				"category": f.Category,
				"results":  len(apps),
			})
		}
		api.WriteJSON(w, http.StatusOK, resp)
	}
}

func detailResponse(d Deps, r *http.Request, sess *service.Session) appDetailResponse {
	return appDetailResponse{
		App:       *sess.App,
		Downloads: sess.App.DownloadCount(),
		Rating:    rating.Summary(sess.App.Aggregate),
		Liked:     d.Likes.HasLiked(r.Context(), sess),
	}
}

// GetApp returns one app with its rating view and the device's like state.
func GetApp(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := loadSession(w, r, d)
		if sess == nil {
			return
		}
		if d.Events != nil {
			d.Events.Publish(analytics.SubjectAppViewed, "app_viewed", sess.DeviceID, sess.App.ID, nil)
		}
		api.WriteJSON(w, http.StatusOK, detailResponse(d, r, sess))
	}
}
