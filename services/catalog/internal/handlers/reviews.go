package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/example/app-catalog/internal/platform/api"
	"github.com/example/app-catalog/internal/platform/httpserver"
	"github.com/example/app-catalog/services/catalog/internal/rating"
	"github.com/example/app-catalog/services/catalog/internal/store"
)

type reviewRequest struct {
	Stars   int    `json:"stars"`
	Comment string `json:"comment"`
}

type listReviewsResponse struct {
	Items []store.Review `json:"items"`
}

type postReviewResponse struct {
	Rating rating.View  `json:"rating"`
	Review store.Review `json:"review"`
}

// ListReviews returns the newest reviews of an app, ?limit= bounded.
func ListReviews(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := loadSession(w, r, d)
		if sess == nil {
			return
		}
		limit := d.ReviewPageSize
		if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				api.BadRequest(w, "INVALID_LIMIT", "limit must be an integer", httpserver.RequestIDFromContext(r.Context()), nil)
				return
			}
			limit = n
		}
		items, err := d.Ratings.ListReviews(r.Context(), sess.App.ID, limit)
		if err != nil {
			writeServiceError(w, httpserver.RequestIDFromContext(r.Context()), err, nil)
			return
		}
		if items == nil {
			items = []store.Review{}
		}
		api.WriteJSON(w, http.StatusOK, listReviewsResponse{Items: items})
	}
}

// PostReview submits a review for the device. A failed save echoes the draft
// back so the client can retry without retyping.
func PostReview(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		sess := loadSession(w, r, d)
		if sess == nil {
			return
		}
		var req reviewRequest
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		sess.Draft.Stars = req.Stars
		sess.Draft.Text = req.Comment

		res, err := d.Ratings.SubmitReview(r.Context(), sess)
		if err != nil {
			writeServiceError(w, rid, err, map[string]any{
				"stars":   sess.Draft.Stars,
				"comment": sess.Draft.Text,
			})
			return
		}
		api.WriteJSON(w, http.StatusCreated, postReviewResponse{
			Rating: rating.Summary(res.Aggregate),
			Review: res.Review,
		})
	}
}
