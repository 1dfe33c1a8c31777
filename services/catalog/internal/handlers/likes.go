package handlers

import (
	"net/http"

	"github.com/example/app-catalog/internal/platform/api"
	"github.com/example/app-catalog/internal/platform/httpserver"
)

type likeResponse struct {
	Likes int  `json:"likes"`
	Liked bool `json:"liked"`
}

func PostLike(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := loadSession(w, r, d)
		if sess == nil {
			return
		}
		n, err := d.Likes.Like(r.Context(), sess)
		if err != nil {
			writeServiceError(w, httpserver.RequestIDFromContext(r.Context()), err, nil)
			return
		}
		api.WriteJSON(w, http.StatusOK, likeResponse{Likes: n, Liked: true})
	}
}
