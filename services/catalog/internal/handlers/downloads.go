package handlers

import (
	"net/http"

	"github.com/example/app-catalog/internal/platform/api"
	"github.com/example/app-catalog/internal/platform/httpserver"
)

type downloadResponse struct {
	URL       string `json:"url"`
	Downloads int    `json:"downloads"`
}

// PostDownload counts an APK download and returns the file URL to follow.
func PostDownload(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := loadSession(w, r, d)
		if sess == nil {
			return
		}
		url, err := d.Downloads.Download(r.Context(), sess)
		if err != nil {
			writeServiceError(w, httpserver.RequestIDFromContext(r.Context()), err, nil)
			return
		}
		api.WriteJSON(w, http.StatusOK, downloadResponse{URL: url, Downloads: sess.App.DownloadCount()})
	}
}
