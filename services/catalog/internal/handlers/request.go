package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/app-catalog/internal/platform/api"
	"github.com/example/app-catalog/internal/platform/httpserver"
	"github.com/example/app-catalog/services/catalog/internal/service"
	"github.com/example/app-catalog/services/catalog/internal/store"
	"github.com/example/app-catalog/services/catalog/internal/votes"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

// decodeJSON reads up to maxRequestBodyBytes from r.Body and decodes JSON into dst.
// On failure it writes a 400 response and returns false.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request, rid string, dst *T) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(dst); err != nil {
		api.BadRequest(w, "INVALID_JSON", "Invalid JSON", rid, nil)
		return false
	}
	return true
}

// loadSession looks up the {slug} app and binds it to the caller's device
// guard. On failure it writes the response and returns nil.
func loadSession(w http.ResponseWriter, r *http.Request, d Deps) *service.Session {
	rid := httpserver.RequestIDFromContext(r.Context())
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	if slug == "" {
		api.BadRequest(w, "MISSING_SLUG", "slug is required", rid, nil)
		return nil
	}
	app, err := d.Apps.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			api.NotFound(w, api.CodeNotFound, "app not found", rid)
			return nil
		}
		d.Log.Error("get app", zap.String("slug", slug), zap.String("request_id", rid), zap.Error(err))
		api.ServiceUnavailable(w, "PERSISTENCE_FAILED", "catalog unavailable", rid, nil)
		return nil
	}
	deviceID := DeviceIDFromContext(r.Context())
	var guard *votes.Guard
	if d.Votes != nil && deviceID != "" {
		guard = votes.ForDevice(d.Votes, deviceID)
	}
	return service.NewSession(&app, guard, deviceID)
}

// writeServiceError maps service errors onto the API envelope.
func writeServiceError(w http.ResponseWriter, rid string, err error, details map[string]any) {
	var verr *service.ValidationError
	var perr *service.PersistenceError
	switch {
	case errors.As(err, &verr):
		if details == nil {
			details = map[string]any{}
		}
		details["field"] = verr.Field
		api.BadRequest(w, "VALIDATION_FAILED", verr.Message, rid, details)
	case errors.Is(err, service.ErrAlreadyLiked):
		api.Conflict(w, "ALREADY_LIKED", "already liked from this device", rid, nil)
	case errors.Is(err, service.ErrNoDownload):
		api.NotFound(w, "NO_DOWNLOAD", "app has no direct download", rid)
	case errors.Is(err, store.ErrNotFound):
		api.NotFound(w, api.CodeNotFound, "app not found", rid)
	case errors.As(err, &perr):
		api.ServiceUnavailable(w, "PERSISTENCE_FAILED", "could not save, please retry", rid, details)
	default:
		api.Internal(w, rid)
	}
}
