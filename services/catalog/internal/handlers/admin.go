package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/example/app-catalog/internal/platform/api"
	"github.com/example/app-catalog/internal/platform/auth"
	"github.com/example/app-catalog/internal/platform/httpserver"
	"github.com/example/app-catalog/services/catalog/internal/rating"
)

type repairResponse struct {
	Repaired  bool             `json:"repaired"`
	Aggregate rating.Aggregate `json:"aggregate"`
}

// RepairHistogram persists the 5-star fallback for an app whose reviews were
// counted before histogram tracking existed.
func RepairHistogram(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		sess := loadSession(w, r, d)
		if sess == nil {
			return
		}
		needed := rating.NeedsRepair(sess.App.Aggregate)
		agg, err := d.Apps.RepairHistogram(r.Context(), sess.App.ID)
		if err != nil {
			d.Log.Error("repair histogram", zap.String("app_id", sess.App.ID), zap.Error(err))
			api.ServiceUnavailable(w, "PERSISTENCE_FAILED", "repair failed", rid, nil)
			return
		}
		operator, _ := auth.UserIDFromContext(r.Context())
		d.Log.Info("histogram repair",
			zap.String("app_id", sess.App.ID),
			zap.String("operator", operator),
			zap.Bool("repaired", needed),
		)
		api.WriteJSON(w, http.StatusOK, repairResponse{Repaired: needed, Aggregate: agg})
	}
}
